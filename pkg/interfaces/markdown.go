package interfaces

// MarkdownParser converts raw Markdown into HTML.
type MarkdownParser interface {
	Parse(markdown []byte) ([]byte, error)
}
