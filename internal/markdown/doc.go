// Package markdown loads Markdown documents with YAML frontmatter from a
// filesystem and renders them to HTML with goldmark.
package markdown
