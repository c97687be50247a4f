package microtemplates

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// parseFragment parses s as body content. The x/net/html parser recovers
// from malformed markup the way browsers do, so only reader failures error.
func parseFragment(s string, context *html.Node) ([]*html.Node, error) {
	if context == nil || context.Type != html.ElementNode {
		context = bodyNode()
	}
	return html.ParseFragment(strings.NewReader(s), context)
}

func bodyNode() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
}

// renderChildren serializes the children of root.
func renderChildren(root *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// significantNodes drops whitespace-only text nodes.
func significantNodes(nodes []*html.Node) []*html.Node {
	out := make([]*html.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Type == html.TextNode && strings.TrimSpace(n.Data) == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

func getAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// findMarkers returns elements carrying attr in document order. Markers
// nested inside another marker are not visited.
func findMarkers(root *html.Node, attr string) []*html.Node {
	var markers []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				if _, ok := getAttr(c, attr); ok {
					markers = append(markers, c)
					continue
				}
			}
			walk(c)
		}
	}
	walk(root)
	return markers
}

// replaceNode puts nodes where target was.
func replaceNode(target *html.Node, nodes ...*html.Node) {
	parent := target.Parent
	if parent == nil {
		return
	}
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		parent.InsertBefore(n, target)
	}
	parent.RemoveChild(target)
}

// commentNode builds an HTML comment whose text cannot terminate early.
func commentNode(text string) *html.Node {
	for strings.Contains(text, "--") {
		text = strings.ReplaceAll(text, "--", "- -")
	}
	return &html.Node{Type: html.CommentNode, Data: " " + text + " "}
}
