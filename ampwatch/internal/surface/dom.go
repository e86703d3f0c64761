package surface

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Element is a read-only view of a DOM element handed to click handlers.
type Element struct {
	Tag   string
	Attrs map[string]string
	Text  string
}

// Attr returns the named attribute, or "".
func (e Element) Attr(name string) string { return e.Attrs[name] }

// query returns the elements under root matching the selector group, in
// document order. root itself is never included.
func query(root *html.Node, sel string) ([]*html.Node, error) {
	group, err := cascadia.ParseGroup(sel)
	if err != nil {
		return nil, fmt.Errorf("surface: selector %q: %w", sel, err)
	}
	return cascadia.QueryAll(root, group), nil
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// textContent concatenates every descendant text node. With rendered set,
// script and style bodies are skipped, approximating innerText.
func textContent(n *html.Node, rendered bool) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if rendered && n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func toElement(n *html.Node) Element {
	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		attrs[a.Key] = a.Val
	}
	return Element{Tag: n.Data, Attrs: attrs, Text: textContent(n, false)}
}

func parseDocument(body []byte) (*html.Node, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("surface: parse html: %w", err)
	}
	return doc, nil
}
