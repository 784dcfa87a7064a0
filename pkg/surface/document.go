package surface

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockAtoms are the elements a paragraph style applies to
var blockAtoms = []atom.Atom{atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

// formatAtoms maps toggleFormat names to the element that carries them
var formatAtoms = map[string]atom.Atom{
	"bold":      atom.B,
	"italic":    atom.I,
	"underline": atom.U,
	"strike":    atom.S,
	"sub":       atom.Sub,
	"sup":       atom.Sup,
	"code":      atom.Code,
}

func newElement(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a, Attr: attrs}
}

func newText(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	attrs := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			attrs = append(attrs, a)
		}
	}
	n.Attr = attrs
}

// walk visits n and its descendants depth first until fn returns false
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

// inspect visits n and its descendants depth first, skipping the children
// of nodes for which fn returns false
func inspect(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		inspect(c, fn)
	}
}

func findByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && getAttr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// findText returns the first text node under n containing needle
func findText(n *html.Node, needle string) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode && strings.Contains(c.Data, needle) {
			found = c
			return false
		}
		return true
	})
	return found
}

func findElement(n *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode && match(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

// closest returns the nearest ancestor of n, n included, that is one of
// atoms, stopping at stop
func closest(n, stop *html.Node, atoms ...atom.Atom) *html.Node {
	for c := n; c != nil && c != stop; c = c.Parent {
		if c.Type != html.ElementNode {
			continue
		}
		for _, a := range atoms {
			if c.DataAtom == a {
				return c
			}
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}

func innerHTML(n *html.Node) (string, error) {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", fmt.Errorf("failed to render markup: %w", err)
		}
	}
	return b.String(), nil
}

func clearChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

func setInnerHTML(n *html.Node, markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), n)
	if err != nil {
		return fmt.Errorf("failed to parse markup: %w", err)
	}
	clearChildren(n)
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}

func insertAfter(ref, n *html.Node) {
	if ref.NextSibling != nil {
		ref.Parent.InsertBefore(n, ref.NextSibling)
		return
	}
	ref.Parent.AppendChild(n)
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// wrapText splits the text node around its first occurrence of needle and
// moves that occurrence into wrapper. It returns the text node now holding
// needle.
func wrapText(text *html.Node, needle string, wrapper *html.Node) *html.Node {
	i := strings.Index(text.Data, needle)
	if i < 0 || text.Parent == nil {
		return text
	}
	before, after := text.Data[:i], text.Data[i+len(needle):]
	parent := text.Parent

	if before != "" {
		parent.InsertBefore(newText(before), text)
	}
	parent.InsertBefore(wrapper, text)
	if after != "" {
		parent.InsertBefore(newText(after), text)
	}
	parent.RemoveChild(text)

	inner := newText(needle)
	wrapper.AppendChild(inner)
	return inner
}

// unwrap replaces n with its children
func unwrap(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
		c = next
	}
	parent.RemoveChild(n)
}

// retag changes the element type of n in place
func retag(n *html.Node, a atom.Atom) {
	n.DataAtom = a
	n.Data = a.String()
}

// wrapNode puts wrapper where n is and n inside it
func wrapNode(n, wrapper *html.Node) {
	n.Parent.InsertBefore(wrapper, n)
	n.Parent.RemoveChild(n)
	wrapper.AppendChild(n)
}

func countBlocks(root *html.Node) int {
	blocks := 0
	walk(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n == root {
			return true
		}
		switch n.DataAtom {
		case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
			atom.Li, atom.Tr, atom.Blockquote, atom.Div, atom.Img:
			blocks++
		}
		return true
	})
	return blocks
}

func elementChildren(n *html.Node, a atom.Atom) []*html.Node {
	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			children = append(children, c)
		}
	}
	return children
}

func indexOf(n *html.Node) int {
	i := 0
	for c := n.Parent.FirstChild; c != nil && c != n; c = c.NextSibling {
		if c.Type == html.ElementNode {
			i++
		}
	}
	return i
}
