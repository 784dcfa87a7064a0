package surface

import (
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// cursor is the emulated selection: a run of text inside one text node, a
// caret inside an element, or a selected image
type cursor struct {
	node  *html.Node
	text  string
	image *html.Node
}

func (c cursor) valid() bool {
	return c.node != nil || c.image != nil
}

// anchor is the node the selection's ancestry is read from
func (c cursor) anchor() *html.Node {
	if c.image != nil {
		return c.image
	}
	return c.node
}

// attached reports whether n is still inside root
func attached(n, root *html.Node) bool {
	for c := n; c != nil; c = c.Parent {
		if c == root {
			return true
		}
	}
	return false
}

// regionOf returns the id of the innermost region containing n
func (s *Surface) regionOf(n *html.Node) string {
	for c := n; c != nil; c = c.Parent {
		if c.Type == html.ElementNode && c.DataAtom == atom.Div {
			if id := getAttr(c, "id"); id != "" {
				return id
			}
		}
	}
	return s.rootID
}

// snapshot renders the selection the way getSelectionState reports it
func (s *Surface) snapshot() string {
	anchor := s.sel.anchor()
	if !s.focused || anchor == nil || !attached(anchor, s.root) {
		return "{}"
	}

	snap := map[string]any{
		"valid":     true,
		"divid":     s.regionOf(anchor),
		"selection": s.sel.text,
	}

	if img := s.sel.image; img != nil {
		snap["src"] = getAttr(img, "src")
		snap["alt"] = getAttr(img, "alt")
		snap["width"] = numberAttr(img, "width", 0)
		snap["height"] = numberAttr(img, "height", 0)
		snap["scale"] = numberAttr(img, "data-scale", 100)
	}

	styled := false
	for n := anchor; n != nil && n != s.root; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		switch n.DataAtom {
		case atom.A:
			if _, ok := snap["href"]; !ok {
				snap["href"] = getAttr(n, "href")
				snap["link"] = textContent(n)
			}
		case atom.B, atom.Strong:
			snap["bold"] = true
		case atom.I, atom.Em:
			snap["italic"] = true
		case atom.U:
			snap["underline"] = true
		case atom.S, atom.Strike, atom.Del:
			snap["strike"] = true
		case atom.Sub:
			snap["sub"] = true
		case atom.Sup:
			snap["sup"] = true
		case atom.Code:
			snap["code"] = true
		case atom.Td, atom.Th:
			snap["table"] = true
			snap["col"] = indexOf(n)
			if n.Parent != nil {
				snap["row"] = indexOf(n.Parent)
			}
		case atom.Thead:
			snap["thead"] = true
		case atom.Tbody:
			snap["tbody"] = true
		case atom.Table:
			s.describeTable(n, snap)
		case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			if !styled {
				snap["style"] = strings.ToUpper(n.Data)
				styled = true
			}
		case atom.Li:
			snap["li"] = true
		case atom.Ul, atom.Ol:
			if _, ok := snap["list"]; !ok {
				snap["list"] = strings.ToUpper(n.Data)
			}
		case atom.Blockquote:
			snap["quote"] = true
		}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func (s *Surface) describeTable(table *html.Node, snap map[string]any) {
	rows, cols := 0, 0
	header := false
	spans := 0.0
	inspect(table, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		switch n.DataAtom {
		case atom.Thead:
			header = true
			if th := findElement(n, func(c *html.Node) bool { return c.DataAtom == atom.Th }); th != nil {
				spans = numberAttr(th, "colspan", 0)
			}
			return false
		case atom.Tr:
			rows++
			cols = max(cols, len(cellsOf(n)))
		}
		return true
	})
	snap["rows"] = rows
	snap["cols"] = cols
	snap["header"] = header
	snap["colspan"] = spans
	if border := getAttr(table, "data-border"); border != "" {
		snap["border"] = border
	}
}

func numberAttr(n *html.Node, key string, def float64) float64 {
	v, err := strconv.ParseFloat(getAttr(n, key), 64)
	if err != nil {
		return def
	}
	return v
}
