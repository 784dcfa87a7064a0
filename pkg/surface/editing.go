package surface

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/pluqqy/editbridge/pkg/protocol"
)

// anchored returns the selection anchor if it is still in the document
func (s *Surface) anchored() *html.Node {
	n := s.sel.anchor()
	if n == nil || !attached(n, s.root) {
		return nil
	}
	return n
}

func (s *Surface) toggleFormat(a args) any {
	name := a.str(0)
	tag, ok := formatAtoms[name]
	if !ok {
		s.throw(fmt.Errorf("unknown format %q", name))
	}
	node := s.anchored()
	if node == nil {
		return false
	}

	wrapper := closest(node, s.root, tag)
	switch {
	case wrapper != nil:
		s.checkpoint()
		unwrap(wrapper)
	case node.Type == html.TextNode && s.sel.text != "":
		s.checkpoint()
		s.sel.node = wrapText(node, s.sel.text, newElement(tag))
	default:
		return false
	}
	s.emitInput()
	return true
}

func (s *Surface) setStyle(a args) any {
	tag := atom.Lookup([]byte(strings.ToLower(a.str(0))))
	if !slices.Contains(blockAtoms, tag) {
		s.throw(fmt.Errorf("unknown paragraph style %q", a.str(0)))
	}
	node := s.anchored()
	if node == nil {
		return false
	}

	s.checkpoint()
	switch block := closest(node, s.root, blockAtoms...); {
	case block != nil:
		retag(block, tag)
	case node == s.root || node.Type == html.ElementNode && node.DataAtom == atom.Div:
		block = newElement(tag)
		node.AppendChild(block)
		s.sel = cursor{node: block}
	default:
		wrapNode(node, newElement(tag))
	}
	s.emitInput()
	return true
}

func (s *Surface) toggleListItem(a args) any {
	var tag atom.Atom
	switch strings.ToUpper(a.str(0)) {
	case "UL":
		tag = atom.Ul
	case "OL":
		tag = atom.Ol
	default:
		s.throw(fmt.Errorf("unknown list type %q", a.str(0)))
	}
	node := s.anchored()
	if node == nil || node == s.root {
		return false
	}

	s.checkpoint()
	if li := closest(node, s.root, atom.Li); li != nil {
		list := li.Parent
		if list.DataAtom != tag {
			retag(list, tag)
		} else {
			p := newElement(atom.P)
			moveChildren(li, p)
			if len(elementChildren(list, atom.Li)) == 1 {
				insertAfter(list, p)
				detach(list)
			} else {
				insertAfter(list, p)
				detach(li)
			}
		}
	} else {
		target := node
		if block := closest(node, s.root, blockAtoms...); block != nil {
			target = block
		}
		li, list := newElement(atom.Li), newElement(tag)
		wrapNode(target, li)
		wrapNode(li, list)
		if target != node {
			unwrap(target)
		}
	}
	s.emitInput()
	return true
}

func moveChildren(from, to *html.Node) {
	for c := from.FirstChild; c != nil; {
		next := c.NextSibling
		from.RemoveChild(c)
		to.AppendChild(c)
		c = next
	}
}

func (s *Surface) indent(args) any {
	node := s.anchored()
	if node == nil || node == s.root {
		return false
	}
	target := node
	if block := closest(node, s.root, append(blockAtoms, atom.Li)...); block != nil {
		target = block
	}
	s.checkpoint()
	wrapNode(target, newElement(atom.Blockquote))
	s.emitInput()
	return true
}

func (s *Surface) outdent(args) any {
	node := s.anchored()
	if node == nil {
		return false
	}
	quote := closest(node, s.root, atom.Blockquote)
	if quote == nil {
		return false
	}
	s.checkpoint()
	unwrap(quote)
	s.emitInput()
	return true
}

func (s *Surface) insertLink(a args) any {
	href := a.str(0)
	node := s.anchored()
	if node == nil {
		return false
	}
	if link := closest(node, s.root, atom.A); link != nil {
		s.checkpoint()
		setAttr(link, "href", href)
	} else if node.Type == html.TextNode && s.sel.text != "" {
		s.checkpoint()
		s.sel.node = wrapText(node, s.sel.text, newElement(atom.A, html.Attribute{Key: "href", Val: href}))
	} else {
		return false
	}
	s.emitInput()
	return true
}

func (s *Surface) deleteLink(args) any {
	node := s.anchored()
	if node == nil {
		return false
	}
	link := closest(node, s.root, atom.A)
	if link == nil {
		return false
	}
	s.checkpoint()
	unwrap(link)
	s.emitInput()
	return true
}

// place inserts n after the block holding the selection, or at the end
// of the document
func (s *Surface) place(n *html.Node) {
	anchor := s.anchored()
	if anchor == nil || anchor == s.root {
		s.root.AppendChild(n)
		return
	}
	if anchor.Type == html.ElementNode && anchor.DataAtom == atom.Div {
		anchor.AppendChild(n)
		return
	}
	ref := anchor
	if block := closest(anchor, s.root, append(blockAtoms, atom.Li, atom.Table)...); block != nil {
		ref = block
	}
	insertAfter(ref, n)
}

func (s *Surface) insertImage(a args) any {
	src := a.str(0)
	img := newElement(atom.Img, html.Attribute{Key: "src", Val: src})
	if alt := a.str(1); alt != "" {
		setAttr(img, "alt", alt)
	}
	s.checkpoint()
	s.place(img)
	s.sel = cursor{image: img}
	s.emitInput()
	s.emitJSON(protocol.TypeAddedImage, map[string]any{"src": src, "divId": s.regionOf(img)})
	return true
}

func (s *Surface) modifyImage(a args) any {
	img := s.sel.image
	if img == nil || !attached(img, s.root) {
		s.throw(fmt.Errorf("no image is selected"))
	}
	s.checkpoint()
	if src := a.str(0); src != "" {
		setAttr(img, "src", src)
	}
	if alt := a.str(1); alt != "" {
		setAttr(img, "alt", alt)
	}
	setAttr(img, "data-scale", strconv.Itoa(a.num(2)))
	s.emitInput()
	return true
}

func (s *Surface) copySelection(args) any {
	if img := s.sel.image; img != nil && attached(img, s.root) {
		return getAttr(img, "src")
	}
	return s.sel.text
}

func (s *Surface) cutSelection(args) any {
	if img := s.sel.image; img != nil && attached(img, s.root) {
		src, region, parent := getAttr(img, "src"), s.regionOf(img), img.Parent
		s.checkpoint()
		detach(img)
		s.sel = cursor{node: parent}
		s.emitInput()
		s.emitJSON(protocol.TypeDeletedImage, map[string]any{"src": src, "divId": region})
		return src
	}

	node, text := s.anchored(), s.sel.text
	if node == nil || node.Type != html.TextNode || text == "" {
		return ""
	}
	s.checkpoint()
	node.Data = strings.Replace(node.Data, text, "", 1)
	s.sel.text = ""
	s.emitInput()
	return text
}

// Search

func (s *Surface) searchFor(a args) any {
	text, backward := a.str(0), a.str(1) == "before"
	if text == "" {
		return 0
	}
	if !s.search.active || s.search.text != text {
		var matches []*html.Node
		walk(s.root, func(n *html.Node) bool {
			if n.Type == html.TextNode && strings.Contains(n.Data, text) {
				matches = append(matches, n)
			}
			return true
		})
		s.search.text, s.search.matches, s.search.current = text, matches, -1
	}
	total := len(s.search.matches)
	if total == 0 {
		return 0
	}

	if !s.search.active {
		s.search.active = true
		s.search.prior = s.sel
		s.emit(protocol.NameActivateSearch)
	}
	switch {
	case !backward:
		s.search.current = (s.search.current + 1) % total
	case s.search.current <= 0:
		s.search.current = total - 1
	default:
		s.search.current--
	}
	s.emit(protocol.NameSearched)
	return total
}

func (s *Surface) revealSearchMatch(args) any {
	if !s.search.active || s.search.current < 0 || s.search.current >= len(s.search.matches) {
		return false
	}
	match := s.search.matches[s.search.current]
	if !attached(match, s.root) {
		return false
	}
	s.sel = cursor{node: match, text: s.search.text}
	s.gainFocus()
	s.emit(protocol.NameSelectionChange)
	return true
}

func (s *Surface) deactivateSearch(args) any {
	s.endSearch()
	return nil
}

func (s *Surface) cancelSearch(args) any {
	if s.search.active {
		s.sel = s.search.prior
	}
	s.endSearch()
	return nil
}

func (s *Surface) endSearch() {
	active := s.search.active
	s.search = searchState{}
	if active {
		s.emit(protocol.NameDeactivateSearch)
	}
}
