package surface

import (
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var errNotInTable = errors.New("selection is not in a table")

func (s *Surface) insertTable(a args) any {
	rows, cols := a.num(0), a.num(1)
	if rows < 1 || cols < 1 {
		s.throw(fmt.Errorf("invalid table size %dx%d", rows, cols))
	}
	table, body := newElement(atom.Table), newElement(atom.Tbody)
	table.AppendChild(body)
	for i := 0; i < rows; i++ {
		body.AppendChild(newRow(atom.Td, cols))
	}

	s.checkpoint()
	s.place(table)
	s.sel = cursor{node: body.FirstChild.FirstChild}
	s.emitInput()
	return true
}

func newRow(cell atom.Atom, cols int) *html.Node {
	tr := newElement(atom.Tr)
	for i := 0; i < cols; i++ {
		tr.AppendChild(newElement(cell))
	}
	return tr
}

func cellsOf(tr *html.Node) []*html.Node {
	var cells []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			cells = append(cells, c)
		}
	}
	return cells
}

func rowsOf(table *html.Node) []*html.Node {
	var rows []*html.Node
	inspect(table, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Tr {
			rows = append(rows, n)
			return false
		}
		return true
	})
	return rows
}

func columnCount(table *html.Node) int {
	cols := 0
	for _, tr := range rowsOf(table) {
		if tr.Parent.DataAtom == atom.Thead {
			continue
		}
		cols = max(cols, len(cellsOf(tr)))
	}
	return cols
}

// spanning reports a header row made of one cell spanning every column
func spanning(tr *html.Node) (*html.Node, bool) {
	cells := cellsOf(tr)
	if tr.Parent.DataAtom != atom.Thead || len(cells) != 1 || getAttr(cells[0], "colspan") == "" {
		return nil, false
	}
	return cells[0], true
}

// cell returns the table cell holding the selection and its table
func (s *Surface) cell() (*html.Node, *html.Node) {
	anchor := s.anchored()
	if anchor == nil {
		s.throw(errNotInTable)
	}
	cell := closest(anchor, s.root, atom.Td, atom.Th)
	if cell == nil {
		s.throw(errNotInTable)
	}
	return cell, closest(cell, s.root, atom.Table)
}

func (s *Surface) addRow(a args) any {
	cell, table := s.cell()
	tr := cell.Parent
	row := newRow(atom.Td, columnCount(table))

	s.checkpoint()
	if tr.Parent.DataAtom == atom.Thead {
		// rows next to the header go to the top of the body
		if body := findElement(table, func(n *html.Node) bool { return n.DataAtom == atom.Tbody }); body != nil {
			body.InsertBefore(row, body.FirstChild)
		} else {
			insertAfter(tr.Parent, row)
		}
	} else if a.str(0) == "before" {
		tr.Parent.InsertBefore(row, tr)
	} else {
		insertAfter(tr, row)
	}
	s.emitInput()
	return true
}

func (s *Surface) addCol(a args) any {
	cell, table := s.cell()
	col, before := indexOf(cell), a.str(0) == "before"

	s.checkpoint()
	for _, tr := range rowsOf(table) {
		if th, ok := spanning(tr); ok {
			setAttr(th, "colspan", strconv.Itoa(columnCount(table)+1))
			continue
		}
		cells := cellsOf(tr)
		if len(cells) == 0 {
			continue
		}
		ref := cells[min(col, len(cells)-1)]
		added := newElement(ref.DataAtom)
		if before {
			tr.InsertBefore(added, ref)
		} else {
			insertAfter(ref, added)
		}
	}
	s.emitInput()
	return true
}

func (s *Surface) addHeader(a args) any {
	_, table := s.cell()
	if findElement(table, func(n *html.Node) bool { return n.DataAtom == atom.Thead }) != nil {
		return false
	}
	cols := columnCount(table)
	head := newElement(atom.Thead)
	if a.boolean(0) {
		tr := newElement(atom.Tr)
		tr.AppendChild(newElement(atom.Th, html.Attribute{Key: "colspan", Val: strconv.Itoa(cols)}))
		head.AppendChild(tr)
	} else {
		head.AppendChild(newRow(atom.Th, cols))
	}

	s.checkpoint()
	table.InsertBefore(head, table.FirstChild)
	s.emitInput()
	return true
}

func (s *Surface) deleteTableArea(a args) any {
	cell, table := s.cell()
	area := a.str(0)
	parent := table.Parent

	s.checkpoint()
	switch area {
	case "row":
		section := cell.Parent.Parent
		detach(cell.Parent)
		if section.DataAtom == atom.Thead && section.FirstChild == nil {
			detach(section)
		}
	case "col":
		col := indexOf(cell)
		for _, tr := range rowsOf(table) {
			if th, ok := spanning(tr); ok {
				if n := int(numberAttr(th, "colspan", 1)); n > 1 {
					setAttr(th, "colspan", strconv.Itoa(n-1))
				}
				continue
			}
			if cells := cellsOf(tr); col < len(cells) {
				detach(cells[col])
			}
		}
	case "table":
		detach(table)
	default:
		s.undo = s.undo[:len(s.undo)-1]
		s.throw(fmt.Errorf("unknown table area %q", area))
	}

	if columnCount(table) == 0 {
		detach(table)
	}
	if !attached(s.sel.anchor(), s.root) {
		s.sel = cursor{node: parent}
	}
	s.emitInput()
	return true
}

func (s *Surface) borderTable(a args) any {
	_, table := s.cell()
	s.checkpoint()
	setAttr(table, "data-border", a.str(0))
	s.emitInput()
	return true
}
