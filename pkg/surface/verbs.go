package surface

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/pluqqy/editbridge/pkg/protocol"
)

const lineHeight = 20

// groupSpec is the JSON shape of a button group argument
type groupSpec struct {
	ID       string `json:"id"`
	ParentID string `json:"parentId"`
	CSSClass string `json:"cssClass"`
	Buttons  []struct {
		ID       string `json:"id"`
		CSSClass string `json:"cssClass"`
		Label    string `json:"label"`
		TargetID string `json:"targetId"`
	} `json:"buttons"`
}

func (s *Surface) verbs() map[string]native {
	return map[string]native{
		protocol.VerbLoadUserFiles:         s.loadUserFiles,
		protocol.VerbSetTopLevelAttributes: s.setTopLevelAttributes,
		protocol.VerbSetPlaceholder:        s.setPlaceholder,
		protocol.VerbSetHTML:               s.setHTML,
		protocol.VerbGetHTML:               func(args) any { return s.html() },
		protocol.VerbEmptyDocument:         s.emptyDocument,
		protocol.VerbGetHeight:             func(args) any { return s.height() },
		protocol.VerbGetSelectionState:     func(args) any { return s.snapshot() },

		protocol.VerbAddDiv:            s.addDiv,
		protocol.VerbRemoveDiv:         s.removeDiv,
		protocol.VerbAddButtonGroup:    s.addButtonGroup,
		protocol.VerbRemoveButtonGroup: s.removeElement,
		protocol.VerbAddButton:         s.addButton,
		protocol.VerbRemoveButton:      s.removeElement,
		protocol.VerbFocusOn:           s.focusOn,
		protocol.VerbScrollIntoView:    s.scrollIntoView,

		protocol.VerbToggleFormat:   s.toggleFormat,
		protocol.VerbSetStyle:       s.setStyle,
		protocol.VerbToggleListItem: s.toggleListItem,
		protocol.VerbIndent:         s.indent,
		protocol.VerbOutdent:        s.outdent,
		protocol.VerbInsertLink:     s.insertLink,
		protocol.VerbDeleteLink:     s.deleteLink,
		protocol.VerbInsertImage:    s.insertImage,
		protocol.VerbModifyImage:    s.modifyImage,
		protocol.VerbCopySelection:  s.copySelection,
		protocol.VerbCutSelection:   s.cutSelection,

		protocol.VerbInsertTable:     s.insertTable,
		protocol.VerbAddRow:          s.addRow,
		protocol.VerbAddCol:          s.addCol,
		protocol.VerbAddHeader:       s.addHeader,
		protocol.VerbDeleteTableArea: s.deleteTableArea,
		protocol.VerbBorderTable:     s.borderTable,

		protocol.VerbUndo: s.undoEdit,
		protocol.VerbRedo: s.redoEdit,

		protocol.VerbSearchFor:         s.searchFor,
		protocol.VerbRevealSearchMatch: s.revealSearchMatch,
		protocol.VerbDeactivateSearch:  s.deactivateSearch,
		protocol.VerbCancelSearch:      s.cancelSearch,
	}
}

// Setup

func (s *Surface) loadUserFiles(a args) any {
	script, css := a.str(0), a.str(1)

	var source string
	if script != "" {
		if data, ok := s.readUserFile(script); ok {
			source = data
		}
	}
	if css != "" {
		if data, ok := s.readUserFile(css); ok {
			s.stylesheet = data
		}
	}

	// the user script runs after the current call returns
	s.queue.Post(func() {
		if source != "" {
			if _, err := s.run(source); err != nil {
				s.emitError("userScript", "user script failed", err.Error(), true)
			}
		}
		s.emit(protocol.NameLoadedUserFiles)
	})
	return nil
}

func (s *Surface) readUserFile(name string) (string, bool) {
	if s.work == nil {
		s.emitError("userFile", "no resource work area", name, false)
		return "", false
	}
	path, ok := s.work.Resolve(name)
	if !ok {
		s.emitError("userFile", "user file outside the work area", name, false)
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("failed to read user file", zap.String("name", name), zap.Error(err))
		s.emitError("userFile", "failed to read user file", name, false)
		return "", false
	}
	return string(data), true
}

func (s *Surface) setTopLevelAttributes(a args) any {
	var attrs map[string]bool
	if !a.decode(0, &attrs) {
		return nil
	}
	setFlags(s.root, attrs)
	return nil
}

func setFlags(n *html.Node, flags map[string]bool) {
	keys := make([]string, 0, len(flags))
	for key := range flags {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		setAttr(n, key, strconv.FormatBool(flags[key]))
	}
}

func (s *Surface) setPlaceholder(a args) any {
	if text := a.str(0); text != "" {
		setAttr(s.root, "placeholder", text)
	} else {
		removeAttr(s.root, "placeholder")
	}
	return nil
}

// Document

func (s *Surface) setHTML(a args) any {
	if err := setInnerHTML(s.root, a.str(0)); err != nil {
		s.throw(err)
	}
	s.sel = cursor{}
	s.undo, s.redo = nil, nil
	s.endSearch()
	return nil
}

func (s *Surface) emptyDocument(args) any {
	s.checkpoint()
	clearChildren(s.root)
	s.sel = cursor{node: s.root}
	s.emitInput()
	return nil
}

func (s *Surface) height() int {
	blocks := countBlocks(s.root)
	if blocks == 0 {
		blocks = 1
	}
	return blocks * lineHeight
}

// checkpoint records the document before an edit
func (s *Surface) checkpoint() {
	s.undo = append(s.undo, s.html())
	s.redo = nil
}

func (s *Surface) undoEdit(args) any {
	return s.restore(&s.undo, &s.redo)
}

func (s *Surface) redoEdit(args) any {
	return s.restore(&s.redo, &s.undo)
}

func (s *Surface) restore(from, to *[]string) any {
	if len(*from) == 0 {
		return false
	}
	last := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]
	*to = append(*to, s.html())
	if err := setInnerHTML(s.root, last); err != nil {
		s.throw(err)
	}
	s.sel = cursor{node: s.root}
	s.emitInput()
	return true
}

// Regions and buttons

func (s *Surface) lookup(id string) *html.Node {
	if id == "" || id == s.rootID {
		return s.root
	}
	n := findByID(s.root, id)
	if n == nil {
		s.throw(fmt.Errorf("no element with id %q", id))
	}
	return n
}

func (s *Surface) addDiv(a args) any {
	id, parentID := a.str(0), a.str(1)
	if findByID(s.root, id) != nil {
		s.throw(fmt.Errorf("element %q already exists", id))
	}
	parent := s.lookup(parentID)

	div := newElement(atom.Div, html.Attribute{Key: "id", Val: id})
	if target := a.str(2); target != "" {
		setAttr(div, "data-target", target)
	}
	if focus := a.str(3); focus != "" {
		setAttr(div, "data-focus", focus)
	}
	if class := a.str(4); class != "" {
		setAttr(div, "class", class)
	}
	var attrs map[string]bool
	if a.decode(5, &attrs) {
		setFlags(div, attrs)
	}
	if err := setInnerHTML(div, a.str(6)); err != nil {
		s.throw(err)
	}
	parent.AppendChild(div)

	var group groupSpec
	if a.decode(7, &group) {
		s.buildGroup(group)
	}
	return nil
}

func (s *Surface) removeDiv(a args) any {
	n := s.lookup(a.str(0))
	if n == s.root {
		s.throw(errors.New("the root region cannot be removed"))
	}
	if attached(s.sel.anchor(), n) {
		s.sel = cursor{}
	}
	detach(n)
	return nil
}

func (s *Surface) removeElement(a args) any {
	n := s.lookup(a.str(0))
	if n == s.root {
		s.throw(errors.New("the root region cannot be removed"))
	}
	detach(n)
	return nil
}

func (s *Surface) addButtonGroup(a args) any {
	var group groupSpec
	if !a.decode(0, &group) {
		s.throw(errors.New("missing button group"))
	}
	s.buildGroup(group)
	return nil
}

func (s *Surface) buildGroup(group groupSpec) {
	parent := s.lookup(group.ParentID)
	if old := findByID(s.root, group.ID); old != nil {
		detach(old)
	}
	el := newElement(atom.Div, html.Attribute{Key: "id", Val: group.ID})
	class := "button-group"
	if group.CSSClass != "" {
		class += " " + group.CSSClass
	}
	setAttr(el, "class", class)
	for _, b := range group.Buttons {
		el.AppendChild(newButton(b.ID, b.CSSClass, b.Label, b.TargetID))
	}
	parent.AppendChild(el)
}

func newButton(id, class, label, target string) *html.Node {
	b := newElement(atom.Button, html.Attribute{Key: "id", Val: id})
	if class != "" {
		setAttr(b, "class", class)
	}
	if target != "" {
		setAttr(b, "data-target", target)
	}
	b.AppendChild(newText(label))
	return b
}

func (s *Surface) addButton(a args) any {
	id, groupID := a.str(0), a.str(3)
	if findByID(s.root, id) != nil {
		s.throw(fmt.Errorf("element %q already exists", id))
	}
	group := s.lookup(groupID)
	group.AppendChild(newButton(id, a.str(1), a.str(2), ""))
	return nil
}

func (s *Surface) focusOn(a args) any {
	n := s.lookup(a.str(0))
	if text := findText(n, ""); text != nil {
		s.sel = cursor{node: text}
	} else {
		s.sel = cursor{node: n}
	}
	s.gainFocus()
	s.emit(protocol.NameSelectionChange)
	return nil
}

func (s *Surface) scrollIntoView(a args) any {
	s.lookup(a.str(0))
	return nil
}

func (s *Surface) gainFocus() {
	if !s.focused {
		s.focused = true
		s.emit(protocol.NameFocus)
	}
}
