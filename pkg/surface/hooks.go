package surface

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/pluqqy/editbridge/pkg/protocol"
)

// hooks emulate user activity. Transcripts and tests call them as global
// functions, e.g. _select('comment1', 'typo').
func (s *Surface) hooks() map[string]native {
	return map[string]native{
		"_focus": func(args) any {
			s.gainFocus()
			return nil
		},
		"_blur": func(args) any {
			if s.focused {
				s.focused = false
				s.emit(protocol.NameBlur)
			}
			return nil
		},
		"_select":      s.hookSelect,
		"_selectImage": s.hookSelectImage,
		"_type":        s.hookType,
		"_click": func(args) any {
			s.gainFocus()
			s.emit(protocol.NameClick)
			return nil
		},
		"_clickButton": s.hookClickButton,
		"_fail": func(a args) any {
			s.failures[a.str(0)] = a.str(1)
			return nil
		},
		"_emit": func(a args) any {
			s.emit(a.str(0))
			return nil
		},
		"_action": func(a args) any {
			fields := map[string]any{"action": a.str(0)}
			if div := a.str(1); div != "" {
				fields["divId"] = div
			}
			s.emitJSON(protocol.TypeAction, fields)
			return nil
		},
		"_log": func(a args) any {
			s.emitJSON(protocol.TypeLog, map[string]any{"log": a.str(0)})
			return nil
		},
		"_copyImage": s.hookCopyImage,
		"_stylesheet": func(args) any {
			return s.stylesheet
		},
	}
}

// hookSelect selects the first occurrence of text inside the region, or
// puts a caret in the region when text is empty
func (s *Surface) hookSelect(a args) any {
	region := s.lookup(a.str(0))
	text := a.str(1)
	if text == "" {
		s.sel = cursor{node: region}
		if first := findText(region, ""); first != nil {
			s.sel.node = first
		}
	} else {
		node := findText(region, text)
		if node == nil {
			s.throw(fmt.Errorf("text %q not found in %q", text, a.str(0)))
		}
		s.sel = cursor{node: node, text: text}
	}
	s.gainFocus()
	s.emit(protocol.NameSelectionChange)
	return nil
}

func (s *Surface) hookSelectImage(a args) any {
	src := a.str(0)
	img := findElement(s.root, func(n *html.Node) bool { return n.Data == "img" && getAttr(n, "src") == src })
	if img == nil {
		s.throw(fmt.Errorf("no image with source %q", src))
	}
	s.sel = cursor{image: img}
	s.gainFocus()
	s.emit(protocol.NameSelectionChange)
	return nil
}

// hookType inserts text at the selection, replacing any selected text
func (s *Surface) hookType(a args) any {
	text := a.str(0)
	node := s.anchored()
	if node == nil {
		node = s.root
	}
	s.checkpoint()
	switch {
	case node.Type == html.TextNode && s.sel.text != "":
		node.Data = strings.Replace(node.Data, s.sel.text, text, 1)
		s.sel.text = ""
	case node.Type == html.TextNode:
		node.Data += text
	default:
		added := newText(text)
		node.AppendChild(added)
		s.sel = cursor{node: added}
	}
	s.emitInput()
	return nil
}

func (s *Surface) hookClickButton(a args) any {
	button := s.lookup(a.str(0))
	if button.Data != "button" {
		s.throw(fmt.Errorf("%q is not a button", a.str(0)))
	}
	index := indexOf(button)
	s.emitJSON(protocol.TypeButtonClicked, map[string]any{
		"id": a.str(0),
		"rect": map[string]any{
			"x": float64(index * 80), "y": 0.0, "width": 80.0, "height": float64(lineHeight),
		},
	})
	return nil
}

func (s *Surface) hookCopyImage(args) any {
	img := s.sel.image
	if img == nil || !attached(img, s.root) {
		s.throw(fmt.Errorf("no image is selected"))
	}
	s.emitJSON(protocol.TypeCopyImage, map[string]any{
		"src": getAttr(img, "src"),
		"alt": getAttr(img, "alt"),
		"dimensions": map[string]any{
			"width":  numberAttr(img, "width", 0),
			"height": numberAttr(img, "height", 0),
		},
	})
	return nil
}
