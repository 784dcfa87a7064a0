package editor

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/pluqqy/editbridge/pkg/protocol"
	"github.com/pluqqy/editbridge/pkg/selection"
)

// Format is an inline format toggled on the selection
type Format string

const (
	Bold        Format = "bold"
	Italic      Format = "italic"
	Underline   Format = "underline"
	Strike      Format = "strike"
	Subscript   Format = "sub"
	Superscript Format = "sup"
	Code        Format = "code"
)

// ToggleFormat flips format on the selection
func (e *Editor) ToggleFormat(format Format) error {
	switch format {
	case Bold, Italic, Underline, Strike, Subscript, Superscript, Code:
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return e.edit(canFormat, protocol.Call(protocol.VerbToggleFormat, protocol.String(string(format))))
}

func (e *Editor) ToggleBold() error        { return e.ToggleFormat(Bold) }
func (e *Editor) ToggleItalic() error      { return e.ToggleFormat(Italic) }
func (e *Editor) ToggleUnderline() error   { return e.ToggleFormat(Underline) }
func (e *Editor) ToggleStrike() error      { return e.ToggleFormat(Strike) }
func (e *Editor) ToggleSubscript() error   { return e.ToggleFormat(Subscript) }
func (e *Editor) ToggleSuperscript() error { return e.ToggleFormat(Superscript) }
func (e *Editor) ToggleCode() error        { return e.ToggleFormat(Code) }

// SetStyle applies a paragraph style. Only P and headers can be applied.
func (e *Editor) SetStyle(style selection.Style) error {
	if style != selection.StyleP && !style.IsHeader() {
		return fmt.Errorf("cannot apply style %s", style)
	}
	return e.edit(canStyle, protocol.Call(protocol.VerbSetStyle, protocol.String(style.String())))
}

// ToggleList turns the selected paragraphs into list items of kind, or back
func (e *Editor) ToggleList(kind selection.ListType) error {
	if kind == selection.ListUndefined {
		return fmt.Errorf("cannot toggle list %s", kind)
	}
	return e.edit(canList, protocol.Call(protocol.VerbToggleListItem, protocol.String(kind.String())))
}

// Indent indents the selected paragraphs or list items
func (e *Editor) Indent() error {
	return e.edit(canDent, protocol.Call(protocol.VerbIndent))
}

// Outdent reverses Indent
func (e *Editor) Outdent() error {
	return e.edit(canDent, protocol.Call(protocol.VerbOutdent))
}

// InsertLink links the selected text to href, or retargets the link under
// the selection
func (e *Editor) InsertLink(href string) error {
	if href == "" {
		return fmt.Errorf("link target cannot be empty")
	}
	return e.edit(canLink, protocol.Call(protocol.VerbInsertLink, protocol.String(href)))
}

// DeleteLink unlinks the link under the selection
func (e *Editor) DeleteLink() error {
	return e.edit(isFollowable, protocol.Call(protocol.VerbDeleteLink))
}

// InsertImage inserts an image at the selection. src may name a file in the
// work area.
func (e *Editor) InsertImage(src, alt string) error {
	if src == "" {
		return fmt.Errorf("image source cannot be empty")
	}
	if e.work != nil && !e.work.Exists(src) {
		e.logger.Debug("image not in work area", zap.String("src", src))
	}
	return e.edit(canInsert, protocol.Call(protocol.VerbInsertImage,
		protocol.String(src), protocol.OptionalString(alt)))
}

// ModifyImage changes the selected image
func (e *Editor) ModifyImage(src, alt string, scalePercent int) error {
	if scalePercent <= 0 {
		return fmt.Errorf("scale must be positive, got %d", scalePercent)
	}
	return e.edit(isInImage, protocol.Call(protocol.VerbModifyImage,
		protocol.OptionalString(src), protocol.OptionalString(alt), protocol.Int(scalePercent)))
}

// Copy puts the selection on the clipboard
func (e *Editor) Copy() error {
	return e.toClipboard(canCopyInSearch, protocol.VerbCopySelection)
}

// Cut puts the selection on the clipboard and deletes it
func (e *Editor) Cut() error {
	return e.toClipboard(canCopyOrCut, protocol.VerbCutSelection)
}

func (e *Editor) toClipboard(g gate, verb string) error {
	if err := e.check(g); err != nil {
		return err
	}
	e.dispatcher.Call(protocol.Call(verb), func(result any, err error) {
		if err != nil {
			return
		}
		text, _ := result.(string)
		if text == "" {
			return
		}
		if err := e.clipboard.WriteText(text); err != nil {
			e.logger.Warn("failed to write clipboard", zap.String("verb", verb), zap.Error(err))
		}
		if verb == protocol.VerbCutSelection {
			e.router.QuerySelection(nil)
		}
	})
	return nil
}

// Undo reverts the last edit
func (e *Editor) Undo() error {
	return e.edit(always, protocol.Call(protocol.VerbUndo))
}

// Redo reapplies the last undone edit
func (e *Editor) Redo() error {
	return e.edit(always, protocol.Call(protocol.VerbRedo))
}
