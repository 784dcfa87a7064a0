package protocol

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Namespace is the object in the content surface that owns every verb
const Namespace = "MU"

// Verbs understood by the content surface
const (
	VerbLoadUserFiles         = "loadUserFiles"
	VerbSetTopLevelAttributes = "setTopLevelAttributes"
	VerbSetPlaceholder        = "setPlaceholder"
	VerbSetHTML               = "setHTML"
	VerbGetHTML               = "getHTML"
	VerbEmptyDocument         = "emptyDocument"
	VerbGetHeight             = "getHeight"
	VerbGetSelectionState     = "getSelectionState"

	VerbAddDiv            = "addDiv"
	VerbRemoveDiv         = "removeDiv"
	VerbAddButtonGroup    = "addButtonGroup"
	VerbRemoveButtonGroup = "removeButtonGroup"
	VerbAddButton         = "addButton"
	VerbRemoveButton      = "removeButton"
	VerbFocusOn           = "focusOn"
	VerbScrollIntoView    = "scrollIntoView"

	VerbToggleFormat   = "toggleFormat"
	VerbSetStyle       = "setStyle"
	VerbToggleListItem = "toggleListItem"
	VerbIndent         = "indent"
	VerbOutdent        = "outdent"
	VerbInsertLink     = "insertLink"
	VerbDeleteLink     = "deleteLink"
	VerbInsertImage    = "insertImage"
	VerbModifyImage    = "modifyImage"
	VerbCopySelection  = "copySelection"
	VerbCutSelection   = "cutSelection"

	VerbInsertTable     = "insertTable"
	VerbAddRow          = "addRow"
	VerbAddCol          = "addCol"
	VerbAddHeader       = "addHeader"
	VerbDeleteTableArea = "deleteTableArea"
	VerbBorderTable     = "borderTable"

	VerbUndo = "undo"
	VerbRedo = "redo"

	VerbSearchFor         = "searchFor"
	VerbDeactivateSearch  = "deactivateSearch"
	VerbCancelSearch      = "cancelSearch"
	VerbRevealSearchMatch = "revealSearchMatch"
)

var verbs = []string{
	VerbLoadUserFiles, VerbSetTopLevelAttributes, VerbSetPlaceholder, VerbSetHTML,
	VerbGetHTML, VerbEmptyDocument, VerbGetHeight, VerbGetSelectionState,
	VerbAddDiv, VerbRemoveDiv, VerbAddButtonGroup, VerbRemoveButtonGroup,
	VerbAddButton, VerbRemoveButton, VerbFocusOn, VerbScrollIntoView,
	VerbToggleFormat, VerbSetStyle, VerbToggleListItem, VerbIndent, VerbOutdent,
	VerbInsertLink, VerbDeleteLink, VerbInsertImage, VerbModifyImage,
	VerbCopySelection, VerbCutSelection,
	VerbInsertTable, VerbAddRow, VerbAddCol, VerbAddHeader, VerbDeleteTableArea,
	VerbBorderTable,
	VerbUndo, VerbRedo,
	VerbSearchFor, VerbDeactivateSearch, VerbCancelSearch, VerbRevealSearchMatch,
}

// Verbs lists every verb the content surface must implement, sorted
func Verbs() []string {
	names := slices.Clone(verbs)
	slices.Sort(names)
	return names
}

// Arg is one argument rendered as a literal of the surface's script language
type Arg struct {
	literal string
}

func (a Arg) String() string {
	return a.literal
}

// String quotes s as a single-quoted literal
func String(s string) Arg {
	return Arg{literal: "'" + Escape(s) + "'"}
}

// Int renders n
func Int(n int) Arg {
	return Arg{literal: strconv.Itoa(n)}
}

// Float renders f; non-finite values become 0
func Float(f float64) Arg {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	return Arg{literal: strconv.FormatFloat(f, 'g', -1, 64)}
}

// Bool renders b
func Bool(b bool) Arg {
	return Arg{literal: strconv.FormatBool(b)}
}

// Null renders an absent argument
func Null() Arg {
	return Arg{literal: "null"}
}

// OptionalString renders s, or null when s is empty
func OptionalString(s string) Arg {
	if s == "" {
		return Null()
	}
	return String(s)
}

// JSON encodes v and passes it as a quoted string the surface parses itself
func JSON(v any) (Arg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Arg{}, fmt.Errorf("failed to encode command argument: %w", err)
	}
	return String(string(data)), nil
}

// Escape makes s safe to embed between single quotes: the quote itself,
// backslash, every ASCII control character and the two script line
// terminators U+2028/U+2029 are escaped.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\u2028', '\u2029':
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// Command is a single outbound call: a verb and its ordered arguments
type Command struct {
	Verb string
	Args []Arg
}

// Call builds a command
func Call(verb string, args ...Arg) Command {
	return Command{Verb: verb, Args: args}
}

// Script renders the command as the text sent over the channel
func (c Command) Script() string {
	var b strings.Builder
	b.WriteString(Namespace)
	b.WriteByte('.')
	b.WriteString(c.Verb)
	b.WriteByte('(')
	for i, arg := range c.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(arg.literal)
	}
	b.WriteByte(')')
	return b.String()
}

func (c Command) String() string {
	return c.Script()
}
