// Package selection holds the host's typed snapshot of what is currently
// selected inside the content surface.
//
// A State is only ever replaced wholesale. FromSnapshot builds a complete
// State from a query result, substituting defaults for every absent field,
// so nothing from an earlier selection leaks into a later one.
package selection

import (
	"strings"

	"github.com/pluqqy/editbridge/pkg/models"
)

// Style is the paragraph style at the selection
type Style int

const (
	StyleUndefined Style = iota
	StyleMultiple
	StyleP
	StyleH1
	StyleH2
	StyleH3
	StyleH4
	StyleH5
	StyleH6
)

var styleNames = []string{"Undefined", "Multiple", "P", "H1", "H2", "H3", "H4", "H5", "H6"}

func (s Style) String() string {
	if s < 0 || int(s) >= len(styleNames) {
		return styleNames[StyleUndefined]
	}
	return styleNames[s]
}

// IsHeader reports whether s is one of H1..H6
func (s Style) IsHeader() bool {
	return s >= StyleH1 && s <= StyleH6
}

// ParseStyle maps a tag name such as "P" or "h2" to a Style
func ParseStyle(name string) Style {
	for i, n := range styleNames {
		if strings.EqualFold(n, name) {
			return Style(i)
		}
	}
	return StyleUndefined
}

// ListType is the kind of list containing the selection
type ListType int

const (
	ListUndefined ListType = iota
	ListUL
	ListOL
)

func (l ListType) String() string {
	switch l {
	case ListUL:
		return "UL"
	case ListOL:
		return "OL"
	default:
		return "Undefined"
	}
}

// ParseListType maps "UL"/"OL" to a ListType
func ParseListType(name string) ListType {
	switch strings.ToUpper(name) {
	case "UL":
		return ListUL
	case "OL":
		return ListOL
	default:
		return ListUndefined
	}
}

// Border is the border style of the table containing the selection.
// The zero value is BorderCell, the default.
type Border int

const (
	BorderCell Border = iota
	BorderOuter
	BorderHeader
	BorderNone
)

func (b Border) String() string {
	switch b {
	case BorderOuter:
		return "outer"
	case BorderHeader:
		return "header"
	case BorderNone:
		return "none"
	default:
		return "cell"
	}
}

// ParseBorder maps a border name to a Border, defaulting to BorderCell
func ParseBorder(name string) Border {
	switch strings.ToLower(name) {
	case "outer":
		return BorderOuter
	case "header":
		return BorderHeader
	case "none":
		return BorderNone
	default:
		return BorderCell
	}
}

// DefaultScalePercent is the image scale when none is reported
const DefaultScalePercent = 100

// State is the document state implied by the last selection query
type State struct {
	Valid bool

	DivID string

	SelectionText string
	SelectionRect *models.Rect

	Href     string
	LinkText string

	Src          string
	Alt          string
	Width        int
	Height       int
	ScalePercent int

	InTable     bool
	InHead      bool
	InBody      bool
	HasHeader   bool
	HeaderSpans int
	RowCount    int
	ColCount    int
	Row         int
	Col         int
	Border      Border

	Style      Style
	List       ListType
	IsListItem bool
	IsQuote    bool

	Bold        bool
	Italic      bool
	Underline   bool
	Strike      bool
	Subscript   bool
	Superscript bool
	Code        bool
}

// Default returns the state of "nothing selected"
func Default() State {
	return State{
		ScalePercent: DefaultScalePercent,
		Border:       BorderCell,
		Style:        StyleUndefined,
		List:         ListUndefined,
	}
}

// Clone returns a copy that shares no memory with s
func (s State) Clone() State {
	if s.SelectionRect != nil {
		rect := *s.SelectionRect
		s.SelectionRect = &rect
	}
	return s
}

// Flags lists the formatting flags that are on, in a fixed order
func (s State) Flags() []string {
	var flags []string
	add := func(on bool, name string) {
		if on {
			flags = append(flags, name)
		}
	}
	add(s.Bold, "bold")
	add(s.Italic, "italic")
	add(s.Underline, "underline")
	add(s.Strike, "strike")
	add(s.Subscript, "sub")
	add(s.Superscript, "sup")
	add(s.Code, "code")
	return flags
}
