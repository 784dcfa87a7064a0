package selection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/pluqqy/editbridge/pkg/models"
)

// snapshot is the wire shape of a selection query result. Every field is
// optional; absent fields fall back to the defaults of Default.
type snapshot struct {
	Valid     *bool        `json:"valid"`
	DivID     *string      `json:"divid"`
	Selection *string      `json:"selection"`
	SelRect   *models.Rect `json:"selrect"`

	Href *string `json:"href"`
	Link *string `json:"link"`

	Src    *string  `json:"src"`
	Alt    *string  `json:"alt"`
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
	Scale  *float64 `json:"scale"`

	Table   *bool    `json:"table"`
	Thead   *bool    `json:"thead"`
	Tbody   *bool    `json:"tbody"`
	Header  *bool    `json:"header"`
	Colspan *float64 `json:"colspan"`
	Rows    *float64 `json:"rows"`
	Cols    *float64 `json:"cols"`
	Row     *float64 `json:"row"`
	Col     *float64 `json:"col"`
	Border  *string  `json:"border"`

	Style *string `json:"style"`
	List  *string `json:"list"`
	Li    *bool   `json:"li"`
	Quote *bool   `json:"quote"`

	Bold      *bool `json:"bold"`
	Italic    *bool `json:"italic"`
	Underline *bool `json:"underline"`
	Strike    *bool `json:"strike"`
	Sub       *bool `json:"sub"`
	Sup       *bool `json:"sup"`
	Code      *bool `json:"code"`
}

// FromSnapshot decodes a selection query result into a complete State.
// An empty or null snapshot yields Default with Valid false and no error.
// A malformed snapshot also yields Default, together with the decode error.
func FromSnapshot(raw []byte) (State, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte(`""`)) {
		return Default(), nil
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Default(), fmt.Errorf("failed to decode selection snapshot: %w", err)
	}
	return snap.state(), nil
}

// FromResult decodes whatever the query command returned: a JSON string,
// raw bytes, an already decoded object, or nothing.
func FromResult(result any) (State, error) {
	switch v := result.(type) {
	case nil:
		return Default(), nil
	case string:
		return FromSnapshot([]byte(v))
	case []byte:
		return FromSnapshot(v)
	case json.RawMessage:
		return FromSnapshot(v)
	case map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return Default(), fmt.Errorf("failed to encode selection snapshot: %w", err)
		}
		return FromSnapshot(data)
	default:
		return Default(), fmt.Errorf("unexpected selection snapshot type %T", result)
	}
}

// ResetFrom replaces every field of s from raw. On a decode error s is
// still fully reset to Default.
func (s *State) ResetFrom(raw []byte) error {
	next, err := FromSnapshot(raw)
	*s = next
	return err
}

func (snap *snapshot) state() State {
	s := Default()

	s.Valid = boolOr(snap.Valid, false)
	s.DivID = stringOr(snap.DivID, "")
	s.SelectionText = stringOr(snap.Selection, "")
	if snap.SelRect != nil {
		rect := *snap.SelRect
		s.SelectionRect = &rect
	}

	s.Href = stringOr(snap.Href, "")
	s.LinkText = stringOr(snap.Link, "")

	s.Src = stringOr(snap.Src, "")
	s.Alt = stringOr(snap.Alt, "")
	s.Width = intOr(snap.Width, 0)
	s.Height = intOr(snap.Height, 0)
	s.ScalePercent = intOr(snap.Scale, DefaultScalePercent)

	s.InTable = boolOr(snap.Table, false)
	s.InHead = boolOr(snap.Thead, false)
	s.InBody = boolOr(snap.Tbody, false)
	s.HasHeader = boolOr(snap.Header, false)
	s.HeaderSpans = intOr(snap.Colspan, 0)
	s.RowCount = intOr(snap.Rows, 0)
	s.ColCount = intOr(snap.Cols, 0)
	s.Row = intOr(snap.Row, 0)
	s.Col = intOr(snap.Col, 0)
	if snap.Border != nil {
		s.Border = ParseBorder(*snap.Border)
	}

	if snap.Style != nil {
		s.Style = ParseStyle(*snap.Style)
	}
	if snap.List != nil {
		s.List = ParseListType(*snap.List)
	}
	s.IsListItem = boolOr(snap.Li, false)
	s.IsQuote = boolOr(snap.Quote, false)

	s.Bold = boolOr(snap.Bold, false)
	s.Italic = boolOr(snap.Italic, false)
	s.Underline = boolOr(snap.Underline, false)
	s.Strike = boolOr(snap.Strike, false)
	s.Subscript = boolOr(snap.Sub, false)
	s.Superscript = boolOr(snap.Sup, false)
	s.Code = boolOr(snap.Code, false)

	return s
}

// Snapshot encodes s in the wire shape accepted by FromSnapshot
func (s State) Snapshot() ([]byte, error) {
	str := func(v string) *string { return &v }
	num := func(v int) *float64 { f := float64(v); return &f }
	flag := func(v bool) *bool { return &v }

	snap := snapshot{
		Valid:     flag(s.Valid),
		DivID:     str(s.DivID),
		Selection: str(s.SelectionText),
		SelRect:   s.SelectionRect,
		Href:      str(s.Href),
		Link:      str(s.LinkText),
		Src:       str(s.Src),
		Alt:       str(s.Alt),
		Width:     num(s.Width),
		Height:    num(s.Height),
		Scale:     num(s.ScalePercent),
		Table:     flag(s.InTable),
		Thead:     flag(s.InHead),
		Tbody:     flag(s.InBody),
		Header:    flag(s.HasHeader),
		Colspan:   num(s.HeaderSpans),
		Rows:      num(s.RowCount),
		Cols:      num(s.ColCount),
		Row:       num(s.Row),
		Col:       num(s.Col),
		Border:    str(s.Border.String()),
		Style:     str(s.Style.String()),
		List:      str(s.List.String()),
		Li:        flag(s.IsListItem),
		Quote:     flag(s.IsQuote),
		Bold:      flag(s.Bold),
		Italic:    flag(s.Italic),
		Underline: flag(s.Underline),
		Strike:    flag(s.Strike),
		Sub:       flag(s.Subscript),
		Sup:       flag(s.Superscript),
		Code:      flag(s.Code),
	}
	return json.Marshal(snap)
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func stringOr(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *float64, def int) int {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return def
	}
	return int(math.Round(*v))
}
