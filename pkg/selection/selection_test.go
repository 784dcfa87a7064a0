package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pluqqy/editbridge/pkg/models"
)

const richSnapshot = `{
	"valid": true, "divid": "editor", "selection": "hello",
	"selrect": {"x": 1, "y": 2, "width": 30, "height": 12},
	"href": "https://example.com", "link": "hello",
	"src": "cat.png", "alt": "a cat", "width": 640, "height": 480, "scale": 50,
	"table": true, "thead": true, "tbody": false, "header": true, "colspan": 3,
	"rows": 4, "cols": 3, "row": 1, "col": 2, "border": "outer",
	"style": "H2", "list": "OL", "li": true, "quote": true,
	"bold": true, "italic": true, "underline": true, "strike": true,
	"sub": true, "sup": true, "code": true
}`

func TestFromSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		check   func(t *testing.T, s State)
	}{
		{
			name: "empty result is invalid, not an error",
			raw:  "",
			check: func(t *testing.T, s State) {
				assert.Equal(t, Default(), s)
				assert.False(t, s.Valid)
			},
		},
		{
			name: "null result is invalid",
			raw:  "null",
			check: func(t *testing.T, s State) {
				assert.Equal(t, Default(), s)
			},
		},
		{
			name: "empty object fills defaults",
			raw:  "{}",
			check: func(t *testing.T, s State) {
				assert.False(t, s.Valid)
				assert.Equal(t, DefaultScalePercent, s.ScalePercent)
				assert.Equal(t, BorderCell, s.Border)
				assert.Equal(t, StyleUndefined, s.Style)
				assert.Equal(t, ListUndefined, s.List)
			},
		},
		{
			name: "every field decoded",
			raw:  richSnapshot,
			check: func(t *testing.T, s State) {
				assert.True(t, s.Valid)
				assert.Equal(t, "editor", s.DivID)
				assert.Equal(t, "hello", s.SelectionText)
				require.NotNil(t, s.SelectionRect)
				assert.Equal(t, models.Rect{X: 1, Y: 2, Width: 30, Height: 12}, *s.SelectionRect)
				assert.Equal(t, "https://example.com", s.Href)
				assert.Equal(t, 50, s.ScalePercent)
				assert.Equal(t, 640, s.Width)
				assert.Equal(t, BorderOuter, s.Border)
				assert.Equal(t, StyleH2, s.Style)
				assert.Equal(t, ListOL, s.List)
				assert.Equal(t, 3, s.HeaderSpans)
				assert.Equal(t, []string{"bold", "italic", "underline", "strike", "sub", "sup", "code"}, s.Flags())
			},
		},
		{
			name: "fractional numbers are rounded",
			raw:  `{"valid": true, "width": 99.6, "scale": 33.3}`,
			check: func(t *testing.T, s State) {
				assert.Equal(t, 100, s.Width)
				assert.Equal(t, 33, s.ScalePercent)
			},
		},
		{
			name:    "truncated JSON resets to defaults with an error",
			raw:     `{"valid": true, "bold": tr`,
			wantErr: true,
			check: func(t *testing.T, s State) {
				assert.Equal(t, Default(), s)
			},
		},
		{
			name:    "wrong field type is an error",
			raw:     `{"valid": "yes"}`,
			wantErr: true,
			check: func(t *testing.T, s State) {
				assert.False(t, s.Valid)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := FromSnapshot([]byte(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			tt.check(t, s)
		})
	}
}

func TestResetFromReplacesEveryField(t *testing.T) {
	var s State
	require.NoError(t, s.ResetFrom([]byte(richSnapshot)))
	a := s.Clone()

	// B only reports a caret in another div
	require.NoError(t, s.ResetFrom([]byte(`{"valid": true, "divid": "comment1"}`)))

	want := Default()
	want.Valid = true
	want.DivID = "comment1"
	assert.Equal(t, want, s, "no field of the earlier selection may leak")
	assert.NotEqual(t, a.Href, s.Href)

	require.NoError(t, s.ResetFrom(nil))
	assert.Equal(t, Default(), s)
}

func TestFromResult(t *testing.T) {
	s, err := FromResult(nil)
	require.NoError(t, err)
	assert.False(t, s.Valid)

	s, err = FromResult(`{"valid": true, "bold": true}`)
	require.NoError(t, err)
	assert.True(t, s.Bold)

	s, err = FromResult(map[string]any{"valid": true, "style": "P", "scale": int64(80)})
	require.NoError(t, err)
	assert.Equal(t, StyleP, s.Style)
	assert.Equal(t, 80, s.ScalePercent)

	_, err = FromResult(42)
	assert.Error(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s, err := FromSnapshot([]byte(richSnapshot))
	require.NoError(t, err)

	data, err := s.Snapshot()
	require.NoError(t, err)

	again, err := FromSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, s, again)
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  map[string]bool
	}{
		{
			name:  "nothing selected",
			state: Default(),
			want: map[string]bool{
				"editable": false, "linkable": false, "followable": false, "table": false,
				"dent": false, "style": false, "list": false, "insert": false,
				"link": false, "format": false, "copy": false,
			},
		},
		{
			name:  "caret in a paragraph",
			state: State{Valid: true, Style: StyleP, ScalePercent: 100},
			want: map[string]bool{
				"editable": true, "linkable": false, "followable": false, "table": false,
				"dent": true, "style": true, "list": true, "insert": true,
				"link": false, "format": true, "copy": false,
			},
		},
		{
			name:  "text selected",
			state: State{Valid: true, Style: StyleP, SelectionText: "word"},
			want: map[string]bool{
				"editable": true, "linkable": true, "followable": false, "table": false,
				"dent": true, "style": true, "list": true, "insert": true,
				"link": true, "format": true, "copy": true,
			},
		},
		{
			name:  "inside a link",
			state: State{Valid: true, Style: StyleP, SelectionText: "word", Href: "https://x"},
			want: map[string]bool{
				"editable": true, "linkable": false, "followable": true, "table": false,
				"dent": true, "style": true, "list": true, "insert": true,
				"link": true, "format": true, "copy": true,
			},
		},
		{
			name:  "image selected",
			state: State{Valid: true, Style: StyleP, Src: "cat.png"},
			want: map[string]bool{
				"editable": true, "linkable": false, "followable": false, "table": false,
				"dent": false, "style": false, "list": false, "insert": false,
				"link": false, "format": false, "copy": true,
			},
		},
		{
			name:  "inside a table",
			state: State{Valid: true, Style: StyleP, InTable: true},
			want: map[string]bool{
				"editable": true, "linkable": false, "followable": false, "table": true,
				"dent": false, "style": false, "list": false, "insert": true,
				"link": false, "format": true, "copy": false,
			},
		},
		{
			name:  "stale fields on an invalid state gate nothing open",
			state: State{Valid: false, Href: "https://x", Src: "cat.png", InTable: true, SelectionText: "w"},
			want: map[string]bool{
				"editable": false, "linkable": false, "followable": false, "table": false,
				"dent": false, "style": false, "list": false, "insert": false,
				"link": false, "format": false, "copy": false,
			},
		},
	}

	eval := func(s State) map[string]bool {
		return map[string]bool{
			"editable":   s.IsEditable(),
			"linkable":   s.IsLinkable(),
			"followable": s.IsFollowableLink(),
			"table":      s.IsInTable(),
			"dent":       s.CanDent(),
			"style":      s.CanStyle(),
			"list":       s.CanList(),
			"insert":     s.CanInsert(),
			"link":       s.CanLink(),
			"format":     s.CanFormat(),
			"copy":       s.CanCopyOrCut(),
		}
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.state.Clone()
			first := eval(tt.state)
			second := eval(tt.state)

			assert.Equal(t, tt.want, first)
			assert.Equal(t, first, second, "predicates must be deterministic")
			assert.Equal(t, before, tt.state, "predicates must not mutate the state")
		})
	}
}

func TestParsers(t *testing.T) {
	assert.Equal(t, StyleH6, ParseStyle("h6"))
	assert.Equal(t, StyleUndefined, ParseStyle("H7"))
	assert.True(t, StyleH3.IsHeader())
	assert.False(t, StyleP.IsHeader())
	assert.Equal(t, "Undefined", Style(99).String())

	assert.Equal(t, ListUL, ParseListType("ul"))
	assert.Equal(t, ListUndefined, ParseListType("dl"))

	assert.Equal(t, BorderHeader, ParseBorder("HEADER"))
	assert.Equal(t, BorderCell, ParseBorder("dotted"))
}

func TestStore(t *testing.T) {
	local := NewStore()
	shared := NewStore()
	assert.Equal(t, Default(), local.State())

	var seen []State
	cancel := shared.Subscribe(func(s State) { seen = append(seen, s) })

	next, err := FromSnapshot([]byte(richSnapshot))
	require.NoError(t, err)
	local.Replace(next)
	shared.Replace(next.Clone())

	require.Len(t, seen, 1)
	assert.True(t, seen[0].Bold)

	// The two copies are independent values
	got := local.State()
	got.SelectionRect.X = 999
	assert.Equal(t, float64(1), shared.State().SelectionRect.X)
	assert.Equal(t, float64(1), local.State().SelectionRect.X)

	cancel()
	shared.Reset()
	assert.Len(t, seen, 1, "cancelled subscriber must not be called")
	assert.Equal(t, Default(), shared.State())
	assert.True(t, local.State().Valid)
}

func TestStoreNotifiesInSubscriptionOrder(t *testing.T) {
	s := NewStore()

	var order []int
	cancels := make([]func(), 0, 8)
	for i := 0; i < 8; i++ {
		i := i
		cancels = append(cancels, s.Subscribe(func(State) { order = append(order, i) }))
	}

	for run := 0; run < 5; run++ {
		order = nil
		s.Reset()
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, order)
	}

	cancels[3]()
	cancels[3]()
	order = nil
	s.Reset()
	assert.Equal(t, []int{0, 1, 2, 4, 5, 6, 7}, order)

	s.Subscribe(func(State) { order = append(order, 8) })
	order = nil
	s.Reset()
	assert.Equal(t, []int{0, 1, 2, 4, 5, 6, 7, 8}, order)
}
