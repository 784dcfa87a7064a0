package router

import (
	"fmt"
	"sync"

	"github.com/pluqqy/editbridge/pkg/models"
	"github.com/pluqqy/editbridge/pkg/protocol"
	"github.com/pluqqy/editbridge/pkg/selection"
)

// Delegate receives advisory notifications from the router. Every call is
// made on the editing surface's actor; implementations must not block it.
type Delegate interface {
	InputChanged(divID string)
	HeightChanged(height int)
	FocusGained()
	FocusLost()
	WillLoad()
	DidLoad()
	SelectionChanged(state selection.State)
	Clicked(state selection.State)
	UndoPushed()
	LinkSelected(state selection.State)
	ImageSelected(state selection.State)
	TableSelected(state selection.State)
	ImageAdded(url, divID string)
	ImageDeleted(url, divID string)
	ButtonClicked(id string, rect models.Rect)
	SearchActivated()
	SearchDeactivated()
	ErrorReported(err *protocol.AppError)
	ActionReceived(action protocol.Action)
}

// NopDelegate ignores every notification. Embed it to implement only the
// hooks you need.
type NopDelegate struct{}

func (NopDelegate) InputChanged(string)               {}
func (NopDelegate) HeightChanged(int)                 {}
func (NopDelegate) FocusGained()                      {}
func (NopDelegate) FocusLost()                        {}
func (NopDelegate) WillLoad()                         {}
func (NopDelegate) DidLoad()                          {}
func (NopDelegate) SelectionChanged(selection.State)  {}
func (NopDelegate) Clicked(selection.State)           {}
func (NopDelegate) UndoPushed()                       {}
func (NopDelegate) LinkSelected(selection.State)      {}
func (NopDelegate) ImageSelected(selection.State)     {}
func (NopDelegate) TableSelected(selection.State)     {}
func (NopDelegate) ImageAdded(string, string)         {}
func (NopDelegate) ImageDeleted(string, string)       {}
func (NopDelegate) ButtonClicked(string, models.Rect) {}
func (NopDelegate) SearchActivated()                  {}
func (NopDelegate) SearchDeactivated()                {}
func (NopDelegate) ErrorReported(*protocol.AppError)  {}
func (NopDelegate) ActionReceived(protocol.Action)    {}

// Hook names recorded by Recorder
const (
	HookInputChanged      = "InputChanged"
	HookHeightChanged     = "HeightChanged"
	HookFocusGained       = "FocusGained"
	HookFocusLost         = "FocusLost"
	HookWillLoad          = "WillLoad"
	HookDidLoad           = "DidLoad"
	HookSelectionChanged  = "SelectionChanged"
	HookClicked           = "Clicked"
	HookUndoPushed        = "UndoPushed"
	HookLinkSelected      = "LinkSelected"
	HookImageSelected     = "ImageSelected"
	HookTableSelected     = "TableSelected"
	HookImageAdded        = "ImageAdded"
	HookImageDeleted      = "ImageDeleted"
	HookButtonClicked     = "ButtonClicked"
	HookSearchActivated   = "SearchActivated"
	HookSearchDeactivated = "SearchDeactivated"
	HookErrorReported     = "ErrorReported"
	HookActionReceived    = "ActionReceived"
)

// Entry is one recorded delegate call
type Entry struct {
	Hook   string `json:"hook" yaml:"hook"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

func (e Entry) String() string {
	if e.Detail == "" {
		return e.Hook
	}
	return e.Hook + " " + e.Detail
}

// Recorder is a Delegate that keeps every call it receives. It backs the
// replay command and tests.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry

	// Errors holds every reported application error, in order
	Errors []*protocol.AppError

	// OnRecord, when set before use, sees every entry as it is recorded
	OnRecord func(Entry)
}

func (r *Recorder) record(hook, format string, args ...any) {
	detail := ""
	if format != "" {
		detail = fmt.Sprintf(format, args...)
	}
	entry := Entry{Hook: hook, Detail: detail}

	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()

	if r.OnRecord != nil {
		r.OnRecord(entry)
	}
}

// Entries returns a copy of everything recorded so far
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Hooks returns the hook names recorded so far
func (r *Recorder) Hooks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	hooks := make([]string, len(r.entries))
	for i, e := range r.entries {
		hooks[i] = e.Hook
	}
	return hooks
}

// Count returns how many times hook was called
func (r *Recorder) Count(hook string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.Hook == hook {
			n++
		}
	}
	return n
}

// Reset forgets everything recorded
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	r.Errors = nil
}

func describe(state selection.State) string {
	if !state.Valid {
		return "invalid"
	}
	return fmt.Sprintf("div=%s text=%q", state.DivID, state.SelectionText)
}

func (r *Recorder) InputChanged(divID string) { r.record(HookInputChanged, "%s", divID) }
func (r *Recorder) HeightChanged(height int)  { r.record(HookHeightChanged, "%d", height) }
func (r *Recorder) FocusGained()              { r.record(HookFocusGained, "") }
func (r *Recorder) FocusLost()                { r.record(HookFocusLost, "") }
func (r *Recorder) WillLoad()                 { r.record(HookWillLoad, "") }
func (r *Recorder) DidLoad()                  { r.record(HookDidLoad, "") }
func (r *Recorder) UndoPushed()               { r.record(HookUndoPushed, "") }
func (r *Recorder) SearchActivated()          { r.record(HookSearchActivated, "") }
func (r *Recorder) SearchDeactivated()        { r.record(HookSearchDeactivated, "") }

func (r *Recorder) SelectionChanged(state selection.State) {
	r.record(HookSelectionChanged, "%s", describe(state))
}

func (r *Recorder) Clicked(state selection.State) {
	r.record(HookClicked, "%s", describe(state))
}

func (r *Recorder) LinkSelected(state selection.State) {
	r.record(HookLinkSelected, "%s", state.Href)
}

func (r *Recorder) ImageSelected(state selection.State) {
	r.record(HookImageSelected, "%s", state.Src)
}

func (r *Recorder) TableSelected(state selection.State) {
	r.record(HookTableSelected, "row=%d col=%d", state.Row, state.Col)
}

func (r *Recorder) ImageAdded(url, divID string) {
	r.record(HookImageAdded, "%s in %s", url, divID)
}

func (r *Recorder) ImageDeleted(url, divID string) {
	r.record(HookImageDeleted, "%s in %s", url, divID)
}

func (r *Recorder) ButtonClicked(id string, rect models.Rect) {
	r.record(HookButtonClicked, "%s at %g,%g %gx%g", id, rect.X, rect.Y, rect.Width, rect.Height)
}

func (r *Recorder) ErrorReported(err *protocol.AppError) {
	r.record(HookErrorReported, "%s alert=%t", err.Error(), err.Alert)
	r.mu.Lock()
	r.Errors = append(r.Errors, err)
	r.mu.Unlock()
}

func (r *Recorder) ActionReceived(action protocol.Action) {
	r.record(HookActionReceived, "%s %s", action.Action, action.DivID)
}
