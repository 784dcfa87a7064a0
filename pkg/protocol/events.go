// Package protocol defines both directions of the content channel: the
// closed set of inbound events and the textual outbound commands.
package protocol

import (
	"encoding/json"

	"github.com/pluqqy/editbridge/pkg/models"
)

// Event is one decoded inbound message. The set of implementations is closed;
// consumers switch over the concrete types.
type Event interface {
	// Name is the bare string or messageType the event was decoded from
	Name() string
	isEvent()
}

// Bare string events
const (
	NameReady            = "ready"
	NameLoadedUserFiles  = "loadedUserFiles"
	NameUpdateHeight     = "updateHeight"
	NameBlur             = "blur"
	NameFocus            = "focus"
	NameSelectionChange  = "selectionChange"
	NameClick            = "click"
	NameUndoSet          = "undoSet"
	NameSearched         = "searched"
	NameActivateSearch   = "activateSearch"
	NameDeactivateSearch = "deactivateSearch"
	NameInput            = "input"
)

// Structured event message types
const (
	TypeAction        = "action"
	TypeLog           = "log"
	TypeError         = "error"
	TypeCopyImage     = "copyImage"
	TypeAddedImage    = "addedImage"
	TypeDeletedImage  = "deletedImage"
	TypeButtonClicked = "buttonClicked"
)

type (
	Ready            struct{}
	LoadedUserFiles  struct{}
	UpdateHeight     struct{}
	Blur             struct{}
	Focus            struct{}
	SelectionChange  struct{}
	Click            struct{}
	UndoSet          struct{}
	Searched         struct{}
	ActivateSearch   struct{}
	DeactivateSearch struct{}
)

// Input reports edits inside a region. An empty DivID means the root region.
type Input struct {
	DivID string
}

// IsRoot reports whether the input happened in the root region
func (e Input) IsRoot(rootID string) bool {
	return e.DivID == "" || e.DivID == rootID
}

// Action is a custom action raised by a user script
type Action struct {
	Action string
	DivID  string
	Raw    json.RawMessage
}

// Log is a diagnostic line written by the content surface
type Log struct {
	Message string
}

// AppError is an application error reported by the content surface.
// Alert marks errors the host should consider showing to the end user.
type AppError struct {
	Code    string
	Message string
	Info    string
	Alert   bool
}

func (e *AppError) Error() string {
	if e.Info != "" {
		return e.Code + ": " + e.Message + " (" + e.Info + ")"
	}
	return e.Code + ": " + e.Message
}

// Size is an image's natural size
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CopyImage asks the host to put an image on the clipboard
type CopyImage struct {
	Src        string
	Alt        string
	Dimensions Size
}

// AddedImage reports an image inserted into a region
type AddedImage struct {
	Src   string
	DivID string
}

// DeletedImage reports an image removed from a region
type DeletedImage struct {
	Src   string
	DivID string
}

// ButtonClicked reports a click on a host-defined button
type ButtonClicked struct {
	ID   string
	Rect models.Rect
}

func (Ready) Name() string            { return NameReady }
func (LoadedUserFiles) Name() string  { return NameLoadedUserFiles }
func (UpdateHeight) Name() string     { return NameUpdateHeight }
func (Blur) Name() string             { return NameBlur }
func (Focus) Name() string            { return NameFocus }
func (SelectionChange) Name() string  { return NameSelectionChange }
func (Click) Name() string            { return NameClick }
func (UndoSet) Name() string          { return NameUndoSet }
func (Searched) Name() string         { return NameSearched }
func (ActivateSearch) Name() string   { return NameActivateSearch }
func (DeactivateSearch) Name() string { return NameDeactivateSearch }
func (Input) Name() string            { return NameInput }
func (Action) Name() string           { return TypeAction }
func (Log) Name() string              { return TypeLog }
func (*AppError) Name() string        { return TypeError }
func (CopyImage) Name() string        { return TypeCopyImage }
func (AddedImage) Name() string       { return TypeAddedImage }
func (DeletedImage) Name() string     { return TypeDeletedImage }
func (ButtonClicked) Name() string    { return TypeButtonClicked }

func (Ready) isEvent()            {}
func (LoadedUserFiles) isEvent()  {}
func (UpdateHeight) isEvent()     {}
func (Blur) isEvent()             {}
func (Focus) isEvent()            {}
func (SelectionChange) isEvent()  {}
func (Click) isEvent()            {}
func (UndoSet) isEvent()          {}
func (Searched) isEvent()         {}
func (ActivateSearch) isEvent()   {}
func (DeactivateSearch) isEvent() {}
func (Input) isEvent()            {}
func (Action) isEvent()           {}
func (Log) isEvent()              {}
func (*AppError) isEvent()        {}
func (CopyImage) isEvent()        {}
func (AddedImage) isEvent()       {}
func (DeletedImage) isEvent()     {}
func (ButtonClicked) isEvent()    {}
