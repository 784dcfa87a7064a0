package editor

import (
	"fmt"

	"github.com/pluqqy/editbridge/pkg/protocol"
)

// Search finds text forward or backward from the selection. The surface
// answers with activateSearch and searched events.
func (e *Editor) Search(text string, dir Direction) error {
	if text == "" {
		return fmt.Errorf("search text cannot be empty")
	}
	if err := checkDirection(dir); err != nil {
		return err
	}
	e.dispatcher.Send(protocol.Call(protocol.VerbSearchFor, protocol.String(text), protocol.String(string(dir))))
	return nil
}

// DeactivateSearch leaves search mode keeping the current match selected
func (e *Editor) DeactivateSearch() {
	e.dispatcher.Send(protocol.Call(protocol.VerbDeactivateSearch))
}

// CancelSearch leaves search mode and restores the previous selection
func (e *Editor) CancelSearch() {
	e.dispatcher.Send(protocol.Call(protocol.VerbCancelSearch))
}
