package editor

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pluqqy/editbridge/pkg/dispatcher"
	"github.com/pluqqy/editbridge/pkg/models"
	"github.com/pluqqy/editbridge/pkg/protocol"
	"github.com/pluqqy/editbridge/pkg/registry"
)

// AddDiv registers div and materializes it once the surface is ready.
// Until then the setup pipeline materializes every registered div.
// A div with an id already present replaces the old one, and the new copy
// reaches the surface only after the old one has been removed.
func (e *Editor) AddDiv(div models.Div) error {
	replaced, err := e.registry.Add(div)
	if err != nil {
		return fmt.Errorf("failed to add div: %w", err)
	}
	var removals []string
	if replaced {
		removals = []string{div.ID}
	}
	e.exec.Post(func() { e.router.PlaceDivs([]models.Div{div}, removals, nil) })
	return nil
}

// RemoveDiv drops the div with id. Unknown ids are ignored.
func (e *Editor) RemoveDiv(id string) {
	if !e.registry.Remove(id) {
		return
	}
	e.exec.Post(func() { e.router.DropDiv(id) })
}

// AddButton appends button to the group of divID. Buttons of a dynamic
// group reach the surface only while the group is shown.
func (e *Editor) AddButton(divID string, button models.Button) error {
	if button.ID == "" {
		button.ID = models.NewID()
	}
	if err := e.registry.AddButton(divID, button); err != nil {
		return fmt.Errorf("failed to add button: %w", err)
	}

	div, ok := e.registry.Div(divID)
	if !ok || div.ButtonGroup == nil {
		return nil
	}
	group := div.ButtonGroup
	e.exec.Post(func() {
		switch {
		case !e.ready():
			e.router.Touch(divID)
		case !group.Dynamic || e.router.ShownGroup() == group.ID:
			e.dispatcher.Send(protocol.AddButton(group.ID, button))
		}
	})
	return nil
}

// RemoveButton drops one button
func (e *Editor) RemoveButton(id string) error {
	ref, err := e.registry.RemoveButton(id)
	if err != nil {
		return fmt.Errorf("failed to remove button: %w", err)
	}
	e.exec.Post(func() {
		if !e.ready() {
			e.router.Touch(ref.DivID)
			return
		}
		e.dispatcher.Send(protocol.RemoveButton(id))
	})
	return nil
}

// LoadDivs registers every div and materializes them in one bulk load,
// under the configured bulk mode. Divs replacing registered ones are first
// removed from the surface and the load waits for those removals. Invalid
// divs are skipped and reported in the returned error; done still runs.
func (e *Editor) LoadDivs(divs []models.Div, done dispatcher.Completion) error {
	var errs []error
	var removals []string
	loaded := make([]models.Div, 0, len(divs))
	for _, div := range divs {
		replaced, err := e.registry.Add(div)
		if err != nil {
			errs = append(errs, fmt.Errorf("div %q: %w", div.ID, err))
			continue
		}
		if replaced {
			removals = append(removals, div.ID)
		}
		loaded = append(loaded, div)
	}
	e.logger.Debug("loading divs", zap.Int("divs", len(loaded)),
		zap.Int("replacing", len(removals)), zap.Int("rejected", len(errs)))

	e.exec.Post(func() { e.router.PlaceDivs(loaded, removals, done) })
	return errors.Join(errs...)
}

// UnloadDivs removes every registered div from the surface in one bulk
// load and clears the registry
func (e *Editor) UnloadDivs(done dispatcher.Completion) {
	divs := e.registry.Divs()
	e.registry.Reset()

	ids := make([]string, 0, len(divs))
	for _, div := range divs {
		ids = append(ids, div.ID)
	}
	e.exec.Post(func() { e.router.DropDivs(ids, done) })
}

// FocusOn moves input focus to the div with id, or to its focus element
// when it has one
func (e *Editor) FocusOn(id string) error {
	if _, ok := e.registry.Div(id); !ok && id != e.router.RootID() {
		return fmt.Errorf("%w: %q", registry.ErrUnknownDiv, id)
	}
	if focusID, ok := e.registry.FocusID(id); ok {
		id = focusID
	}
	e.dispatcher.Send(protocol.Call(protocol.VerbFocusOn, protocol.String(id)))
	return nil
}

// ScrollIntoView scrolls the div with id into view
func (e *Editor) ScrollIntoView(id string) error {
	if _, ok := e.registry.Div(id); !ok && id != e.router.RootID() {
		return fmt.Errorf("%w: %q", registry.ErrUnknownDiv, id)
	}
	e.dispatcher.Send(protocol.Call(protocol.VerbScrollIntoView, protocol.String(id)))
	return nil
}

// SetHTML replaces the root region's content
func (e *Editor) SetHTML(markup string, done dispatcher.Completion) {
	e.dispatcher.Call(protocol.Call(protocol.VerbSetHTML, protocol.String(markup)), done)
}

// GetHTML fetches the root region's content
func (e *Editor) GetHTML(done func(markup string, err error)) {
	e.dispatcher.Call(protocol.Call(protocol.VerbGetHTML), func(result any, err error) {
		if err != nil {
			done("", err)
			return
		}
		markup, _ := result.(string)
		done(markup, nil)
	})
}

// EmptyDocument clears the root region
func (e *Editor) EmptyDocument() error {
	return e.edit(always, protocol.Call(protocol.VerbEmptyDocument))
}

// SetPlaceholder sets the text shown while the root region is empty
func (e *Editor) SetPlaceholder(text string) {
	e.dispatcher.Send(protocol.Call(protocol.VerbSetPlaceholder, protocol.String(text)))
}
