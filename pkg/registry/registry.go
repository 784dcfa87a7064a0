// Package registry keeps the host-side index of every known div, button group
// and button. It is the host's source of truth for which regions exist,
// independent of what the content surface currently renders.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/pluqqy/editbridge/pkg/models"
)

var (
	ErrInvalidDiv    = errors.New("invalid div")
	ErrIDInUse       = errors.New("id already in use")
	ErrNoButtonGroup = errors.New("div has no button group")
	ErrUnknownDiv    = errors.New("unknown div")
	ErrUnknownButton = errors.New("unknown button")
)

// ButtonRef is a button together with the ids that own it
type ButtonRef struct {
	Button  models.Button
	GroupID string
	DivID   string
}

// node is what byID resolves to: a div or a button group, never both
type node struct {
	divID   string
	groupID string
}

// Registry is safe for concurrent use. Every mutation updates all indices
// before the lock is released, so readers never see a partial add or remove.
type Registry struct {
	mu sync.RWMutex

	order   []string               // div ids in insertion order
	divs    map[string]*models.Div // arena, keyed by div id
	byID    map[string]node
	buttons map[string]ButtonRef

	focusIDByDivID   map[string]string
	groupIDByFocusID map[string]string
}

// New creates an empty registry
func New() *Registry {
	r := &Registry{}
	r.init()
	return r
}

func (r *Registry) init() {
	r.order = nil
	r.divs = make(map[string]*models.Div)
	r.byID = make(map[string]node)
	r.buttons = make(map[string]ButtonRef)
	r.focusIDByDivID = make(map[string]string)
	r.groupIDByFocusID = make(map[string]string)
}

// Add indexes div. A div whose id is already registered replaces the old one:
// the old div and all of its buttons are dropped from every index first.
// replaced reports whether that happened.
func (r *Registry) Add(div models.Div) (replaced bool, err error) {
	if err := div.Validate(); err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidDiv, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := cloneDiv(div)
	if err := r.checkCollisions(stored); err != nil {
		return false, err
	}

	_, replaced = r.divs[stored.ID]
	if replaced {
		r.removeLocked(stored.ID)
	}

	r.order = append(r.order, stored.ID)
	r.divs[stored.ID] = stored
	r.byID[stored.ID] = node{divID: stored.ID}
	if stored.FocusID != "" {
		r.focusIDByDivID[stored.ID] = stored.FocusID
	}

	if group := stored.ButtonGroup; group != nil {
		r.byID[group.ID] = node{groupID: group.ID, divID: stored.ID}
		if stored.FocusID != "" {
			r.groupIDByFocusID[stored.FocusID] = group.ID
		}
		for _, b := range group.Buttons {
			r.buttons[b.ID] = ButtonRef{Button: b, GroupID: group.ID, DivID: stored.ID}
		}
	}

	return replaced, nil
}

// checkCollisions rejects ids that belong to a different div
func (r *Registry) checkCollisions(div *models.Div) error {
	owner := func(id string) (string, bool) {
		if n, ok := r.byID[id]; ok {
			return n.divID, true
		}
		if ref, ok := r.buttons[id]; ok {
			return ref.DivID, true
		}
		return "", false
	}

	ids := []string{div.ID}
	if div.ButtonGroup != nil {
		ids = append(ids, div.ButtonGroup.ID)
		for _, b := range div.ButtonGroup.Buttons {
			ids = append(ids, b.ID)
		}
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return fmt.Errorf("%w: %q appears twice in div %q", ErrIDInUse, id, div.ID)
		}
		seen[id] = true
		if divID, ok := owner(id); ok && divID != div.ID {
			return fmt.Errorf("%w: %q belongs to div %q", ErrIDInUse, id, divID)
		}
	}
	return nil
}

// Remove drops the div with id and every button attached to it.
// It reports whether the div was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(id)
}

func (r *Registry) removeLocked(id string) bool {
	div, ok := r.divs[id]
	if !ok {
		return false
	}

	if group := div.ButtonGroup; group != nil {
		for _, b := range group.Buttons {
			delete(r.buttons, b.ID)
		}
		delete(r.byID, group.ID)
	}

	delete(r.focusIDByDivID, id)
	delete(r.byID, id)
	delete(r.divs, id)
	r.order = slices.DeleteFunc(r.order, func(existing string) bool {
		return existing == id
	})

	if div.ButtonGroup != nil && div.FocusID != "" && r.groupIDByFocusID[div.FocusID] == div.ButtonGroup.ID {
		r.reassignFocusGroup(div.FocusID)
	}
	return true
}

// reassignFocusGroup hands focusID to the most recently added div that
// shares it and has a button group, or forgets it when none is left
func (r *Registry) reassignFocusGroup(focusID string) {
	delete(r.groupIDByFocusID, focusID)
	for i := len(r.order) - 1; i >= 0; i-- {
		div := r.divs[r.order[i]]
		if div.FocusID == focusID && div.ButtonGroup != nil {
			r.groupIDByFocusID[focusID] = div.ButtonGroup.ID
			return
		}
	}
}

// AddButton appends a button to the group of the div with divID
func (r *Registry) AddButton(divID string, button models.Button) error {
	if err := models.ValidateID(button.ID); err != nil {
		return fmt.Errorf("invalid button id: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	div, ok := r.divs[divID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDiv, divID)
	}
	if div.ButtonGroup == nil {
		return fmt.Errorf("%w: %q", ErrNoButtonGroup, divID)
	}
	if _, taken := r.byID[button.ID]; taken {
		return fmt.Errorf("%w: %q", ErrIDInUse, button.ID)
	}
	if _, taken := r.buttons[button.ID]; taken {
		return fmt.Errorf("%w: %q", ErrIDInUse, button.ID)
	}

	div.ButtonGroup.Buttons = append(div.ButtonGroup.Buttons, button)
	r.buttons[button.ID] = ButtonRef{Button: button, GroupID: div.ButtonGroup.ID, DivID: divID}
	return nil
}

// RemoveButton drops a single button from its group
func (r *Registry) RemoveButton(buttonID string) (ButtonRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, ok := r.buttons[buttonID]
	if !ok {
		return ButtonRef{}, fmt.Errorf("%w: %q", ErrUnknownButton, buttonID)
	}

	if div, ok := r.divs[ref.DivID]; ok && div.ButtonGroup != nil {
		div.ButtonGroup.Buttons = slices.DeleteFunc(div.ButtonGroup.Buttons, func(b models.Button) bool {
			return b.ID == buttonID
		})
	}
	delete(r.buttons, buttonID)
	return ref, nil
}

// Div returns a copy of the div with id
func (r *Registry) Div(id string) (models.Div, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	div, ok := r.divs[id]
	if !ok {
		return models.Div{}, false
	}
	return *cloneDiv(*div), true
}

// Button resolves a button id
func (r *Registry) Button(id string) (ButtonRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ref, ok := r.buttons[id]
	return ref, ok
}

// FocusID returns the id of the element that takes focus for divID
func (r *Registry) FocusID(divID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.focusIDByDivID[divID]
	return id, ok
}

// ButtonGroupID returns the group shown for divID: its own group, or the group
// registered against its focus id
func (r *Registry) ButtonGroupID(divID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if div, ok := r.divs[divID]; ok && div.ButtonGroup != nil {
		return div.ButtonGroup.ID, true
	}
	if focusID, ok := r.focusIDByDivID[divID]; ok {
		id, ok := r.groupIDByFocusID[focusID]
		return id, ok
	}
	return "", false
}

// GroupFor returns a copy of the button group shown when id gains the
// selection. id may name a div or the focus element of one.
func (r *Registry) GroupFor(id string) (models.ButtonGroup, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if div, ok := r.divs[id]; ok && div.ButtonGroup != nil {
		return *cloneDiv(*div).ButtonGroup, true
	}
	groupID, ok := r.groupIDByFocusID[id]
	if !ok {
		return models.ButtonGroup{}, false
	}
	div, ok := r.divs[r.byID[groupID].divID]
	if !ok || div.ButtonGroup == nil {
		return models.ButtonGroup{}, false
	}
	return *cloneDiv(*div).ButtonGroup, true
}

// Owner returns the div that id belongs to, whether id names a div or a group
func (r *Registry) Owner(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.byID[id]
	return n.divID, ok
}

// Divs returns copies of every div in insertion order
func (r *Registry) Divs() []models.Div {
	r.mu.RLock()
	defer r.mu.RUnlock()

	divs := make([]models.Div, 0, len(r.order))
	for _, id := range r.order {
		divs = append(divs, *cloneDiv(*r.divs[id]))
	}
	return divs
}

// Len returns the number of live divs
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Reset clears every index
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.init()
}

func cloneDiv(div models.Div) *models.Div {
	if div.ButtonGroup != nil {
		group := *div.ButtonGroup
		group.Buttons = slices.Clone(div.ButtonGroup.Buttons)
		div.ButtonGroup = &group
	}
	return &div
}
