package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// RootDivID is the id of the region that wraps the whole document.
const RootDivID = "editor"

// Div-related errors
var (
	ErrEmptyID            = errors.New("id cannot be empty")
	ErrInvalidIDCharacter = errors.New("id contains invalid characters")
	ErrGroupParent        = errors.New("button group parent does not match div")
)

// EditableAttributes is the set of editing capabilities turned on for a region
type EditableAttributes uint8

const (
	ContentEditable EditableAttributes = 1 << iota
	Spellcheck
	Autocorrect
)

// StandardAttributes is what a plain editable region gets
const StandardAttributes = ContentEditable | Spellcheck

var attributeNames = map[EditableAttributes]string{
	ContentEditable: "contenteditable",
	Spellcheck:      "spellcheck",
	Autocorrect:     "autocorrect",
}

// Has reports whether every flag in other is set
func (a EditableAttributes) Has(other EditableAttributes) bool {
	return a&other == other
}

// Options returns the dictionary view of the attribute set
func (a EditableAttributes) Options() map[string]bool {
	options := make(map[string]bool, len(attributeNames))
	for flag, name := range attributeNames {
		options[name] = a.Has(flag)
	}
	return options
}

// String lists the enabled attributes in a stable order
func (a EditableAttributes) String() string {
	var names []string
	for flag, name := range attributeNames {
		if a.Has(flag) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// AttributesFromOptions builds a set from the dictionary view, ignoring unknown keys
func AttributesFromOptions(options map[string]bool) EditableAttributes {
	var a EditableAttributes
	for flag, name := range attributeNames {
		if options[name] {
			a |= flag
		}
	}
	return a
}

// MarshalYAML writes the dictionary view
func (a EditableAttributes) MarshalYAML() (interface{}, error) {
	return a.Options(), nil
}

// UnmarshalYAML reads the dictionary view
func (a *EditableAttributes) UnmarshalYAML(value *yaml.Node) error {
	var options map[string]bool
	if err := value.Decode(&options); err != nil {
		return fmt.Errorf("failed to parse editable attributes: %w", err)
	}
	*a = AttributesFromOptions(options)
	return nil
}

// Rect is an on-screen bounding box reported by the content surface
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// ActionInfo is handed to a button's action when it is clicked
type ActionInfo struct {
	OriginID string
	TargetID string
	Rect     Rect
}

// Button is a host-defined control rendered inside a button group
type Button struct {
	ID       string           `yaml:"id"`
	CSSClass string           `yaml:"class,omitempty"`
	Label    string           `yaml:"label"`
	TargetID string           `yaml:"target,omitempty"`
	Action   func(ActionInfo) `yaml:"-"`
}

// NewButton creates a button with a freshly generated id
func NewButton(cssClass, label string, action func(ActionInfo)) Button {
	return Button{
		ID:       NewID(),
		CSSClass: cssClass,
		Label:    label,
		Action:   action,
	}
}

// ButtonGroup is an ordered set of buttons attached to a div
type ButtonGroup struct {
	ID       string   `yaml:"id"`
	ParentID string   `yaml:"parent"`
	CSSClass string   `yaml:"class,omitempty"`
	Buttons  []Button `yaml:"buttons"`
	Dynamic  bool     `yaml:"dynamic,omitempty"`
}

// GroupID derives the conventional button group id for a div
func GroupID(divID string) string {
	return divID + "-buttons"
}

// NewButtonGroup creates a group attached to the div with parentID
func NewButtonGroup(parentID, cssClass string, dynamic bool, buttons ...Button) *ButtonGroup {
	return &ButtonGroup{
		ID:       GroupID(parentID),
		ParentID: parentID,
		CSSClass: cssClass,
		Buttons:  buttons,
		Dynamic:  dynamic,
	}
}

// Div describes one editable region of the document
type Div struct {
	ID           string             `yaml:"id"`
	ParentID     string             `yaml:"parent,omitempty"`
	TargetID     string             `yaml:"target,omitempty"`
	FocusID      string             `yaml:"focus,omitempty"`
	CSSClass     string             `yaml:"class,omitempty"`
	Attributes   EditableAttributes `yaml:"attributes,omitempty"`
	Contents     string             `yaml:"contents,omitempty"`
	ResourceBase string             `yaml:"resources,omitempty"`
	ButtonGroup  *ButtonGroup       `yaml:"buttons,omitempty"`
}

// Parent returns the parent id, falling back to the root region
func (d *Div) Parent() string {
	if d.ParentID == "" {
		return RootDivID
	}
	return d.ParentID
}

// IsRoot reports whether this div is the document's root region
func (d *Div) IsRoot() bool {
	return d.ID == RootDivID
}

// Validate checks the div and its attached group
func (d *Div) Validate() error {
	if err := ValidateID(d.ID); err != nil {
		return fmt.Errorf("invalid div id: %w", err)
	}
	if d.ButtonGroup == nil {
		return nil
	}
	if d.ButtonGroup.ParentID != d.ID {
		return fmt.Errorf("%w: group %q has parent %q, div is %q",
			ErrGroupParent, d.ButtonGroup.ID, d.ButtonGroup.ParentID, d.ID)
	}
	for _, b := range d.ButtonGroup.Buttons {
		if err := ValidateID(b.ID); err != nil {
			return fmt.Errorf("invalid button id in group %q: %w", d.ButtonGroup.ID, err)
		}
	}
	return nil
}

// ValidateID rejects ids that cannot be used as element ids in the content surface
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyID
	}
	for _, r := range id {
		if r < 0x20 || r == '\'' || r == '"' || r == '\\' || r == ' ' {
			return ErrInvalidIDCharacter
		}
	}
	return nil
}
