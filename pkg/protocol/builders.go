package protocol

import (
	"github.com/pluqqy/editbridge/pkg/models"
)

type buttonWire struct {
	ID       string `json:"id"`
	CSSClass string `json:"cssClass,omitempty"`
	Label    string `json:"label"`
	TargetID string `json:"targetId,omitempty"`
}

type groupWire struct {
	ID       string       `json:"id"`
	ParentID string       `json:"parentId"`
	CSSClass string       `json:"cssClass,omitempty"`
	Buttons  []buttonWire `json:"buttons"`
}

func groupToWire(group *models.ButtonGroup) groupWire {
	wire := groupWire{
		ID:       group.ID,
		ParentID: group.ParentID,
		CSSClass: group.CSSClass,
		Buttons:  make([]buttonWire, 0, len(group.Buttons)),
	}
	for _, b := range group.Buttons {
		wire.Buttons = append(wire.Buttons, buttonWire{
			ID:       b.ID,
			CSSClass: b.CSSClass,
			Label:    b.Label,
			TargetID: b.TargetID,
		})
	}
	return wire
}

// AddDiv materializes div in a single command. A static button group
// travels with the div; a dynamic one is pushed later with AddButtonGroup.
func AddDiv(div models.Div) (Command, error) {
	attributes, err := JSON(div.Attributes.Options())
	if err != nil {
		return Command{}, err
	}

	group := Null()
	if div.ButtonGroup != nil && !div.ButtonGroup.Dynamic {
		group, err = JSON(groupToWire(div.ButtonGroup))
		if err != nil {
			return Command{}, err
		}
	}

	return Call(VerbAddDiv,
		String(div.ID),
		String(div.Parent()),
		OptionalString(div.TargetID),
		OptionalString(div.FocusID),
		String(div.CSSClass),
		attributes,
		String(div.Contents),
		group,
	), nil
}

// RemoveDiv removes a div and everything inside it
func RemoveDiv(id string) Command {
	return Call(VerbRemoveDiv, String(id))
}

// AddButtonGroup pushes a group and all of its buttons
func AddButtonGroup(group models.ButtonGroup) (Command, error) {
	arg, err := JSON(groupToWire(&group))
	if err != nil {
		return Command{}, err
	}
	return Call(VerbAddButtonGroup, arg), nil
}

// RemoveButtonGroup removes a group and its buttons
func RemoveButtonGroup(id string) Command {
	return Call(VerbRemoveButtonGroup, String(id))
}

// AddButton pushes one button into an existing group
func AddButton(groupID string, b models.Button) Command {
	return Call(VerbAddButton,
		String(b.ID),
		String(b.CSSClass),
		String(b.Label),
		String(groupID),
	)
}

// RemoveButton removes one button
func RemoveButton(id string) Command {
	return Call(VerbRemoveButton, String(id))
}

// SetTopLevelAttributes applies capability attributes to the root region
func SetTopLevelAttributes(attributes models.EditableAttributes) (Command, error) {
	arg, err := JSON(attributes.Options())
	if err != nil {
		return Command{}, err
	}
	return Call(VerbSetTopLevelAttributes, arg), nil
}

// LoadUserFiles asks the surface to load the user script and stylesheet,
// named relative to the session work area
func LoadUserFiles(script, css string) Command {
	return Call(VerbLoadUserFiles, OptionalString(script), OptionalString(css))
}
