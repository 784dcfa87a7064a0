package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pluqqy/editbridge/pkg/models"
)

var (
	ErrMalformed    = errors.New("malformed message")
	ErrUnknownEvent = errors.New("unknown event")
)

var bareEvents = map[string]Event{
	NameReady:            Ready{},
	NameLoadedUserFiles:  LoadedUserFiles{},
	NameUpdateHeight:     UpdateHeight{},
	NameBlur:             Blur{},
	NameFocus:            Focus{},
	NameSelectionChange:  SelectionChange{},
	NameClick:            Click{},
	NameUndoSet:          UndoSet{},
	NameSearched:         Searched{},
	NameActivateSearch:   ActivateSearch{},
	NameDeactivateSearch: DeactivateSearch{},
	NameInput:            Input{},
}

var structuredDecoders = map[string]func([]byte) (Event, error){
	TypeAction:        decodeAction,
	TypeLog:           decodeLog,
	TypeError:         decodeError,
	TypeCopyImage:     decodeCopyImage,
	TypeAddedImage:    decodeAddedImage,
	TypeDeletedImage:  decodeDeletedImage,
	TypeButtonClicked: decodeButtonClicked,
}

// BareEvents lists the fixed vocabulary of bare string events
func BareEvents() []string {
	names := make([]string, 0, len(bareEvents))
	for name := range bareEvents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MessageTypes lists the structured messageType discriminators
func MessageTypes() []string {
	types := make([]string, 0, len(structuredDecoders))
	for t := range structuredDecoders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Decode classifies one inbound payload. Payloads starting with "{" are
// structured; anything else must be a bare string from the vocabulary or
// "input:<divId>".
func Decode(payload string) (Event, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformed)
	}

	if strings.HasPrefix(trimmed, "{") {
		return decodeStructured([]byte(trimmed))
	}

	if divID, ok := strings.CutPrefix(trimmed, NameInput+":"); ok {
		return Input{DivID: divID}, nil
	}

	if ev, ok := bareEvents[trimmed]; ok {
		return ev, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, truncate(trimmed))
}

func decodeStructured(data []byte) (Event, error) {
	var envelope struct {
		MessageType *string `json:"messageType"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if envelope.MessageType == nil {
		return nil, fmt.Errorf("%w: missing messageType", ErrMalformed)
	}

	decode, ok := structuredDecoders[*envelope.MessageType]
	if !ok {
		return nil, fmt.Errorf("%w: messageType %q", ErrUnknownEvent, *envelope.MessageType)
	}
	return decode(data)
}

func missing(messageType, key string) error {
	return fmt.Errorf("%w: %s message missing %q", ErrMalformed, messageType, key)
}

func unmarshal(messageType string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s message: %v", ErrMalformed, messageType, err)
	}
	return nil
}

func decodeAction(data []byte) (Event, error) {
	var wire struct {
		Action *string `json:"action"`
		DivID  string  `json:"divId"`
	}
	if err := unmarshal(TypeAction, data, &wire); err != nil {
		return nil, err
	}
	if wire.Action == nil {
		return nil, missing(TypeAction, "action")
	}
	return Action{Action: *wire.Action, DivID: wire.DivID, Raw: json.RawMessage(data)}, nil
}

func decodeLog(data []byte) (Event, error) {
	var wire struct {
		Log *string `json:"log"`
	}
	if err := unmarshal(TypeLog, data, &wire); err != nil {
		return nil, err
	}
	if wire.Log == nil {
		return nil, missing(TypeLog, "log")
	}
	return Log{Message: *wire.Log}, nil
}

func decodeError(data []byte) (Event, error) {
	var wire struct {
		Code    *string         `json:"code"`
		Message *string         `json:"message"`
		Info    json.RawMessage `json:"info"`
		Alert   bool            `json:"alert"`
	}
	if err := unmarshal(TypeError, data, &wire); err != nil {
		return nil, err
	}
	if wire.Code == nil {
		return nil, missing(TypeError, "code")
	}
	if wire.Message == nil {
		return nil, missing(TypeError, "message")
	}
	return &AppError{
		Code:    *wire.Code,
		Message: *wire.Message,
		Info:    infoText(wire.Info),
		Alert:   wire.Alert,
	}, nil
}

// infoText accepts info as a string or any JSON value
func infoText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func decodeCopyImage(data []byte) (Event, error) {
	var wire struct {
		Src        *string `json:"src"`
		Alt        string  `json:"alt"`
		Dimensions *Size   `json:"dimensions"`
	}
	if err := unmarshal(TypeCopyImage, data, &wire); err != nil {
		return nil, err
	}
	if wire.Src == nil {
		return nil, missing(TypeCopyImage, "src")
	}
	if wire.Dimensions == nil {
		return nil, missing(TypeCopyImage, "dimensions")
	}
	return CopyImage{Src: *wire.Src, Alt: wire.Alt, Dimensions: *wire.Dimensions}, nil
}

type imageWire struct {
	Src   *string `json:"src"`
	DivID string  `json:"divId"`
}

func decodeAddedImage(data []byte) (Event, error) {
	var wire imageWire
	if err := unmarshal(TypeAddedImage, data, &wire); err != nil {
		return nil, err
	}
	if wire.Src == nil {
		return nil, missing(TypeAddedImage, "src")
	}
	return AddedImage{Src: *wire.Src, DivID: wire.DivID}, nil
}

func decodeDeletedImage(data []byte) (Event, error) {
	var wire imageWire
	if err := unmarshal(TypeDeletedImage, data, &wire); err != nil {
		return nil, err
	}
	if wire.Src == nil {
		return nil, missing(TypeDeletedImage, "src")
	}
	return DeletedImage{Src: *wire.Src, DivID: wire.DivID}, nil
}

func decodeButtonClicked(data []byte) (Event, error) {
	var wire struct {
		ID   *string      `json:"id"`
		Rect *models.Rect `json:"rect"`
	}
	if err := unmarshal(TypeButtonClicked, data, &wire); err != nil {
		return nil, err
	}
	if wire.ID == nil || *wire.ID == "" {
		return nil, missing(TypeButtonClicked, "id")
	}
	if wire.Rect == nil {
		return nil, missing(TypeButtonClicked, "rect")
	}
	return ButtonClicked{ID: *wire.ID, Rect: *wire.Rect}, nil
}

func truncate(s string) string {
	const max = 64
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
