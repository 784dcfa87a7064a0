// Package transcript describes a recorded editing session in YAML and
// replays it against an editor driving the in-process surface.
package transcript

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pluqqy/editbridge/pkg/models"
)

// Step kinds
const (
	KindEvent   = "event"
	KindSurface = "surface"
	KindOp      = "op"
)

var ErrInvalidStep = errors.New("invalid step")

// Transcript is a document setup followed by a list of steps
type Transcript struct {
	Name     string       `yaml:"name"`
	Settings yaml.Node    `yaml:"settings,omitempty"`
	Divs     []models.Div `yaml:"divs,omitempty"`
	Steps    []Step       `yaml:"steps"`

	// Dir is the directory the transcript was loaded from. Relative
	// resource paths resolve against it.
	Dir string `yaml:"-"`
}

// Step is one thing that happens during the session. Exactly one of
// Event, Surface and Op is set.
type Step struct {
	Note string `yaml:"note,omitempty"`

	// Event is a raw inbound payload handed to the editor
	Event string `yaml:"event,omitempty"`
	// Surface is a script run on the surface, usually a user activity hook
	Surface string `yaml:"surface,omitempty"`
	// Op is an editor operation name from Ops
	Op   string   `yaml:"op,omitempty"`
	Args []string `yaml:"args,omitempty"`
}

// Kind reports which field the step sets
func (s Step) Kind() string {
	switch {
	case s.Event != "":
		return KindEvent
	case s.Surface != "":
		return KindSurface
	case s.Op != "":
		return KindOp
	default:
		return ""
	}
}

// Detail is the step's payload, script or call
func (s Step) Detail() string {
	switch s.Kind() {
	case KindEvent:
		return s.Event
	case KindSurface:
		return s.Surface
	case KindOp:
		if len(s.Args) == 0 {
			return s.Op
		}
		return fmt.Sprintf("%s(%s)", s.Op, strings.Join(s.Args, ", "))
	default:
		return ""
	}
}

func (s Step) String() string {
	return s.Kind() + " " + s.Detail()
}

// Validate checks that exactly one kind is set and the op exists
func (s Step) Validate() error {
	set := 0
	for _, v := range []string{s.Event, s.Surface, s.Op} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: exactly one of event, surface and op must be set", ErrInvalidStep)
	}
	if s.Op == "" {
		if len(s.Args) > 0 {
			return fmt.Errorf("%w: args only apply to op steps", ErrInvalidStep)
		}
		return nil
	}
	spec, ok := ops[s.Op]
	if !ok {
		return fmt.Errorf("%w: unknown op %q", ErrInvalidStep, s.Op)
	}
	if len(s.Args) < spec.minArgs || len(s.Args) > len(spec.args) {
		return fmt.Errorf("%w: %s takes %s", ErrInvalidStep, s.Op, spec.usage())
	}
	return nil
}

// Load reads and validates a transcript file
func Load(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript %s: %w", path, err)
	}
	t.Dir = filepath.Dir(path)
	return t, nil
}

// Parse decodes and validates a transcript
func Parse(data []byte) (*Transcript, error) {
	var t Transcript
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse transcript: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks every div and step
func (t *Transcript) Validate() error {
	seen := make(map[string]bool, len(t.Divs))
	for i := range t.Divs {
		div := &t.Divs[i]
		if err := div.Validate(); err != nil {
			return fmt.Errorf("div %d: %w", i, err)
		}
		if seen[div.ID] {
			return fmt.Errorf("div %d: duplicate id %q", i, div.ID)
		}
		seen[div.ID] = true
	}
	for i, step := range t.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

// EffectiveSettings applies the transcript's overrides to base. A nil
// base means the defaults. Base is not modified.
func (t *Transcript) EffectiveSettings(base *models.Settings) (*models.Settings, error) {
	settings := models.DefaultSettings()
	if base != nil {
		copied := *base
		settings = &copied
	}
	if !t.Settings.IsZero() {
		if err := t.Settings.Decode(settings); err != nil {
			return nil, fmt.Errorf("failed to apply transcript settings: %w", err)
		}
	}
	if dir := settings.Resources.SourceDir; dir != "" && !filepath.IsAbs(dir) && t.Dir != "" {
		settings.Resources.SourceDir = filepath.Join(t.Dir, dir)
	}
	return settings, nil
}
