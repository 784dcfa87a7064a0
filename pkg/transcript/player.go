package transcript

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pluqqy/editbridge/pkg/editor"
	"github.com/pluqqy/editbridge/pkg/models"
	"github.com/pluqqy/editbridge/pkg/protocol"
	"github.com/pluqqy/editbridge/pkg/resources"
	"github.com/pluqqy/editbridge/pkg/router"
	"github.com/pluqqy/editbridge/pkg/selection"
	"github.com/pluqqy/editbridge/pkg/surface"
)

// ErrFinished is returned by Step once every step has run
var ErrFinished = errors.New("transcript finished")

const maxSettleRounds = 100

// Clipboard keeps what the session copied instead of touching the system
// clipboard
type Clipboard struct {
	mu   sync.Mutex
	text string
}

func (c *Clipboard) WriteText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	return nil
}

// Text returns the last text written
func (c *Clipboard) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// Outcome is what one step did
type Outcome struct {
	Index     int
	Step      Step
	Err       error
	Calls     []router.Entry
	HTML      string
	Selection selection.State
	Elapsed   time.Duration
}

// Option configures a Player
type Option func(*config)

type config struct {
	logger *zap.Logger
	base   *models.Settings
}

// WithLogger sets the logger shared by the editor and the surface
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBaseSettings sets the settings the transcript's overrides apply to
func WithBaseSettings(settings *models.Settings) Option {
	return func(c *config) { c.base = settings }
}

// Player replays a transcript one step at a time. Its methods are not
// safe for concurrent use.
type Player struct {
	transcript *Transcript
	editor     *editor.Editor
	surface    *surface.Surface
	recorder   *router.Recorder
	clipboard  *Clipboard
	logger     *zap.Logger
	cancel     context.CancelFunc
	setup      []router.Entry
	next       int
}

// NewPlayer sets up the document and waits until the editor is ready for
// input
func NewPlayer(ctx context.Context, t *Transcript, opts ...Option) (*Player, error) {
	cfg := config{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	settings, err := t.EffectiveSettings(cfg.base)
	if err != nil {
		return nil, err
	}

	work, err := resources.NewWorkArea(settings.Resources.WorkRoot, "", cfg.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create work area: %w", err)
	}
	if src := settings.Resources.SourceDir; src != "" {
		if err := work.Populate(src); err != nil {
			cfg.logger.Warn("resource population failed", zap.String("from", src), zap.Error(err))
		}
	}

	p := &Player{
		transcript: t,
		recorder:   &router.Recorder{},
		clipboard:  &Clipboard{},
		logger:     cfg.logger.Named("transcript"),
	}
	p.surface = surface.New(
		surface.WithLogger(cfg.logger),
		surface.WithWorkArea(work),
		surface.WithRootID(settings.Bridge.RootDivID),
	)
	p.editor = editor.New(p.surface,
		editor.WithLogger(cfg.logger),
		editor.WithSettings(settings),
		editor.WithDelegate(p.recorder),
		editor.WithClipboard(p.clipboard),
		editor.WithWorkArea(work),
	)

	runCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go func() {
		if err := p.editor.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Debug("editor loop stopped", zap.Error(err))
		}
	}()
	p.surface.Attach(func(payload string) { p.editor.Receive(payload) })

	if err := p.editor.LoadDivs(t.Divs, nil); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to register divs: %w", err)
	}
	p.surface.Start()

	if err := p.settle(ctx); err != nil {
		p.Close()
		return nil, err
	}
	if phase := p.editor.Router().Phase(); phase != router.Ready {
		p.Close()
		return nil, fmt.Errorf("surface never became ready, setup stopped at %s", phase)
	}
	p.setup = p.recorder.Entries()
	return p, nil
}

// Editor returns the editor under replay
func (p *Player) Editor() *editor.Editor { return p.editor }

// Surface returns the emulated content surface
func (p *Player) Surface() *surface.Surface { return p.surface }

// Recorder returns every delegate call made so far
func (p *Player) Recorder() *router.Recorder { return p.recorder }

// Clipboard returns the session clipboard
func (p *Player) Clipboard() *Clipboard { return p.clipboard }

// Transcript returns the transcript being replayed
func (p *Player) Transcript() *Transcript { return p.transcript }

// Setup returns the delegate calls made while the document loaded
func (p *Player) Setup() []router.Entry { return p.setup }

// Position returns the index of the next step
func (p *Player) Position() int { return p.next }

// Finished reports whether every step has run
func (p *Player) Finished() bool { return p.next >= len(p.transcript.Steps) }

// Step runs the next step and waits for the traffic it causes to die
// down. A failing step is reported in the outcome; only a stalled replay
// is an error.
func (p *Player) Step(ctx context.Context) (Outcome, error) {
	if p.Finished() {
		return Outcome{}, ErrFinished
	}
	index := p.next
	p.next++
	step := p.transcript.Steps[index]

	started := time.Now()
	before := len(p.recorder.Entries())

	out := Outcome{Index: index, Step: step}
	switch step.Kind() {
	case KindEvent:
		p.editor.Receive(step.Event)
	case KindSurface:
		_, out.Err = p.surface.Do(ctx, step.Surface)
	case KindOp:
		out.Err = ops[step.Op].run(p.editor, step.Args)
	}
	if out.Err != nil {
		p.logger.Info("step failed", zap.Int("index", index), zap.String("step", step.String()), zap.Error(out.Err))
	}

	if err := p.settle(ctx); err != nil {
		return out, fmt.Errorf("step %d: %w", index, err)
	}

	out.Calls = p.recorder.Entries()[before:]
	out.Selection = p.editor.Selection()
	markup, err := p.surface.Do(ctx, protocol.Call(protocol.VerbGetHTML).Script())
	if err != nil {
		return out, fmt.Errorf("step %d: failed to read document: %w", index, err)
	}
	out.HTML, _ = markup.(string)
	out.Elapsed = time.Since(started)
	return out, nil
}

// Run plays every remaining step
func (p *Player) Run(ctx context.Context) ([]Outcome, error) {
	var outcomes []Outcome
	for !p.Finished() {
		out, err := p.Step(ctx)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// Close stops the editor and the surface and removes the work area
func (p *Player) Close() {
	p.cancel()
	p.editor.Close()
	p.surface.Close()
}

// settle alternates barriers on the surface and the editor until no
// command is in flight and none was issued during a round
func (p *Player) settle(ctx context.Context) error {
	d := p.editor.Dispatcher()
	for round := 0; round < maxSettleRounds; round++ {
		issued := d.Issued()
		if _, err := p.surface.Do(ctx, "undefined"); err != nil {
			return fmt.Errorf("surface barrier failed: %w", err)
		}
		if err := p.editor.Sync(ctx); err != nil {
			return fmt.Errorf("editor barrier failed: %w", err)
		}
		if d.InFlight() == 0 && d.Issued() == issued {
			return nil
		}
	}
	return fmt.Errorf("replay did not settle after %d rounds", maxSettleRounds)
}
