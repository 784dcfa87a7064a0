// Package editor is the host-facing facade of one editing surface. It wires
// the dispatcher, router, registry, selection stores and resource work area
// together and gates every editing operation on the current selection.
package editor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pluqqy/editbridge/pkg/actor"
	"github.com/pluqqy/editbridge/pkg/dispatcher"
	"github.com/pluqqy/editbridge/pkg/models"
	"github.com/pluqqy/editbridge/pkg/protocol"
	"github.com/pluqqy/editbridge/pkg/registry"
	"github.com/pluqqy/editbridge/pkg/resources"
	"github.com/pluqqy/editbridge/pkg/router"
	"github.com/pluqqy/editbridge/pkg/selection"
)

// ErrNotAllowed is returned when the current selection does not permit an
// operation, or search mode is active
var ErrNotAllowed = errors.New("operation not allowed")

type config struct {
	logger    *zap.Logger
	delegate  router.Delegate
	clipboard router.Clipboard
	settings  models.Settings
	exec      actor.Executor
	sessionID string
	work      *resources.WorkArea
}

// Option configures an Editor
type Option func(*config)

// WithLogger sets the logger shared by every component
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDelegate sets the host delegate
func WithDelegate(delegate router.Delegate) Option {
	return func(c *config) { c.delegate = delegate }
}

// WithClipboard replaces the system clipboard
func WithClipboard(clip router.Clipboard) Option {
	return func(c *config) { c.clipboard = clip }
}

// WithSettings sets the bridge configuration
func WithSettings(settings *models.Settings) Option {
	return func(c *config) {
		if settings != nil {
			c.settings = *settings
		}
	}
}

// WithExecutor runs routing and completions on exec instead of the
// editor's own queue. Run is then a no-op.
func WithExecutor(exec actor.Executor) Option {
	return func(c *config) { c.exec = exec }
}

// WithSessionID keys the work area by id instead of a fresh one
func WithSessionID(id string) Option {
	return func(c *config) { c.sessionID = id }
}

// WithWorkArea uses an existing work area. The editor still tears it down
// on Close.
func WithWorkArea(work *resources.WorkArea) Option {
	return func(c *config) { c.work = work }
}

// Editor drives one content surface
type Editor struct {
	queue      *actor.Queue
	exec       actor.Executor
	dispatcher *dispatcher.Dispatcher
	router     *router.Router
	registry   *registry.Registry
	work       *resources.WorkArea
	clipboard  router.Clipboard
	settings   models.Settings
	bulkMode   dispatcher.BulkMode
	logger     *zap.Logger
}

// New wires an editor talking to the surface over channel
func New(channel dispatcher.Channel, opts ...Option) *Editor {
	cfg := config{
		logger:    zap.NewNop(),
		clipboard: router.SystemClipboard{},
		settings:  *models.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Editor{
		exec:      cfg.exec,
		registry:  registry.New(),
		clipboard: cfg.clipboard,
		settings:  cfg.settings,
		logger:    cfg.logger.Named("editor"),
	}
	if e.exec == nil {
		e.queue = actor.NewQueue()
		e.exec = e.queue
	}

	mode, err := dispatcher.ParseBulkMode(cfg.settings.Bridge.BulkMode)
	if err != nil {
		e.logger.Warn("falling back to submitted bulk mode", zap.Error(err))
	}
	e.bulkMode = mode

	e.work = cfg.work
	if e.work == nil {
		e.work = e.openWorkArea(cfg)
	}

	e.dispatcher = dispatcher.New(channel,
		dispatcher.WithLogger(cfg.logger),
		dispatcher.WithExecutor(e.exec),
		dispatcher.WithTimeout(cfg.settings.Bridge.CommandTimeout),
	)

	routerOpts := []router.Option{
		router.WithLogger(cfg.logger),
		router.WithDelegate(cfg.delegate),
		router.WithClipboard(cfg.clipboard),
		router.WithSettings(cfg.settings),
		router.WithBulkMode(mode),
	}
	if e.work != nil {
		routerOpts = append(routerOpts, router.WithWorkArea(e.work))
	}
	e.router = router.New(e.dispatcher, e.registry, routerOpts...)
	return e
}

// openWorkArea creates the session work area and copies the configured
// resource source into it. Failures leave the editor without one.
func (e *Editor) openWorkArea(cfg config) *resources.WorkArea {
	work, err := resources.NewWorkArea(cfg.settings.Resources.WorkRoot, cfg.sessionID, cfg.logger)
	if err != nil {
		e.logger.Warn("running without a work area", zap.Error(err))
		return nil
	}
	if src := cfg.settings.Resources.SourceDir; src != "" {
		if err := work.Populate(src); err != nil {
			e.logger.Warn("resource population failed", zap.String("from", src), zap.Error(err))
		}
	}
	return work
}

// Run drains the editor's queue until ctx ends or Close is called
func (e *Editor) Run(ctx context.Context) error {
	if e.queue == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return e.queue.Run(ctx)
}

// Receive queues one inbound payload for routing. It reports false once
// the editor is closed.
func (e *Editor) Receive(payload string) bool {
	return e.exec.Post(func() { e.router.Route(payload) })
}

// Sync waits until everything queued before it has been routed
func (e *Editor) Sync(ctx context.Context) error {
	reached := make(chan struct{})
	if !e.exec.Post(func() { close(reached) }) {
		return dispatcher.ErrClosed
	}
	select {
	case <-reached:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops routing and removes the work area
func (e *Editor) Close() {
	if e.queue != nil {
		e.queue.Close()
	}
	if e.work == nil {
		return
	}
	if err := e.work.Teardown(); err != nil {
		e.logger.Warn("work area teardown failed", zap.Error(err))
	}
}

// Registry returns the document structure registry
func (e *Editor) Registry() *registry.Registry { return e.registry }

// Router returns the inbound router
func (e *Editor) Router() *router.Router { return e.router }

// Dispatcher returns the outbound dispatcher
func (e *Editor) Dispatcher() *dispatcher.Dispatcher { return e.dispatcher }

// WorkArea returns the session work area, which may be nil
func (e *Editor) WorkArea() *resources.WorkArea { return e.work }

// Selection returns the locally cached selection
func (e *Editor) Selection() selection.State { return e.router.Local().State() }

// SharedSelection returns the store UI affordances subscribe to
func (e *Editor) SharedSelection() *selection.Store { return e.router.Shared() }

// Settings returns the configuration the editor was built with
func (e *Editor) Settings() models.Settings { return e.settings }

func (e *Editor) ready() bool {
	return e.router.Phase() == router.Ready
}

// gate is a capability check against the selection
type gate struct {
	name    string
	allowed func(selection.State) bool
	search  bool // still allowed while search is active
}

var (
	always          = gate{name: "always", allowed: func(selection.State) bool { return true }}
	canFormat       = gate{name: "can-format", allowed: selection.State.CanFormat}
	canStyle        = gate{name: "can-style", allowed: selection.State.CanStyle}
	canList         = gate{name: "can-list", allowed: selection.State.CanList}
	canDent         = gate{name: "can-dent", allowed: selection.State.CanDent}
	canLink         = gate{name: "can-link", allowed: selection.State.CanLink}
	isFollowable    = gate{name: "is-followable-link", allowed: selection.State.IsFollowableLink}
	canInsert       = gate{name: "can-insert", allowed: selection.State.CanInsert}
	isInImage       = gate{name: "is-in-image", allowed: selection.State.IsInImage}
	isInTable       = gate{name: "is-in-table", allowed: selection.State.IsInTable}
	canCopyOrCut    = gate{name: "can-copy-or-cut", allowed: selection.State.CanCopyOrCut}
	canCopyInSearch = gate{name: "can-copy-or-cut", allowed: selection.State.CanCopyOrCut, search: true}
)

func (e *Editor) check(g gate) error {
	if !g.search && e.router.SearchActive() {
		return fmt.Errorf("%w: search is active", ErrNotAllowed)
	}
	if !g.allowed(e.Selection()) {
		return fmt.Errorf("%w: selection is not %s", ErrNotAllowed, g.name)
	}
	return nil
}

// edit issues cmd once g allows it and refreshes the selection afterwards,
// since every edit can change what the selection permits
func (e *Editor) edit(g gate, cmd protocol.Command) error {
	if err := e.check(g); err != nil {
		return err
	}
	e.dispatcher.Call(cmd, func(any, error) {
		e.router.QuerySelection(nil)
	})
	return nil
}
