// Package router is the single inbound entry point for notifications from
// the content surface. Each payload is decoded once into a protocol.Event
// and handled to completion before the next one; the caller guarantees this
// by invoking Route only from the editing surface's actor.
package router

import (
	"errors"
	"math"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/pluqqy/editbridge/pkg/dispatcher"
	"github.com/pluqqy/editbridge/pkg/models"
	"github.com/pluqqy/editbridge/pkg/protocol"
	"github.com/pluqqy/editbridge/pkg/registry"
	"github.com/pluqqy/editbridge/pkg/resources"
	"github.com/pluqqy/editbridge/pkg/selection"
)

// Phase tracks the setup pipeline
type Phase int32

const (
	AwaitingReady Phase = iota
	LoadingUserFiles
	LoadingContent
	Ready
)

func (p Phase) String() string {
	switch p {
	case LoadingUserFiles:
		return "loading-user-files"
	case LoadingContent:
		return "loading-content"
	case Ready:
		return "ready"
	default:
		return "awaiting-ready"
	}
}

// Option configures a Router
type Option func(*Router)

// WithDelegate sets the delegate notified of routed events
func WithDelegate(delegate Delegate) Option {
	return func(r *Router) {
		if delegate != nil {
			r.delegate = delegate
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger.Named("router")
		}
	}
}

// WithClipboard replaces the system clipboard
func WithClipboard(clip Clipboard) Option {
	return func(r *Router) {
		if clip != nil {
			r.clipboard = clip
		}
	}
}

// WithWorkArea resolves image references against a session work area
func WithWorkArea(work *resources.WorkArea) Option {
	return func(r *Router) {
		r.work = work
	}
}

// WithSettings sets the document and resource settings used by the setup
// pipeline
func WithSettings(settings models.Settings) Option {
	return func(r *Router) {
		r.settings = settings
		if r.settings.Bridge.RootDivID == "" {
			r.settings.Bridge.RootDivID = models.RootDivID
		}
	}
}

// WithBulkMode picks how registered divs are materialized
func WithBulkMode(mode dispatcher.BulkMode) Option {
	return func(r *Router) {
		r.bulkMode = mode
	}
}

// WithStores supplies the local and shared selection stores
func WithStores(local, shared *selection.Store) Option {
	return func(r *Router) {
		if local != nil {
			r.local = local
		}
		if shared != nil {
			r.shared = shared
		}
	}
}

// Router turns inbound events into registry and selection updates and
// delegate calls. Status accessors are safe from any goroutine; everything
// else runs on the actor.
type Router struct {
	dispatcher *dispatcher.Dispatcher
	registry   *registry.Registry
	local      *selection.Store
	shared     *selection.Store
	delegate   Delegate
	clipboard  Clipboard
	work       *resources.WorkArea
	settings   models.Settings
	bulkMode   dispatcher.BulkMode
	logger     *zap.Logger

	phase        atomic.Int32
	hasFocus     atomic.Bool
	searchActive atomic.Bool
	height       atomic.Int64

	// id of the dynamic button group currently pushed to the surface
	shownGroup string

	// selection queries issued and the newest one applied. Actor only.
	selectionSeq     uint64
	selectionApplied uint64

	// divs pushed by the setup pipeline's snapshot and divs changed after
	// it. Actor only.
	loaded map[string]struct{}
	late   map[string]struct{}
}

// New creates a router issuing follow-up commands through d
func New(d *dispatcher.Dispatcher, reg *registry.Registry, opts ...Option) *Router {
	r := &Router{
		dispatcher: d,
		registry:   reg,
		local:      selection.NewStore(),
		shared:     selection.NewStore(),
		delegate:   NopDelegate{},
		clipboard:  SystemClipboard{},
		settings:   *models.DefaultSettings(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Phase returns where the setup pipeline is
func (r *Router) Phase() Phase { return Phase(r.phase.Load()) }

// HasFocus reports whether the content surface holds input focus
func (r *Router) HasFocus() bool { return r.hasFocus.Load() }

// SearchActive reports whether the surface is in search mode
func (r *Router) SearchActive() bool { return r.searchActive.Load() }

// ContentHeight returns the last height reported by the surface
func (r *Router) ContentHeight() int { return int(r.height.Load()) }

// Local returns the selection cache used for capability checks
func (r *Router) Local() *selection.Store { return r.local }

// Shared returns the selection copy UI affordances observe
func (r *Router) Shared() *selection.Store { return r.shared }

// RootID returns the id of the root region
func (r *Router) RootID() string { return r.settings.Bridge.RootDivID }

// Route decodes payload and handles it. Payloads that cannot be decoded are
// logged and dropped.
func (r *Router) Route(payload string) {
	ev, err := protocol.Decode(payload)
	if err != nil {
		msg := "malformed message dropped"
		if errors.Is(err, protocol.ErrUnknownEvent) {
			msg = "unknown message dropped"
		}
		r.logger.Warn(msg, zap.Error(err))
		return
	}
	r.Handle(ev)
}

// Handle dispatches one decoded event
func (r *Router) Handle(ev protocol.Event) {
	r.logger.Debug("route event", zap.String("event", ev.Name()))

	switch ev := ev.(type) {
	case protocol.Ready:
		r.handleReady()
	case protocol.LoadedUserFiles:
		r.handleLoadedUserFiles()
	case protocol.Input:
		r.handleInput(ev)
	case protocol.UpdateHeight:
		r.recomputeHeight(true)
	case protocol.Blur:
		r.hasFocus.Store(false)
		r.delegate.FocusLost()
	case protocol.Focus:
		r.hasFocus.Store(true)
		r.delegate.FocusGained()
	case protocol.SelectionChange:
		if !r.HasFocus() {
			r.logger.Debug("selection change ignored without focus")
			return
		}
		r.QuerySelection(nil)
	case protocol.Click:
		r.handleClick()
	case protocol.UndoSet:
		r.delegate.UndoPushed()
	case protocol.Searched:
		r.dispatcher.Send(protocol.Call(protocol.VerbRevealSearchMatch))
	case protocol.ActivateSearch:
		r.searchActive.Store(true)
		r.delegate.SearchActivated()
	case protocol.DeactivateSearch:
		r.searchActive.Store(false)
		r.delegate.SearchDeactivated()
	case *protocol.AppError:
		r.handleError(ev)
	case protocol.CopyImage:
		r.handleCopyImage(ev)
	case protocol.AddedImage:
		divID := r.regionOf(ev.DivID)
		r.delegate.ImageAdded(r.resolve(ev.Src), divID)
		if divID == r.RootID() {
			r.recomputeHeight(false)
		}
	case protocol.DeletedImage:
		divID := r.regionOf(ev.DivID)
		r.delegate.ImageDeleted(r.resolve(ev.Src), divID)
		if divID == r.RootID() {
			r.recomputeHeight(false)
		}
	case protocol.ButtonClicked:
		r.handleButtonClicked(ev)
	case protocol.Action:
		r.delegate.ActionReceived(ev)
	case protocol.Log:
		r.logger.Debug("surface log", zap.String("message", ev.Message))
	default:
		r.logger.Warn("unhandled event dropped", zap.String("event", ev.Name()))
	}
}

func (r *Router) handleInput(ev protocol.Input) {
	if !ev.IsRoot(r.RootID()) {
		r.delegate.InputChanged(ev.DivID)
		return
	}
	r.delegate.InputChanged(r.RootID())
	r.recomputeHeight(false)
}

func (r *Router) handleClick() {
	if !r.hasFocus.Swap(true) {
		r.delegate.FocusGained()
	}

	state := r.local.State()
	r.delegate.Clicked(state)
	switch {
	case state.IsFollowableLink():
		r.delegate.LinkSelected(state)
	case state.IsInImage():
		r.delegate.ImageSelected(state)
	case state.IsInTable():
		r.delegate.TableSelected(state)
	}
}

func (r *Router) handleError(ev *protocol.AppError) {
	fields := []zap.Field{
		zap.String("code", ev.Code),
		zap.String("message", ev.Message),
		zap.Bool("alert", ev.Alert),
	}
	if ev.Info != "" {
		fields = append(fields, zap.String("info", ev.Info))
	}
	if ev.Alert {
		r.logger.Warn("surface error", fields...)
	} else {
		r.logger.Debug("surface error", fields...)
	}
	r.delegate.ErrorReported(ev)
}

func (r *Router) handleCopyImage(ev protocol.CopyImage) {
	src := r.resolve(ev.Src)
	if err := r.clipboard.WriteText(src); err != nil {
		r.logger.Warn("failed to copy image to clipboard", zap.String("src", src), zap.Error(err))
		return
	}
	r.logger.Debug("image copied", zap.String("src", src),
		zap.Float64("width", ev.Dimensions.Width), zap.Float64("height", ev.Dimensions.Height))
}

func (r *Router) handleButtonClicked(ev protocol.ButtonClicked) {
	ref, ok := r.registry.Button(ev.ID)
	if !ok {
		r.logger.Warn("click on unknown button dropped", zap.String("id", ev.ID))
		return
	}

	if ref.Button.Action != nil {
		ref.Button.Action(models.ActionInfo{
			OriginID: ref.DivID,
			TargetID: ref.Button.TargetID,
			Rect:     ev.Rect,
		})
	}
	r.delegate.ButtonClicked(ev.ID, ev.Rect)
}

// QuerySelection asks the surface for a full selection snapshot and
// replaces both selection copies with it. A missing or unreadable snapshot
// yields the invalid default state. Results of queries older than one
// already applied are dropped and done receives the current state.
// Actor only.
func (r *Router) QuerySelection(done func(selection.State)) {
	r.selectionSeq++
	seq := r.selectionSeq
	r.dispatcher.Call(protocol.Call(protocol.VerbGetSelectionState), func(result any, err error) {
		if seq < r.selectionApplied {
			r.logger.Debug("stale selection snapshot dropped",
				zap.Uint64("query", seq), zap.Uint64("applied", r.selectionApplied))
			if done != nil {
				done(r.local.State())
			}
			return
		}
		r.selectionApplied = seq

		state := selection.Default()
		if err == nil {
			decoded, decodeErr := selection.FromResult(result)
			if decodeErr != nil {
				r.logger.Warn("unreadable selection snapshot", zap.Error(decodeErr))
			}
			state = decoded
		}

		r.local.Replace(state)
		r.shared.Replace(state.Clone())
		r.syncDynamicGroup(state)
		r.delegate.SelectionChanged(state)
		if done != nil {
			done(state)
		}
	})
}

// syncDynamicGroup pushes the dynamic button group of the selected region
// and removes the one shown for the previous region
func (r *Router) syncDynamicGroup(state selection.State) {
	var want models.ButtonGroup
	if state.Valid && state.DivID != "" {
		if group, ok := r.registry.GroupFor(state.DivID); ok && group.Dynamic {
			want = group
		}
	}
	if want.ID == r.shownGroup {
		return
	}

	if r.shownGroup != "" {
		r.dispatcher.Send(protocol.RemoveButtonGroup(r.shownGroup))
	}
	r.shownGroup = ""
	if want.ID == "" {
		return
	}

	cmd, err := protocol.AddButtonGroup(want)
	if err != nil {
		r.logger.Warn("failed to build button group", zap.String("group", want.ID), zap.Error(err))
		return
	}
	r.dispatcher.Send(cmd)
	r.shownGroup = want.ID
}

// ForgetDynamicGroup is called when the div owning the shown group goes
// away. Actor only.
func (r *Router) ForgetDynamicGroup(groupID string) {
	if r.shownGroup == groupID {
		r.shownGroup = ""
	}
}

func (r *Router) recomputeHeight(always bool) {
	r.dispatcher.Call(protocol.Call(protocol.VerbGetHeight), func(result any, err error) {
		if err != nil {
			return
		}
		height, ok := toInt(result)
		if !ok {
			r.logger.Warn("unreadable content height", zap.Any("result", result))
			return
		}
		previous := r.height.Swap(int64(height))
		if always || previous != int64(height) {
			r.delegate.HeightChanged(height)
		}
	})
}

func (r *Router) regionOf(divID string) string {
	if divID == "" {
		return r.RootID()
	}
	return divID
}

func (r *Router) resolve(src string) string {
	if r.work == nil {
		return src
	}
	return r.work.URL(src)
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(math.Round(n)), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return toInt(f)
	default:
		return 0, false
	}
}

// ShownGroup returns the id of the dynamic button group currently pushed,
// or "" when none is. Actor only.
func (r *Router) ShownGroup() string {
	return r.shownGroup
}
