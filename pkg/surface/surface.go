// Package surface is an in-process stand-in for the content surface. A goja
// runtime evaluates the outbound command scripts against an x/net/html
// document and the emulator reports inbound events the way a real editing
// surface would. Replays, the CLI and tests drive an editor against it.
package surface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dop251/goja"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/pluqqy/editbridge/pkg/actor"
	"github.com/pluqqy/editbridge/pkg/models"
	"github.com/pluqqy/editbridge/pkg/protocol"
	"github.com/pluqqy/editbridge/pkg/resources"
)

// ErrClosed is returned for scripts evaluated after Close
var ErrClosed = errors.New("surface closed")

// Sink receives inbound payloads, bare strings or JSON objects
type Sink func(payload string)

// Option configures a Surface
type Option func(*Surface)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Surface) {
		if logger != nil {
			s.logger = logger.Named("surface")
		}
	}
}

// WithWorkArea lets loadUserFiles read the user script and stylesheet
func WithWorkArea(work *resources.WorkArea) Option {
	return func(s *Surface) { s.work = work }
}

// WithRootID sets the id of the root region
func WithRootID(id string) Option {
	return func(s *Surface) {
		if id != "" {
			s.rootID = id
		}
	}
}

// Surface evaluates scripts one at a time on its own goroutine
type Surface struct {
	vm     *goja.Runtime
	queue  *actor.Queue
	logger *zap.Logger
	work   *resources.WorkArea
	rootID string

	sinkMu sync.RWMutex
	sink   Sink

	// everything below is owned by the queue goroutine
	root       *html.Node
	sel        cursor
	focused    bool
	undo       []string
	redo       []string
	search     searchState
	failures   map[string]string
	stylesheet string
}

type searchState struct {
	active  bool
	text    string
	matches []*html.Node
	current int
	prior   cursor
}

// New creates a surface and starts its goroutine. Close stops it.
func New(opts ...Option) *Surface {
	s := &Surface{
		vm:       goja.New(),
		queue:    actor.NewQueue(),
		logger:   zap.NewNop(),
		rootID:   models.RootDivID,
		failures: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.root = newElement(atom.Div, html.Attribute{Key: "id", Val: s.rootID})
	s.install()

	go func() {
		if err := s.queue.Run(context.Background()); err != nil {
			s.logger.Debug("surface loop stopped", zap.Error(err))
		}
	}()
	return s
}

// Attach sets where inbound events go
func (s *Surface) Attach(sink Sink) {
	s.sinkMu.Lock()
	defer s.sinkMu.Unlock()
	s.sink = sink
}

// Evaluate runs script on the surface goroutine and reports its result.
// It implements the editor's outbound channel.
func (s *Surface) Evaluate(script string, done func(result any, err error)) {
	ok := s.queue.Post(func() {
		result, err := s.run(script)
		if done != nil {
			done(result, err)
		}
	})
	if !ok && done != nil {
		done(nil, ErrClosed)
	}
}

// Do evaluates script and waits for its result. It must not be called
// from a sink.
func (s *Surface) Do(ctx context.Context, script string) (any, error) {
	type outcome struct {
		result any
		err    error
	}
	ch := make(chan outcome, 1)
	s.Evaluate(script, func(result any, err error) {
		ch <- outcome{result, err}
	})
	select {
	case o := <-ch:
		return o.result, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Start announces the surface as loaded
func (s *Surface) Start() {
	s.queue.Post(func() { s.emit(protocol.NameReady) })
}

// Close stops the goroutine once queued scripts have run
func (s *Surface) Close() {
	s.queue.Close()
	<-s.queue.Done()
}

func (s *Surface) run(script string) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("surface panic: %v", r)
		}
	}()

	value, err := s.vm.RunString(script)
	if err != nil {
		var exc *goja.Exception
		if errors.As(err, &exc) {
			return nil, fmt.Errorf("%s", exc.Value().String())
		}
		return nil, err
	}
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, nil
	}
	return value.Export(), nil
}

func (s *Surface) emit(payload string) {
	s.sinkMu.RLock()
	sink := s.sink
	s.sinkMu.RUnlock()

	s.logger.Debug("emit", zap.String("payload", payload))
	if sink != nil {
		sink(payload)
	}
}

func (s *Surface) emitJSON(messageType string, fields map[string]any) {
	fields["messageType"] = messageType
	data, err := json.Marshal(fields)
	if err != nil {
		s.logger.Warn("failed to encode event", zap.String("type", messageType), zap.Error(err))
		return
	}
	s.emit(string(data))
}

func (s *Surface) emitError(code, message, info string, alert bool) {
	fields := map[string]any{"code": code, "message": message, "alert": alert}
	if info != "" {
		fields["info"] = info
	}
	s.emitJSON(protocol.TypeError, fields)
}

// emitInput reports an edit in the region holding the cursor
func (s *Surface) emitInput() {
	divID := s.regionOf(s.sel.anchor())
	if divID == "" || divID == s.rootID {
		s.emit(protocol.NameInput)
	} else {
		s.emit(protocol.NameInput + ":" + divID)
	}
	s.emit(protocol.NameUndoSet)
}

// throw aborts the running script with err
func (s *Surface) throw(err error) {
	panic(s.vm.NewGoError(err))
}

// html renders the root region
func (s *Surface) html() string {
	markup, err := innerHTML(s.root)
	if err != nil {
		s.throw(err)
	}
	return markup
}
