// Package dispatcher issues commands to the content surface and correlates
// each with its asynchronous result.
//
// Commands are not retried and independent commands may complete in any
// order. A caller that needs one command to finish before another starts
// chains them through the completion or a Promise.
package dispatcher

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pluqqy/editbridge/pkg/actor"
	"github.com/pluqqy/editbridge/pkg/protocol"
)

var (
	ErrTimeout = errors.New("command timed out")
	ErrClosed  = errors.New("channel closed")
)

// Channel is the outbound half of the content channel. Evaluate sends one
// script and calls done at most once, from any goroutine, with the raw
// result or an error.
type Channel interface {
	Evaluate(script string, done func(result any, err error))
}

// Completion receives a command's result
type Completion func(result any, err error)

// CommandError is a failure the content surface reported for a command
type CommandError struct {
	Script string
	Err    error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Script, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger.Named("dispatcher")
		}
	}
}

// WithExecutor sets where completions run. The default runs them on
// whatever goroutine the channel delivers results on.
func WithExecutor(exec actor.Executor) Option {
	return func(d *Dispatcher) {
		if exec != nil {
			d.exec = exec
		}
	}
}

// WithTimeout completes a command with ErrTimeout when the channel stays
// silent for longer than timeout. Zero disables the wrapper.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

// Dispatcher is safe for concurrent use
type Dispatcher struct {
	channel  Channel
	exec     actor.Executor
	logger   *zap.Logger
	timeout  time.Duration
	inFlight atomic.Int64
	issued   atomic.Uint64
}

// New creates a dispatcher sending over channel
func New(channel Channel, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		channel: channel,
		exec:    actor.Inline{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send issues cmd without a completion. Errors are still logged.
func (d *Dispatcher) Send(cmd protocol.Command) {
	d.Call(cmd, nil)
}

// Call issues cmd and runs done once the surface answers. A failure is
// logged and done still runs with the error, so callers are never left
// waiting because of an error.
func (d *Dispatcher) Call(cmd protocol.Command, done Completion) {
	script := cmd.Script()
	seq := d.issued.Add(1)
	d.inFlight.Add(1)
	d.logger.Debug("issue command", zap.Uint64("seq", seq), zap.String("verb", cmd.Verb))

	var once sync.Once
	var timerMu sync.Mutex
	var timer *time.Timer

	finish := func(result any, err error) bool {
		fired := false
		once.Do(func() {
			fired = true
			timerMu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timerMu.Unlock()

			d.inFlight.Add(-1)
			if err != nil {
				if !errors.Is(err, ErrTimeout) && !errors.Is(err, ErrClosed) {
					err = &CommandError{Script: script, Err: err}
				}
				d.logger.Error("command failed",
					zap.Uint64("seq", seq),
					zap.String("verb", cmd.Verb),
					zap.Error(err))
			}
			if done == nil {
				return
			}
			if !d.exec.Post(func() { done(result, err) }) {
				d.logger.Warn("completion dropped, executor closed",
					zap.Uint64("seq", seq), zap.String("verb", cmd.Verb))
			}
		})
		return fired
	}

	if d.timeout > 0 {
		timerMu.Lock()
		timer = time.AfterFunc(d.timeout, func() {
			finish(nil, fmt.Errorf("%w after %s", ErrTimeout, d.timeout))
		})
		timerMu.Unlock()
	}

	d.channel.Evaluate(script, func(result any, err error) {
		if !finish(result, err) {
			d.logger.Warn("late result dropped", zap.Uint64("seq", seq), zap.String("verb", cmd.Verb))
		}
	})
}

// Async issues cmd and returns a promise of its result
func (d *Dispatcher) Async(cmd protocol.Command) *Promise {
	p := NewPromise()
	d.Call(cmd, p.Resolve)
	return p
}

// InFlight returns the number of commands issued and not yet completed
func (d *Dispatcher) InFlight() int {
	return int(d.inFlight.Load())
}

// Issued returns the number of commands issued so far
func (d *Dispatcher) Issued() uint64 {
	return d.issued.Load()
}
