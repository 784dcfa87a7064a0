// Package actor runs functions one at a time on a single goroutine. An
// editing surface posts every inbound message and every command completion
// to its queue, so routing and state mutation never interleave.
package actor

import (
	"context"
	"sync"
)

// Executor runs posted functions
type Executor interface {
	Post(fn func()) bool
}

// Inline runs each function immediately on the caller's goroutine
type Inline struct{}

// Post runs fn and reports true
func (Inline) Post(fn func()) bool {
	fn()
	return true
}

// Queue is an unbounded FIFO drained by Run. Post never blocks, so a
// function running on the queue can safely post more work.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	closed  bool
	done    chan struct{}
}

// NewQueue creates a queue; call Run to start draining it
func NewQueue() *Queue {
	return &Queue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post appends fn. It reports false once the queue is closed.
func (q *Queue) Post(fn func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Run executes posted functions in order until ctx is done or Close is
// called. Work already posted when Close is called still runs.
func (q *Queue) Run(ctx context.Context) error {
	defer close(q.done)
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		closed := q.closed
		q.mu.Unlock()

		for _, fn := range batch {
			fn()
		}

		if len(batch) > 0 {
			continue
		}
		if closed {
			return nil
		}

		select {
		case <-ctx.Done():
			q.Close()
			return ctx.Err()
		case <-q.wake:
		}
	}
}

// Close stops accepting work; Run returns after draining
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Done is closed when Run has returned
func (q *Queue) Done() <-chan struct{} {
	return q.done
}
