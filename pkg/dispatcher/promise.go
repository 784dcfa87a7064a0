package dispatcher

import (
	"context"
	"sync"
)

// Promise is the eventual result of a command. Continuations registered
// with Then or OnComplete run exactly once, after the result is known.
type Promise struct {
	mu       sync.Mutex
	settled  bool
	result   any
	err      error
	waiters  []Completion
	finished chan struct{}
}

// NewPromise creates an unsettled promise
func NewPromise() *Promise {
	return &Promise{finished: make(chan struct{})}
}

// Resolved returns a promise already settled with result and err
func Resolved(result any, err error) *Promise {
	p := NewPromise()
	p.Resolve(result, err)
	return p
}

// Resolve settles the promise. Only the first call has an effect.
func (p *Promise) Resolve(result any, err error) {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return
	}
	p.settled = true
	p.result = result
	p.err = err
	waiters := p.waiters
	p.waiters = nil
	close(p.finished)
	p.mu.Unlock()

	for _, fn := range waiters {
		fn(result, err)
	}
}

// OnComplete runs fn once the promise settles, immediately if it already has
func (p *Promise) OnComplete(fn Completion) {
	p.mu.Lock()
	if !p.settled {
		p.waiters = append(p.waiters, fn)
		p.mu.Unlock()
		return
	}
	result, err := p.result, p.err
	p.mu.Unlock()
	fn(result, err)
}

// Then runs next after p settles and returns a promise of whatever next
// returns. When next returns nil the chained promise settles with p's result.
func (p *Promise) Then(next func(result any, err error) *Promise) *Promise {
	chained := NewPromise()
	p.OnComplete(func(result any, err error) {
		inner := next(result, err)
		if inner == nil {
			chained.Resolve(result, err)
			return
		}
		inner.OnComplete(chained.Resolve)
	})
	return chained
}

// Done is closed once the promise settles
func (p *Promise) Done() <-chan struct{} {
	return p.finished
}

// Wait blocks until the promise settles or ctx ends. It must not be called
// from the goroutine that delivers the result.
func (p *Promise) Wait(ctx context.Context) (any, error) {
	select {
	case <-p.finished:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.result, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// All settles once every promise has settled, with the first error seen
func All(promises ...*Promise) *Promise {
	all := NewPromise()
	if len(promises) == 0 {
		all.Resolve(nil, nil)
		return all
	}

	var mu sync.Mutex
	remaining := len(promises)
	var firstErr error
	for _, p := range promises {
		p.OnComplete(func(_ any, err error) {
			mu.Lock()
			remaining--
			if err != nil && firstErr == nil {
				firstErr = err
			}
			last := remaining == 0
			mu.Unlock()
			if last {
				all.Resolve(nil, firstErr)
			}
		})
	}
	return all
}
