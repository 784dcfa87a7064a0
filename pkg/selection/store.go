package selection

import (
	"slices"
	"sync"
)

// Store holds one State behind a lock. Replace swaps the whole value, so a
// reader gets either the previous State or the next one, never a mix.
//
// An editing session keeps two stores: a local cache answering synchronous
// capability checks, and a shared copy that UI affordances subscribe to.
// Both are fed from the same decoded State through Clone, never aliased.
type Store struct {
	mu          sync.RWMutex
	state       State
	subscribers []subscriber // in subscription order
	nextID      int
}

type subscriber struct {
	id int
	fn func(State)
}

// NewStore creates a store holding Default
func NewStore() *Store {
	return &Store{state: Default()}
}

// State returns a copy of the current value
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Replace swaps in next and notifies subscribers outside the lock, in the
// order they subscribed
func (s *Store) Replace(next State) {
	s.mu.Lock()
	s.state = next.Clone()
	subscribers := slices.Clone(s.subscribers)
	s.mu.Unlock()

	for _, sub := range subscribers {
		sub.fn(next.Clone())
	}
}

// Reset replaces the value with Default
func (s *Store) Reset() {
	s.Replace(Default())
}

// Subscribe registers fn for every future Replace. The returned func cancels.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.subscribers = slices.DeleteFunc(s.subscribers, func(sub subscriber) bool {
			return sub.id == id
		})
	}
}
