package store

import (
	"sync"
	"sync/atomic"
)

// Listener is called after every transition with the new state and the
// action that produced it. Listeners run on the dispatching goroutine and
// must not call Dispatch.
type Listener func(State, Action)

// Store serializes dispatches and publishes immutable snapshots.
type Store struct {
	mu        sync.Mutex
	snapshot  atomic.Pointer[State]
	listeners map[int]Listener
	nextID    int
}

// New creates a Store holding initial.
func New(initial State) *Store {
	s := &Store{listeners: make(map[int]Listener)}
	s.snapshot.Store(&initial)
	return s
}

// Snapshot returns the current state. It is safe to call from any
// goroutine.
func (s *Store) Snapshot() State {
	return *s.snapshot.Load()
}

// Dispatch applies a through Reduce, publishes the result and notifies
// listeners in registration order.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := Reduce(*s.snapshot.Load(), a)
	s.snapshot.Store(&next)

	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.listeners[id]; ok {
			fn(next, a)
		}
	}
	return next
}

// Subscribe registers a listener and returns a function removing it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}
