package state

import (
	"log/slog"
	"sync"

	"focustodo/internal/clock"
)

// Listener observes every state produced by a dispatch.
type Listener func(State)

// Store is the single owner of application state. Dispatch is serialized:
// each action is reduced and its listeners notified before the next one
// starts. Listeners run on the dispatching goroutine and must not call
// Dispatch themselves; they schedule follow-up work instead.
type Store struct {
	clock  clock.Clock
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	nextID    int
	listeners map[int]Listener
}

// NewStore returns a Store holding initial.
func NewStore(initial State, c clock.Clock, logger *slog.Logger) *Store {
	if c == nil {
		panic("state: nil clock")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		clock:     c,
		logger:    logger,
		state:     initial,
		listeners: make(map[int]Listener),
	}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies a to the current state.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := Reduce(s.state, a, clock.NowMillis(s.clock))
	s.state = next
	s.logger.Debug("dispatched", slog.String("action", Name(a)))

	for _, id := range s.listenerIDs() {
		s.listeners[id](next)
	}
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// listenerIDs returns ids in subscription order. Caller holds s.mu.
func (s *Store) listenerIDs() []int {
	ids := make([]int, 0, len(s.listeners))
	for id := 1; id <= s.nextID; id++ {
		if _, ok := s.listeners[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
