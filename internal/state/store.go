package state

import (
	"sync"

	"github.com/five82/roster/internal/api"
)

// DefaultPerPage is the page size assumed until the server reports one.
const DefaultPerPage = 6

// ListState is the data behind the users table.
type ListState struct {
	Items       []api.User // current page, server order
	Loading     bool       // no settled result is held for CurrentPage yet
	Error       string     // last fetch failure with nothing to show instead
	CurrentPage int        // 1-based
	Total       int
	TotalPages  int
	PerPage     int
	SearchTerm  string
}

// Initial returns the state before any fetch.
func Initial() ListState {
	return ListState{
		CurrentPage: 1,
		TotalPages:  1,
		PerPage:     DefaultPerPage,
	}
}

// HasError reports whether the last fetch for the current page failed.
func (s ListState) HasError() bool {
	return s.Error != ""
}

// Store coordinates concurrent updates to the list state and fans each new
// state out to subscribers.
type Store struct {
	mu     sync.RWMutex
	state  ListState
	init   bool
	subs   map[int]chan ListState
	nextID int
}

// NewStore returns a store holding s.
func NewStore(s ListState) *Store {
	return &Store{state: s, init: true}
}

// Dispatch applies actions atomically and returns the new state. Every
// subscriber is offered the result.
func (s *Store) Dispatch(actions ...Action) ListState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatchLocked(actions)
}

// Update computes actions from the current state and applies them under the
// same lock, so no other dispatch can interleave between reading and writing.
func (s *Store) Update(fn func(ListState) []Action) ListState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureInitLocked()
	actions := fn(cloneState(s.state))
	if len(actions) == 0 {
		return cloneState(s.state)
	}
	return s.dispatchLocked(actions)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() ListState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.init {
		return Initial()
	}
	return cloneState(s.state)
}

// Subscribe returns a channel that always holds the most recent state not
// yet received. A slow reader skips intermediate states rather than blocking
// Dispatch. Call cancel to release the subscription; the channel is closed.
func (s *Store) Subscribe() (<-chan ListState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs == nil {
		s.subs = make(map[int]chan ListState)
	}
	id := s.nextID
	s.nextID++
	ch := make(chan ListState, 1)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

func (s *Store) dispatchLocked(actions []Action) ListState {
	s.ensureInitLocked()
	next := Reduce(s.state, actions...)
	s.state = next
	for _, ch := range s.subs {
		offer(ch, cloneState(next))
	}
	return cloneState(next)
}

func (s *Store) ensureInitLocked() {
	if !s.init {
		s.state = Initial()
		s.init = true
	}
}

// offer replaces any unread state in ch with st. Callers hold the store lock,
// so no other sender races on ch.
func offer(ch chan ListState, st ListState) {
	select {
	case <-ch:
	default:
	}
	ch <- st
}

func cloneState(s ListState) ListState {
	s.Items = cloneUsers(s.Items)
	return s
}

func cloneUsers(items []api.User) []api.User {
	if len(items) == 0 {
		return nil
	}
	dup := make([]api.User, len(items))
	copy(dup, items)
	return dup
}
