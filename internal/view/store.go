package view

import (
	"sync"

	"fintrack/internal/core"
)

// Store serializes dispatches against a single State.
type Store struct {
	mu    sync.RWMutex
	state State
	seq   uint64
}

// NewStore creates a store holding the initial (empty) state.
func NewStore() *Store {
	return &Store{state: State{Expenses: []core.Expense{}}}
}

// Dispatch applies a and returns a snapshot of the resulting state.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, a)
	return s.snapshot()
}

// State returns a snapshot that callers may read freely.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// NextFetchSeq reserves the sequence number for a new fetch.
func (s *Store) NextFetchSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

func (s *Store) snapshot() State {
	st := s.state
	st.Expenses = make([]core.Expense, len(s.state.Expenses))
	copy(st.Expenses, s.state.Expenses)
	return st
}
