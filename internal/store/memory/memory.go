package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type Store struct {
	mu     sync.Mutex
	items  []core.Expense
	closed bool
	newID  func() string
}

// New returns an empty store, optionally seeded with existing records.
func New(seed ...core.Expense) *Store {
	s := &Store{newID: uuid.NewString}
	s.items = append(s.items, seed...)
	return s
}

// Create stores the expense and returns it with its assigned id.
func (s *Store) Create(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.Expense{}, store.ErrClosed
	}
	out, err := store.Prepare(e, s.newID)
	if err != nil {
		return core.Expense{}, err
	}
	s.items = append(s.items, out)
	return out, nil
}

// List returns a copy of every stored expense.
func (s *Store) List(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	out := make([]core.Expense, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
