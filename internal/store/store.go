// Package store defines the persistence port of the reference expenses API.
package store

import (
	"context"
	"errors"

	"fintrack/internal/core"
)

// ErrClosed is returned by adapters used after Close.
var ErrClosed = errors.New("store closed")

// Store persists expenses. Create assigns the id and returns the stored
// record; List returns records in insertion order.
type Store interface {
	List(ctx context.Context) ([]core.Expense, error)
	Create(ctx context.Context, e core.Expense) (core.Expense, error)
	Close() error
}

// Prepare validates e and normalizes it the way every adapter stores it.
// An id already set on e is kept.
func Prepare(e core.Expense, newID func() string) (core.Expense, error) {
	d := core.Draft{
		Date:        e.Date,
		Category:    e.Category,
		Amount:      e.Amount,
		Description: e.Description,
	}
	if err := d.Validate(); err != nil {
		return core.Expense{}, err
	}
	out := d.Expense()
	out.ID = e.ID
	if out.ID == "" {
		out.ID = newID()
	}
	return out, nil
}
