// Package sqlite stores expenses in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

type Repository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
	newID   func() string
	closed  atomic.Bool
}

// NewRepository opens (creating if needed) the database at dbPath and
// migrates it to the latest schema.
func NewRepository(dbPath string, logger *log.Logger) (*Repository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc's driver serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	return &Repository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(log.ComponentStorage),
		newID:   uuid.NewString,
	}, nil
}

func (r *Repository) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return r.db.Close()
}

// Create implements store.Store.
func (r *Repository) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	if r.closed.Load() {
		return core.Expense{}, store.ErrClosed
	}
	in, err := store.Prepare(e, r.newID)
	if err != nil {
		return core.Expense{}, err
	}
	row, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		ID:          in.ID,
		Date:        in.Date,
		Category:    in.Category,
		Amount:      in.Amount,
		Description: in.Description,
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	r.logger.DebugContext(ctx, "Expense saved to SQLite",
		log.FieldExpenseID, row.ID,
		log.FieldCategory, row.Category,
		log.FieldAmount, row.Amount)

	return toExpense(row), nil
}

// List implements store.Store.
func (r *Repository) List(ctx context.Context) ([]core.Expense, error) {
	if r.closed.Load() {
		return nil, store.ErrClosed
	}
	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		out = append(out, toExpense(row))
	}
	return out, nil
}

// Count returns the number of stored expenses.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	return r.queries.CountExpenses(ctx)
}

func toExpense(row ExpenseRow) core.Expense {
	return core.Expense{
		ID:          row.ID,
		Date:        row.Date,
		Category:    row.Category,
		Amount:      row.Amount,
		Description: row.Description,
	}
}
