// Package worker applies expense events to a secondary store.
package worker

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// MirrorWorker copies created expenses into a target store, typically the
// Google Sheets adapter. Redelivered messages are skipped by id.
type MirrorWorker struct {
	target store.Store
	logger *log.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMirrorWorker(target store.Store, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorWorker{
		target: target,
		logger: logger.WithComponent(log.ComponentSheets),
	}
}

// Prime loads the ids already present in the target.
func (w *MirrorWorker) Prime(ctx context.Context) error {
	items, err := w.target.List(ctx)
	if err != nil {
		return fmt.Errorf("list mirror target: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seen = make(map[string]struct{}, len(items))
	for _, e := range items {
		w.seen[e.ID] = struct{}{}
	}
	w.logger.InfoContext(ctx, "Mirror target primed", log.FieldCount, len(items))
	return nil
}

// HandleExpenseCreated implements events.Handler.
func (w *MirrorWorker) HandleExpenseCreated(ctx context.Context, msg *events.ExpenseCreatedMessage) error {
	w.mu.Lock()
	if w.seen == nil {
		w.mu.Unlock()
		if err := w.Prime(ctx); err != nil {
			return err
		}
		w.mu.Lock()
	}
	_, dup := w.seen[msg.ID]
	w.mu.Unlock()

	if dup {
		w.logger.DebugContext(ctx, "Expense already mirrored", log.FieldExpenseID, msg.ID)
		return nil
	}

	out, err := w.target.Create(ctx, msg.Expense())
	if core.IsValidation(err) {
		// Retrying cannot fix an incomplete record.
		w.logger.WarnContext(ctx, "Skipping invalid expense event",
			log.FieldError, err,
			log.FieldExpenseID, msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("mirror expense %s: %w", msg.ID, err)
	}

	w.mu.Lock()
	w.seen[out.ID] = struct{}{}
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "Expense mirrored",
		log.FieldExpenseID, out.ID,
		log.FieldCategory, out.Category,
		log.FieldAmount, out.Amount)
	return nil
}
