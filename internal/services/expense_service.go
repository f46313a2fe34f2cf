// Package services holds the reference API's use cases.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

const publishTimeout = 10 * time.Second

// ExpenseService saves expenses and then announces them. The store is the
// source of truth; a failed publish never fails the request.
type ExpenseService struct {
	store     store.Store
	publisher events.Publisher
	logger    *log.Logger

	pending   sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// NewExpenseService wires st and pub. A nil publisher disables events.
func NewExpenseService(st store.Store, pub events.Publisher, logger *log.Logger) *ExpenseService {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ExpenseService{
		store:     st,
		publisher: pub,
		logger:    logger.WithComponent(log.ComponentEvents),
	}
}

func (s *ExpenseService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	if items == nil {
		items = []core.Expense{}
	}
	return items, nil
}

// CreateExpense stores e and publishes expense.created in the background.
// Validation failures are returned unwrapped as *core.ValidationError.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	out, err := s.store.Create(ctx, e)
	if err != nil {
		if core.IsValidation(err) {
			return core.Expense{}, err
		}
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.publishAsync(ctx, out)
	return out, nil
}

func (s *ExpenseService) publishAsync(ctx context.Context, e core.Expense) {
	ctx = context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := s.publisher.PublishExpenseCreated(ctx, e); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish expense event",
				log.FieldError, err,
				log.FieldExpenseID, e.ID,
				log.FieldOperation, log.OpPublish)
		}
	}()
}

// Wait blocks until in-flight publications finish or ctx is done.
func (s *ExpenseService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close waits for pending publications, then closes the publisher and the store.
func (s *ExpenseService) Close() error {
	s.closeOnce.Do(func() {
		s.pending.Wait()
		var errs []error
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
