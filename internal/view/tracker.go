package view

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// ExpenseService is the remote collaborator: list and create only.
type ExpenseService interface {
	List(ctx context.Context) ([]core.Expense, error)
	Create(ctx context.Context, e core.Expense) error
}

// Observer receives outcomes for metrics. All methods must be safe for
// concurrent use.
type Observer interface {
	ObserveFetch(d time.Duration, err error)
	ObserveCreate(d time.Duration, err error)
	ObserveValidation()
}

type nopObserver struct{}

func (nopObserver) ObserveFetch(time.Duration, error)  {}
func (nopObserver) ObserveCreate(time.Duration, error) {}
func (nopObserver) ObserveValidation()                 {}

const fetchKey = "expenses"

// Tracker drives the page: it fetches the collection, edits the draft and
// submits it, always through the Store.
type Tracker struct {
	store      *Store
	svc        ExpenseService
	logger     *log.Logger
	observer   Observer
	now        func() time.Time
	group      singleflight.Group
	submitting atomic.Bool
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

func WithLogger(l *log.Logger) TrackerOption {
	return func(t *Tracker) { t.logger = l }
}

func WithObserver(o Observer) TrackerOption {
	return func(t *Tracker) { t.observer = o }
}

func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a tracker with an empty store.
func NewTracker(svc ExpenseService, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store:    NewStore(),
		svc:      svc,
		logger:   log.Discard(),
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns a snapshot of the page state.
func (t *Tracker) State() State { return t.store.State() }

// Load fetches the collection and replaces the stored one. Concurrent calls
// share one request. On failure the previous collection is kept and the
// error is recorded in State.FetchError as well as returned.
func (t *Tracker) Load(ctx context.Context) error {
	_, err, _ := t.group.Do(fetchKey, func() (any, error) {
		return nil, t.fetch(context.WithoutCancel(ctx))
	})
	return err
}

// reload starts a fresh fetch even if one is in flight, so the result
// reflects every write that completed before the call.
func (t *Tracker) reload(ctx context.Context) error {
	t.group.Forget(fetchKey)
	return t.Load(ctx)
}

func (t *Tracker) fetch(ctx context.Context) error {
	seq := t.store.NextFetchSeq()
	start := t.now()
	items, err := t.svc.List(ctx)
	t.observer.ObserveFetch(t.now().Sub(start), err)
	if err != nil {
		t.store.Dispatch(FetchFailed{Seq: seq, Err: err})
		fields := log.NewFields().
			WithOperation(log.OpList).
			WithError(err).
			WithErrorType(errorType(err)).
			With(log.FieldSeq, seq)
		t.logger.ErrorContext(ctx, "Failed to fetch expenses", fields.ToSlice()...)
		return err
	}
	st := t.store.Dispatch(FetchSucceeded{Seq: seq, Expenses: items, At: t.now()})
	if st.FetchSeq != seq {
		t.logger.DebugContext(ctx, "Discarded stale fetch result", log.FieldSeq, seq, "applied_seq", st.FetchSeq)
		return nil
	}
	t.logger.InfoContext(ctx, "Expenses fetched", log.FieldCount, len(items), log.FieldSeq, seq)
	return nil
}

// UpdateField sets one draft field, leaving the others untouched.
func (t *Tracker) UpdateField(name, value string) error {
	f, ok := core.ParseField(name)
	if !ok {
		return &core.ValidationError{Unknown: name}
	}
	t.store.Dispatch(FieldUpdated{Field: f, Value: value})
	return nil
}

// Submit validates the draft and creates it remotely. A draft with an empty
// field is rejected with a ValidationError before any network call and is
// left as is. After a successful create the draft is cleared and the
// collection is fetched exactly once; a failing re-fetch does not undo the
// submission and is only recorded in the state.
//
// The draft is snapshotted before the create. Field updates made while it
// is in flight land in the shared draft and are cleared by the success
// reset.
func (t *Tracker) Submit(ctx context.Context) error {
	if !t.submitting.CompareAndSwap(false, true) {
		return core.ErrSubmitInProgress
	}
	defer t.submitting.Store(false)

	draft := t.store.State().Draft
	if err := draft.Validate(); err != nil {
		t.observer.ObserveValidation()
		t.store.Dispatch(SubmitRejected{Err: err})
		t.logger.WarnContext(ctx, "Expense submission rejected",
			log.FieldOperation, log.OpValidate,
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeValidation)
		return err
	}

	t.store.Dispatch(SubmitStarted{})
	e := draft.Expense()
	start := t.now()
	err := t.svc.Create(ctx, e)
	t.observer.ObserveCreate(t.now().Sub(start), err)
	if err != nil {
		t.store.Dispatch(SubmitFailed{Err: err})
		fields := log.NewFields().
			WithOperation(log.OpCreate).
			WithExpense("", e.Category, e.Amount, e.Description).
			WithError(err).
			WithErrorType(errorType(err))
		t.logger.ErrorContext(ctx, "Failed to create expense", fields.ToSlice()...)
		return err
	}

	t.store.Dispatch(SubmitSucceeded{})
	t.logger.InfoContext(ctx, "Expense created",
		log.NewFields().WithOperation(log.OpCreate).WithExpense("", e.Category, e.Amount, e.Description).ToSlice()...)

	_ = t.reload(ctx)
	return nil
}

func errorType(err error) string {
	switch {
	case core.IsValidation(err):
		return log.ErrorTypeValidation
	case core.IsNetwork(err):
		return log.ErrorTypeNetwork
	case core.IsParse(err):
		return log.ErrorTypeParse
	}
	return log.ErrorTypeInternal
}
