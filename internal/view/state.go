// Package view owns the state of the expense tracker page. All changes go
// through Store.Dispatch, which applies the pure Reduce function.
package view

import (
	"time"

	"fintrack/internal/core"
)

// State is the complete page state. Totals are not stored; derive them with
// State.Totals.
type State struct {
	Expenses []core.Expense
	// Loaded is set once a fetch has succeeded.
	Loaded    bool
	FetchedAt time.Time
	// FetchSeq is the sequence number of the newest fetch that settled.
	FetchSeq   uint64
	FetchError string

	Draft       core.Draft
	Submitting  bool
	SubmitError string
	// Notice is a blocking validation message for the form.
	Notice string
}

// Totals derives the category breakdown from the current collection.
func (s State) Totals() core.Totals {
	return core.Aggregate(s.Expenses)
}

// HasExpenses gates placeholder rendering for the table and chart.
func (s State) HasExpenses() bool {
	return len(s.Expenses) > 0
}

// Action is a state transition request.
type Action interface{ isAction() }

type (
	FetchSucceeded struct {
		Seq      uint64
		Expenses []core.Expense
		At       time.Time
	}
	FetchFailed struct {
		Seq uint64
		Err error
	}
	FieldUpdated struct {
		Field core.Field
		Value string
	}
	SubmitStarted   struct{}
	SubmitRejected  struct{ Err error }
	SubmitSucceeded struct{}
	SubmitFailed    struct{ Err error }
)

func (FetchSucceeded) isAction()  {}
func (FetchFailed) isAction()     {}
func (FieldUpdated) isAction()    {}
func (SubmitStarted) isAction()   {}
func (SubmitRejected) isAction()  {}
func (SubmitSucceeded) isAction() {}
func (SubmitFailed) isAction()    {}

// Reduce returns the state that results from applying a to s. It never
// mutates s. Fetch results older than the newest settled fetch are ignored.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case FetchSucceeded:
		if a.Seq < s.FetchSeq {
			return s
		}
		s.FetchSeq = a.Seq
		s.Expenses = a.Expenses
		if s.Expenses == nil {
			s.Expenses = []core.Expense{}
		}
		s.Loaded = true
		s.FetchedAt = a.At
		s.FetchError = ""
	case FetchFailed:
		if a.Seq < s.FetchSeq {
			return s
		}
		s.FetchSeq = a.Seq
		s.FetchError = errString(a.Err)
	case FieldUpdated:
		d, err := s.Draft.With(a.Field, a.Value)
		if err != nil {
			return s
		}
		s.Draft = d
		s.Notice = ""
	case SubmitStarted:
		s.Submitting = true
		s.SubmitError = ""
		s.Notice = ""
	case SubmitRejected:
		s.Submitting = false
		s.Notice = errString(a.Err)
	case SubmitSucceeded:
		s.Submitting = false
		s.Draft = core.Draft{}
		s.SubmitError = ""
		s.Notice = ""
	case SubmitFailed:
		s.Submitting = false
		s.SubmitError = errString(a.Err)
	}
	return s
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
