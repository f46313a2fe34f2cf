// Package events publishes domain events of the reference expenses API.
package events

import (
	"context"

	"fintrack/internal/core"
)

// Publisher announces stored expenses to interested consumers.
type Publisher interface {
	PublishExpenseCreated(ctx context.Context, e core.Expense) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishExpenseCreated(context.Context, core.Expense) error { return nil }
func (NopPublisher) Close() error { return nil }
