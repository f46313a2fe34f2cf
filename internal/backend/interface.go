// Package backend assembles the reference API's expense service from
// configuration: a storage adapter plus an optional event publisher.
package backend

import (
	"context"
	"time"

	"fintrack/internal/services"
	"fintrack/internal/store/sheets"
)

// BackendType names a storage adapter.
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
)

func (t BackendType) String() string { return string(t) }

func (t BackendType) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend, SheetsBackend:
		return true
	}
	return false
}

// Config holds what the factory needs to build a backend.
type Config struct {
	Type BackendType

	SQLiteDBPath string
	Sheets       sheets.Config

	// AMQPURL enables expense.created publication when set.
	AMQPURL      string
	AMQPExchange string

	// CacheSweepInterval is how often expired cache entries are dropped.
	CacheSweepInterval time.Duration
}

// BackendResult is a ready expense service and the function releasing
// everything the factory opened for it.
type BackendResult struct {
	Service *services.ExpenseService
	Cleanup func() error
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
