package backend

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/cache"
	"fintrack/internal/events"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/store"
	"fintrack/internal/store/memory"
	"fintrack/internal/store/sheets"
	"fintrack/internal/store/sqlite"
)

// DefaultFactory implements Factory.
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the configured store, connects the publisher if a
// broker is configured and returns the assembled service. A broker that
// cannot be reached disables events instead of failing.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	caches := cache.NewManager(f.logger.WithComponent(log.ComponentStorage))
	st, err := f.openStore(ctx, config, caches)
	if err != nil {
		return nil, err
	}
	caches.StartCleanup(config.CacheSweepInterval)

	var publisher events.Publisher = events.NopPublisher{}
	if config.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(config.AMQPURL, config.AMQPExchange, f.logger)
		if err != nil {
			f.logger.Warn("AMQP unavailable, expense events disabled", log.FieldError, err)
		} else {
			publisher = p
			f.logger.Info("Initialized AMQP publisher", "exchange", config.AMQPExchange)
		}
	}

	svc := services.NewExpenseService(st, publisher, f.logger)
	return &BackendResult{
		Service: svc,
		Cleanup: func() error {
			caches.Stop()
			return svc.Close()
		},
	}, nil
}

func (f *DefaultFactory) openStore(ctx context.Context, config Config, caches *cache.Manager) (store.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := sqlite.NewRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, nil

	case SheetsBackend:
		s, err := sheets.New(ctx, config.Sheets, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets store: %w", err)
		}
		if c := s.Cache(); c != nil {
			caches.Register(c)
		}
		f.logger.Info("Initialized Google Sheets backend",
			"sheet", config.Sheets.SheetName,
			"cache_ttl", config.Sheets.CacheTTL.String())
		return s, nil

	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return memory.New(), nil
	}
	return nil, errors.New("unsupported backend type: " + config.Type.String())
}
