// Package apiserver is the reference JSON API the tracker page talks to:
// GET and POST on /expenses/.
package apiserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
)

// Expenses is the use-case surface the handlers drive.
type Expenses interface {
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
}

type Options struct {
	Logger  *log.Logger
	Metrics *metrics.Metrics
	// Backend names the storage adapter in health output.
	Backend string
}

type Server struct {
	http.Server
	expenses Expenses
	logger   *log.Logger
	metrics  *metrics.Metrics
	backend  string
	started  time.Time

	shutdownOnce sync.Once
}

func NewServer(addr string, expenses Expenses, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	s := &Server{
		expenses: expenses,
		logger:   opts.Logger.WithComponent(log.ComponentAPI),
		metrics:  opts.Metrics,
		backend:  opts.Backend,
		started:  time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/expenses", s.handleExpenses)
	mux.HandleFunc("/expenses/{$}", s.handleExpenses)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", opts.Metrics.Handler())

	detector := security.NewDetector()
	var handler http.Handler = mux
	handler = security.APIPolicy().Middleware(handler)
	handler = detector.Middleware(handler)
	handler = trace.NewMiddleware(opts.Logger, detector.ExtractClientIP, opts.Metrics).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.Info("Shutting down API server", log.FieldOperation, log.OpShutdown)
		err = s.Server.Shutdown(ctx)
	})
	return err
}
