// Package http serves the expense tracker page: the full HTML document, the
// HTMX partials that refresh after a submission and the chart JSON.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/view"
	appweb "fintrack/web"
)

// Tracker is the page state owner the handlers drive.
type Tracker interface {
	State() view.State
	Load(ctx context.Context) error
	UpdateField(name, value string) error
	Submit(ctx context.Context) error
}

// Options configures NewServer. Zero values pick defaults.
type Options struct {
	Logger             *log.Logger
	Metrics            *metrics.Metrics
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	templates *template.Template
	tracker   Tracker
	logger    *log.Logger
	metrics   *metrics.Metrics
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	trace     *trace.Middleware

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and wires routes and middleware.
func NewServer(addr string, tracker Tracker, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		templates: t,
		tracker:   tracker,
		logger:    logger,
		metrics:   opts.Metrics,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:  security.NewDetector(),
		started:   time.Now(),
	}
	s.trace = trace.NewMiddleware(logger, s.detector.ExtractClientIP, opts.Metrics)

	mux := http.NewServeMux()

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("/static/", security.CacheStatic(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ui/expenses", s.handleExpensesPartial)
	mux.HandleFunc("/ui/breakdown", s.handleBreakdownPartial)
	mux.HandleFunc("/ui/chart-data", s.handleChartData)
	mux.HandleFunc("/draft", s.handleDraft)
	mux.HandleFunc("/expenses", s.handleCreateExpense)
	mux.HandleFunc("/refresh", s.handleRefresh)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", opts.Metrics.Handler())

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.OnlyWrites, s.onRateLimited)(handler)
	handler = security.PagePolicy().Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = s.trace.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.ObserveRateLimited()
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	Fail(http.StatusTooManyRequests, "Too many requests. Please try again later.").
		Notify(LevelError, "Too many requests. Please try again later.").
		Write(w)
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
