// Package trace tags each request with an id, installs a request-scoped
// logger and reports the outcome.
package trace

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/log"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// RequestObserver is notified once per completed request.
type RequestObserver interface {
	ObserveRequest(route string, status int)
}

type Middleware struct {
	logger   *log.Logger
	clientIP func(*http.Request) string
	observer RequestObserver
	served   atomic.Int64
}

// NewMiddleware builds the tracer. clientIP and observer may be nil.
func NewMiddleware(logger *log.Logger, clientIP func(*http.Request) string, observer RequestObserver) *Middleware {
	if clientIP == nil {
		clientIP = func(*http.Request) string { return "" }
	}
	return &Middleware{
		logger:   logger.WithComponent(log.ComponentHTTP),
		clientIP: clientIP,
		observer: observer,
	}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		ip := m.clientIP(r)
		id := incomingRequestID(r)
		if id == "" {
			id = NewRequestID()
		}
		w.Header().Set(HeaderRequestID, id)

		logger := m.logger.With(log.FieldRequestID, id)
		ctx := log.NewContext(context.WithValue(r.Context(), requestIDKey{}, id), logger)
		r = r.WithContext(ctx)
		m.served.Add(1)

		logger.DebugContext(ctx, "HTTP request started",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldQuery, r.URL.RawQuery,
			log.FieldClientIP, ip,
			log.FieldUserAgent, r.UserAgent(),
			"hx_request", r.Header.Get("HX-Request") == "true")

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.LogContext(ctx, levelFor(rec.status), "HTTP request completed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rec.status,
			log.FieldDuration, time.Since(began).Milliseconds(),
			log.FieldClientIP, ip,
			log.FieldSuccess, rec.status < http.StatusBadRequest)

		if m.observer != nil {
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.observer.ObserveRequest(route, rec.status)
		}
	})
}

// TotalRequests returns how many requests passed through the middleware.
func (m *Middleware) TotalRequests() int64 { return m.served.Load() }

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// statusRecorder remembers the first status written.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.written {
		s.status, s.written = code, true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.written = true
	return s.ResponseWriter.Write(b)
}

// incomingRequestID accepts a caller-provided id if it looks sane.
func incomingRequestID(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(HeaderRequestID))
	if len(id) > 128 || strings.ContainsAny(id, "\r\n") {
		return ""
	}
	return id
}

func NewRequestID() string {
	return "req_" + uuid.NewString()
}

// RequestID returns the id installed by Middleware, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
