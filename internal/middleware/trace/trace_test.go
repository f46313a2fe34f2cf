package trace

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/log"
)

type recordingObserver struct {
	routes   []string
	statuses []int
}

func (o *recordingObserver) ObserveRequest(route string, status int) {
	o.routes = append(o.routes, route)
	o.statuses = append(o.statuses, status)
}

func TestMiddleware_AssignsRequestID(t *testing.T) {
	obs := &recordingObserver{}
	m := NewMiddleware(log.Discard(), nil, obs)

	var seen string
	mux := http.NewServeMux()
	mux.HandleFunc("/x", func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		if log.FromContext(r.Context()).Component() != log.ComponentHTTP {
			t.Errorf("context logger not installed")
		}
		w.WriteHeader(http.StatusTeapot)
	})
	h := m.Middleware(mux)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q, want req_ prefix", seen)
	}
	if rr.Header().Get(HeaderRequestID) != seen {
		t.Errorf("response header = %q, want %q", rr.Header().Get(HeaderRequestID), seen)
	}
	if len(obs.statuses) != 1 || obs.statuses[0] != http.StatusTeapot || obs.routes[0] != "/x" {
		t.Errorf("observer got %v %v", obs.routes, obs.statuses)
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	if obs.routes[1] != "unmatched" {
		t.Errorf("unmatched route label = %q", obs.routes[1])
	}

	if m.TotalRequests() != 2 {
		t.Errorf("TotalRequests() = %d, want 2", m.TotalRequests())
	}
}

func TestMiddleware_KeepsIncomingRequestID(t *testing.T) {
	m := NewMiddleware(log.Discard(), nil, nil)
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, "upstream-123")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen != "upstream-123" {
		t.Errorf("request id = %q, want upstream-123", seen)
	}
}

func TestMiddleware_RejectsOversizedRequestID(t *testing.T) {
	m := NewMiddleware(log.Discard(), nil, nil)
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, strings.Repeat("x", 129))
	h.ServeHTTP(httptest.NewRecorder(), r)
	if !strings.HasPrefix(seen, "req_") {
		t.Errorf("request id = %q, want a generated one", seen)
	}
}

func TestLevelFor(t *testing.T) {
	cases := map[int]slog.Level{
		http.StatusOK:                  slog.LevelInfo,
		http.StatusSeeOther:            slog.LevelInfo,
		http.StatusUnprocessableEntity: slog.LevelWarn,
		http.StatusBadGateway:          slog.LevelError,
	}
	for status, want := range cases {
		if got := levelFor(status); got != want {
			t.Errorf("levelFor(%d) = %v, want %v", status, got, want)
		}
	}
}
