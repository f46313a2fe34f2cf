// Package ratelimit throttles requests per client with a token bucket
// from golang.org/x/time/rate.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Clients idle for longer than this lose their bucket on the next sweep.
const idleTTL = 10 * time.Minute

type Config struct {
	// RequestsPerMinute is both the sustained rate and the burst size.
	RequestsPerMinute int
	SweepInterval     time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

func DefaultConfig() Config {
	return Config{RequestsPerMinute: 60, SweepInterval: 5 * time.Minute}
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per client key.
type Limiter struct {
	perMinute int
	now       func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	rejected atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter starts a limiter and its idle-bucket sweeper. Stop releases it.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	l := &Limiter{
		perMinute: cfg.RequestsPerMinute,
		now:       cfg.Now,
		buckets:   make(map[string]*bucket),
		stop:      make(chan struct{}),
	}
	go l.sweepLoop(cfg.SweepInterval)
	return l
}

// Allow takes one token from key's bucket.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60), l.perMinute)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	allowed := b.lim.AllowN(now, 1)
	l.mu.Unlock()

	if !allowed {
		l.rejected.Add(1)
	}
	return allowed
}

// RetryAfter is the wait, in whole seconds, until a drained bucket has a
// token again.
func (l *Limiter) RetryAfter() int {
	return int(math.Ceil(60 / float64(l.perMinute)))
}

func (l *Limiter) sweepLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) sweep() {
	cutoff := l.now().Add(-idleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, k)
		}
	}
}

// ActiveClients is the number of buckets currently held.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Hits returns how many requests were rejected.
func (l *Limiter) Hits() int64 { return l.rejected.Load() }

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Middleware limits requests for which apply returns true (every request
// when apply is nil), keyed by clientKey. onLimit writes the rejection; nil
// means a plain 429.
func (l *Limiter) Middleware(clientKey func(*http.Request) string, apply func(*http.Request) bool, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if (apply == nil || apply(r)) && !l.Allow(clientKey(r)) {
				w.Header().Set("Retry-After", strconv.Itoa(l.RetryAfter()))
				if onLimit == nil {
					http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
					return
				}
				onLimit(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OnlyWrites selects state-changing methods.
func OnlyWrites(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}
