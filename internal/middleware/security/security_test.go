package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"direct", "203.0.113.7:1234", "", "", "203.0.113.7"},
		{"untrusted peer ignores XFF", "203.0.113.7:1234", "1.1.1.1", "", "203.0.113.7"},
		{"trusted proxy XFF first hop", "10.0.0.2:80", "198.51.100.1, 10.0.0.3", "", "198.51.100.1"},
		{"trusted proxy X-Real-IP", "127.0.0.1:80", "", "198.51.100.9", "198.51.100.9"},
		{"trusted proxy bad XFF falls back to X-Real-IP", "127.0.0.1:80", "garbage", "198.51.100.9", "198.51.100.9"},
		{"trusted proxy nothing usable", "127.0.0.1:80", "garbage", "", "127.0.0.1"},
		{"ipv6 loopback", "[::1]:80", "2001:db8::1", "", "2001:db8::1"},
		{"no port", "203.0.113.7", "", "", "203.0.113.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			require.Equal(t, tt.want, d.ExtractClientIP(r))
		})
	}
}

func TestDetector_Trust(t *testing.T) {
	d := NewDetector()
	require.Error(t, d.Trust("not-a-cidr"))
	require.NoError(t, d.Trust("203.0.113.0/24"))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.7:443"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	require.Equal(t, "198.51.100.1", d.ExtractClientIP(r))
}

func TestDetector_IsSuspicious(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name  string
		build func() *http.Request
		want  bool
	}{
		{"plain", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/ui/expenses", nil) }, false},
		{"dotenv", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/.env", nil) }, true},
		{"script in query", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/?next=javascript:alert(1)", nil)
		}, true},
		{"scanner agent", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("User-Agent", "sqlmap/1.7")
			return r
		}, true},
		{"long url", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/"+strings.Repeat("a", maxURLLength), nil)
		}, true},
		{"proxy chain", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("X-Forwarded-For", "1.1.1.1, 2.2.2.2, 3.3.3.3, 4.4.4.4, 5.5.5.5, 6.6.6.6, 7.7.7.7")
			return r
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, d.IsSuspicious(tt.build()))
		})
	}
}

func TestDetector_Middleware(t *testing.T) {
	d := NewDetector()
	h := d.Middleware(okHandler)

	serve := func(method, target string) int {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
		return rr.Code
	}

	require.Equal(t, http.StatusOK, serve(http.MethodGet, "/"))
	require.Equal(t, http.StatusOK, serve(http.MethodGet, "/.env"), "suspicious GET reaches the router")
	require.Equal(t, http.StatusMethodNotAllowed, serve("TRACE", "/"))
	require.Equal(t, int64(2), d.SuspiciousRequests())
}

func TestPolicy_Middleware(t *testing.T) {
	h := PagePolicy().Middleware(okHandler)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	require.Contains(t, rr.Header().Get("Content-Security-Policy"), "https://unpkg.com")
	require.Empty(t, rr.Header().Get("Strict-Transport-Security"), "no HSTS over plain HTTP")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	require.Equal(t, "max-age=31536000; includeSubDomains", rr.Header().Get("Strict-Transport-Security"))

	rr = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.TLS = &tls.ConnectionState{}
	APIPolicy().Middleware(okHandler).ServeHTTP(rr, r)
	require.Equal(t, "no-referrer", rr.Header().Get("Referrer-Policy"))
	require.Empty(t, rr.Header().Get("Strict-Transport-Security"))
	require.Empty(t, rr.Header().Get("Permissions-Policy"))
}

func TestCacheStatic(t *testing.T) {
	rr := httptest.NewRecorder()
	CacheStatic(3600)(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	require.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
}
