// Package security applies response hardening headers and flags suspicious
// requests.
package security

import (
	"net/http"
	"strconv"
)

// Policy is the fixed set of hardening headers written on every response.
// HSTS is added only for TLS requests and only when HSTSMaxAge > 0.
type Policy struct {
	Headers    http.Header
	HSTSMaxAge int
}

// PagePolicy fits the HTML view. Scripts come from the app and from
// unpkg (htmx, Chart.js).
func PagePolicy() Policy {
	h := http.Header{}
	h.Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com; "+
		"style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'; "+
		"object-src 'none'; frame-ancestors 'none'; base-uri 'self'; form-action 'self'")
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
	h.Set("Cross-Origin-Opener-Policy", "same-origin")
	h.Set("Cross-Origin-Resource-Policy", "same-origin")
	return Policy{Headers: h, HSTSMaxAge: 365 * 24 * 3600}
}

// APIPolicy is the reduced set for JSON endpoints.
func APIPolicy() Policy {
	h := http.Header{}
	h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Referrer-Policy", "no-referrer")
	return Policy{Headers: h}
}

// Middleware writes the policy before calling next.
func (p Policy) Middleware(next http.Handler) http.Handler {
	hsts := ""
	if p.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.Itoa(p.HSTSMaxAge) + "; includeSubDomains"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dst := w.Header()
		for k, v := range p.Headers {
			dst[k] = append([]string(nil), v...)
		}
		if hsts != "" && r.TLS != nil {
			dst.Set("Strict-Transport-Security", hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// CacheStatic marks responses as publicly cacheable for maxAge seconds.
func CacheStatic(maxAge int) func(http.Handler) http.Handler {
	value := "public, max-age=" + strconv.Itoa(maxAge)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", value)
			next.ServeHTTP(w, r)
		})
	}
}
