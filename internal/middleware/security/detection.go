package security

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"slices"
	"strings"
	"sync/atomic"

	"fintrack/internal/log"
)

// Substrings of path or query typical of scanners and injection probes.
var probeMarkers = []string{
	"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", "etc/passwd", "cmd.exe",
	"<script", "javascript:", "eval(", "union select",
}

var scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan"}

// Methods that no route serves; they are refused outright.
var debugMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}

const (
	maxURLLength = 2048
	maxProxyHops = 6
)

// Detector resolves client addresses behind trusted proxies and counts
// requests that look like probes.
type Detector struct {
	trusted []netip.Prefix
	flagged atomic.Int64
}

// NewDetector trusts forwarding headers from loopback and RFC 1918
// peers.
func NewDetector() *Detector {
	d := &Detector{}
	for _, p := range []string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"} {
		d.trusted = append(d.trusted, netip.MustParsePrefix(p))
	}
	return d
}

// Trust adds a proxy network whose forwarding headers are believed.
func (d *Detector) Trust(cidr string) error {
	p, err := netip.ParsePrefix(cidr)
	if err != nil {
		return fmt.Errorf("trust %q: %w", cidr, err)
	}
	d.trusted = append(d.trusted, p)
	return nil
}

// IsSuspicious reports whether r matches a probe marker, a scanner user
// agent, a debug method, an oversized URL or a long proxy chain.
func (d *Detector) IsSuspicious(r *http.Request) bool {
	target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
	agent := strings.ToLower(r.UserAgent())
	contains := func(s string) func(string) bool {
		return func(m string) bool { return strings.Contains(s, m) }
	}
	switch {
	case slices.ContainsFunc(probeMarkers, contains(target)),
		slices.ContainsFunc(scannerAgents, contains(agent)),
		slices.Contains(debugMethods, r.Method),
		len(r.URL.String()) > maxURLLength:
		return true
	}
	return len(strings.Split(r.Header.Get("X-Forwarded-For"), ",")) > maxProxyHops
}

// Middleware logs suspicious requests and refuses debug methods with 405.
// Other suspicious requests continue to the router.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !d.IsSuspicious(r) {
			next.ServeHTTP(w, r)
			return
		}
		d.flagged.Add(1)
		ctx := r.Context()
		log.FromContext(ctx).WithComponent(log.ComponentSecurity).WarnContext(ctx, "Suspicious request",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, d.ExtractClientIP(r),
			log.FieldUserAgent, r.UserAgent())
		if slices.Contains(debugMethods, r.Method) {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ExtractClientIP returns the peer address, or the first X-Forwarded-For
// hop (then X-Real-IP) when the peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !d.isTrusted(peer) {
		return host
	}

	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	for _, candidate := range []string{first, r.Header.Get("X-Real-IP")} {
		candidate = strings.TrimSpace(candidate)
		if _, err := netip.ParseAddr(candidate); err == nil {
			return candidate
		}
	}
	return host
}

func (d *Detector) isTrusted(ip netip.Addr) bool {
	ip = ip.Unmap()
	return slices.ContainsFunc(d.trusted, func(p netip.Prefix) bool { return p.Contains(ip) })
}

// SuspiciousRequests returns how many requests were flagged.
func (d *Detector) SuspiciousRequests() int64 {
	return d.flagged.Load()
}
