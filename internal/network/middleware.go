package network

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/siteops/permitboard/internal/logger"
)

// Allowlist matches client addresses against single IPs and CIDR ranges.
type Allowlist struct {
	ips  map[string]bool
	nets []*net.IPNet
}

// ParseAllowlist builds an allowlist from entries such as "127.0.0.1",
// "::1" or "10.20.0.0/16".
func ParseAllowlist(entries []string) (*Allowlist, error) {
	a := &Allowlist{ips: map[string]bool{}}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			_, ipNet, err := net.ParseCIDR(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid CIDR %q: %w", entry, err)
			}
			a.nets = append(a.nets, ipNet)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("invalid IP address %q", entry)
		}
		a.ips[ip.String()] = true
	}
	return a, nil
}

// Empty reports whether the allowlist has no entries.
func (a *Allowlist) Empty() bool {
	return len(a.ips) == 0 && len(a.nets) == 0
}

// Allows reports whether ip is on the list.
func (a *Allowlist) Allows(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	if a.ips[parsed.String()] {
		return true
	}
	for _, n := range a.nets {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

// AllowedIPsMiddleware restricts the dashboard to the given source
// addresses. An empty list lets every request through.
func AllowedIPsMiddleware(allowed *Allowlist) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if allowed == nil || allowed.Empty() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := ClientIP(r)
			if !allowed.Allows(clientIP) {
				logger.Warnf("Network", "AllowedIPsMiddleware", "access denied for %s to %s %s", clientIP, r.Method, r.URL.Path)
				http.Error(w, "Access forbidden: unauthorized source IP", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the client's IP address from the request.
// It handles X-Forwarded-For and X-Real-IP headers, but prioritizes RemoteAddr.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && ip != "" {
		return ip
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}

	if forwardedFor := r.Header.Get("X-Forwarded-For"); forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		return strings.TrimSpace(first)
	}

	return ""
}
