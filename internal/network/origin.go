package network

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/siteops/permitboard/internal/logger"
)

// SameOriginMiddleware refuses requests a browser sent on behalf of another
// site. The backend session lives in this process, so browser cookie rules
// do not protect the operator routes.
//
// Sec-Fetch-Site is trusted when present. Otherwise Origin, then Referer,
// must name the request host. Requests carrying none of the three (curl,
// scripts on the host) pass.
func SameOriginMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason := crossOrigin(r); reason != "" {
			logger.Warnf("Network", "SameOriginMiddleware", "refused %s %s from %s: %s", r.Method, r.URL.Path, ClientIP(r), reason)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// crossOrigin returns why r looks cross-origin, or "" when it does not.
func crossOrigin(r *http.Request) string {
	switch site := strings.ToLower(strings.TrimSpace(r.Header.Get("Sec-Fetch-Site"))); site {
	case "":
	case "same-origin", "none":
		return ""
	default:
		return "Sec-Fetch-Site " + site
	}

	if origin := strings.TrimSpace(r.Header.Get("Origin")); origin != "" {
		if !sameHost(origin, r.Host) {
			return "Origin " + origin
		}
		return ""
	}
	if referer := strings.TrimSpace(r.Header.Get("Referer")); referer != "" {
		if !sameHost(referer, r.Host) {
			return "Referer " + referer
		}
	}
	return ""
}

func sameHost(raw, host string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, host)
}
