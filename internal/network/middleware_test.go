package network

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	})
}

func mustAllowlist(t *testing.T, entries ...string) *Allowlist {
	t.Helper()
	a, err := ParseAllowlist(entries)
	if err != nil {
		t.Fatalf("failed to parse allowlist: %v", err)
	}
	return a
}

func TestAllowedIPsMiddleware(t *testing.T) {
	allowed := mustAllowlist(t, "127.0.0.1", "::1", "10.20.0.0/16")

	tests := []struct {
		name       string
		remoteAddr string
		wantStatus int
	}{
		{name: "exact IPv4", remoteAddr: "127.0.0.1:12345", wantStatus: http.StatusOK},
		{name: "IPv6 localhost", remoteAddr: "[::1]:12345", wantStatus: http.StatusOK},
		{name: "inside CIDR", remoteAddr: "10.20.3.4:5555", wantStatus: http.StatusOK},
		{name: "outside CIDR", remoteAddr: "10.21.0.1:5555", wantStatus: http.StatusForbidden},
		{name: "unknown host", remoteAddr: "192.168.1.100:54321", wantStatus: http.StatusForbidden},
	}

	handler := AllowedIPsMiddleware(allowed)(okHandler())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestAllowedIPsMiddleware_EmptyAllowsAll(t *testing.T) {
	for _, allowed := range []*Allowlist{nil, mustAllowlist(t)} {
		handler := AllowedIPsMiddleware(allowed)(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/board", nil)
		req.RemoteAddr = "203.0.113.9:40000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK || w.Body.String() != "success" {
			t.Errorf("expected pass-through, got %d %q", w.Code, w.Body.String())
		}
	}
}

func TestParseAllowlist_Invalid(t *testing.T) {
	for _, entry := range []string{"not-an-ip", "10.0.0.0/99", "300.1.1.1"} {
		if _, err := ParseAllowlist([]string{entry}); err == nil {
			t.Errorf("expected error for %q", entry)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expectedIP string
	}{
		{
			name:       "RemoteAddr IPv4",
			remoteAddr: "192.168.1.100:12345",
			expectedIP: "192.168.1.100",
		},
		{
			name:       "RemoteAddr IPv6",
			remoteAddr: "[::1]:12345",
			expectedIP: "::1",
		},
		{
			name:       "RemoteAddr takes priority over X-Real-IP",
			remoteAddr: "127.0.0.1:12345",
			headers:    map[string]string{"X-Real-IP": "10.0.0.1"},
			expectedIP: "127.0.0.1",
		},
		{
			name:       "X-Forwarded-For first hop",
			remoteAddr: "garbage",
			headers:    map[string]string{"X-Forwarded-For": " 10.0.0.7 , 10.0.0.8"},
			expectedIP: "10.0.0.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			if ip := ClientIP(req); ip != tt.expectedIP {
				t.Errorf("expected IP %s, got %s", tt.expectedIP, ip)
			}
		})
	}
}
