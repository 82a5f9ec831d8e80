package api

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	s := &Server{proxies: parseTrustedProxies([]string{"10.0.0.10", "10.0.1.0/24", "bogus", ""})}
	cases := []struct {
		name   string
		remote string
		xff    string
		realIP string
		want   string
	}{
		{"direct peer", "192.168.1.20:54321", "", "", "192.168.1.20"},
		{"untrusted peer ignores headers", "192.168.1.20:54321", "203.0.113.9, 10.0.0.10", "198.51.100.8", "192.168.1.20"},
		{"nearest untrusted hop", "10.0.0.10:54321", "203.0.113.9, 10.0.1.7", "", "203.0.113.9"},
		{"spoofed leftmost hop skipped", "10.0.0.10:54321", "1.1.1.1, 203.0.113.9", "", "203.0.113.9"},
		{"garbage falls back to real ip", "10.0.0.10:54321", "garbage,not-an-ip", "198.51.100.8", "198.51.100.8"},
		{"all trusted falls back to peer", "10.0.0.10:54321", "10.0.1.2", "", "10.0.0.10"},
		{"ipv6 peer", "[2001:db8::1]:443", "", "", "2001:db8::1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
			req.RemoteAddr = tc.remote
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}
			if got := s.clientIP(req); got != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestIsHTTPS(t *testing.T) {
	s := &Server{proxies: parseTrustedProxies([]string{"10.0.0.10"})}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.TLS = &tls.ConnectionState{}
	if !s.isHTTPS(req) {
		t.Fatalf("tls request should be https")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.RemoteAddr = "10.0.0.10:12345"
	req.Header.Set("X-Forwarded-Proto", "HTTPS, http")
	if !s.isHTTPS(req) {
		t.Fatalf("trusted proxy forwarding https should count")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.RemoteAddr = "192.168.1.20:12345"
	req.Header.Set("X-Forwarded-Proto", "https")
	if s.isHTTPS(req) {
		t.Fatalf("untrusted peer must not set the scheme")
	}
}

func TestParseTrustedProxiesSkipsInvalid(t *testing.T) {
	p := parseTrustedProxies([]string{" 10.0.0.1 ", "nope", "10.1.0.0/16", "300.1.1.1/8"})
	if len(p) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(p))
	}
}
