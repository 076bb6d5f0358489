package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIPIgnoresForwardedWithoutTrust(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:4411"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	if got := ClientIP(req, nil); got != "203.0.113.9" {
		t.Fatalf("ClientIP = %q, want socket address", got)
	}
}

func TestClientIPWalksForwardedChainPastTrustedHops(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{"10.0.0.0/8"})
	if err != nil {
		t.Fatalf("parse trusted proxies: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:4411"
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.3")
	if got := ClientIP(req, trusted); got != "198.51.100.1" {
		t.Fatalf("ClientIP = %q, want first untrusted hop", got)
	}
}

func TestClientIPFallsBackToRealIP(t *testing.T) {
	trusted, _ := NewTrustedProxies([]string{"10.0.0.2"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:4411"
	req.Header.Set("X-Real-IP", "198.51.100.7")
	if got := ClientIP(req, trusted); got != "198.51.100.7" {
		t.Fatalf("ClientIP = %q, want X-Real-IP value", got)
	}
}

func TestNewTrustedProxies(t *testing.T) {
	if tp, err := NewTrustedProxies(nil); err != nil || tp != nil {
		t.Fatalf("empty input = (%v, %v), want (nil, nil)", tp, err)
	}
	if _, err := NewTrustedProxies([]string{"not-an-ip"}); err == nil {
		t.Fatal("expected parse error")
	}
}
