package server

import (
	"net/http/httptest"
	"testing"

	"atsforge/internal/errors"
)

func testLogger(t *testing.T) *errors.Logger {
	t.Helper()
	logger, err := errors.New("error")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return logger
}

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	limiter := NewRateLimiter(60, 3, testLogger(t))
	defer limiter.Close()

	for i := range 3 {
		if !limiter.Allow("ip:10.0.0.1") {
			t.Fatalf("request %d should be allowed within burst capacity", i+1)
		}
	}

	if limiter.Allow("ip:10.0.0.1") {
		t.Error("request beyond burst capacity should be rejected")
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewRateLimiter(60, 1, testLogger(t))
	defer limiter.Close()

	if !limiter.Allow("ip:10.0.0.1") {
		t.Fatal("first key should be allowed")
	}
	if limiter.Allow("ip:10.0.0.1") {
		t.Error("first key should be exhausted")
	}
	if !limiter.Allow("ip:10.0.0.2") {
		t.Error("second key should have its own bucket")
	}
	if !limiter.Allow("api:secret-key") {
		t.Error("API key bucket should be independent of IP buckets")
	}
}

func TestRateLimiterStats(t *testing.T) {
	limiter := NewRateLimiter(120, 5, testLogger(t))
	defer limiter.Close()

	limiter.Allow("ip:10.0.0.1")
	limiter.Allow("ip:10.0.0.2")

	stats := limiter.GetStats()
	if stats["active_limiters"] != 2 {
		t.Errorf("expected 2 active limiters, got %v", stats["active_limiters"])
	}
	if stats["rate_per_minute"] != 120.0 {
		t.Errorf("expected 120 requests per minute, got %v", stats["rate_per_minute"])
	}
	if stats["burst_capacity"] != 5 {
		t.Errorf("expected burst capacity 5, got %v", stats["burst_capacity"])
	}
}

func TestRateLimiterCleanupEvictsIdleKeys(t *testing.T) {
	limiter := NewRateLimiter(60, 1, testLogger(t))
	defer limiter.Close()

	limiter.Allow("ip:10.0.0.1")
	limiter.Allow("ip:10.0.0.2")

	// An eviction age of zero makes every entry stale immediately
	limiter.cleanup(0)

	stats := limiter.GetStats()
	if stats["active_limiters"] != 0 {
		t.Errorf("expected all limiters evicted, got %v", stats["active_limiters"])
	}
}

func TestGetRateLimitKey(t *testing.T) {
	tests := []struct {
		name     string
		apiKey   string
		bearer   string
		byAPIKey bool
		byIP     bool
		want     string
	}{
		{
			name:     "api key header preferred",
			apiKey:   "key-123",
			byAPIKey: true,
			byIP:     true,
			want:     "api:key-123",
		},
		{
			name:     "bearer token fallback",
			bearer:   "Bearer tok-456",
			byAPIKey: true,
			want:     "api:tok-456",
		},
		{
			name: "ip fallback when no api key",
			byIP: true,
			want: "ip:192.0.2.1",
		},
		{
			name:     "no key when both disabled",
			apiKey:   "key-123",
			byAPIKey: false,
			byIP:     false,
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/score", nil)
			r.RemoteAddr = "192.0.2.1:54321"
			if tt.apiKey != "" {
				r.Header.Set("X-API-Key", tt.apiKey)
			}
			if tt.bearer != "" {
				r.Header.Set("Authorization", tt.bearer)
			}

			got := getRateLimitKey(r, tt.byAPIKey, tt.byIP)
			if got != tt.want {
				t.Errorf("getRateLimitKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		realIP     string
		want       string
	}{
		{
			name:       "forwarded header wins",
			remoteAddr: "10.0.0.1:1234",
			forwarded:  "203.0.113.7, 10.0.0.2",
			want:       "203.0.113.7",
		},
		{
			name:       "invalid forwarded entries skipped",
			remoteAddr: "10.0.0.1:1234",
			forwarded:  "not-an-ip, 203.0.113.9",
			want:       "203.0.113.9",
		},
		{
			name:       "real ip header",
			remoteAddr: "10.0.0.1:1234",
			realIP:     "198.51.100.3",
			want:       "198.51.100.3",
		},
		{
			name:       "remote addr fallback",
			remoteAddr: "192.0.2.5:9999",
			want:       "192.0.2.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/health", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}

			got := getClientIP(r)
			if got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
