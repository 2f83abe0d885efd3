package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testServer(t *testing.T, apiKeys ...string) *Server {
	t.Helper()
	keyMap := make(map[string]bool)
	for _, key := range apiKeys {
		keyMap[key] = true
	}
	return &Server{
		APIKeys:        keyMap,
		MaxRequestSize: 1024,
		Logger:         testLogger(t),
	}
}

func TestAuthMiddlewareNoKeysConfigured(t *testing.T) {
	s := testServer(t)
	called := false
	handler := s.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("POST", "/score", nil))

	if !called {
		t.Error("handler should run when no API keys are configured")
	}
}

func TestAuthMiddlewareRejectsMissingKey(t *testing.T) {
	s := testServer(t, "valid-key-12345")
	handler := s.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run without an API key")
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("POST", "/score", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.Error != "Missing API key" {
		t.Errorf("unexpected error: %q", resp.Error)
	}
}

func TestAuthMiddlewareRejectsInvalidKey(t *testing.T) {
	s := testServer(t, "valid-key-12345")
	handler := s.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run with an invalid API key")
	})

	r := httptest.NewRequest("POST", "/score", nil)
	r.Header.Set("X-API-Key", "wrong-key")
	w := httptest.NewRecorder()
	handler(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
}

func TestAuthMiddlewareAcceptsValidKey(t *testing.T) {
	s := testServer(t, "valid-key-12345")
	called := false
	handler := s.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	r := httptest.NewRequest("POST", "/score", nil)
	r.Header.Set("X-API-Key", "valid-key-12345")
	w := httptest.NewRecorder()
	handler(w, r)

	if !called {
		t.Error("handler should run with a valid API key")
	}
}

func TestAuthMiddlewareAcceptsBearerToken(t *testing.T) {
	s := testServer(t, "valid-key-12345")
	called := false
	handler := s.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	r := httptest.NewRequest("POST", "/score", nil)
	r.Header.Set("Authorization", "Bearer valid-key-12345")
	w := httptest.NewRecorder()
	handler(w, r)

	if !called {
		t.Error("handler should accept the API key as a bearer token")
	}
}

func TestRequestSizeLimitMiddleware(t *testing.T) {
	s := testServer(t)
	s.MaxRequestSize = 16

	middleware := s.requestSizeLimitMiddleware()
	handler := middleware(func(w http.ResponseWriter, r *http.Request) {
		var v map[string]any
		if err := parseJSONRequest(r, &v); err != nil {
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	body := strings.NewReader(`{"document": "` + strings.Repeat("x", 100) + `"}`)
	r := httptest.NewRequest("POST", "/score", body)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("oversized body should be rejected, got status %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp.Message, "too large") {
		t.Errorf("expected size limit message, got %q", resp.Message)
	}
}

func TestParseJSONRequestRequiresContentType(t *testing.T) {
	r := httptest.NewRequest("POST", "/score", strings.NewReader(`{}`))

	var v map[string]any
	err := parseJSONRequest(r, &v)
	if err == nil {
		t.Fatal("expected error for missing content type")
	}
	if !strings.Contains(err.Error(), "content-type") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseJSONRequestRejectsMalformedJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/score", strings.NewReader(`{not json`))
	r.Header.Set("Content-Type", "application/json")

	var v map[string]any
	if err := parseJSONRequest(r, &v); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"short", "****"},
		{"12345678", "****"},
		{"123456789abcdef", "12345678****"},
	}

	for _, tt := range tests {
		if got := maskAPIKey(tt.key); got != tt.want {
			t.Errorf("maskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
