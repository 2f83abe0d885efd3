package ai

import (
	"errors"
	"testing"
	"time"

	"google.golang.org/genai"

	"atsforge/internal/config"
)

func breakerConfig(enabled bool) *config.OperationAIConfig {
	return &config.OperationAIConfig{
		Provider: "gemini",
		Model:    "gemini-2.0-flash",
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          enabled,
			MaxRequests:      3,
			Interval:         60 * time.Second,
			Timeout:          60 * time.Second,
			MinRequests:      3,
			FailureThreshold: 0.6,
		},
	}
}

func TestIndependentCircuitBreakerConfigurations(t *testing.T) {
	// Each operation gets its own breaker so an embedding outage cannot trip
	// the rewrite path and vice versa
	embedCB := NewOperationCircuitBreaker[*genai.EmbedContentResponse]("Embed", breakerConfig(true), nil)
	rewriteCB := NewOperationCircuitBreaker[*genai.GenerateContentResponse]("Rewrite", breakerConfig(true), nil)

	t.Run("EmbedCircuitBreaker", func(t *testing.T) {
		stats := embedCB.GetStats()

		name, ok := stats["name"].(string)
		if !ok {
			t.Fatal("Circuit breaker name not found")
		}
		if name != "AI-Embed" {
			t.Errorf("Expected circuit breaker name 'AI-Embed', got '%s'", name)
		}

		state, ok := stats["state"].(string)
		if !ok {
			t.Fatal("Circuit breaker state not found")
		}
		if state != "closed" {
			t.Errorf("Expected initial state 'closed', got '%s'", state)
		}

		enabled, ok := stats["enabled"].(bool)
		if !ok {
			t.Fatal("Circuit breaker enabled status not found")
		}
		if !enabled {
			t.Error("Circuit breaker should be enabled")
		}
	})

	t.Run("RewriteCircuitBreaker", func(t *testing.T) {
		stats := rewriteCB.GetStats()

		name, ok := stats["name"].(string)
		if !ok {
			t.Fatal("Circuit breaker name not found")
		}
		if name != "AI-Rewrite" {
			t.Errorf("Expected circuit breaker name 'AI-Rewrite', got '%s'", name)
		}
	})
}

func TestDisabledCircuitBreakerPassesThrough(t *testing.T) {
	cb := NewOperationCircuitBreaker[*genai.EmbedContentResponse]("Embed", breakerConfig(false), nil)

	if cb != nil {
		t.Fatal("Disabled circuit breaker should be nil")
	}

	// A nil breaker executes the function directly
	called := false
	_, err := cb.Execute(func() (*genai.EmbedContentResponse, error) {
		called = true
		return &genai.EmbedContentResponse{}, nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !called {
		t.Error("Disabled breaker must still execute the function")
	}

	stats := cb.GetStats()
	if enabled, _ := stats["enabled"].(bool); enabled {
		t.Error("Disabled breaker stats should report enabled=false")
	}
	if !cb.IsHealthy() {
		t.Error("Disabled breaker should report healthy")
	}
}

func TestCircuitBreakerTripsAfterFailures(t *testing.T) {
	cfg := breakerConfig(true)
	cb := NewOperationCircuitBreaker[*genai.GenerateContentResponse]("Trip", cfg, nil)

	failure := errors.New("upstream unavailable")
	for range 3 {
		_, _ = cb.Execute(func() (*genai.GenerateContentResponse, error) {
			return nil, failure
		})
	}

	// 3 requests, 100% failures, threshold 0.6 with minRequests 3: tripped
	if cb.IsHealthy() {
		t.Error("Breaker should be open after exceeding the failure threshold")
	}

	stats := cb.GetStats()
	if state, _ := stats["state"].(string); state != "open" {
		t.Errorf("Expected state 'open', got '%s'", state)
	}
}

func TestModelCircuitBreakerIsMoreLenient(t *testing.T) {
	cfg := breakerConfig(true)
	cb := NewModelCircuitBreaker("Embed", cfg, nil)

	failure := errors.New("model check failed")
	for range 3 {
		_, _ = cb.Execute(func() (*genai.Model, error) {
			return nil, failure
		})
	}

	// Model checks need 5 requests before tripping, so 3 failures keep it closed
	if !cb.IsHealthy() {
		t.Error("Model breaker should stay closed below its request floor")
	}
}
