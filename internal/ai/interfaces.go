package ai

import (
	"context"

	"atsforge/internal/selector"
)

// Provider interface for different AI implementations. EmbedTexts deliberately
// matches the matcher's embedder shape so a provider can back the semantic
// tier directly. RewriteSummary returns token usage - callers can ignore it
// if not needed.
type Provider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	RewriteSummary(ctx context.Context, input selector.RewriteInput) (selector.RewriteResult, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	GetCircuitBreakerStats() map[string]any
	Close() error
}
