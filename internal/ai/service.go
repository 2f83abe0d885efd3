package ai

import (
	"context"
	"fmt"

	"atsforge/internal/config"
	"atsforge/internal/errors"
	"atsforge/internal/match"
	"atsforge/internal/selector"
)

// Service handles AI operations for one operation type (embed or rewrite)
type Service struct {
	Provider Provider // Exported for access from server package
	config   *config.OperationAIConfig
	logger   *errors.Logger
}

// NewService creates a new AI service instance with configuration for a specific operation
func NewService(cfg *config.OperationAIConfig, operationType string, logger *errors.Logger) (*Service, error) {
	var provider Provider
	var err error

	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"operation_type", operationType,
		"model", cfg.Model,
		"temperature", *cfg.Temperature,
		"timeout", *cfg.Timeout,
		"max_retries", *cfg.MaxRetries)

	switch cfg.Provider {
	case "gemini":
		provider, err = NewGeminiProvider(cfg, operationType, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}

	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create AI provider", err)
	}

	return &Service{
		Provider: provider,
		config:   cfg,
		logger:   logger,
	}, nil
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) any {
	return s.Provider.GetModelInfo(ctx)
}

// Embedder exposes the provider as the matcher's embedding capability. A nil
// service yields a nil embedder, which degrades the semantic tier.
func (s *Service) Embedder() match.Embedder {
	if s == nil {
		return nil
	}
	return s.Provider
}

// summaryRewriter adapts a Provider to the selector's rewrite capability,
// dropping token usage (already recorded on the span)
type summaryRewriter struct {
	provider Provider
}

func (r summaryRewriter) RewriteSummary(ctx context.Context, input selector.RewriteInput) (selector.RewriteResult, error) {
	result, _, err := r.provider.RewriteSummary(ctx, input)
	return result, err
}

// Rewriter exposes the provider as the selector's rewrite capability. A nil
// service yields a nil rewriter, which falls back to profile summaries.
func (s *Service) Rewriter() selector.Rewriter {
	if s == nil {
		return nil
	}
	return summaryRewriter{provider: s.Provider}
}
