package ai

import (
	"context"
	"crypto/rand"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"atsforge/internal/config"
	"atsforge/internal/errors"
	"atsforge/internal/match"
	"atsforge/internal/selector"
)

// GeminiProvider implements Provider for Google Gemini
type GeminiProvider struct {
	client          *genai.Client
	config          *config.OperationAIConfig
	generateBreaker *OperationCircuitBreaker[*genai.GenerateContentResponse]
	embedBreaker    *OperationCircuitBreaker[*genai.EmbedContentResponse]
	modelBreaker    *OperationCircuitBreaker[*genai.Model]
	logger          *errors.Logger
}

// Ensure GeminiProvider implements Provider and can back the semantic tier
var (
	_ Provider       = (*GeminiProvider)(nil)
	_ match.Embedder = (*GeminiProvider)(nil)
)

// NewGeminiProvider creates a new Gemini provider instance for a specific operation
func NewGeminiProvider(cfg *config.OperationAIConfig, operationType string, logger *errors.Logger) (*GeminiProvider, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client:          client,
		config:          cfg,
		generateBreaker: NewOperationCircuitBreaker[*genai.GenerateContentResponse](operationType, cfg, logger),
		embedBreaker:    NewOperationCircuitBreaker[*genai.EmbedContentResponse](operationType+"-Embed", cfg, logger),
		modelBreaker:    NewModelCircuitBreaker(operationType, cfg, logger),
		logger:          logger,
	}, nil
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:      g.config.Model,
		Available: false,
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)

		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"provider", g.config.Provider,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	if model.DisplayName != "" {
		modelInfo.DisplayName = model.DisplayName
	}
	if model.Version != "" {
		modelInfo.Version = model.Version
	}

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"provider", g.config.Provider,
		"display_name", modelInfo.DisplayName,
		"version", modelInfo.Version)

	return modelInfo
}

// EmbedTexts embeds the given texts in a single batched call. The returned
// vectors are index-aligned with the input slice.
func (g *GeminiProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	tracer := otel.Tracer("atsforge.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini.embed_texts")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Int("ai.embed.batch_size", len(texts)),
	)

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := g.embedBreaker.Execute(func() (*genai.EmbedContentResponse, error) {
		return executeWithRetry(g, ctx, "embed_texts", func() (*genai.EmbedContentResponse, error) {
			return g.client.Models.EmbedContent(ctx, g.config.Model, contents, nil)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, errors.NewAIError(errors.ErrCodeEmbeddingFailed,
			"Failed to embed texts", err)
	}

	if len(result.Embeddings) != len(texts) {
		err := errors.NewAIError(errors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(result.Embeddings)), nil)
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, err
	}

	vectors := make([][]float32, len(result.Embeddings))
	for i, embedding := range result.Embeddings {
		if embedding == nil || len(embedding.Values) == 0 {
			err := errors.NewAIError(errors.ErrCodeEmbeddingFailed,
				fmt.Sprintf("empty embedding vector at index %d", i), nil)
			span.RecordError(err)
			span.SetAttributes(attribute.Bool("success", false))
			return nil, err
		}
		vectors[i] = embedding.Values
	}

	span.SetAttributes(attribute.Bool("success", true))
	return vectors, nil
}

// rewriteOutput is the JSON shape the rewrite schema constrains the model to
type rewriteOutput struct {
	Text       string `json:"text"`
	Confidence string `json:"confidence"`
}

// RewriteSummary rewrites a professional summary for a target role using only
// the supplied candidate facts
func (g *GeminiProvider) RewriteSummary(ctx context.Context, input selector.RewriteInput) (selector.RewriteResult, *TokenUsage, error) {
	userPrompt := fmt.Sprintf(rewriteUserPromptTemplate,
		input.TargetRole,
		strings.Join(input.Keywords, ", "),
		"- "+strings.Join(input.Facts, "\n- "),
		input.BaseSummary,
	)

	output, tokenUsage, err := executeAIOperation[rewriteOutput](
		g,
		ctx,
		"rewrite_summary",
		userPrompt,
		rewriteSystemPrompt,
		g.buildRewriteSchema(),
		attribute.String("input.target_role", input.TargetRole),
		attribute.Int("input.keyword_count", len(input.Keywords)),
		attribute.Int("input.fact_count", len(input.Facts)),
	)
	if err != nil {
		return selector.RewriteResult{}, nil, err
	}

	return selector.RewriteResult{
		Text:       strings.TrimSpace(output.Text),
		Confidence: normalizeConfidence(output.Confidence),
	}, tokenUsage, nil
}

// normalizeConfidence maps any off-schema confidence value to "unknown", which
// downstream treats as a rejection
func normalizeConfidence(confidence string) string {
	switch strings.ToLower(strings.TrimSpace(confidence)) {
	case "high":
		return "high"
	case "low":
		return "low"
	default:
		return "unknown"
	}
}

// buildRewriteSchema creates the schema for rewrite requests
func (g *GeminiProvider) buildRewriteSchema() *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"text":       {Type: genai.TypeString},
				"confidence": {Type: genai.TypeString, Enum: []string{"high", "low", "unknown"}},
			},
			Required: []string{"text", "confidence"},
		},
	}

	// Apply temperature configuration if set
	if *g.config.Temperature > 0 {
		config.Temperature = g.config.Temperature
	}

	return config
}

// executeWithRetry executes an AI operation with retry logic and exponential backoff
func executeWithRetry[T any](g *GeminiProvider, ctx context.Context, operation string, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= *g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", *g.config.MaxRetries,
				"error", lastErr.Error())

			// Exponential backoff with jitter to prevent thundering herd
			baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			// Use crypto/rand for secure random jitter
			jitterMax := big.NewInt(int64(float64(baseDelay) * 0.1))
			jitterBig, _ := rand.Int(rand.Reader, jitterMax)
			jitter := time.Duration(jitterBig.Int64())
			// Cap maximum backoff at 30 seconds
			backoff := min(baseDelay+jitter, 30*time.Second)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"successful_attempt", attempt+1,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err

		// Don't retry on certain errors (auth, invalid input, etc.)
		if !isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	g.logger.LogError(lastErr, "AI operation failed after all retry attempts",
		"operation", operation,
		"total_attempts", *g.config.MaxRetries+1)

	return zero, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, *g.config.MaxRetries, lastErr)
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Check for network errors (timeouts, connection issues)
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		if netErr.Timeout() {
			return true // Retry on timeouts
		}
		// Consider other network errors retryable (e.g., connection refused)
		return true
	}

	// Check for Google API errors (HTTP status codes)
	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}

// executeAIOperation is a generic helper to run generative AI operations with
// common tracing, circuit breaker, and parsing logic.
func executeAIOperation[Out any](
	g *GeminiProvider,
	ctx context.Context,
	operationName string,
	userPrompt string,
	systemPrompt string,
	genaiConfig *genai.GenerateContentConfig,
	spanAttributes ...attribute.KeyValue,
) (Out, *TokenUsage, error) {
	var output Out
	tracer := otel.Tracer("atsforge.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+operationName)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
	)
	span.SetAttributes(spanAttributes...)

	if systemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	result, err := g.generateBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return executeWithRetry(g, ctx, operationName, func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(userPrompt), genaiConfig)
		})
	})

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return output, nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to generate content for "+operationName, err)
	}

	if err := json.Unmarshal([]byte(result.Text()), &output); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return output, nil, errors.NewAIError("AI_RESPONSE_PARSE_FAILED", "Failed to parse AI response for "+operationName, err)
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}

	span.SetAttributes(attribute.Bool("success", true))
	return output, tokenUsage, nil
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	stats := map[string]any{
		"generate_operations": g.generateBreaker.GetStats(),
		"embed_operations":    g.embedBreaker.GetStats(),
		"model_operations":    g.modelBreaker.GetStats(),
	}

	// Overall health - all breakers must be healthy
	stats["overall_healthy"] = g.generateBreaker.IsHealthy() &&
		g.embedBreaker.IsHealthy() &&
		g.modelBreaker.IsHealthy()

	return stats
}

// Close implements Provider interface
func (g *GeminiProvider) Close() error {
	// Gemini client doesn't have a Close method in current single-shot usage
	// Probably needed in streaming mode
	return nil
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
