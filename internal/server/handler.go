package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"atsforge/internal/observability"
	"atsforge/internal/profile"
	"atsforge/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// maxBatchTargets bounds how many job descriptions one batch request may carry
const maxBatchTargets = 50

// createScoreHandler wraps the score handler with observability
func (s *Server) createScoreHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("atsforge.api")
		ctx, span := tracer.Start(ctx, "api.score")
		defer span.End()

		var req ScoreRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		if strings.TrimSpace(req.Document) == "" {
			err := fmt.Errorf("missing document")
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Missing document", "document field is required", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.JobDescription) == "" {
			err := fmt.Errorf("missing job description")
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Missing job description", "jobDescription field is required", http.StatusBadRequest)
			return
		}

		if len(req.Document) > int(s.MaxRequestSize/2) {
			err := fmt.Errorf("document too large: %d chars", len(req.Document))
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Document too large", fmt.Sprintf("document exceeds recommended size limit of %d characters", s.MaxRequestSize/2), http.StatusBadRequest)
			return
		}
		if len(req.JobDescription) > int(s.MaxRequestSize/2) {
			err := fmt.Errorf("job description too large: %d chars", len(req.JobDescription))
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Job description too large", fmt.Sprintf("jobDescription exceeds recommended size limit of %d characters", s.MaxRequestSize/2), http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.Int("request.document_length", len(req.Document)),
			attribute.Int("request.job_length", len(req.JobDescription)),
			attribute.String("operation", "score"),
		)

		metrics := om.GetMetrics()
		var result types.ScoreResult
		_ = metrics.TrackOperation(ctx, "score", func(ctx context.Context) *observability.OperationResult {
			result = s.Engine.Score(ctx, req.Document, req.JobDescription)
			return &observability.OperationResult{}
		}, om)

		metrics.RecordBusinessMetric(ctx, "document_scored", true, om,
			attribute.Int("matched_keywords", len(result.MatchedKeywords)),
			attribute.Int("missing_keywords", len(result.MissingKeywords)))
		metrics.RecordScore(ctx, result.OverallScore, om,
			attribute.String("operation", "score"))

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("response.overall_score", result.OverallScore),
			attribute.Int("response.matched_keywords", len(result.MatchedKeywords)),
		)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			span.RecordError(err)
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// createAnalyzeHandler wraps the analyze handler with observability
func (s *Server) createAnalyzeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("atsforge.api")
		ctx, span := tracer.Start(ctx, "api.analyze")
		defer span.End()

		var req AnalyzeRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		if strings.TrimSpace(req.JobDescription) == "" {
			err := fmt.Errorf("missing job description")
			span.RecordError(err)
			writeErrorResponse(w, "Missing job description", "jobDescription field is required", http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.Int("request.job_length", len(req.JobDescription)),
			attribute.String("operation", "analyze"),
		)

		result := s.Engine.Analyze(req.JobDescription)

		metrics := om.GetMetrics()
		metrics.RecordBusinessMetric(ctx, "job_analyzed", true, om,
			attribute.Int("keywords", len(result.Keywords)),
			attribute.Int("required_skills", len(result.RequiredSkills)))

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("response.keywords", len(result.Keywords)),
		)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			span.RecordError(err)
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// createTailorHandler wraps the tailor handler with observability
func (s *Server) createTailorHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("atsforge.api")
		ctx, span := tracer.Start(ctx, "api.tailor")
		defer span.End()

		var req TailorRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		prof, err := s.parseProfile(req.Profile)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid profile", err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.JobDescription) == "" {
			err := fmt.Errorf("missing job description")
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Missing job description", "jobDescription field is required", http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.Int("request.job_length", len(req.JobDescription)),
			attribute.String("operation", "tailor"),
		)

		metrics := om.GetMetrics()
		var outcome types.GateOutcome
		_ = metrics.TrackOperation(ctx, "tailor", func(ctx context.Context) *observability.OperationResult {
			outcome = s.Engine.Tailor(ctx, prof, req.JobDescription)
			return &observability.OperationResult{}
		}, om)

		s.recordOutcomeMetrics(ctx, outcome, om)

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.String("response.state", string(outcome.State)),
			attribute.Int("response.attempts", len(outcome.Attempts)),
			attribute.Int("response.final_score", outcome.FinalScore()),
			attribute.Bool("response.from_cache", outcome.FromCache),
		)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(outcome); err != nil {
			span.RecordError(err)
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// createBatchHandler wraps the batch handler with observability
func (s *Server) createBatchHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("atsforge.api")
		ctx, span := tracer.Start(ctx, "api.batch")
		defer span.End()

		var req BatchRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		prof, err := s.parseProfile(req.Profile)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid profile", err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.JobDescriptions) == 0 {
			err := fmt.Errorf("missing job descriptions")
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Missing job descriptions", "jobDescriptions field must contain at least one entry", http.StatusBadRequest)
			return
		}
		if len(req.JobDescriptions) > maxBatchTargets {
			err := fmt.Errorf("too many job descriptions: %d", len(req.JobDescriptions))
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Too many job descriptions", fmt.Sprintf("jobDescriptions is limited to %d entries per request", maxBatchTargets), http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.Int("request.target_count", len(req.JobDescriptions)),
			attribute.String("operation", "batch"),
		)

		metrics := om.GetMetrics()
		results, err := s.Engine.TailorBatch(ctx, prof, req.JobDescriptions)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "processing"))
			writeErrorResponse(w, "Batch processing interrupted", err.Error(), http.StatusInternalServerError)
			return
		}

		for _, res := range results {
			s.recordOutcomeMetrics(ctx, res.Outcome, om)
		}
		metrics.RecordBusinessMetric(ctx, "document_scored", true, om,
			attribute.Int("batch_size", len(results)))

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("response.result_count", len(results)),
		)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(results); err != nil {
			span.RecordError(err)
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// parseProfile validates and parses the embedded candidate profile document
func (s *Server) parseProfile(raw json.RawMessage) (*types.CandidateProfile, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("profile field is required")
	}
	if int64(len(raw)) > s.MaxRequestSize/2 {
		return nil, fmt.Errorf("profile exceeds recommended size limit of %d bytes", s.MaxRequestSize/2)
	}
	return profile.Parse(raw)
}

// recordOutcomeMetrics records gate, score, and cache metrics for one outcome
func (s *Server) recordOutcomeMetrics(ctx context.Context, outcome types.GateOutcome, om *observability.ObservabilityManager) {
	metrics := om.GetMetrics()
	metrics.RecordGateOutcome(ctx, string(outcome.State), len(outcome.Attempts), om)
	metrics.RecordScore(ctx, outcome.FinalScore(), om,
		attribute.String("operation", "tailor"),
		attribute.String("state", string(outcome.State)))
	if outcome.FromCache {
		metrics.RecordCacheHit(ctx, "document", om)
	}
}

// createRateLimitMiddleware adds observability to rate limiting
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	originalMiddleware := s.rateLimitMiddleware()

	return func(next http.HandlerFunc) http.HandlerFunc {
		return originalMiddleware(func(w http.ResponseWriter, r *http.Request) {
			// Wrap the ResponseWriter to detect rate limit responses
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: 200}

			next(wrapper, r)

			if wrapper.statusCode == http.StatusTooManyRequests {
				metrics := om.GetMetrics()
				metrics.RecordBusinessMetric(r.Context(), "rate_limit_hit", true, om,
					attribute.String("endpoint", r.URL.Path),
					attribute.String("method", r.Method))
			}
		})
	}
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
