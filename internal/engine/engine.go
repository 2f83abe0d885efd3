package engine

import (
	"context"

	"atsforge/internal/ai"
	"atsforge/internal/config"
	"atsforge/internal/errors"
	"atsforge/internal/gate"
	"atsforge/internal/keywords"
	"atsforge/internal/match"
	"atsforge/internal/scorer"
	"atsforge/internal/selector"
	"atsforge/internal/types"
)

// Engine wires the analyzer, matcher, scorer, selector, and quality-gate
// runner from configuration. The CLI and the HTTP server both build one
// Engine and drive every operation through it.
type Engine struct {
	cfg    *config.Config
	logger *errors.Logger

	// AI services are optional. A missing API key or a provider failure
	// degrades the engine instead of failing it: the matcher loses its
	// semantic tier and the selector falls back to profile summaries.
	EmbedService   *ai.Service
	RewriteService *ai.Service

	Scorer   *scorer.Scorer
	Selector *selector.Selector
	Runner   *gate.Runner
}

// New assembles an Engine from the loaded configuration
func New(cfg *config.Config, logger *errors.Logger) (*Engine, error) {
	e := &Engine{cfg: cfg, logger: logger}

	if cfg.Scoring.Semantic.Enabled {
		embedCfg := cfg.GetEmbedConfig()
		if embedCfg.APIKey == "" {
			logger.Warn("No API key for the embed operation, semantic matching disabled")
		} else {
			svc, err := ai.NewService(&embedCfg, "Embed", logger)
			if err != nil {
				logger.LogError(err, "Embed service unavailable, semantic matching disabled")
			} else {
				e.EmbedService = svc
			}
		}
	}

	rewriteCfg := cfg.GetRewriteConfig()
	if rewriteCfg.APIKey == "" {
		logger.Warn("No API key for the rewrite operation, summary synthesis will use the template fallback")
	} else {
		svc, err := ai.NewService(&rewriteCfg, "Rewrite", logger)
		if err != nil {
			logger.LogError(err, "Rewrite service unavailable, summary synthesis will use the template fallback")
		} else {
			e.RewriteService = svc
		}
	}

	matcher := match.NewMatcher(
		cfg.Scoring.FuzzyThreshold,
		cfg.Scoring.Semantic.Threshold,
		cfg.Scoring.Semantic.Timeout,
		e.EmbedService.Embedder(),
		logger,
	)
	e.Scorer = scorer.New(cfg.Scoring.Weights, matcher, cfg.Scoring.MaxKeywords)

	rewriter := e.RewriteService.Rewriter()
	if cfg.Gate.SummaryCache.Enabled {
		rewriter = gate.NewCachingRewriter(rewriter)
	}

	e.Selector = selector.New(selector.Options{
		MaxSkills:            cfg.Selection.MaxSkills,
		MaxBulletsRecentRole: cfg.Selection.MaxBulletsRecentRole,
		MaxBulletsOlderRole:  cfg.Selection.MaxBulletsOlderRole,
		MaxProjects:          cfg.Selection.MaxProjects,
		ProjectFloor:         cfg.Selection.ProjectFloor,
		DiversityFraction:    cfg.Selection.DiversityFraction,
		FuzzyThreshold:       cfg.Scoring.FuzzyThreshold,
	}, rewriter, logger)

	var cache gate.DocumentCache
	if cfg.Gate.Cache.Enabled {
		cache = gate.NewMemoryDocumentCache()
	}
	e.Runner = gate.NewRunner(
		e.Selector,
		e.Scorer,
		cfg.Gate.PassThreshold,
		cfg.Gate.MaxRetries,
		cfg.Scoring.MaxKeywords,
		cache,
		cfg.Gate.Cache.MinSimilarity,
		logger,
	)

	return e, nil
}

// Analyze extracts the structured target view from a raw job description
func (e *Engine) Analyze(targetText string) types.TargetAnalysis {
	return keywords.AnalyzeTarget(targetText, e.cfg.Scoring.MaxKeywords)
}

// Score evaluates an existing document against a target description
func (e *Engine) Score(ctx context.Context, documentText, targetText string) types.ScoreResult {
	return e.Scorer.Score(ctx, documentText, e.Analyze(targetText))
}

// Tailor runs one profile + target through the quality-gate loop
func (e *Engine) Tailor(ctx context.Context, prof *types.CandidateProfile, targetText string) types.GateOutcome {
	return e.Runner.Run(ctx, prof, targetText)
}

// TailorBatch runs one profile against many targets on a bounded worker pool
func (e *Engine) TailorBatch(ctx context.Context, prof *types.CandidateProfile, targets []string) ([]gate.BatchResult, error) {
	return e.Runner.RunBatch(ctx, prof, targets, e.cfg.Gate.BatchWorkers)
}

// CircuitBreakerStats aggregates breaker state across the AI services for the
// stats endpoint
func (e *Engine) CircuitBreakerStats() map[string]any {
	stats := make(map[string]any)
	if e.EmbedService != nil {
		stats["embed"] = e.EmbedService.Provider.GetCircuitBreakerStats()
	}
	if e.RewriteService != nil {
		stats["rewrite"] = e.RewriteService.Provider.GetCircuitBreakerStats()
	}
	return stats
}

// Close releases the AI provider resources
func (e *Engine) Close() error {
	if e.EmbedService != nil {
		if err := e.EmbedService.Provider.Close(); err != nil {
			return err
		}
	}
	if e.RewriteService != nil {
		return e.RewriteService.Provider.Close()
	}
	return nil
}
