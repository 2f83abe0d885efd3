package gate

import (
	"context"

	"atsforge/internal/errors"
	"atsforge/internal/keywords"
	"atsforge/internal/selector"
	"atsforge/internal/types"
)

const (
	DefaultPassThreshold      = 70
	DefaultMaxRetries         = 2
	DefaultCacheMinSimilarity = 0.90
)

// DocumentCache short-circuits the whole loop for near-identical target
// descriptions. Implementations must be safe for concurrent use and treat
// writes as idempotent upserts.
type DocumentCache interface {
	Lookup(targetText string, minSimilarity float64) (types.GateOutcome, bool)
	Store(targetText string, outcome types.GateOutcome)
}

// Drafter builds a content selection for one attempt. *selector.Selector is
// the production implementation.
type Drafter interface {
	Select(ctx context.Context, prof *types.CandidateProfile, analysis types.TargetAnalysis, biasKeywords []string) types.SelectionResult
}

// Scorer evaluates a draft document against the target analysis.
// *scorer.Scorer is the production implementation.
type Scorer interface {
	Score(ctx context.Context, documentText string, analysis types.TargetAnalysis) types.ScoreResult
}

// Runner drives one document through the quality-gate state machine:
// DRAFTING → SCORING → {PASSED | RETRYING | ESCALATED}. Escalation is a
// reported terminal outcome, never an error and never silently dropped.
type Runner struct {
	selector      Drafter
	scorer        Scorer
	threshold     int
	maxRetries    int
	maxKeywords   int
	cache         DocumentCache
	minSimilarity float64
	logger        *errors.Logger
}

// NewRunner creates a Runner. The cache may be nil, disabling the
// short-circuit. Zero values fall back to defaults.
func NewRunner(sel Drafter, sc Scorer, threshold, maxRetries, maxKeywords int, cache DocumentCache, minSimilarity float64, logger *errors.Logger) *Runner {
	if threshold <= 0 {
		threshold = DefaultPassThreshold
	}
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if maxKeywords <= 0 {
		maxKeywords = 25
	}
	if minSimilarity <= 0 {
		minSimilarity = DefaultCacheMinSimilarity
	}
	return &Runner{
		selector:      sel,
		scorer:        sc,
		threshold:     threshold,
		maxRetries:    maxRetries,
		maxKeywords:   maxKeywords,
		cache:         cache,
		minSimilarity: minSimilarity,
		logger:        logger,
	}
}

// Run processes one target description to a terminal outcome. The attempt
// history is always complete: an operator can see every breakdown and every
// missing-keyword list that led to the terminal state. Cancellation takes
// effect between attempts; the in-flight attempt runs to completion.
func (r *Runner) Run(ctx context.Context, prof *types.CandidateProfile, targetText string) types.GateOutcome {
	if r.cache != nil {
		if cached, ok := r.cache.Lookup(targetText, r.minSimilarity); ok {
			cached.FromCache = true
			if r.logger != nil {
				r.logger.Info("Document cache hit, skipping generation",
					"final_score", cached.FinalScore())
			}
			return cached
		}
	}

	analysis := keywords.AnalyzeTarget(targetText, r.maxKeywords)

	outcome := types.GateOutcome{State: types.StateDrafting}
	var bias []string

	maxAttempts := r.maxRetries + 1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		outcome.State = types.StateDrafting
		sel := r.selector.Select(ctx, prof, analysis, bias)
		doc := selector.Assemble(sel)

		outcome.State = types.StateScoring
		score := r.scorer.Score(ctx, doc, analysis)

		record := types.GenerationAttempt{
			Number: attempt,
			Score:  score,
			Passed: score.OverallScore >= r.threshold,
			Notes:  score.Notes,
		}
		outcome.Attempts = append(outcome.Attempts, record)

		if record.Passed {
			outcome.State = types.StatePassed
			outcome.Document = doc
			outcome.Selection = sel
			if r.cache != nil {
				r.cache.Store(targetText, outcome)
			}
			if r.logger != nil {
				r.logger.Info("Quality gate passed",
					"attempt", attempt,
					"score", score.OverallScore)
			}
			return outcome
		}

		// Last draft is kept even on escalation so the reviewer sees what was
		// produced.
		outcome.Document = doc
		outcome.Selection = sel

		if attempt == maxAttempts {
			break
		}
		if err := ctx.Err(); err != nil {
			outcome.Attempts[len(outcome.Attempts)-1].Notes = append(
				outcome.Attempts[len(outcome.Attempts)-1].Notes,
				"cancelled before retry: "+err.Error())
			break
		}

		outcome.State = types.StateRetrying
		bias = missingKeywordNames(score)
		if r.logger != nil {
			r.logger.Info("Quality gate retrying",
				"attempt", attempt,
				"score", score.OverallScore,
				"missing_keywords", len(bias))
		}
	}

	outcome.State = types.StateEscalated
	if r.logger != nil {
		r.logger.Warn("Quality gate escalated for manual review",
			"attempts", len(outcome.Attempts),
			"final_score", outcome.FinalScore())
	}
	return outcome
}

func missingKeywordNames(score types.ScoreResult) []string {
	names := make([]string, 0, len(score.MissingKeywords))
	for _, m := range score.MissingKeywords {
		names = append(names, m.Keyword)
	}
	return names
}
