package match

import (
	"context"
	"strings"
	"time"

	"atsforge/internal/errors"
	"atsforge/internal/types"
)

// Embedder is the optional external capability behind the semantic tier.
// Implementations must be safe for concurrent use.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

const (
	DefaultFuzzyThreshold    = 85
	DefaultSemanticThreshold = 0.85
	DefaultSemanticTimeout   = 10 * time.Second
)

// Matcher classifies target keywords against a candidate keyword set in three
// successive, mutually exclusive tiers: exact, fuzzy, semantic. A keyword
// resolved at an earlier tier is never re-evaluated at a later one.
type Matcher struct {
	FuzzyThreshold    int     // 0-100 Levenshtein ratio floor for the fuzzy tier
	SemanticThreshold float64 // 0.0-1.0 cosine floor for the semantic tier
	SemanticTimeout   time.Duration
	Embedder          Embedder // nil disables the semantic tier
	Logger            *errors.Logger
}

// NewMatcher creates a matcher with the given thresholds, falling back to
// defaults for zero values. The embedder may be nil: the semantic tier then
// degrades to unmatched instead of failing the match.
func NewMatcher(fuzzyThreshold int, semanticThreshold float64, timeout time.Duration, embedder Embedder, logger *errors.Logger) *Matcher {
	if fuzzyThreshold <= 0 {
		fuzzyThreshold = DefaultFuzzyThreshold
	}
	if semanticThreshold <= 0 {
		semanticThreshold = DefaultSemanticThreshold
	}
	if timeout <= 0 {
		timeout = DefaultSemanticTimeout
	}
	return &Matcher{
		FuzzyThreshold:    fuzzyThreshold,
		SemanticThreshold: semanticThreshold,
		SemanticTimeout:   timeout,
		Embedder:          embedder,
		Logger:            logger,
	}
}

// Match classifies every target keyword into exactly one tier against the
// candidate set. Candidates are considered in their extraction order, and on
// similarity ties the first candidate wins, so the result is deterministic.
func (m *Matcher) Match(ctx context.Context, targets []types.ScoredKeyword, candidates []types.Keyword) types.MatchResult {
	result := types.MatchResult{Matches: make([]types.KeywordMatch, len(targets))}

	candLower := make([]string, len(candidates))
	for i, c := range candidates {
		candLower[i] = strings.ToLower(c.Canonical)
	}

	var unresolved []int

	// Exact tier: case-insensitive, alias-normalized equality.
	for i, target := range targets {
		result.Matches[i] = types.KeywordMatch{Target: target, Tier: types.TierUnmatched}
		targetLower := strings.ToLower(target.Canonical)
		matched := false
		for j, cl := range candLower {
			if cl == targetLower {
				result.Matches[i] = types.KeywordMatch{
					Target:     target,
					Tier:       types.TierExact,
					Candidate:  candidates[j].Canonical,
					Similarity: 1.0,
				}
				matched = true
				break
			}
		}
		if !matched {
			unresolved = append(unresolved, i)
		}
	}

	// Fuzzy tier: Levenshtein ratio above the threshold, best candidate wins,
	// earliest candidate wins ties.
	var stillUnresolved []int
	for _, i := range unresolved {
		targetLower := strings.ToLower(targets[i].Canonical)
		bestRatio := 0
		bestIdx := -1
		for j, cl := range candLower {
			if r := Ratio(targetLower, cl); r >= m.FuzzyThreshold && r > bestRatio {
				bestRatio = r
				bestIdx = j
			}
		}
		if bestIdx >= 0 {
			result.Matches[i] = types.KeywordMatch{
				Target:     targets[i],
				Tier:       types.TierFuzzy,
				Candidate:  candidates[bestIdx].Canonical,
				Similarity: float64(bestRatio) / 100,
			}
		} else {
			stillUnresolved = append(stillUnresolved, i)
		}
	}

	// Semantic tier: embedding cosine similarity. Only tier allowed to touch
	// an external capability; any failure degrades to unmatched.
	if len(stillUnresolved) > 0 {
		if m.Embedder == nil {
			result.SemanticSkipped = true
		} else {
			m.matchSemantic(ctx, targets, candidates, stillUnresolved, &result)
		}
	}

	return result
}

// matchSemantic resolves the remaining targets via embedding similarity. All
// texts are embedded in a single call under an explicit timeout.
func (m *Matcher) matchSemantic(ctx context.Context, targets []types.ScoredKeyword, candidates []types.Keyword, unresolved []int, result *types.MatchResult) {
	if len(candidates) == 0 {
		return
	}

	embedCtx, cancel := context.WithTimeout(ctx, m.SemanticTimeout)
	defer cancel()

	texts := make([]string, 0, len(unresolved)+len(candidates))
	for _, i := range unresolved {
		texts = append(texts, targets[i].Canonical)
	}
	for _, c := range candidates {
		texts = append(texts, c.Canonical)
	}

	vectors, err := m.Embedder.EmbedTexts(embedCtx, texts)
	if err != nil || len(vectors) != len(texts) {
		result.SemanticSkipped = true
		if m.Logger != nil {
			m.Logger.Warn("Semantic tier degraded to unmatched",
				"unresolved_keywords", len(unresolved),
				"error", errString(err))
		}
		return
	}

	targetVecs := vectors[:len(unresolved)]
	candVecs := vectors[len(unresolved):]

	for n, i := range unresolved {
		bestSim := 0.0
		bestIdx := -1
		for j := range candVecs {
			if sim := Cosine(targetVecs[n], candVecs[j]); sim >= m.SemanticThreshold && sim > bestSim {
				bestSim = sim
				bestIdx = j
			}
		}
		if bestIdx >= 0 {
			result.Matches[i] = types.KeywordMatch{
				Target:     targets[i],
				Tier:       types.TierSemantic,
				Candidate:  candidates[bestIdx].Canonical,
				Similarity: bestSim,
			}
		}
	}
}

func errString(err error) string {
	if err == nil {
		return "embedding count mismatch"
	}
	return err.Error()
}
