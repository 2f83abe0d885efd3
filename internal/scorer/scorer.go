package scorer

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"atsforge/internal/errors"
	"atsforge/internal/keywords"
	"atsforge/internal/match"
	"atsforge/internal/types"
)

// Sub-score weight keys. A weight set must cover exactly these keys and sum
// to 1.0.
const (
	WeightKeywordMatch        = "keyword_match"
	WeightSectionCompleteness = "section_completeness"
	WeightKeywordDensity      = "keyword_density"
	WeightExperienceRelevance = "experience_relevance"
	WeightFormatting          = "formatting"
)

// DefaultWeights returns the standard sub-score weighting
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		WeightKeywordMatch:        0.40,
		WeightSectionCompleteness: 0.15,
		WeightKeywordDensity:      0.15,
		WeightExperienceRelevance: 0.15,
		WeightFormatting:          0.15,
	}
}

const weightSumTolerance = 1e-6

// ValidateWeights rejects a weight set whose keys or sum are wrong. Called at
// config load so a misconfigured deployment fails before scoring anything.
func ValidateWeights(weights map[string]float64) error {
	required := []string{
		WeightKeywordMatch,
		WeightSectionCompleteness,
		WeightKeywordDensity,
		WeightExperienceRelevance,
		WeightFormatting,
	}
	sum := 0.0
	for _, key := range required {
		w, ok := weights[key]
		if !ok {
			return errors.NewConfigError(errors.ErrCodeInvalidWeights,
				fmt.Sprintf("missing scoring weight %q", key), nil)
		}
		if w < 0 || w > 1 {
			return errors.NewConfigError(errors.ErrCodeInvalidWeights,
				fmt.Sprintf("scoring weight %q out of range: %v", key, w), nil)
		}
		sum += w
	}
	if len(weights) != len(required) {
		return errors.NewConfigError(errors.ErrCodeInvalidWeights,
			fmt.Sprintf("unexpected scoring weight keys: got %d, want %d", len(weights), len(required)), nil)
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return errors.NewConfigError(errors.ErrCodeInvalidWeights,
			fmt.Sprintf("scoring weights must sum to 1.0, got %v", sum), nil)
	}
	return nil
}

// Scorer computes the weighted relevance score of a candidate document
// against an analyzed job description. The matcher handles tier resolution;
// everything else here is deterministic text analysis.
type Scorer struct {
	weights     map[string]float64
	matcher     *match.Matcher
	maxKeywords int
}

// New creates a Scorer. Weights must already be validated; nil falls back to
// the defaults.
func New(weights map[string]float64, matcher *match.Matcher, maxKeywords int) *Scorer {
	if weights == nil {
		weights = DefaultWeights()
	}
	if maxKeywords <= 0 {
		maxKeywords = 25
	}
	return &Scorer{weights: weights, matcher: matcher, maxKeywords: maxKeywords}
}

// Score produces a fresh ScoreResult for the document against the target
// analysis. The result is never mutated after return; callers re-score to get
// a new one.
func (s *Scorer) Score(ctx context.Context, documentText string, analysis types.TargetAnalysis) types.ScoreResult {
	result := types.ScoreResult{Weights: s.weightsCopy()}

	candidates := keywords.Extract(documentText, s.maxKeywords*2)
	matchResult := s.matcher.Match(ctx, analysis.Keywords, candidates)
	if matchResult.SemanticSkipped {
		result.Notes = append(result.Notes, "semantic match tier unavailable, scored with exact and fuzzy tiers only")
	}

	var matchedNames []string
	var matchedMatches []types.KeywordMatch
	for _, m := range matchResult.Matches {
		if m.Tier == types.TierUnmatched {
			result.MissingKeywords = append(result.MissingKeywords, types.MissingKeyword{
				Keyword:    m.Target.Canonical,
				Category:   m.Target.Category,
				Importance: m.Target.Importance,
				Weight:     m.Target.Weight,
			})
		} else {
			matchedNames = append(matchedNames, m.Target.Canonical)
			matchedMatches = append(matchedMatches, m)
		}
	}
	sort.SliceStable(result.MissingKeywords, func(i, j int) bool {
		return result.MissingKeywords[i].Weight > result.MissingKeywords[j].Weight
	})
	result.MatchedKeywords = matchedNames

	result.Breakdown.KeywordMatch = scoreKeywordMatch(matchResult)
	result.Breakdown.SectionCompleteness = scoreSections(documentText)
	result.Breakdown.KeywordDensity = scoreDensity(documentText, matchedMatches)
	result.Breakdown.ExperienceRelevance = scoreExperienceRelevance(documentText, analysis)
	formatting, issues := scoreFormatting(documentText)
	result.Breakdown.Formatting = formatting
	result.FormattingIssues = issues

	result.OverallScore = s.weighted(result.Breakdown)
	result.Suggestions = Suggestions(result)
	return result
}

func (s *Scorer) weightsCopy() map[string]float64 {
	out := make(map[string]float64, len(s.weights))
	for k, v := range s.weights {
		out[k] = v
	}
	return out
}

func (s *Scorer) weighted(b types.ScoreBreakdown) int {
	total := float64(b.KeywordMatch)*s.weights[WeightKeywordMatch] +
		float64(b.SectionCompleteness)*s.weights[WeightSectionCompleteness] +
		float64(b.KeywordDensity)*s.weights[WeightKeywordDensity] +
		float64(b.ExperienceRelevance)*s.weights[WeightExperienceRelevance] +
		float64(b.Formatting)*s.weights[WeightFormatting]
	score := int(math.Round(total))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// scoreKeywordMatch is the plain resolved/total ratio. Importance weights
// rank missing keywords but do not skew this ratio.
func scoreKeywordMatch(result types.MatchResult) int {
	if len(result.Matches) == 0 {
		return 100
	}
	return int(math.Round(float64(result.MatchedCount()) / float64(len(result.Matches)) * 100))
}

// Section header variants recognized during completeness scoring.
var requiredSections = map[string][]string{
	"summary":    {"summary", "professional summary", "objective", "about"},
	"experience": {"experience", "work experience", "professional experience", "employment"},
	"education":  {"education", "academic", "degree"},
	"skills":     {"skills", "technical skills", "core competencies", "technologies"},
}

var optionalSections = map[string][]string{
	"certifications": {"certifications", "certificates", "certification"},
	"projects":       {"projects", "personal projects", "side projects"},
}

func scoreSections(documentText string) int {
	lower := strings.ToLower(documentText)
	found := 0
	total := len(requiredSections) + len(optionalSections)
	for _, variants := range requiredSections {
		if containsAny(lower, variants) {
			found++
		}
	}
	for _, variants := range optionalSections {
		if containsAny(lower, variants) {
			found++
		}
	}
	return int(math.Round(float64(found) / float64(total) * 100))
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// scoreDensity bands the raw surface occurrence rate of matched keywords in
// the document. It deliberately ignores which tier resolved a keyword: a
// semantically matched keyword whose literal text never appears contributes
// nothing here, which is exactly the dilution signal this sub-score measures.
func scoreDensity(documentText string, matched []types.KeywordMatch) int {
	if len(matched) == 0 {
		return 50
	}
	totalWords := len(strings.Fields(documentText))
	if totalWords == 0 {
		return 0
	}

	lower := strings.ToLower(documentText)
	occurrences := 0
	for _, m := range matched {
		occurrences += strings.Count(lower, strings.ToLower(m.Target.Canonical))
		if m.Candidate != "" && !strings.EqualFold(m.Candidate, m.Target.Canonical) {
			occurrences += strings.Count(lower, strings.ToLower(m.Candidate))
		}
	}

	density := float64(occurrences) / float64(totalWords)
	switch {
	case density < 0.01:
		return 40
	case density <= 0.03:
		return 80
	case density <= 0.06:
		return 100
	case density <= 0.10:
		return 80
	default:
		return 50 // keyword stuffing
	}
}

// scoreExperienceRelevance measures how much of the target's responsibility
// language the document covers. With no responsibility sentences extracted it
// falls back to whole-text token overlap.
func scoreExperienceRelevance(documentText string, analysis types.TargetAnalysis) int {
	if len(analysis.Responsibilities) == 0 {
		if strings.TrimSpace(analysis.RawText) == "" {
			return 100
		}
		return int(math.Round(match.TokenSetSimilarity(documentText, analysis.RawText) * 100))
	}

	covered := 0
	for _, resp := range analysis.Responsibilities {
		if match.TokenSetSimilarity(documentText, resp) > 0 && coversResponsibility(documentText, resp) {
			covered++
		}
	}
	return int(math.Round(float64(covered) / float64(len(analysis.Responsibilities)) * 100))
}

// coversResponsibility checks whether at least half of a responsibility
// sentence's significant tokens appear in the document
func coversResponsibility(documentText, responsibility string) bool {
	docTokens := tokenFields(documentText)
	respTokens := tokenFields(responsibility)
	if len(respTokens) == 0 {
		return false
	}
	hits := 0
	for tok := range respTokens {
		if docTokens[tok] {
			hits++
		}
	}
	return float64(hits)/float64(len(respTokens)) >= 0.5
}

func tokenFields(text string) map[string]bool {
	set := make(map[string]bool)
	for _, f := range strings.Fields(strings.ToLower(text)) {
		f = strings.Trim(f, ".,;:!?()[]\"'")
		if len(f) >= 3 && !keywords.IsStopWord(f) {
			set[f] = true
		}
	}
	return set
}

var (
	emailPattern = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)
	phonePattern = regexp.MustCompile(`[+]?[\d][\d\s\-()]{6,14}`)
	bulletRe     = regexp.MustCompile(`(?m)^\s*[•\-*] `)
	yearPattern  = regexp.MustCompile(`\b20\d{2}\b`)
	tableRowRe   = regexp.MustCompile(`(?m)\|.*\|.*\|`)
)

// scoreFormatting runs the deterministic structural checks. Each failed check
// deducts a fixed penalty and contributes one human-readable issue.
func scoreFormatting(documentText string) (int, []string) {
	var issues []string
	score := 100

	wordCount := len(strings.Fields(documentText))
	if wordCount < 150 {
		issues = append(issues, fmt.Sprintf("Document too short (%d words). Aim for 300+ words.", wordCount))
		score -= 20
	} else if wordCount > 1200 {
		issues = append(issues, fmt.Sprintf("Document too long (%d words). Keep under 800 words for 1-2 pages.", wordCount))
		score -= 10
	}

	if !emailPattern.MatchString(documentText) {
		issues = append(issues, "No email address found.")
		score -= 10
	}
	if !phonePattern.MatchString(documentText) {
		issues = append(issues, "No phone number found.")
		score -= 5
	}
	if !bulletRe.MatchString(documentText) {
		issues = append(issues, "No bullet points found. Use bullet points for experience items.")
		score -= 10
	}
	if !yearPattern.MatchString(documentText) {
		issues = append(issues, "No dates found. Include dates for experience and education.")
		score -= 10
	}
	if tableRowRe.MatchString(documentText) || strings.Contains(documentText, "\t\t") {
		issues = append(issues, "Table-like layout detected. Use single-column plain text for parser compatibility.")
		score -= 15
	}

	if score < 0 {
		score = 0
	}
	return score, issues
}
