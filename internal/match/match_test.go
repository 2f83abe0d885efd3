package match

import (
	"context"
	"errors"
	"testing"
	"time"

	"atsforge/internal/types"
)

func scored(text string) types.ScoredKeyword {
	return types.ScoredKeyword{
		Keyword: types.Keyword{Text: text, Canonical: text, Frequency: 1},
		Weight:  0.5,
	}
}

func candidate(text string) types.Keyword {
	return types.Keyword{Text: text, Canonical: text, Frequency: 1}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{"identical", "kubernetes", "kubernetes", 100},
		{"empty both", "", "", 100},
		{"empty one", "go", "", 0},
		{"one edit", "postgres", "postgris", 88},
		{"transposed region", "kubernetes", "kuberenetes", 91},
		{"disjoint", "abc", "xyz", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Ratio(tt.a, tt.b); got != tt.want {
				t.Errorf("Ratio(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestTokenSetSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{"identical", "build scalable services", "build scalable services", 1.0},
		{"disjoint", "design dashboards", "operate clusters", 0.0},
		{"both empty", "", "", 1.0},
		{"half overlap", "golang services", "golang pipelines services testing", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TokenSetSimilarity(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("TokenSetSimilarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestMatchExactTier(t *testing.T) {
	m := NewMatcher(0, 0, 0, nil, nil)
	targets := []types.ScoredKeyword{scored("Kubernetes"), scored("Terraform")}
	candidates := []types.Keyword{candidate("kubernetes")}

	result := m.Match(context.Background(), targets, candidates)

	if len(result.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(result.Matches))
	}
	if result.Matches[0].Tier != types.TierExact {
		t.Errorf("expected exact tier for kubernetes, got %s", result.Matches[0].Tier)
	}
	if result.Matches[0].Similarity != 1.0 {
		t.Errorf("exact match similarity = %v, want 1.0", result.Matches[0].Similarity)
	}
	if result.Matches[1].Tier != types.TierUnmatched {
		t.Errorf("expected unmatched for terraform, got %s", result.Matches[1].Tier)
	}
	if !result.SemanticSkipped {
		t.Error("expected SemanticSkipped with nil embedder and unresolved keywords")
	}
}

func TestMatchFuzzyTier(t *testing.T) {
	m := NewMatcher(85, 0, 0, nil, nil)
	targets := []types.ScoredKeyword{scored("postgres")}
	candidates := []types.Keyword{candidate("postgris")}

	result := m.Match(context.Background(), targets, candidates)

	got := result.Matches[0]
	if got.Tier != types.TierFuzzy {
		t.Fatalf("expected fuzzy tier, got %s", got.Tier)
	}
	if got.Candidate != "postgris" {
		t.Errorf("candidate = %q, want postgris", got.Candidate)
	}
	if got.Similarity < 0.85 || got.Similarity > 1.0 {
		t.Errorf("similarity = %v, want within [0.85, 1.0]", got.Similarity)
	}
}

func TestMatchFuzzyBelowThreshold(t *testing.T) {
	m := NewMatcher(85, 0, 0, nil, nil)
	targets := []types.ScoredKeyword{scored("golang")}
	candidates := []types.Keyword{candidate("erlang")}

	result := m.Match(context.Background(), targets, candidates)

	if result.Matches[0].Tier != types.TierUnmatched {
		t.Errorf("expected unmatched below fuzzy threshold, got %s", result.Matches[0].Tier)
	}
}

func TestMatchFuzzyTieBreakFirstCandidate(t *testing.T) {
	m := NewMatcher(85, 0, 0, nil, nil)
	targets := []types.ScoredKeyword{scored("graphql")}
	// Both candidates are one edit away; extraction order decides.
	candidates := []types.Keyword{candidate("graphqk"), candidate("graphqm")}

	result := m.Match(context.Background(), targets, candidates)

	if result.Matches[0].Candidate != "graphqk" {
		t.Errorf("tie-break chose %q, want first candidate graphqk", result.Matches[0].Candidate)
	}
}

type stubEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (s *stubEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := s.vectors[t]
		if !ok {
			v = []float32{0, 0, 1}
		}
		out[i] = v
	}
	return out, nil
}

func TestMatchSemanticTier(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"container orchestration": {1, 0, 0},
		"kubernetes":              {0.99, 0.14, 0},
		"spreadsheets":            {0, 1, 0},
	}}
	m := NewMatcher(85, 0.85, time.Second, embedder, nil)

	targets := []types.ScoredKeyword{scored("container orchestration")}
	candidates := []types.Keyword{candidate("spreadsheets"), candidate("kubernetes")}

	result := m.Match(context.Background(), targets, candidates)

	got := result.Matches[0]
	if got.Tier != types.TierSemantic {
		t.Fatalf("expected semantic tier, got %s", got.Tier)
	}
	if got.Candidate != "kubernetes" {
		t.Errorf("candidate = %q, want kubernetes", got.Candidate)
	}
	if got.Similarity < 0.85 {
		t.Errorf("similarity = %v, want >= 0.85", got.Similarity)
	}
	if result.SemanticSkipped {
		t.Error("SemanticSkipped should be false on a successful embed")
	}
	if embedder.calls != 1 {
		t.Errorf("embedder called %d times, want 1 batched call", embedder.calls)
	}
}

func TestMatchSemanticDegradesOnError(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("quota exhausted")}
	m := NewMatcher(85, 0.85, time.Second, embedder, nil)

	targets := []types.ScoredKeyword{scored("container orchestration")}
	candidates := []types.Keyword{candidate("kubernetes")}

	result := m.Match(context.Background(), targets, candidates)

	if result.Matches[0].Tier != types.TierUnmatched {
		t.Errorf("expected unmatched after embedder failure, got %s", result.Matches[0].Tier)
	}
	if !result.SemanticSkipped {
		t.Error("expected SemanticSkipped after embedder failure")
	}
}

func TestMatchExactTierSkipsEmbedder(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{}}
	m := NewMatcher(85, 0.85, time.Second, embedder, nil)

	targets := []types.ScoredKeyword{scored("go")}
	candidates := []types.Keyword{candidate("go")}

	m.Match(context.Background(), targets, candidates)

	if embedder.calls != 0 {
		t.Errorf("embedder called %d times, want 0 when all targets resolve earlier", embedder.calls)
	}
}

func TestMatchEmptyTargets(t *testing.T) {
	m := NewMatcher(0, 0, 0, nil, nil)
	result := m.Match(context.Background(), nil, []types.Keyword{candidate("go")})
	if len(result.Matches) != 0 {
		t.Errorf("expected no matches for empty target set, got %d", len(result.Matches))
	}
	if result.SemanticSkipped {
		t.Error("SemanticSkipped should be false when nothing was unresolved")
	}
}

func TestMatchedCountAndByTier(t *testing.T) {
	m := NewMatcher(85, 0, 0, nil, nil)
	targets := []types.ScoredKeyword{scored("go"), scored("postgres"), scored("figma")}
	candidates := []types.Keyword{candidate("go"), candidate("postgris")}

	result := m.Match(context.Background(), targets, candidates)

	if got := result.MatchedCount(); got != 2 {
		t.Errorf("MatchedCount = %d, want 2", got)
	}
	if got := len(result.ByTier(types.TierExact)); got != 1 {
		t.Errorf("exact tier count = %d, want 1", got)
	}
	if got := len(result.ByTier(types.TierFuzzy)); got != 1 {
		t.Errorf("fuzzy tier count = %d, want 1", got)
	}
}
