package scorer

import (
	"context"
	"strings"
	"testing"

	"atsforge/internal/keywords"
	"atsforge/internal/match"
	"atsforge/internal/types"
)

func testMatcher() *match.Matcher {
	return match.NewMatcher(85, 0.85, 0, nil, nil)
}

func TestValidateWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights map[string]float64
		wantErr bool
	}{
		{"defaults", DefaultWeights(), false},
		{
			"custom valid",
			map[string]float64{
				WeightKeywordMatch:        0.50,
				WeightSectionCompleteness: 0.10,
				WeightKeywordDensity:      0.10,
				WeightExperienceRelevance: 0.20,
				WeightFormatting:          0.10,
			},
			false,
		},
		{
			"sum below one",
			map[string]float64{
				WeightKeywordMatch:        0.40,
				WeightSectionCompleteness: 0.15,
				WeightKeywordDensity:      0.15,
				WeightExperienceRelevance: 0.15,
				WeightFormatting:          0.10,
			},
			true,
		},
		{
			"missing key",
			map[string]float64{
				WeightKeywordMatch:        0.55,
				WeightSectionCompleteness: 0.15,
				WeightKeywordDensity:      0.15,
				WeightExperienceRelevance: 0.15,
			},
			true,
		},
		{
			"negative weight",
			map[string]float64{
				WeightKeywordMatch:        1.40,
				WeightSectionCompleteness: -0.40,
				WeightKeywordDensity:      0.00,
				WeightExperienceRelevance: 0.00,
				WeightFormatting:          0.00,
			},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWeights(tt.weights)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateWeights() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestScoreKeywordMatchRatio(t *testing.T) {
	// Two target keywords, one present: keyword match must be exactly 50,
	// regardless of importance weights.
	analysis := types.TargetAnalysis{
		Keywords: []types.ScoredKeyword{
			{Keyword: types.Keyword{Text: "Terraform", Canonical: "Terraform"}, Weight: 0.9, Importance: "high"},
			{Keyword: types.Keyword{Text: "CI/CD", Canonical: "CI/CD"}, Weight: 0.5, Importance: "medium"},
		},
	}
	doc := "Skills\n- Built terraform modules for infrastructure provisioning in 2023\nContact: dev@example.com +1 555 123 4567"

	s := New(nil, testMatcher(), 25)
	result := s.Score(context.Background(), doc, analysis)

	if result.Breakdown.KeywordMatch != 50 {
		t.Errorf("KeywordMatch = %d, want 50", result.Breakdown.KeywordMatch)
	}
	if len(result.MissingKeywords) != 1 || result.MissingKeywords[0].Keyword != "CI/CD" {
		t.Fatalf("MissingKeywords = %+v, want exactly CI/CD", result.MissingKeywords)
	}
	if result.MissingKeywords[0].Importance != "medium" {
		t.Errorf("missing importance = %q, want medium", result.MissingKeywords[0].Importance)
	}
	found := false
	for _, s := range result.Suggestions {
		if strings.Contains(s, "CI/CD") {
			found = true
		}
	}
	if !found {
		t.Error("expected a suggestion mentioning CI/CD")
	}
}

func TestScoreEmptyTargetSet(t *testing.T) {
	s := New(nil, testMatcher(), 25)
	result := s.Score(context.Background(), "any document text", types.TargetAnalysis{})
	if result.Breakdown.KeywordMatch != 100 {
		t.Errorf("KeywordMatch = %d, want 100 for empty target set", result.Breakdown.KeywordMatch)
	}
}

func TestMissingKeywordsSortedByWeight(t *testing.T) {
	analysis := types.TargetAnalysis{
		Keywords: []types.ScoredKeyword{
			{Keyword: types.Keyword{Canonical: "low-prio"}, Weight: 0.2, Importance: "low"},
			{Keyword: types.Keyword{Canonical: "high-prio"}, Weight: 0.9, Importance: "high"},
			{Keyword: types.Keyword{Canonical: "mid-prio"}, Weight: 0.5, Importance: "medium"},
		},
	}
	s := New(nil, testMatcher(), 25)
	result := s.Score(context.Background(), "unrelated text", analysis)

	want := []string{"high-prio", "mid-prio", "low-prio"}
	if len(result.MissingKeywords) != len(want) {
		t.Fatalf("got %d missing keywords, want %d", len(result.MissingKeywords), len(want))
	}
	for i, w := range want {
		if result.MissingKeywords[i].Keyword != w {
			t.Errorf("missing[%d] = %q, want %q", i, result.MissingKeywords[i].Keyword, w)
		}
	}
}

func TestScoreSections(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"all sections", "Summary\nExperience\nEducation\nSkills\nCertifications\nProjects", 100},
		{"required only", "Professional Summary\nWork Experience\nEducation\nTechnical Skills", 67},
		{"none", "just some plain text", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scoreSections(tt.text); got != tt.want {
				t.Errorf("scoreSections() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreDensityBands(t *testing.T) {
	matched := []types.KeywordMatch{
		{Target: types.ScoredKeyword{Keyword: types.Keyword{Canonical: "kubernetes"}}, Tier: types.TierExact, Candidate: "kubernetes"},
	}

	tests := []struct {
		name      string
		occurs    int
		totalWord int
		want      int
	}{
		{"too sparse", 1, 200, 40},
		{"good", 4, 200, 80},
		{"optimal", 10, 200, 100},
		{"dense", 18, 200, 80},
		{"stuffed", 30, 200, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b strings.Builder
			for i := 0; i < tt.occurs; i++ {
				b.WriteString("kubernetes ")
			}
			for i := tt.occurs; i < tt.totalWord; i++ {
				b.WriteString("filler ")
			}
			if got := scoreDensity(b.String(), matched); got != tt.want {
				t.Errorf("scoreDensity() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreDensityNoMatches(t *testing.T) {
	if got := scoreDensity("some text", nil); got != 50 {
		t.Errorf("scoreDensity with no matches = %d, want neutral 50", got)
	}
}

func TestScoreFormatting(t *testing.T) {
	goodDoc := strings.Repeat("word ", 400) +
		"\nContact: dev@example.com +1 555 123 4567\n- Led migrations in 2022\n"

	score, issues := scoreFormatting(goodDoc)
	if score != 100 {
		t.Errorf("formatting score = %d, want 100; issues: %v", score, issues)
	}

	badDoc := "short text without structure"
	score, issues = scoreFormatting(badDoc)
	if score >= 100 {
		t.Errorf("formatting score = %d, want penalties applied", score)
	}
	if len(issues) == 0 {
		t.Error("expected formatting issues for bad document")
	}
}

func TestScoreFormattingTableDetection(t *testing.T) {
	doc := strings.Repeat("word ", 300) +
		"dev@example.com +1 555 123 4567\n- bullet 2022\n| col | col | col |\n"
	score, issues := scoreFormatting(doc)
	if score != 85 {
		t.Errorf("score = %d, want 85 after table penalty", score)
	}
	hasTableIssue := false
	for _, i := range issues {
		if strings.Contains(i, "Table-like") {
			hasTableIssue = true
		}
	}
	if !hasTableIssue {
		t.Error("expected a table layout issue")
	}
}

func TestOverallScoreWeighting(t *testing.T) {
	s := New(DefaultWeights(), testMatcher(), 25)
	b := types.ScoreBreakdown{
		KeywordMatch:        100,
		SectionCompleteness: 100,
		KeywordDensity:      100,
		ExperienceRelevance: 100,
		Formatting:          100,
	}
	if got := s.weighted(b); got != 100 {
		t.Errorf("weighted(all 100) = %d, want 100", got)
	}

	b = types.ScoreBreakdown{KeywordMatch: 50, SectionCompleteness: 80, KeywordDensity: 60, ExperienceRelevance: 40, Formatting: 90}
	// 50*0.4 + 80*0.15 + 60*0.15 + 40*0.15 + 90*0.15 = 20 + 12 + 9 + 6 + 13.5 = 60.5
	if got := s.weighted(b); got != 61 {
		t.Errorf("weighted(mixed) = %d, want 61", got)
	}
}

func TestScoreResultImmutableWeightsCopy(t *testing.T) {
	s := New(nil, testMatcher(), 25)
	result := s.Score(context.Background(), "text", types.TargetAnalysis{})
	result.Weights[WeightKeywordMatch] = 0.99

	second := s.Score(context.Background(), "text", types.TargetAnalysis{})
	if second.Weights[WeightKeywordMatch] != 0.40 {
		t.Error("mutating a returned weight map leaked into the scorer")
	}
}

func TestSuggestionsThresholds(t *testing.T) {
	result := types.ScoreResult{
		OverallScore: 40,
		Breakdown: types.ScoreBreakdown{
			KeywordMatch:        30,
			SectionCompleteness: 50,
			KeywordDensity:      40,
			ExperienceRelevance: 30,
		},
		MissingKeywords: []types.MissingKeyword{
			{Keyword: "Kubernetes", Importance: "high", Weight: 0.9},
			{Keyword: "Terraform", Importance: "medium", Weight: 0.5},
		},
		FormattingIssues: []string{"No email address found."},
	}

	got := Suggestions(result)

	wantSubstrings := []string{
		"CRITICAL",
		"Kubernetes",
		"missing key sections",
		"too infrequently",
		"don't align well",
		"Formatting: No email address found.",
		"Low relevance score",
	}
	joined := strings.ToLower(strings.Join(got, "\n"))
	for _, want := range wantSubstrings {
		if !strings.Contains(joined, strings.ToLower(want)) {
			t.Errorf("suggestions missing %q in:\n%s", want, strings.Join(got, "\n"))
		}
	}
}

func TestExperienceRelevanceCoversResponsibilities(t *testing.T) {
	analysis := keywords.AnalyzeTarget(
		"Platform Engineer\nYou will build scalable microservices in Go.\nYou will operate Kubernetes clusters in production.", 25)
	if len(analysis.Responsibilities) == 0 {
		t.Fatal("expected extracted responsibilities")
	}

	doc := "Experience\n- Built scalable microservices in Go serving 2M requests\n- Operated production Kubernetes clusters with 99.9% uptime"
	got := scoreExperienceRelevance(doc, analysis)
	if got != 100 {
		t.Errorf("experience relevance = %d, want 100 for full coverage", got)
	}

	unrelated := "Experience\n- Painted houses\n- Sold insurance"
	got = scoreExperienceRelevance(unrelated, analysis)
	if got != 0 {
		t.Errorf("experience relevance = %d, want 0 for no coverage", got)
	}
}
