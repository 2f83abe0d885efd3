package selector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"atsforge/internal/keywords"
	"atsforge/internal/types"
)

func testProfile() *types.CandidateProfile {
	return &types.CandidateProfile{
		PersonalInfo: types.PersonalInfo{Name: "Ada Park", Email: "ada@example.com", Phone: "+1 555 000 1111"},
		Summaries: []types.SummaryVariant{
			{TargetRole: "backend engineer", Text: "Backend engineer focused on Go services and PostgreSQL."},
			{TargetRole: "data engineer", Text: "Data engineer building Python pipelines."},
		},
		Skills: []types.SkillEntry{
			{Name: "Go", Proficiency: "Expert", LastUsed: "2026"},
			{Name: "Python", Proficiency: "Advanced", LastUsed: "2024"},
			{Name: "Kubernetes", Proficiency: "Advanced", LastUsed: "2026"},
			{Name: "Figma", Proficiency: "Intermediate", LastUsed: "2021"},
			{Name: "PostgreSQL", Proficiency: "Expert", LastUsed: "2025"},
		},
		Experience: []types.ExperienceEntry{
			{
				Company: "Acme", Title: "Senior Engineer", StartDate: "2022-01",
				Bullets: []types.Bullet{
					{Text: "Migrated 40 services to Kubernetes", Tags: []string{"kubernetes"}},
					{Text: "Built Go microservices handling 2M rps", Tags: []string{"go"}},
					{Text: "Tuned PostgreSQL queries cutting p99 by 70%", Tags: []string{"postgresql"}},
					{Text: "Organized the office book club", Tags: []string{"culture"}},
					{Text: "Automated Kubernetes upgrades", Tags: []string{"kubernetes"}},
					{Text: "Hardened Kubernetes network policies", Tags: []string{"kubernetes"}},
				},
			},
			{
				Company: "Initech", Title: "Engineer", StartDate: "2019-05", EndDate: "2021-12",
				Bullets: []types.Bullet{
					{Text: "Built internal dashboards in React", Tags: []string{"react"}},
					{Text: "Wrote Go CLI tooling for deployments", Tags: []string{"go"}},
				},
			},
		},
		Projects: []types.Project{
			{Name: "loadgen", Description: "Distributed load generator in Go", TechStack: []string{"Go", "gRPC"}},
			{Name: "gallery", Description: "Photo gallery web app", TechStack: []string{"PHP"}},
		},
		Education: []types.EducationEntry{{Institution: "State University", Degree: "BSc", Field: "CS", Year: "2018"}},
	}
}

func backendAnalysis() types.TargetAnalysis {
	jd := "Backend Engineer\nWe need Golang and Kubernetes expertise.\nYou will build Golang microservices.\nYou will operate Kubernetes clusters.\nNice to have: Python."
	return keywords.AnalyzeTarget(jd, 25)
}

func TestSelectSkillsRankingAndCap(t *testing.T) {
	s := New(Options{
		MaxSkills: 3, MaxBulletsRecentRole: 5, MaxBulletsOlderRole: 3,
		MaxProjects: 2, ProjectFloor: 1, DiversityFraction: 0.5, FuzzyThreshold: 85,
	}, nil, nil)

	result := s.Select(context.Background(), testProfile(), backendAnalysis(), nil)

	if len(result.Skills) != 3 {
		t.Fatalf("got %d skills, want capped at 3", len(result.Skills))
	}
	// Go and Kubernetes are required matches and must outrank Figma; Python is
	// preferred and backfills.
	for _, unwanted := range []string{"Figma"} {
		for _, got := range result.Skills {
			if got == unwanted {
				t.Errorf("unrelated skill %q selected over matches", unwanted)
			}
		}
	}
	if result.Skills[0] != "Go" {
		t.Errorf("top skill = %q, want Go (required match, Expert)", result.Skills[0])
	}
}

func TestSelectExperienceBudgetsAndDiversity(t *testing.T) {
	s := New(Options{
		MaxSkills: 15, MaxBulletsRecentRole: 4, MaxBulletsOlderRole: 2,
		MaxProjects: 2, ProjectFloor: 1, DiversityFraction: 0.34, FuzzyThreshold: 85,
	}, nil, nil)

	result := s.Select(context.Background(), testProfile(), backendAnalysis(), nil)

	if len(result.Experience) != 2 {
		t.Fatalf("got %d roles, want 2", len(result.Experience))
	}
	recent := result.Experience[0]
	if len(recent.Bullets) > 4 {
		t.Errorf("recent role has %d bullets, want <= 4", len(recent.Bullets))
	}
	if len(result.Experience[1].Bullets) > 2 {
		t.Errorf("older role has %d bullets, want <= 2", len(result.Experience[1].Bullets))
	}

	// Diversity cap: planned = 4 + 2 = 6 bullets, fraction 0.34 → at most 2
	// bullets may share the kubernetes dominant tag.
	kube := 0
	for _, exp := range result.Experience {
		for _, b := range exp.Bullets {
			if len(b.Tags) > 0 && b.Tags[0] == "kubernetes" {
				kube++
			}
		}
	}
	if kube > 2 {
		t.Errorf("%d kubernetes-dominant bullets selected, want <= 2", kube)
	}
}

func TestSelectBulletsPreferRelevant(t *testing.T) {
	s := New(DefaultOptions(), nil, nil)
	result := s.Select(context.Background(), testProfile(), backendAnalysis(), nil)

	for _, b := range result.Experience[0].Bullets {
		if strings.Contains(b.Text, "book club") {
			t.Error("irrelevant bullet selected while budget excludes it")
		}
	}
}

func TestSelectProjectsFloor(t *testing.T) {
	s := New(DefaultOptions(), nil, nil)
	result := s.Select(context.Background(), testProfile(), backendAnalysis(), nil)

	if len(result.Projects) != 1 {
		t.Fatalf("got %d projects, want 1 above the floor", len(result.Projects))
	}
	if result.Projects[0].Name != "loadgen" {
		t.Errorf("project = %q, want loadgen", result.Projects[0].Name)
	}

	// A target with no overlapping tech clears nothing: section omitted.
	unrelated := keywords.AnalyzeTarget("Florist\nYou will arrange flowers.", 25)
	result = s.Select(context.Background(), testProfile(), unrelated, nil)
	if len(result.Projects) != 0 {
		t.Errorf("got %d projects for unrelated target, want omitted section", len(result.Projects))
	}
}

func TestSelectSummaryFromProfileVariant(t *testing.T) {
	s := New(DefaultOptions(), nil, nil)
	result := s.Select(context.Background(), testProfile(), backendAnalysis(), nil)

	if result.SummarySource != "profile" {
		t.Fatalf("summary source = %q, want profile", result.SummarySource)
	}
	if !strings.Contains(result.Summary, "Backend engineer") {
		t.Errorf("summary = %q, want the backend variant", result.Summary)
	}
}

type stubRewriter struct {
	result RewriteResult
	err    error
	called bool
	input  RewriteInput
}

func (r *stubRewriter) RewriteSummary(_ context.Context, input RewriteInput) (RewriteResult, error) {
	r.called = true
	r.input = input
	return r.result, r.err
}

// An analysis whose title matches no summary variant forces the rewrite path.
func noVariantAnalysis() types.TargetAnalysis {
	return keywords.AnalyzeTarget("Site Reliability Rockstar\nYou will operate Kubernetes clusters at scale.", 25)
}

func TestSelectSummaryRewriteAccepted(t *testing.T) {
	rw := &stubRewriter{result: RewriteResult{
		Text:       "Engineer with deep Kubernetes and Go experience running production systems.",
		Confidence: "high",
	}}
	s := New(DefaultOptions(), rw, nil)

	result := s.Select(context.Background(), testProfile(), noVariantAnalysis(), nil)

	if !rw.called {
		t.Fatal("rewriter was not invoked")
	}
	if result.SummarySource != "rewritten" {
		t.Fatalf("summary source = %q, want rewritten", result.SummarySource)
	}
	if len(rw.input.Facts) == 0 {
		t.Error("rewrite input carried no profile facts")
	}
}

func TestSelectSummaryRewriteFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		result RewriteResult
		err    error
	}{
		{"capability error", RewriteResult{}, errors.New("timeout")},
		{"unknown confidence", RewriteResult{Text: "some text", Confidence: "unknown"}, nil},
		{"empty text", RewriteResult{Text: "   ", Confidence: "high"}, nil},
		{"fabricated claim", RewriteResult{
			Text:       "Expert in Rust and Terraform infrastructure.",
			Confidence: "high",
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rw := &stubRewriter{result: tt.result, err: tt.err}
			s := New(DefaultOptions(), rw, nil)

			result := s.Select(context.Background(), testProfile(), noVariantAnalysis(), nil)

			if result.SummarySource != "fallback" {
				t.Errorf("summary source = %q, want fallback", result.SummarySource)
			}
			if result.Summary == "" {
				t.Error("fallback summary should use the first profile variant")
			}
		})
	}
}

func TestSelectNoSummariesOmitsSection(t *testing.T) {
	prof := testProfile()
	prof.Summaries = nil
	s := New(DefaultOptions(), nil, nil)

	result := s.Select(context.Background(), prof, backendAnalysis(), nil)

	if result.Summary != "" || result.SummarySource != "" {
		t.Errorf("summary = %q/%q, want omitted", result.Summary, result.SummarySource)
	}
}

func TestSelectBiasKeywordsPromote(t *testing.T) {
	s := New(Options{
		MaxSkills: 2, MaxBulletsRecentRole: 5, MaxBulletsOlderRole: 3,
		MaxProjects: 2, ProjectFloor: 1, DiversityFraction: 1.0, FuzzyThreshold: 85,
	}, nil, nil)

	// Without bias, Figma never makes a 2-slot cut. Feeding it back as a
	// missing keyword promotes it to a required match.
	result := s.Select(context.Background(), testProfile(), backendAnalysis(), []string{"Figma"})

	found := false
	for _, skill := range result.Skills {
		if skill == "Figma" {
			found = true
		}
	}
	if !found {
		t.Errorf("bias keyword not promoted, skills = %v", result.Skills)
	}
}

func TestSelectNeverFabricates(t *testing.T) {
	prof := testProfile()
	s := New(DefaultOptions(), nil, nil)
	result := s.Select(context.Background(), prof, backendAnalysis(), nil)

	sourceTexts := map[string]bool{}
	for _, exp := range prof.Experience {
		for _, b := range exp.Bullets {
			sourceTexts[b.Text] = true
		}
	}
	for _, exp := range result.Experience {
		for _, b := range exp.Bullets {
			if !sourceTexts[b.Text] {
				t.Errorf("selected bullet %q not present in profile", b.Text)
			}
		}
	}

	sourceSkills := map[string]bool{}
	for _, sk := range prof.Skills {
		sourceSkills[sk.Name] = true
	}
	for _, name := range result.Skills {
		if !sourceSkills[name] {
			t.Errorf("selected skill %q not present in profile", name)
		}
	}
}

func TestAssembleDocument(t *testing.T) {
	s := New(DefaultOptions(), nil, nil)
	sel := s.Select(context.Background(), testProfile(), backendAnalysis(), nil)

	doc := Assemble(sel)

	for _, want := range []string{
		"Ada Park",
		"ada@example.com",
		"PROFESSIONAL SUMMARY",
		"SKILLS",
		"EXPERIENCE",
		"Senior Engineer - Acme",
		"2022-01 - Present",
		"EDUCATION",
		"PROJECTS",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("assembled document missing %q", want)
		}
	}
	if strings.Contains(doc, "CERTIFICATIONS") {
		t.Error("empty certifications section must be omitted")
	}
	if strings.Contains(doc, "\t") {
		t.Error("assembled document must not contain tabs")
	}
}

func TestAssembleOmitsEmptySections(t *testing.T) {
	sel := types.SelectionResult{
		PersonalInfo: types.PersonalInfo{Name: "Ada Park", Email: "ada@example.com"},
	}
	doc := Assemble(sel)
	for _, header := range []string{"PROFESSIONAL SUMMARY", "SKILLS", "EXPERIENCE", "PROJECTS", "EDUCATION", "CERTIFICATIONS"} {
		if strings.Contains(doc, header) {
			t.Errorf("empty section %q rendered", header)
		}
	}
}
