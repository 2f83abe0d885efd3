package keywords

import (
	"slices"
	"strings"
	"testing"
)

const sampleJD = `Senior Backend Engineer

We build payment infrastructure used by thousands of merchants.

Responsibilities:
- Design and maintain Go microservices handling payment flows
- You will collaborate with product engineers on API contracts

Requirements:
- 5 years of Python and Docker in production
- PostgreSQL schema design

Nice to have:
- Kubernetes operations
- Terraform modules`

func TestAnalyzeTargetEmpty(t *testing.T) {
	got := AnalyzeTarget("   \n", 25)
	if got.Title != "" || len(got.Keywords) != 0 || len(got.RequiredSkills) != 0 {
		t.Errorf("blank job description produced non-empty analysis: %+v", got)
	}
}

func TestAnalyzeTargetTitle(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"short first line", sampleJD, "Senior Backend Engineer"},
		{"long first line skipped", "We are a fast-growing company looking for a senior backend engineer to help us build our payment platform from scratch.\nRole details follow", ""},
		{"leading blank lines", "\n\nPlatform Engineer\nrest of posting", "Platform Engineer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AnalyzeTarget(tt.text, 25).Title; got != tt.want {
				t.Errorf("Title = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnalyzeTargetRequiredPreferredSplit(t *testing.T) {
	got := AnalyzeTarget(sampleJD, 25)

	for _, skill := range []string{"Python", "Docker", "PostgreSQL"} {
		if !slices.Contains(got.RequiredSkills, skill) {
			t.Errorf("RequiredSkills missing %q: %v", skill, got.RequiredSkills)
		}
		if slices.Contains(got.PreferredSkills, skill) {
			t.Errorf("%q listed as preferred: %v", skill, got.PreferredSkills)
		}
	}
	for _, skill := range []string{"Kubernetes", "Terraform"} {
		if !slices.Contains(got.PreferredSkills, skill) {
			t.Errorf("PreferredSkills missing %q: %v", skill, got.PreferredSkills)
		}
		if slices.Contains(got.RequiredSkills, skill) {
			t.Errorf("%q listed as required: %v", skill, got.RequiredSkills)
		}
	}
}

func TestAnalyzeTargetResponsibilities(t *testing.T) {
	got := AnalyzeTarget(sampleJD, 25)

	wantOne := func(substr string) {
		t.Helper()
		for _, r := range got.Responsibilities {
			if strings.Contains(strings.ToLower(r), strings.ToLower(substr)) {
				return
			}
		}
		t.Errorf("no responsibility containing %q in %v", substr, got.Responsibilities)
	}
	wantOne("Design and maintain Go microservices")
	wantOne("you will collaborate")

	for _, r := range got.Responsibilities {
		if strings.Contains(r, "5 years of Python") {
			t.Errorf("requirement line leaked into responsibilities: %q", r)
		}
	}
}

func TestIsResponsibility(t *testing.T) {
	tests := []struct {
		sentence string
		want     bool
	}{
		{"Build and operate the ingestion pipeline", true},
		{"Builds dashboards for on-call engineers", true},
		{"Architecting event-driven services at scale", true},
		{"You will own the release process end to end", true},
		{"Competitive salary and equity package", false},
		{"5 years of backend development", false},
	}
	for _, tt := range tests {
		if got := isResponsibility(tt.sentence); got != tt.want {
			t.Errorf("isResponsibility(%q) = %v, want %v", tt.sentence, got, tt.want)
		}
	}
}
