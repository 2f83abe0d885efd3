package keywords

import (
	"reflect"
	"strings"
	"testing"

	"atsforge/internal/types"
)

func canonicalSet(kws []types.Keyword) map[string]types.Keyword {
	out := make(map[string]types.Keyword, len(kws))
	for _, kw := range kws {
		out[kw.Canonical] = kw
	}
	return out
}

func TestExtractEmptyInput(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t  "},
		{"stop words only", "the and with for about during"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.text, 25); len(got) != 0 {
				t.Errorf("Extract(%q) = %v, want empty", tt.text, got)
			}
		})
	}
}

func TestExtractFoldsAliases(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		canonical string
		frequency int
	}{
		{"acronym and full form", "ML pipelines built on machine learning models", "Machine Learning", 2},
		{"k8s and kubernetes", "Deploy to k8s; manage Kubernetes clusters", "Kubernetes", 2},
		{"postgres variants", "postgres tuning and PostgreSQL replication", "PostgreSQL", 2},
		{"cicd separators", "ci/cd pipelines and cicd tooling", "CI/CD", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := canonicalSet(Extract(tt.text, 25))
			kw, ok := got[tt.canonical]
			if !ok {
				t.Fatalf("Extract(%q) missing canonical %q, got %v", tt.text, tt.canonical, got)
			}
			if kw.Frequency != tt.frequency {
				t.Errorf("canonical %q frequency = %d, want %d", tt.canonical, kw.Frequency, tt.frequency)
			}
		})
	}
}

func TestExtractMultiWordPhrases(t *testing.T) {
	got := canonicalSet(Extract("Experience with Spring Boot services and the spring framework", 25))

	boot, ok := got["Spring Boot"]
	if !ok {
		t.Fatalf("expected Spring Boot as a single keyword, got %v", got)
	}
	if boot.Text != "Spring Boot" {
		t.Errorf("Spring Boot surface = %q, want original casing preserved", boot.Text)
	}
	if _, ok := got["Spring"]; !ok {
		t.Errorf("standalone spring mention should still yield Spring, got %v", got)
	}
	// the phrase consumes its words: no stray "boot" unigram
	if _, ok := got["boot"]; ok {
		t.Errorf("phrase words leaked as unigrams: %v", got)
	}
}

func TestExtractDeterministic(t *testing.T) {
	text := "Go services on Kubernetes with PostgreSQL, Redis caching, Kafka streams, and Go tooling"
	first := Extract(text, 25)
	for range 5 {
		if again := Extract(text, 25); !reflect.DeepEqual(first, again) {
			t.Fatalf("Extract is not deterministic:\nfirst = %v\nagain = %v", first, again)
		}
	}
}

func TestExtractOrdering(t *testing.T) {
	text := "docker docker docker kubernetes terraform terraform"
	got := Extract(text, 25)
	if len(got) != 3 {
		t.Fatalf("Extract returned %d keywords, want 3: %v", len(got), got)
	}
	want := []string{"Docker", "Terraform", "Kubernetes"}
	for i, canonical := range want {
		if got[i].Canonical != canonical {
			t.Errorf("position %d = %q, want %q (frequency then first occurrence)", i, got[i].Canonical, canonical)
		}
	}
}

func TestExtractRespectsMax(t *testing.T) {
	text := "python go docker kubernetes terraform ansible redis kafka"
	if got := Extract(text, 3); len(got) != 3 {
		t.Errorf("Extract with max 3 returned %d keywords: %v", len(got), got)
	}
}

func TestExtractCaseFoldChangesByteLength(t *testing.T) {
	// "Ⱥ" (U+023A) encodes in 2 bytes, its lowercase "ⱥ" (U+2C65) in 3, so
	// positions in the folded text drift from the original.
	tests := []struct {
		name      string
		text      string
		canonical string
		surface   string
	}{
		{"phrase after drift", strings.Repeat("Ⱥ", 16) + " engineer ci/cd", "CI/CD", "ci/cd"},
		{"token after drift", strings.Repeat("Ⱥ", 16) + " docker", "Docker", "docker"},
		{"token before drift", "docker " + strings.Repeat("Ⱥ", 16), "Docker", "docker"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := canonicalSet(Extract(tt.text, 25))
			kw, ok := got[tt.canonical]
			if !ok {
				t.Fatalf("Extract(%q) missing %q: %v", tt.text, tt.canonical, got)
			}
			if kw.Text != tt.surface {
				t.Errorf("surface = %q, want %q", kw.Text, tt.surface)
			}
		})
	}
}

func TestFoldWithOffsets(t *testing.T) {
	text := "Ⱥ Docker"
	lower, orig := foldWithOffsets(text)
	if lower != strings.ToLower(text) {
		t.Fatalf("folded text = %q, want %q", lower, strings.ToLower(text))
	}
	if len(orig) != len(lower)+1 {
		t.Fatalf("offset map length = %d, want %d", len(orig), len(lower)+1)
	}
	pos := strings.Index(lower, "docker")
	if got := text[orig[pos]:orig[pos+len("docker")]]; got != "Docker" {
		t.Errorf("mapped surface = %q, want %q", got, "Docker")
	}
	if orig[len(lower)] != len(text) {
		t.Errorf("final offset = %d, want %d", orig[len(lower)], len(text))
	}
}

func TestExtractWeighted(t *testing.T) {
	text := "Kubernetes Kubernetes Kubernetes deployment pipelines.\n" +
		strings.Repeat("plenty of unrelated narrative prose describing the wider org. ", 4) +
		"Grafana"
	byCanonical := make(map[string]types.ScoredKeyword)
	for _, kw := range ExtractWeighted(text, 25) {
		byCanonical[kw.Canonical] = kw
	}

	k8s, ok := byCanonical["Kubernetes"]
	if !ok {
		t.Fatalf("missing Kubernetes in %v", byCanonical)
	}
	if k8s.Importance != "high" {
		t.Errorf("early frequent keyword importance = %q (weight %.2f), want high", k8s.Importance, k8s.Weight)
	}

	grafana, ok := byCanonical["Grafana"]
	if !ok {
		t.Fatalf("missing Grafana in %v", byCanonical)
	}
	if grafana.Importance != "low" {
		t.Errorf("late single mention importance = %q (weight %.2f), want low", grafana.Importance, grafana.Weight)
	}
	if grafana.Weight >= k8s.Weight {
		t.Errorf("weights not ordered: grafana %.2f >= kubernetes %.2f", grafana.Weight, k8s.Weight)
	}
}

func TestExtractWeightedEmpty(t *testing.T) {
	if got := ExtractWeighted("  ", 25); got != nil {
		t.Errorf("ExtractWeighted on blank input = %v, want nil", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  golang  ", "Go"},
		{"K8S", "Kubernetes"},
		{"Quarkus", "Quarkus"},
		{"node.js", "Node.js"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
