package profile

import (
	"os"
	"path/filepath"
	"testing"

	"atsforge/internal/types"
)

const validProfileJSON = `{
  "personalInfo": {"name": "Ada Park", "email": "ada@example.com", "phone": "+1 555 000 1111"},
  "summaries": [{"targetRole": "backend engineer", "text": "Backend engineer with Go and PostgreSQL experience."}],
  "skills": [
    {"name": "Go", "category": "language", "proficiency": "Expert", "lastUsed": "2026"},
    {"name": "k8s", "proficiency": "Advanced", "lastUsed": "2025"}
  ],
  "experience": [
    {
      "company": "Acme",
      "title": "Senior Engineer",
      "startDate": "2021-03",
      "bullets": [
        {"text": "Migrated services to Kubernetes, cutting deploy time by 60%", "tags": ["kubernetes", "ci/cd"]}
      ]
    }
  ],
  "projects": [
    {"name": "loadgen", "description": "Distributed load generator", "techStack": ["Go", "gRPC"]}
  ]
}`

func TestParseValidProfile(t *testing.T) {
	p, err := Parse([]byte(validProfileJSON))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.PersonalInfo.Name != "Ada Park" {
		t.Errorf("name = %q, want Ada Park", p.PersonalInfo.Name)
	}
	if len(p.Skills) != 2 || len(p.Experience) != 1 {
		t.Errorf("unexpected profile shape: %d skills, %d experience", len(p.Skills), len(p.Experience))
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"malformed", `{"personalInfo": `},
		{"unknown field", `{"personalInfo": {"name": "A", "email": "a@b.c"}, "nickname": "x"}`},
		{"missing name", `{"personalInfo": {"email": "a@b.c"}}`},
		{"missing email", `{"personalInfo": {"name": "A"}}`},
		{"experience without company", `{"personalInfo": {"name": "A", "email": "a@b.c"}, "experience": [{"title": "Dev"}]}`},
		{"empty summary variant", `{"personalInfo": {"name": "A", "email": "a@b.c"}, "summaries": [{"targetRole": "dev", "text": ""}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.json)); err == nil {
				t.Error("Parse() accepted invalid profile")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("Load() should fail for a missing file")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	if err := os.WriteFile(path, []byte(validProfileJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Experience[0].Company != "Acme" {
		t.Errorf("company = %q, want Acme", p.Experience[0].Company)
	}
}

func TestEvidenceKeywords(t *testing.T) {
	p, err := Parse([]byte(validProfileJSON))
	if err != nil {
		t.Fatal(err)
	}
	evidence := EvidenceKeywords(p)

	// Skill aliases fold onto canonical forms: "k8s" provides evidence for
	// kubernetes.
	for _, want := range []string{"go", "kubernetes", "grpc", "postgresql"} {
		if !evidence[want] {
			t.Errorf("evidence missing %q", want)
		}
	}
	if evidence["rust"] {
		t.Error("evidence should not contain skills the profile never mentions")
	}
}

func TestValidateDoesNotMutate(t *testing.T) {
	p := &types.CandidateProfile{
		PersonalInfo: types.PersonalInfo{Name: "A", Email: "a@b.c"},
		Skills:       []types.SkillEntry{{Name: "Go"}},
	}
	if err := Validate(p); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if p.Skills[0].Name != "Go" {
		t.Error("Validate must not mutate the profile")
	}
}
