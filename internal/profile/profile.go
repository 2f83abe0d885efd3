package profile

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"atsforge/internal/errors"
	"atsforge/internal/keywords"
	"atsforge/internal/types"
)

// Load reads and validates a candidate profile from a JSON file. The returned
// snapshot is treated as immutable for the rest of the invocation: selection
// and scoring read from it but never write back.
func Load(path string) (*types.CandidateProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				"profile file not found: "+path, err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			"failed to read profile file: "+path, err)
	}
	return Parse(data)
}

// Parse decodes and validates profile JSON
func Parse(data []byte) (*types.CandidateProfile, error) {
	var p types.CandidateProfile
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&p); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidProfile,
			"profile JSON is malformed", err)
	}
	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate enforces the structural minimum for a usable profile
func Validate(p *types.CandidateProfile) error {
	if strings.TrimSpace(p.PersonalInfo.Name) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidProfile,
			"profile personalInfo.name is required", nil)
	}
	if strings.TrimSpace(p.PersonalInfo.Email) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidProfile,
			"profile personalInfo.email is required", nil)
	}
	for i, exp := range p.Experience {
		if strings.TrimSpace(exp.Company) == "" || strings.TrimSpace(exp.Title) == "" {
			return errors.NewValidationError(errors.ErrCodeInvalidProfile,
				"experience entries require company and title", nil).
				WithContext("index", i)
		}
	}
	for i, s := range p.Skills {
		if strings.TrimSpace(s.Name) == "" {
			return errors.NewValidationError(errors.ErrCodeInvalidProfile,
				"skill entries require a name", nil).
				WithContext("index", i)
		}
	}
	for i, v := range p.Summaries {
		if strings.TrimSpace(v.Text) == "" {
			return errors.NewValidationError(errors.ErrCodeInvalidProfile,
				"summary variants require text", nil).
				WithContext("index", i)
		}
	}
	return nil
}

// EvidenceKeywords derives the canonical keyword set the profile actually
// provides evidence for: skill names, bullet tags, project tech stacks, and
// keywords extracted from bullet and summary text. The fabrication check
// rejects generated claims outside this set.
func EvidenceKeywords(p *types.CandidateProfile) map[string]bool {
	evidence := make(map[string]bool)
	add := func(term string) {
		canonical := strings.ToLower(keywords.Normalize(term))
		if canonical != "" {
			evidence[canonical] = true
		}
	}

	for _, s := range p.Skills {
		add(s.Name)
	}
	for _, exp := range p.Experience {
		for _, b := range exp.Bullets {
			for _, tag := range b.Tags {
				add(tag)
			}
			for _, kw := range keywords.Extract(b.Text, 50) {
				add(kw.Canonical)
			}
		}
	}
	for _, proj := range p.Projects {
		for _, tech := range proj.TechStack {
			add(tech)
		}
		for _, kw := range keywords.Extract(proj.Description, 50) {
			add(kw.Canonical)
		}
	}
	for _, v := range p.Summaries {
		for _, kw := range keywords.Extract(v.Text, 50) {
			add(kw.Canonical)
		}
	}
	for _, c := range p.Certifications {
		add(c.Name)
	}
	return evidence
}
