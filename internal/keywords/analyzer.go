package keywords

import (
	"strings"

	"atsforge/internal/types"
)

// preferredMarkers introduce the nice-to-have portion of a job description.
// Keywords first occurring after such a marker are treated as preferred
// rather than required.
var preferredMarkers = []string{
	"nice to have",
	"nice-to-have",
	"preferred qualifications",
	"preferred:",
	"bonus points",
	"bonus:",
	"a plus",
}

// responsibilityVerbs mark sentences describing what the role does
var responsibilityVerbs = []string{
	"build", "design", "develop", "maintain", "lead", "implement",
	"collaborate", "own", "drive", "support", "deploy", "manage",
	"write", "review", "operate", "optimize", "deliver", "mentor",
	"architect", "automate", "monitor", "troubleshoot",
}

// AnalyzeTarget turns raw job-description text into the structured analysis
// the content selector consumes. Like Extract, it is deterministic: no
// external calls, no randomness.
func AnalyzeTarget(text string, maxKeywords int) types.TargetAnalysis {
	analysis := types.TargetAnalysis{RawText: text}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return analysis
	}

	analysis.Title = extractTitle(trimmed)
	analysis.Keywords = ExtractWeighted(text, maxKeywords)
	analysis.Responsibilities = extractResponsibilities(text)

	// Split skill-like keywords into required and preferred by where they
	// first appear relative to a preferred-section marker.
	lower := strings.ToLower(text)
	preferredFrom := len(lower)
	for _, marker := range preferredMarkers {
		if idx := strings.Index(lower, marker); idx >= 0 && idx < preferredFrom {
			preferredFrom = idx
		}
	}

	for _, kw := range analysis.Keywords {
		switch kw.Category {
		case types.CategoryHardSkill, types.CategoryTool, types.CategoryPractice, types.CategoryCertification:
		default:
			continue
		}
		pos := strings.Index(lower, strings.ToLower(kw.Canonical))
		if pos < 0 {
			pos = strings.Index(lower, strings.ToLower(kw.Text))
		}
		if pos >= preferredFrom {
			analysis.PreferredSkills = append(analysis.PreferredSkills, kw.Canonical)
		} else {
			analysis.RequiredSkills = append(analysis.RequiredSkills, kw.Canonical)
		}
	}

	return analysis
}

// extractTitle takes the first short non-empty line as the role title
func extractTitle(text string) string {
	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) <= 80 {
			return line
		}
		return ""
	}
	return ""
}

// extractResponsibilities collects sentences that read like duty statements
func extractResponsibilities(text string) []string {
	var out []string
	for _, raw := range splitSentences(text) {
		sentence := strings.TrimSpace(strings.TrimLeft(raw, "-*• \t"))
		if len(sentence) < 20 || len(sentence) > 300 {
			continue
		}
		if isResponsibility(sentence) {
			out = append(out, sentence)
		}
	}
	return out
}

// isResponsibility checks for duty markers or a leading action verb
func isResponsibility(sentence string) bool {
	lower := strings.ToLower(sentence)
	if strings.Contains(lower, "you will") || strings.Contains(lower, "responsib") {
		return true
	}
	first := lower
	if idx := strings.IndexAny(lower, " \t"); idx > 0 {
		first = lower[:idx]
	}
	first = strings.TrimSuffix(first, "ing")
	first = strings.TrimSuffix(first, "s")
	for _, verb := range responsibilityVerbs {
		if first == verb || first == strings.TrimSuffix(verb, "e") {
			return true
		}
	}
	return false
}

// splitSentences breaks text on sentence and line boundaries
func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '.' || r == ';' || r == '!' || r == '?'
	})
}
