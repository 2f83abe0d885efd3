package scorer

import (
	"fmt"
	"strings"

	"atsforge/internal/types"
)

// Suggestions derives mechanical improvement recommendations from a score
// result. Suggestions only flag gaps; acting on them is the content
// selector's job, which works from the verified profile and therefore cannot
// fabricate.
func Suggestions(result types.ScoreResult) []string {
	var out []string
	b := result.Breakdown

	if b.KeywordMatch < 60 {
		if names := missingByImportance(result.MissingKeywords, "high", 5); len(names) > 0 {
			out = append(out, fmt.Sprintf("CRITICAL: Add these missing high-priority keywords: %s", strings.Join(names, ", ")))
		}
		if names := missingByImportance(result.MissingKeywords, "medium", 5); len(names) > 0 {
			out = append(out, fmt.Sprintf("Add these missing keywords if applicable: %s", strings.Join(names, ", ")))
		}
	} else if b.KeywordMatch < 80 {
		if names := missingNames(result.MissingKeywords, 5); len(names) > 0 {
			out = append(out, fmt.Sprintf("Consider adding: %s to improve keyword match.", strings.Join(names, ", ")))
		}
	}

	if b.SectionCompleteness < 70 {
		out = append(out, "Missing key sections. Ensure the document has Professional Summary, Experience, Education, and Skills sections.")
	} else if b.SectionCompleteness < 100 {
		out = append(out, "Consider adding Certifications or Projects sections if applicable.")
	}

	if b.KeywordDensity < 50 {
		out = append(out, "Keywords appear too infrequently. Naturally weave them into experience bullet points and the summary.")
	} else if b.KeywordDensity < 70 {
		out = append(out, "Increase keyword usage by incorporating relevant terms into experience descriptions and achievements.")
	}

	if b.ExperienceRelevance < 50 {
		out = append(out, "Experience bullets don't align well with the job description. Rephrase bullets to highlight relevant achievements and technologies.")
	} else if b.ExperienceRelevance < 70 {
		out = append(out, "Improve experience relevance by adding metrics and using action verbs that match the responsibilities.")
	}

	for _, issue := range result.FormattingIssues {
		out = append(out, "Formatting: "+issue)
	}

	switch {
	case result.OverallScore >= 80:
		out = append(out, "Good relevance score. Minor tweaks can push it even higher.")
	case result.OverallScore >= 60:
		out = append(out, "Moderate relevance score. Focus on adding missing keywords and rephrasing experience bullets.")
	default:
		out = append(out, "Low relevance score. The document needs significant keyword additions and structural improvements.")
	}

	return out
}

func missingByImportance(missing []types.MissingKeyword, importance string, limit int) []string {
	var names []string
	for _, m := range missing {
		if m.Importance == importance {
			names = append(names, m.Keyword)
			if len(names) == limit {
				break
			}
		}
	}
	return names
}

func missingNames(missing []types.MissingKeyword, limit int) []string {
	var names []string
	for _, m := range missing {
		names = append(names, m.Keyword)
		if len(names) == limit {
			break
		}
	}
	return names
}
