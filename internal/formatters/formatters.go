package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"atsforge/internal/errors"
	"atsforge/internal/gate"
	"atsforge/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> dataType -> formatter
}

// NewFormatterRegistry creates a new formatter registry
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	// Register default formatters
	registry.Register("json", "any", &JSONFormatter{})
	registry.Register("text", "score", &ScoreTextFormatter{})
	registry.Register("text", "analysis", &AnalysisTextFormatter{})
	registry.Register("text", "outcome", &OutcomeTextFormatter{})
	registry.Register("text", "batch", &BatchTextFormatter{})
	registry.Register("markdown", "score", &ScoreMarkdownFormatter{})
	registry.Register("markdown", "analysis", &AnalysisMarkdownFormatter{})
	registry.Register("markdown", "outcome", &OutcomeMarkdownFormatter{})
	registry.Register("markdown", "batch", &BatchMarkdownFormatter{})

	return registry
}

// Register adds a formatter for a specific format and data type
func (r *FormatterRegistry) Register(format, dataType string, formatter Formatter) {
	if r.formatters[format] == nil {
		r.formatters[format] = make(map[string]Formatter)
	}
	r.formatters[format][dataType] = formatter
}

// Format formats data using the specified format
func (r *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	formatters, exists := r.formatters[format]
	if !exists {
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Unsupported format: %s", format), nil)
	}

	formatter, exists := formatters[dataType]
	if !exists {
		// Try the "any" formatter as fallback
		if anyFormatter, anyExists := formatters["any"]; anyExists {
			formatter = anyFormatter
		} else {
			return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
				fmt.Sprintf("No formatter available for %s format with %s data", format, dataType), nil)
		}
	}

	return formatter.Format(data)
}

// getDataType determines the data type for formatter selection
func getDataType(data any) string {
	switch data.(type) {
	case *types.ScoreResult, types.ScoreResult:
		return "score"
	case *types.TargetAnalysis, types.TargetAnalysis:
		return "analysis"
	case *types.GateOutcome, types.GateOutcome:
		return "outcome"
	case []gate.BatchResult:
		return "batch"
	default:
		return "unknown"
	}
}

// JSONFormatter formats any data as JSON
type JSONFormatter struct{}

func (f *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", errors.NewInternalError(errors.ErrCodeInternal, "Failed to marshal data to JSON", err)
	}
	return string(jsonData), nil
}

func (f *JSONFormatter) SupportedType() string {
	return "any"
}

// ScoreTextFormatter formats a score result as plain text
type ScoreTextFormatter struct{}

func (f *ScoreTextFormatter) Format(data any) (string, error) {
	result, err := toScoreResult(data)
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	sb.WriteString("=== RELEVANCE SCORE ===\n\n")
	sb.WriteString(fmt.Sprintf("Overall Score: %d/100\n\n", result.OverallScore))

	sb.WriteString("=== BREAKDOWN ===\n\n")
	writeBreakdownText(&sb, result)

	if len(result.MatchedKeywords) > 0 {
		sb.WriteString("\n=== MATCHED KEYWORDS ===\n\n")
		sb.WriteString(strings.Join(result.MatchedKeywords, ", "))
		sb.WriteString("\n")
	}

	if len(result.MissingKeywords) > 0 {
		sb.WriteString("\n=== MISSING KEYWORDS ===\n\n")
		for _, kw := range result.MissingKeywords {
			sb.WriteString(fmt.Sprintf("- %s (%s, %s importance)\n", kw.Keyword, kw.Category, kw.Importance))
		}
	}

	if len(result.FormattingIssues) > 0 {
		sb.WriteString("\n=== FORMATTING ISSUES ===\n\n")
		for _, issue := range result.FormattingIssues {
			sb.WriteString(fmt.Sprintf("- %s\n", issue))
		}
	}

	if len(result.Suggestions) > 0 {
		sb.WriteString("\n=== SUGGESTIONS ===\n\n")
		for i, s := range result.Suggestions {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, s))
		}
	}

	if len(result.Notes) > 0 {
		sb.WriteString("\n=== NOTES ===\n\n")
		for _, n := range result.Notes {
			sb.WriteString(fmt.Sprintf("- %s\n", n))
		}
	}

	return sb.String(), nil
}

func (f *ScoreTextFormatter) SupportedType() string {
	return "score"
}

// ScoreMarkdownFormatter formats a score result as Markdown
type ScoreMarkdownFormatter struct{}

func (f *ScoreMarkdownFormatter) Format(data any) (string, error) {
	result, err := toScoreResult(data)
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	sb.WriteString("# Relevance Score\n\n")
	sb.WriteString(fmt.Sprintf("**Overall Score:** %d/100\n\n", result.OverallScore))

	sb.WriteString("## Breakdown\n\n")
	sb.WriteString("| Component | Score | Weight |\n")
	sb.WriteString("|-----------|-------|--------|\n")
	for _, row := range breakdownRows(result) {
		sb.WriteString(fmt.Sprintf("| %s | %d | %.0f%% |\n", row.label, row.score, row.weight*100))
	}
	sb.WriteString("\n")

	if len(result.MatchedKeywords) > 0 {
		sb.WriteString("## Matched Keywords\n\n")
		sb.WriteString(strings.Join(result.MatchedKeywords, ", "))
		sb.WriteString("\n\n")
	}

	if len(result.MissingKeywords) > 0 {
		sb.WriteString("## Missing Keywords\n\n")
		for _, kw := range result.MissingKeywords {
			sb.WriteString(fmt.Sprintf("- **%s** (%s, %s importance)\n", kw.Keyword, kw.Category, kw.Importance))
		}
		sb.WriteString("\n")
	}

	if len(result.FormattingIssues) > 0 {
		sb.WriteString("## Formatting Issues\n\n")
		for _, issue := range result.FormattingIssues {
			sb.WriteString(fmt.Sprintf("- %s\n", issue))
		}
		sb.WriteString("\n")
	}

	if len(result.Suggestions) > 0 {
		sb.WriteString("## Suggestions\n\n")
		for i, s := range result.Suggestions {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, s))
		}
		sb.WriteString("\n")
	}

	if len(result.Notes) > 0 {
		sb.WriteString("## Notes\n\n")
		for _, n := range result.Notes {
			sb.WriteString(fmt.Sprintf("- %s\n", n))
		}
	}

	return sb.String(), nil
}

func (f *ScoreMarkdownFormatter) SupportedType() string {
	return "score"
}

// AnalysisTextFormatter formats a target analysis as plain text
type AnalysisTextFormatter struct{}

func (f *AnalysisTextFormatter) Format(data any) (string, error) {
	analysis, err := toTargetAnalysis(data)
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	sb.WriteString("=== TARGET ANALYSIS ===\n\n")
	if analysis.Title != "" {
		sb.WriteString(fmt.Sprintf("Title: %s\n\n", analysis.Title))
	}

	sb.WriteString("=== KEYWORDS ===\n\n")
	for _, kw := range analysis.Keywords {
		sb.WriteString(fmt.Sprintf("- %s (%s, %s importance, weight %.2f)\n",
			kw.Text, kw.Category, kw.Importance, kw.Weight))
	}

	if len(analysis.RequiredSkills) > 0 {
		sb.WriteString("\n=== REQUIRED SKILLS ===\n\n")
		for _, skill := range analysis.RequiredSkills {
			sb.WriteString(fmt.Sprintf("- %s\n", skill))
		}
	}

	if len(analysis.PreferredSkills) > 0 {
		sb.WriteString("\n=== PREFERRED SKILLS ===\n\n")
		for _, skill := range analysis.PreferredSkills {
			sb.WriteString(fmt.Sprintf("- %s\n", skill))
		}
	}

	if len(analysis.Responsibilities) > 0 {
		sb.WriteString("\n=== RESPONSIBILITIES ===\n\n")
		for _, resp := range analysis.Responsibilities {
			sb.WriteString(fmt.Sprintf("- %s\n", resp))
		}
	}

	return sb.String(), nil
}

func (f *AnalysisTextFormatter) SupportedType() string {
	return "analysis"
}

// AnalysisMarkdownFormatter formats a target analysis as Markdown
type AnalysisMarkdownFormatter struct{}

func (f *AnalysisMarkdownFormatter) Format(data any) (string, error) {
	analysis, err := toTargetAnalysis(data)
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	sb.WriteString("# Target Analysis\n\n")
	if analysis.Title != "" {
		sb.WriteString(fmt.Sprintf("**Title:** %s\n\n", analysis.Title))
	}

	sb.WriteString("## Keywords\n\n")
	sb.WriteString("| Keyword | Category | Importance | Weight |\n")
	sb.WriteString("|---------|----------|------------|--------|\n")
	for _, kw := range analysis.Keywords {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.2f |\n",
			kw.Text, kw.Category, kw.Importance, kw.Weight))
	}
	sb.WriteString("\n")

	if len(analysis.RequiredSkills) > 0 {
		sb.WriteString("## Required Skills\n\n")
		for _, skill := range analysis.RequiredSkills {
			sb.WriteString(fmt.Sprintf("- %s\n", skill))
		}
		sb.WriteString("\n")
	}

	if len(analysis.PreferredSkills) > 0 {
		sb.WriteString("## Preferred Skills\n\n")
		for _, skill := range analysis.PreferredSkills {
			sb.WriteString(fmt.Sprintf("- %s\n", skill))
		}
		sb.WriteString("\n")
	}

	if len(analysis.Responsibilities) > 0 {
		sb.WriteString("## Responsibilities\n\n")
		for _, resp := range analysis.Responsibilities {
			sb.WriteString(fmt.Sprintf("- %s\n", resp))
		}
	}

	return sb.String(), nil
}

func (f *AnalysisMarkdownFormatter) SupportedType() string {
	return "analysis"
}

// OutcomeTextFormatter formats a gate outcome as plain text
type OutcomeTextFormatter struct{}

func (f *OutcomeTextFormatter) Format(data any) (string, error) {
	outcome, err := toGateOutcome(data)
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	sb.WriteString("=== GENERATION OUTCOME ===\n\n")
	sb.WriteString(fmt.Sprintf("State: %s\n", outcome.State))
	sb.WriteString(fmt.Sprintf("Final Score: %d/100\n", outcome.FinalScore()))
	sb.WriteString(fmt.Sprintf("Attempts: %d\n", len(outcome.Attempts)))
	if outcome.FromCache {
		sb.WriteString("Served from cache\n")
	}

	sb.WriteString("\n=== ATTEMPT HISTORY ===\n\n")
	for _, attempt := range outcome.Attempts {
		status := "retry"
		if attempt.Passed {
			status = "passed"
		}
		sb.WriteString(fmt.Sprintf("Attempt %d: %d/100 (%s)\n",
			attempt.Number, attempt.Score.OverallScore, status))
		for _, note := range attempt.Notes {
			sb.WriteString(fmt.Sprintf("  - %s\n", note))
		}
	}

	if outcome.State == types.StateEscalated {
		sb.WriteString("\n=== ESCALATION ===\n\n")
		sb.WriteString("The score threshold was not reached within the retry budget.\n")
		sb.WriteString("Manual review required. Top missing keywords:\n")
		if n := len(outcome.Attempts); n > 0 {
			for _, kw := range outcome.Attempts[n-1].Score.MissingKeywords {
				sb.WriteString(fmt.Sprintf("- %s\n", kw.Keyword))
			}
		}
	}

	if outcome.Document != "" {
		sb.WriteString("\n=== DOCUMENT ===\n\n")
		sb.WriteString(outcome.Document)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

func (f *OutcomeTextFormatter) SupportedType() string {
	return "outcome"
}

// OutcomeMarkdownFormatter formats a gate outcome as Markdown
type OutcomeMarkdownFormatter struct{}

func (f *OutcomeMarkdownFormatter) Format(data any) (string, error) {
	outcome, err := toGateOutcome(data)
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	sb.WriteString("# Generation Outcome\n\n")
	sb.WriteString(fmt.Sprintf("**State:** %s\n", outcome.State))
	sb.WriteString(fmt.Sprintf("**Final Score:** %d/100\n", outcome.FinalScore()))
	sb.WriteString(fmt.Sprintf("**Attempts:** %d\n", len(outcome.Attempts)))
	if outcome.FromCache {
		sb.WriteString("**Served from cache**\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Attempt History\n\n")
	sb.WriteString("| Attempt | Score | Result |\n")
	sb.WriteString("|---------|-------|--------|\n")
	for _, attempt := range outcome.Attempts {
		status := "retry"
		if attempt.Passed {
			status = "passed"
		}
		sb.WriteString(fmt.Sprintf("| %d | %d/100 | %s |\n",
			attempt.Number, attempt.Score.OverallScore, status))
	}
	sb.WriteString("\n")

	if outcome.State == types.StateEscalated {
		sb.WriteString("## Escalation\n\n")
		sb.WriteString("The score threshold was not reached within the retry budget. Manual review required.\n\n")
		if n := len(outcome.Attempts); n > 0 && len(outcome.Attempts[n-1].Score.MissingKeywords) > 0 {
			sb.WriteString("Top missing keywords:\n\n")
			for _, kw := range outcome.Attempts[n-1].Score.MissingKeywords {
				sb.WriteString(fmt.Sprintf("- **%s**\n", kw.Keyword))
			}
			sb.WriteString("\n")
		}
	}

	if outcome.Document != "" {
		sb.WriteString("## Document\n\n")
		sb.WriteString("```\n")
		sb.WriteString(outcome.Document)
		sb.WriteString("\n```\n")
	}

	return sb.String(), nil
}

func (f *OutcomeMarkdownFormatter) SupportedType() string {
	return "outcome"
}

// BatchTextFormatter formats batch results as plain text
type BatchTextFormatter struct{}

func (f *BatchTextFormatter) Format(data any) (string, error) {
	results, ok := data.([]gate.BatchResult)
	if !ok {
		return "", errors.NewInternalError(errors.ErrCodeInternal, "Invalid data type for batch formatter", nil)
	}

	var sb strings.Builder

	sb.WriteString("=== BATCH RESULTS ===\n\n")
	sb.WriteString(fmt.Sprintf("Documents: %d\n\n", len(results)))
	for _, r := range results {
		sb.WriteString(fmt.Sprintf("Target %d: %s, score %d/100, %d attempt(s)\n",
			r.Index+1, r.Outcome.State, r.Outcome.FinalScore(), len(r.Outcome.Attempts)))
	}

	return sb.String(), nil
}

func (f *BatchTextFormatter) SupportedType() string {
	return "batch"
}

// BatchMarkdownFormatter formats batch results as Markdown
type BatchMarkdownFormatter struct{}

func (f *BatchMarkdownFormatter) Format(data any) (string, error) {
	results, ok := data.([]gate.BatchResult)
	if !ok {
		return "", errors.NewInternalError(errors.ErrCodeInternal, "Invalid data type for batch formatter", nil)
	}

	var sb strings.Builder

	sb.WriteString("# Batch Results\n\n")
	sb.WriteString("| Target | State | Score | Attempts |\n")
	sb.WriteString("|--------|-------|-------|----------|\n")
	for _, r := range results {
		sb.WriteString(fmt.Sprintf("| %d | %s | %d/100 | %d |\n",
			r.Index+1, r.Outcome.State, r.Outcome.FinalScore(), len(r.Outcome.Attempts)))
	}

	return sb.String(), nil
}

func (f *BatchMarkdownFormatter) SupportedType() string {
	return "batch"
}

type breakdownRow struct {
	label  string
	score  int
	weight float64
}

func breakdownRows(result *types.ScoreResult) []breakdownRow {
	return []breakdownRow{
		{"Keyword Match", result.Breakdown.KeywordMatch, result.Weights["keyword_match"]},
		{"Section Completeness", result.Breakdown.SectionCompleteness, result.Weights["section_completeness"]},
		{"Keyword Density", result.Breakdown.KeywordDensity, result.Weights["keyword_density"]},
		{"Experience Relevance", result.Breakdown.ExperienceRelevance, result.Weights["experience_relevance"]},
		{"Formatting", result.Breakdown.Formatting, result.Weights["formatting"]},
	}
}

func writeBreakdownText(sb *strings.Builder, result *types.ScoreResult) {
	for _, row := range breakdownRows(result) {
		sb.WriteString(fmt.Sprintf("%-22s %3d/100 (weight %.0f%%)\n", row.label+":", row.score, row.weight*100))
	}
}

func toScoreResult(data any) (*types.ScoreResult, error) {
	switch v := data.(type) {
	case *types.ScoreResult:
		return v, nil
	case types.ScoreResult:
		return &v, nil
	default:
		return nil, errors.NewInternalError(errors.ErrCodeInternal, "Invalid data type for score formatter", nil)
	}
}

func toTargetAnalysis(data any) (*types.TargetAnalysis, error) {
	switch v := data.(type) {
	case *types.TargetAnalysis:
		return v, nil
	case types.TargetAnalysis:
		return &v, nil
	default:
		return nil, errors.NewInternalError(errors.ErrCodeInternal, "Invalid data type for analysis formatter", nil)
	}
}

func toGateOutcome(data any) (*types.GateOutcome, error) {
	switch v := data.(type) {
	case *types.GateOutcome:
		return v, nil
	case types.GateOutcome:
		return &v, nil
	default:
		return nil, errors.NewInternalError(errors.ErrCodeInternal, "Invalid data type for outcome formatter", nil)
	}
}

// GlobalRegistry provides package-level access to the formatter registry
var GlobalRegistry = NewFormatterRegistry()
