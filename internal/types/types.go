package types

// KeywordCategory classifies an extracted keyword
type KeywordCategory string

const (
	CategoryHardSkill     KeywordCategory = "hard_skill"
	CategorySoftSkill     KeywordCategory = "soft_skill"
	CategoryTool          KeywordCategory = "tool"
	CategoryCertification KeywordCategory = "certification"
	CategoryPractice      KeywordCategory = "practice"
	CategoryGeneral       KeywordCategory = "general"
)

// Keyword is a normalized token or short phrase extracted from free text.
// Canonical is the alias-normalized form used for all comparisons; Text keeps
// the surface form as it appeared in the source.
type Keyword struct {
	Text      string          `json:"text"`
	Canonical string          `json:"canonical"`
	Category  KeywordCategory `json:"category"`
	Frequency int             `json:"frequency"`
}

// ScoredKeyword is a Keyword plus an importance weight in [0,1] derived from
// frequency and positional salience
type ScoredKeyword struct {
	Keyword
	Weight     float64 `json:"weight"`
	Importance string  `json:"importance"` // high | medium | low
}

// MatchTier identifies which matching strategy resolved a target keyword
type MatchTier string

const (
	TierExact     MatchTier = "exact"
	TierFuzzy     MatchTier = "fuzzy"
	TierSemantic  MatchTier = "semantic"
	TierUnmatched MatchTier = "unmatched"
)

// KeywordMatch classifies one target keyword against the candidate set.
// Every target keyword lands in exactly one tier.
type KeywordMatch struct {
	Target     ScoredKeyword `json:"target"`
	Tier       MatchTier     `json:"tier"`
	Candidate  string        `json:"candidate,omitempty"`  // canonical candidate that matched
	Similarity float64       `json:"similarity,omitempty"` // ratio or cosine that resolved the match
}

// MatchResult holds the tier classification for a full target keyword set
type MatchResult struct {
	Matches         []KeywordMatch `json:"matches"`
	SemanticSkipped bool           `json:"semanticSkipped"` // embedder unavailable, tier degraded
}

// MatchedCount returns the number of target keywords resolved at any tier
func (r MatchResult) MatchedCount() int {
	n := 0
	for _, m := range r.Matches {
		if m.Tier != TierUnmatched {
			n++
		}
	}
	return n
}

// ByTier returns the matches resolved at the given tier
func (r MatchResult) ByTier(tier MatchTier) []KeywordMatch {
	var out []KeywordMatch
	for _, m := range r.Matches {
		if m.Tier == tier {
			out = append(out, m)
		}
	}
	return out
}

// ScoreBreakdown holds the five sub-scores, each 0-100. Created fresh on every
// scoring call and never mutated.
type ScoreBreakdown struct {
	KeywordMatch        int `json:"keywordMatch"`
	SectionCompleteness int `json:"sectionCompleteness"`
	KeywordDensity      int `json:"keywordDensity"`
	ExperienceRelevance int `json:"experienceRelevance"`
	Formatting          int `json:"formatting"`
}

// MissingKeyword describes a target keyword absent from the candidate document
type MissingKeyword struct {
	Keyword    string          `json:"keyword"`
	Category   KeywordCategory `json:"category"`
	Importance string          `json:"importance"`
	Weight     float64         `json:"weight"`
}

// ScoreResult is the complete output of one scoring call
type ScoreResult struct {
	OverallScore     int                `json:"overallScore"`
	Breakdown        ScoreBreakdown     `json:"breakdown"`
	Weights          map[string]float64 `json:"weights"` // weights used, sum to 1.0
	MatchedKeywords  []string           `json:"matchedKeywords"`
	MissingKeywords  []MissingKeyword   `json:"missingKeywords"` // sorted by weight descending
	FormattingIssues []string           `json:"formattingIssues,omitempty"`
	Suggestions      []string           `json:"suggestions,omitempty"`
	Notes            []string           `json:"notes,omitempty"` // non-fatal degradations (e.g. semantic tier skipped)
}

// PersonalInfo holds the candidate's contact details
type PersonalInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
}

// SkillEntry is an atomic skill from the candidate profile
type SkillEntry struct {
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Proficiency string `json:"proficiency,omitempty"` // Expert | Advanced | Intermediate
	LastUsed    string `json:"lastUsed,omitempty"`    // YYYY or YYYY-MM
}

// Bullet is an atomic experience achievement line with tags
type Bullet struct {
	Text   string   `json:"text"`
	Tags   []string `json:"tags,omitempty"`
	Impact string   `json:"impact,omitempty"`
}

// ExperienceEntry is one role in the candidate's work history
type ExperienceEntry struct {
	Company   string   `json:"company"`
	Title     string   `json:"title"`
	Location  string   `json:"location,omitempty"`
	StartDate string   `json:"startDate,omitempty"`
	EndDate   string   `json:"endDate,omitempty"` // empty means current
	Bullets   []Bullet `json:"bullets,omitempty"`
}

// Project is a candidate project with its tech stack
type Project struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	TechStack   []string `json:"techStack,omitempty"`
	URL         string   `json:"url,omitempty"`
}

// SummaryVariant is a pre-written professional summary targeting a role family
type SummaryVariant struct {
	TargetRole string `json:"targetRole"`
	Text       string `json:"text"`
}

// EducationEntry is one education record
type EducationEntry struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	Year        string `json:"year,omitempty"`
}

// Certification is one certification record
type Certification struct {
	Name   string `json:"name"`
	Issuer string `json:"issuer,omitempty"`
	Year   string `json:"year,omitempty"`
}

// CandidateProfile is the full candidate profile snapshot. It is read-only
// input to the engine; selection ranks its content but never mutates it.
type CandidateProfile struct {
	PersonalInfo   PersonalInfo      `json:"personalInfo"`
	Summaries      []SummaryVariant  `json:"summaries,omitempty"`
	Skills         []SkillEntry      `json:"skills,omitempty"`
	Experience     []ExperienceEntry `json:"experience,omitempty"`
	Projects       []Project         `json:"projects,omitempty"`
	Education      []EducationEntry  `json:"education,omitempty"`
	Certifications []Certification   `json:"certifications,omitempty"`
}

// TargetAnalysis is the structured view of a job description used by the
// content selector
type TargetAnalysis struct {
	Title            string          `json:"title,omitempty"`
	Keywords         []ScoredKeyword `json:"keywords"`
	RequiredSkills   []string        `json:"requiredSkills,omitempty"`
	PreferredSkills  []string        `json:"preferredSkills,omitempty"`
	Responsibilities []string        `json:"responsibilities,omitempty"`
	RawText          string          `json:"-"`
}

// SelectedExperience is one role with its chosen bullets
type SelectedExperience struct {
	Company   string   `json:"company"`
	Title     string   `json:"title"`
	Location  string   `json:"location,omitempty"`
	StartDate string   `json:"startDate,omitempty"`
	EndDate   string   `json:"endDate,omitempty"`
	Bullets   []Bullet `json:"bullets"`
}

// SelectionResult is the content chosen for one generated document. It is
// recomputed on every generation call and carries no identity across calls.
type SelectionResult struct {
	PersonalInfo   PersonalInfo         `json:"personalInfo"`
	Summary        string               `json:"summary,omitempty"`
	SummarySource  string               `json:"summarySource,omitempty"` // profile | rewritten | fallback
	Skills         []string             `json:"skills,omitempty"`
	Experience     []SelectedExperience `json:"experience,omitempty"`
	Projects       []Project            `json:"projects,omitempty"`
	Education      []EducationEntry     `json:"education,omitempty"`
	Certifications []Certification      `json:"certifications,omitempty"`
	TargetKeywords []string             `json:"targetKeywords,omitempty"`
}

// GenerationAttempt records one iteration of the quality-gate loop
type GenerationAttempt struct {
	Number int         `json:"number"` // 1-based
	Score  ScoreResult `json:"score"`
	Passed bool        `json:"passed"`
	Notes  []string    `json:"notes,omitempty"`
}

// GateState is a state of the quality-gate loop
type GateState string

const (
	StateDrafting  GateState = "DRAFTING"
	StateScoring   GateState = "SCORING"
	StatePassed    GateState = "PASSED"
	StateRetrying  GateState = "RETRYING"
	StateEscalated GateState = "ESCALATED"
)

// GateOutcome is the terminal result of one quality-gate run. Escalation is a
// defined outcome requiring manual review, not an error.
type GateOutcome struct {
	State     GateState           `json:"state"` // PASSED or ESCALATED
	Document  string              `json:"document,omitempty"`
	Selection SelectionResult     `json:"selection"`
	Attempts  []GenerationAttempt `json:"attempts"`
	FromCache bool                `json:"fromCache"`
}

// FinalScore returns the last attempt's overall score, or 0 with no attempts
func (o GateOutcome) FinalScore() int {
	if len(o.Attempts) == 0 {
		return 0
	}
	return o.Attempts[len(o.Attempts)-1].Score.OverallScore
}
