package selector

import (
	"context"
	"math"
	"sort"
	"strings"

	"atsforge/internal/errors"
	"atsforge/internal/keywords"
	"atsforge/internal/match"
	"atsforge/internal/profile"
	"atsforge/internal/types"
)

// Rewriter is the optional external text-rewriting capability used for
// summary synthesis. Implementations must honor the context deadline and
// return a confidence signal rather than failing on uncertainty.
type Rewriter interface {
	RewriteSummary(ctx context.Context, input RewriteInput) (RewriteResult, error)
}

// RewriteInput constrains a rewrite request to facts drawn from the profile.
// The rewriter must not be asked to invent anything beyond Facts.
type RewriteInput struct {
	TargetRole  string
	Keywords    []string // target keywords to weave in, most important first
	Facts       []string // verified profile statements the text may draw on
	BaseSummary string   // existing summary to rework, may be empty
}

// RewriteResult carries the rewritten text and the capability's confidence
// signal: "high", "low", or "unknown". Unknown is a valid response that
// triggers fallback, not an error.
type RewriteResult struct {
	Text       string
	Confidence string
}

// Options bound the selection output per section
type Options struct {
	MaxSkills            int     // skill list cap
	MaxBulletsRecentRole int     // bullets kept for the most recent role
	MaxBulletsOlderRole  int     // bullets kept for every other role
	MaxProjects          int     // projects kept when any clear the floor
	ProjectFloor         int     // minimum project relevance score to keep the section
	DiversityFraction    float64 // max fraction of selected bullets sharing a dominant tag
	FuzzyThreshold       int     // ratio floor for fuzzy skill matching
}

// DefaultOptions returns the standard selection bounds
func DefaultOptions() Options {
	return Options{
		MaxSkills:            15,
		MaxBulletsRecentRole: 5,
		MaxBulletsOlderRole:  3,
		MaxProjects:          2,
		ProjectFloor:         1,
		DiversityFraction:    0.5,
		FuzzyThreshold:       match.DefaultFuzzyThreshold,
	}
}

// Selector picks profile content for a specific target description. It only
// ever emits text that exists in the profile snapshot; the one exception, a
// rewritten summary, is trace-checked against the profile evidence set and
// rejected on any unverifiable keyword claim.
type Selector struct {
	opts     Options
	rewriter Rewriter
	logger   *errors.Logger
}

// New creates a Selector. The rewriter may be nil; summary synthesis then
// always uses the template fallback.
func New(opts Options, rewriter Rewriter, logger *errors.Logger) *Selector {
	if opts.MaxSkills <= 0 {
		opts = DefaultOptions()
	}
	return &Selector{opts: opts, rewriter: rewriter, logger: logger}
}

// Select builds a SelectionResult for the analyzed target. biasKeywords are
// canonical keywords a previous scoring attempt reported missing; they get
// extra ranking weight so the next draft closes those gaps. The result is
// recomputed from scratch on every call.
func (s *Selector) Select(ctx context.Context, prof *types.CandidateProfile, analysis types.TargetAnalysis, biasKeywords []string) types.SelectionResult {
	targetSet := make(map[string]bool)
	var targetList []string
	for _, kw := range analysis.Keywords {
		lower := strings.ToLower(kw.Canonical)
		if !targetSet[lower] {
			targetSet[lower] = true
			targetList = append(targetList, kw.Canonical)
		}
	}
	biasSet := make(map[string]bool)
	for _, b := range biasKeywords {
		biasSet[strings.ToLower(keywords.Normalize(b))] = true
	}

	result := types.SelectionResult{
		PersonalInfo:   prof.PersonalInfo,
		TargetKeywords: targetList,
		Education:      prof.Education,
		Certifications: prof.Certifications,
	}

	result.Skills = s.selectSkills(prof, analysis, targetSet, biasSet)
	result.Experience = s.selectExperience(prof, analysis, targetSet, biasSet)
	result.Projects = s.selectProjects(prof, targetSet)
	result.Summary, result.SummarySource = s.selectSummary(ctx, prof, analysis, targetList, biasKeywords)

	return result
}

// skill match tiers, ordered: retry-bias > required-exact > required-fuzzy >
// preferred > unrelated
const (
	skillTierBias      = 4
	skillTierExact     = 3
	skillTierFuzzy     = 2
	skillTierPreferred = 1
	skillTierNone      = 0
)

var proficiencyRank = map[string]int{
	"Expert":       3,
	"Advanced":     2,
	"Intermediate": 1,
}

type rankedSkill struct {
	name        string
	tier        int
	proficiency int
	lastUsed    string
	index       int
}

func (s *Selector) selectSkills(prof *types.CandidateProfile, analysis types.TargetAnalysis, targetSet, biasSet map[string]bool) []string {
	requiredSet := lowerSet(analysis.RequiredSkills)
	preferredSet := lowerSet(analysis.PreferredSkills)
	if len(requiredSet) == 0 && len(preferredSet) == 0 {
		// No skill split extracted; treat every target keyword as required.
		requiredSet = targetSet
	}

	ranked := make([]rankedSkill, 0, len(prof.Skills))
	for i, skill := range prof.Skills {
		canonical := strings.ToLower(keywords.Normalize(skill.Name))
		tier := skillTierNone
		switch {
		case biasSet[canonical]:
			tier = skillTierBias
		case requiredSet[canonical]:
			tier = skillTierExact
		case fuzzyIn(canonical, requiredSet, s.opts.FuzzyThreshold):
			tier = skillTierFuzzy
		case preferredSet[canonical] || fuzzyIn(canonical, preferredSet, s.opts.FuzzyThreshold):
			tier = skillTierPreferred
		}
		ranked = append(ranked, rankedSkill{
			name:        skill.Name,
			tier:        tier,
			proficiency: proficiencyRank[skill.Proficiency],
			lastUsed:    skill.LastUsed,
			index:       i,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.tier != b.tier {
			return a.tier > b.tier
		}
		if a.proficiency != b.proficiency {
			return a.proficiency > b.proficiency
		}
		if a.lastUsed != b.lastUsed {
			return a.lastUsed > b.lastUsed
		}
		return a.index < b.index
	})

	limit := s.opts.MaxSkills
	if limit > len(ranked) {
		limit = len(ranked)
	}
	var out []string
	for _, r := range ranked[:limit] {
		out = append(out, r.name)
	}
	return out
}

func fuzzyIn(canonical string, set map[string]bool, threshold int) bool {
	for member := range set {
		if match.Ratio(canonical, member) >= threshold {
			return true
		}
	}
	return false
}

type rankedBullet struct {
	bullet types.Bullet
	score  float64
	index  int
}

// selectExperience keeps every role but trims bullets to the most relevant
// ones, with a bigger budget for the most recent role. A diversity cap keeps
// one dominant tag from crowding out everything else.
func (s *Selector) selectExperience(prof *types.CandidateProfile, analysis types.TargetAnalysis, targetSet, biasSet map[string]bool) []types.SelectedExperience {
	if len(prof.Experience) == 0 {
		return nil
	}

	planned := 0
	for i, exp := range prof.Experience {
		planned += minInt(len(exp.Bullets), s.bulletBudget(i))
	}
	tagCap := maxInt(1, int(math.Floor(s.opts.DiversityFraction*float64(planned))))
	tagCounts := make(map[string]int)

	var out []types.SelectedExperience
	for i, exp := range prof.Experience {
		budget := s.bulletBudget(i)

		ranked := make([]rankedBullet, 0, len(exp.Bullets))
		for j, b := range exp.Bullets {
			ranked = append(ranked, rankedBullet{
				bullet: b,
				score:  s.bulletScore(b, analysis, targetSet, biasSet),
				index:  j,
			})
		}
		sort.SliceStable(ranked, func(a, b int) bool {
			if ranked[a].score != ranked[b].score {
				return ranked[a].score > ranked[b].score
			}
			return ranked[a].index < ranked[b].index
		})

		var kept []types.Bullet
		for _, rb := range ranked {
			if len(kept) == budget {
				break
			}
			tag := dominantTag(rb.bullet)
			if tag != "" && tagCounts[tag] >= tagCap {
				continue
			}
			if tag != "" {
				tagCounts[tag]++
			}
			kept = append(kept, rb.bullet)
		}

		out = append(out, types.SelectedExperience{
			Company:   exp.Company,
			Title:     exp.Title,
			Location:  exp.Location,
			StartDate: exp.StartDate,
			EndDate:   exp.EndDate,
			Bullets:   kept,
		})
	}
	return out
}

func (s *Selector) bulletBudget(roleIndex int) int {
	if roleIndex == 0 {
		return s.opts.MaxBulletsRecentRole
	}
	return s.opts.MaxBulletsOlderRole
}

// bulletScore combines tag overlap (doubled, tags are curated signal), raw
// keyword presence in the text, responsibility-sentence similarity, and the
// retry bias.
func (s *Selector) bulletScore(b types.Bullet, analysis types.TargetAnalysis, targetSet, biasSet map[string]bool) float64 {
	textLower := strings.ToLower(b.Text)

	score := 0.0
	for _, tag := range b.Tags {
		canonical := strings.ToLower(keywords.Normalize(tag))
		if targetSet[canonical] {
			score += 2
		}
		if biasSet[canonical] {
			score += 2
		}
	}
	for kw := range targetSet {
		if strings.Contains(textLower, kw) {
			score++
		}
	}
	for kw := range biasSet {
		if strings.Contains(textLower, kw) {
			score++
		}
	}

	best := 0.0
	for _, resp := range analysis.Responsibilities {
		if sim := match.TokenSetSimilarity(b.Text, resp); sim > best {
			best = sim
		}
	}
	return score + best*3
}

func dominantTag(b types.Bullet) string {
	if len(b.Tags) == 0 {
		return ""
	}
	return strings.ToLower(b.Tags[0])
}

type rankedProject struct {
	project types.Project
	score   int
	index   int
}

// selectProjects keeps the top projects clearing the relevance floor. With
// nothing above the floor the whole section is omitted.
func (s *Selector) selectProjects(prof *types.CandidateProfile, targetSet map[string]bool) []types.Project {
	ranked := make([]rankedProject, 0, len(prof.Projects))
	for i, proj := range prof.Projects {
		score := 0
		for _, tech := range proj.TechStack {
			if targetSet[strings.ToLower(keywords.Normalize(tech))] {
				score++
			}
		}
		descLower := strings.ToLower(proj.Description)
		for kw := range targetSet {
			if strings.Contains(descLower, kw) {
				score++
			}
		}
		if score >= s.opts.ProjectFloor {
			ranked = append(ranked, rankedProject{project: proj, score: score, index: i})
		}
	}
	if len(ranked) == 0 {
		return nil
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].index < ranked[j].index
	})

	limit := s.opts.MaxProjects
	if limit > len(ranked) {
		limit = len(ranked)
	}
	var out []types.Project
	for _, r := range ranked[:limit] {
		out = append(out, r.project)
	}
	return out
}

// selectSummary prefers a profile variant whose target-role label overlaps
// the analyzed title, then tries the rewriting capability, then falls back to
// the first variant. Sources: "profile", "rewritten", "fallback".
func (s *Selector) selectSummary(ctx context.Context, prof *types.CandidateProfile, analysis types.TargetAnalysis, targetList, biasKeywords []string) (string, string) {
	if len(prof.Summaries) == 0 {
		return "", ""
	}

	titleLower := strings.ToLower(analysis.Title)
	rawLower := strings.ToLower(analysis.RawText)

	bestScore := 0
	bestText := ""
	for _, variant := range prof.Summaries {
		score := 0
		for _, w := range strings.Fields(strings.ToLower(variant.TargetRole)) {
			if keywords.IsStopWord(w) {
				continue
			}
			if strings.Contains(titleLower, w) {
				score += 2
			} else if strings.Contains(rawLower, w) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestText = variant.Text
		}
	}
	if bestScore > 0 {
		return strings.TrimSpace(bestText), "profile"
	}

	if text, ok := s.rewriteSummary(ctx, prof, analysis, targetList, biasKeywords); ok {
		return text, "rewritten"
	}
	return strings.TrimSpace(prof.Summaries[0].Text), "fallback"
}

// rewriteSummary delegates to the rewriting capability with facts constrained
// to the profile, then trace-checks the response. Any failure path returns
// ok=false so the caller falls back to a template summary.
func (s *Selector) rewriteSummary(ctx context.Context, prof *types.CandidateProfile, analysis types.TargetAnalysis, targetList, biasKeywords []string) (string, bool) {
	if s.rewriter == nil {
		return "", false
	}

	input := RewriteInput{
		TargetRole:  analysis.Title,
		Keywords:    append(append([]string{}, biasKeywords...), topN(targetList, 10)...),
		Facts:       profileFacts(prof),
		BaseSummary: prof.Summaries[0].Text,
	}

	rewritten, err := s.rewriter.RewriteSummary(ctx, input)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("Summary rewrite failed, using template fallback", "error", err.Error())
		}
		return "", false
	}
	if rewritten.Confidence == "unknown" || strings.TrimSpace(rewritten.Text) == "" {
		return "", false
	}

	if claim, ok := unverifiableClaim(rewritten.Text, prof); ok {
		if s.logger != nil {
			s.logger.Warn("Rewritten summary rejected by fabrication check",
				"claim", claim)
		}
		return "", false
	}
	return strings.TrimSpace(rewritten.Text), true
}

// unverifiableClaim scans rewritten text for skill-like keywords with no
// evidence in the profile. Returns the first offending claim.
func unverifiableClaim(text string, prof *types.CandidateProfile) (string, bool) {
	evidence := profile.EvidenceKeywords(prof)
	for _, kw := range keywords.Extract(text, 50) {
		switch kw.Category {
		case types.CategoryHardSkill, types.CategoryTool, types.CategoryCertification:
		default:
			continue
		}
		if !evidence[strings.ToLower(kw.Canonical)] {
			return kw.Canonical, true
		}
	}
	return "", false
}

// profileFacts flattens the profile into verifiable fact statements for the
// rewrite prompt
func profileFacts(prof *types.CandidateProfile) []string {
	var facts []string
	for _, skill := range prof.Skills {
		fact := "Skill: " + skill.Name
		if skill.Proficiency != "" {
			fact += " (" + skill.Proficiency + ")"
		}
		facts = append(facts, fact)
	}
	for _, exp := range prof.Experience {
		facts = append(facts, exp.Title+" at "+exp.Company)
		for _, b := range exp.Bullets {
			facts = append(facts, b.Text)
		}
	}
	for _, proj := range prof.Projects {
		if proj.Description != "" {
			facts = append(facts, proj.Name+": "+proj.Description)
		}
	}
	return facts
}

func lowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(keywords.Normalize(item))] = true
	}
	return set
}

func topN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
