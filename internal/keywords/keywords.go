package keywords

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"atsforge/internal/types"
)

// stopWords filters common English words that add noise to keyword extraction
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "is": true, "was": true,
	"are": true, "were": true, "been": true, "be": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "shall": true,
	"can": true, "need": true, "must": true, "it": true, "its": true, "this": true,
	"that": true, "these": true, "those": true, "you": true, "we": true,
	"they": true, "them": true, "your": true, "our": true, "their": true,
	"what": true, "which": true, "who": true, "where": true, "when": true,
	"why": true, "how": true, "all": true, "each": true, "every": true,
	"both": true, "few": true, "more": true, "most": true, "other": true,
	"some": true, "such": true, "no": true, "not": true, "only": true,
	"own": true, "same": true, "so": true, "than": true, "too": true,
	"very": true, "just": true, "about": true, "above": true, "after": true,
	"again": true, "also": true, "any": true, "because": true, "before": true,
	"between": true, "during": true, "into": true, "through": true,
	"under": true, "until": true, "up": true, "out": true, "over": true,
	"including": true, "using": true, "working": true, "work": true,
	"experience": true, "role": true, "team": true, "company": true,
	"position": true, "looking": true, "strong": true, "ability": true,
	"etc": true, "well": true, "new": true, "required": true, "preferred": true,
	"plus": true, "bonus": true, "ideal": true, "minimum": true, "least": true,
	"years": true, "year": true, "candidate": true, "candidates": true,
}

// skillAliases folds known surface forms onto a canonical keyword. Multi-word
// and special-character keys are matched as phrases before tokenization so
// "machine learning" stays a single keyword instead of a bag of unigrams.
var skillAliases = map[string]string{
	"js":                          "JavaScript",
	"javascript":                  "JavaScript",
	"ts":                          "TypeScript",
	"typescript":                  "TypeScript",
	"py":                          "Python",
	"python":                      "Python",
	"golang":                      "Go",
	"node":                        "Node.js",
	"nodejs":                      "Node.js",
	"node.js":                     "Node.js",
	"react":                       "React",
	"reactjs":                     "React",
	"react.js":                    "React",
	"vue":                         "Vue.js",
	"vuejs":                       "Vue.js",
	"angular":                     "Angular",
	"angularjs":                   "Angular",
	"django":                      "Django",
	"flask":                       "Flask",
	"fastapi":                     "FastAPI",
	"spring":                      "Spring",
	"springboot":                  "Spring Boot",
	"spring boot":                 "Spring Boot",
	"aws":                         "AWS",
	"amazon web services":         "AWS",
	"gcp":                         "GCP",
	"google cloud":                "GCP",
	"azure":                       "Azure",
	"docker":                      "Docker",
	"kubernetes":                  "Kubernetes",
	"k8s":                         "Kubernetes",
	"postgres":                    "PostgreSQL",
	"postgresql":                  "PostgreSQL",
	"mysql":                       "MySQL",
	"mongodb":                     "MongoDB",
	"mongo":                       "MongoDB",
	"redis":                       "Redis",
	"kafka":                       "Kafka",
	"rabbitmq":                    "RabbitMQ",
	"graphql":                     "GraphQL",
	"rest":                        "REST",
	"restful":                     "REST",
	"grpc":                        "gRPC",
	"ci/cd":                       "CI/CD",
	"cicd":                        "CI/CD",
	"git":                         "Git",
	"github":                      "GitHub",
	"gitlab":                      "GitLab",
	"terraform":                   "Terraform",
	"ansible":                     "Ansible",
	"linux":                       "Linux",
	"sql":                         "SQL",
	"nosql":                       "NoSQL",
	"html":                        "HTML",
	"css":                         "CSS",
	"elasticsearch":               "Elasticsearch",
	"ml":                          "Machine Learning",
	"machine learning":            "Machine Learning",
	"deep learning":               "Deep Learning",
	"nlp":                         "NLP",
	"natural language processing": "NLP",
	"ai":                          "AI",
	"artificial intelligence":     "AI",
	"agile":                       "Agile",
	"scrum":                       "Scrum",
	"tdd":                         "TDD",
	"test driven development":     "TDD",
	"jira":                        "Jira",
	"jenkins":                     "Jenkins",
	"prometheus":                  "Prometheus",
	"grafana":                     "Grafana",
	"microservices":               "Microservices",
	"leadership":                  "Leadership",
	"communication":               "Communication",
	"mentoring":                   "Mentoring",
	"collaboration":               "Collaboration",
}

// categories maps canonical keywords to their category. Canonicals not listed
// here are classified heuristically in classify.
var categories = map[string]types.KeywordCategory{
	"JavaScript":       types.CategoryHardSkill,
	"TypeScript":       types.CategoryHardSkill,
	"Python":           types.CategoryHardSkill,
	"Go":               types.CategoryHardSkill,
	"SQL":              types.CategoryHardSkill,
	"NoSQL":            types.CategoryHardSkill,
	"HTML":             types.CategoryHardSkill,
	"CSS":              types.CategoryHardSkill,
	"Machine Learning": types.CategoryHardSkill,
	"Deep Learning":    types.CategoryHardSkill,
	"NLP":              types.CategoryHardSkill,
	"AI":               types.CategoryHardSkill,
	"Microservices":    types.CategoryHardSkill,
	"REST":             types.CategoryHardSkill,
	"GraphQL":          types.CategoryHardSkill,
	"gRPC":             types.CategoryHardSkill,
	"Node.js":          types.CategoryTool,
	"React":            types.CategoryTool,
	"Vue.js":           types.CategoryTool,
	"Angular":          types.CategoryTool,
	"Django":           types.CategoryTool,
	"Flask":            types.CategoryTool,
	"FastAPI":          types.CategoryTool,
	"Spring":           types.CategoryTool,
	"Spring Boot":      types.CategoryTool,
	"AWS":              types.CategoryTool,
	"GCP":              types.CategoryTool,
	"Azure":            types.CategoryTool,
	"Docker":           types.CategoryTool,
	"Kubernetes":       types.CategoryTool,
	"PostgreSQL":       types.CategoryTool,
	"MySQL":            types.CategoryTool,
	"MongoDB":          types.CategoryTool,
	"Redis":            types.CategoryTool,
	"Kafka":            types.CategoryTool,
	"RabbitMQ":         types.CategoryTool,
	"Elasticsearch":    types.CategoryTool,
	"Git":              types.CategoryTool,
	"GitHub":           types.CategoryTool,
	"GitLab":           types.CategoryTool,
	"Terraform":        types.CategoryTool,
	"Ansible":          types.CategoryTool,
	"Linux":            types.CategoryTool,
	"Jira":             types.CategoryTool,
	"Jenkins":          types.CategoryTool,
	"Prometheus":       types.CategoryTool,
	"Grafana":          types.CategoryTool,
	"CI/CD":            types.CategoryPractice,
	"Agile":            types.CategoryPractice,
	"Scrum":            types.CategoryPractice,
	"TDD":              types.CategoryPractice,
	"Leadership":       types.CategorySoftSkill,
	"Communication":    types.CategorySoftSkill,
	"Mentoring":        types.CategorySoftSkill,
	"Collaboration":    types.CategorySoftSkill,
}

// phraseKeys holds alias keys that cannot survive plain tokenization (they
// contain spaces or separators), sorted longest-first so "spring boot" wins
// over "spring". Built once at init.
var phraseKeys []string

func init() {
	for key := range skillAliases {
		if strings.ContainsAny(key, " /.") {
			phraseKeys = append(phraseKeys, key)
		}
	}
	sort.Slice(phraseKeys, func(i, j int) bool {
		if len(phraseKeys[i]) != len(phraseKeys[j]) {
			return len(phraseKeys[i]) > len(phraseKeys[j])
		}
		return phraseKeys[i] < phraseKeys[j]
	})
}

// IsStopWord reports whether a lowercased word carries no keyword signal
func IsStopWord(word string) bool {
	return stopWords[strings.ToLower(word)]
}

// Normalize returns the canonical form of a keyword. Unknown keywords are
// trimmed but otherwise preserved.
func Normalize(text string) string {
	trimmed := strings.TrimSpace(text)
	if canonical, ok := skillAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

// occurrence accumulates stats for one canonical keyword during extraction
type occurrence struct {
	surface  string
	freq     int
	firstPos int
}

// Extract pulls up to max keywords out of free text, ranked by frequency.
// Extraction is a pure function of the input text and the static alias table:
// the same input always yields the same keywords in the same order. Empty or
// whitespace-only input yields an empty set.
func Extract(text string, max int) []types.Keyword {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if max <= 0 {
		max = 25
	}

	lower, orig := foldWithOffsets(text)
	seen := make(map[string]*occurrence)

	record := func(surface, canonical string, pos int) {
		occ, ok := seen[canonical]
		if !ok {
			seen[canonical] = &occurrence{surface: surface, freq: 1, firstPos: pos}
			return
		}
		occ.freq++
		if pos < occ.firstPos {
			occ.firstPos = pos
		}
	}

	// Phase 1: known multi-word and separator-bearing phrases.
	consumed := make([]bool, len(lower))
	for _, key := range phraseKeys {
		canonical := skillAliases[key]
		from := 0
		for {
			idx := strings.Index(lower[from:], key)
			if idx < 0 {
				break
			}
			pos := from + idx
			end := pos + len(key)
			if wordBoundary(lower, pos, end) && !consumed[pos] {
				record(text[orig[pos]:orig[end]], canonical, pos)
				for i := pos; i < end; i++ {
					consumed[i] = true
				}
			}
			from = end
		}
	}

	// Phase 2: single-token keywords. The scanner keeps + # . inside words so
	// "c++", "c#" and "node.js" survive tokenization.
	var word strings.Builder
	wordStart := -1
	flush := func(end int) {
		if word.Len() == 0 {
			return
		}
		token := strings.TrimRight(word.String(), ".")
		start := wordStart
		word.Reset()
		wordStart = -1
		if token == "" || consumed[start] {
			return
		}
		canonical := Normalize(token)
		if _, known := skillAliases[token]; !known && len([]rune(token)) < 3 {
			return
		}
		if stopWords[strings.ToLower(canonical)] || stopWords[token] {
			return
		}
		record(text[orig[start]:orig[start+len(token)]], canonical, start)
	}
	for i, r := range lower {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' || r == '.' {
			if word.Len() == 0 {
				wordStart = i
			}
			word.WriteRune(r)
		} else {
			flush(i)
		}
	}
	flush(len(lower))

	canonicals := make([]string, 0, len(seen))
	for canonical := range seen {
		canonicals = append(canonicals, canonical)
	}
	// Frequency descending, then first occurrence, then name: fully
	// deterministic ordering so scoring is reproducible.
	sort.Slice(canonicals, func(i, j int) bool {
		a, b := seen[canonicals[i]], seen[canonicals[j]]
		if a.freq != b.freq {
			return a.freq > b.freq
		}
		if a.firstPos != b.firstPos {
			return a.firstPos < b.firstPos
		}
		return canonicals[i] < canonicals[j]
	})
	if len(canonicals) > max {
		canonicals = canonicals[:max]
	}

	out := make([]types.Keyword, 0, len(canonicals))
	for _, canonical := range canonicals {
		occ := seen[canonical]
		out = append(out, types.Keyword{
			Text:      occ.surface,
			Canonical: canonical,
			Category:  classify(canonical),
			Frequency: occ.freq,
		})
	}
	return out
}

// ExtractWeighted extracts keywords with an importance weight in [0,1] derived
// from frequency and positional salience: keywords first appearing in the
// first half of the text (usually the requirements section) weigh more than
// late boilerplate mentions.
func ExtractWeighted(text string, max int) []types.ScoredKeyword {
	kws := Extract(text, max)
	if len(kws) == 0 {
		return nil
	}

	lower := strings.ToLower(text)
	midpoint := len(text) / 2

	out := make([]types.ScoredKeyword, 0, len(kws))
	for _, kw := range kws {
		pos := strings.Index(lower, strings.ToLower(kw.Canonical))
		if pos < 0 {
			pos = strings.Index(lower, strings.ToLower(kw.Text))
		}

		weight := 0.2
		if pos >= 0 && pos < midpoint {
			weight = 0.5
		}
		weight += minFloat(0.45, 0.15*float64(kw.Frequency-1))
		if kw.Frequency >= 3 && weight < 0.65 {
			weight = 0.65
		}
		if weight > 1.0 {
			weight = 1.0
		}

		out = append(out, types.ScoredKeyword{
			Keyword:    kw,
			Weight:     weight,
			Importance: importanceLabel(weight),
		})
	}
	return out
}

// importanceLabel buckets a numeric weight for reporting
func importanceLabel(weight float64) string {
	switch {
	case weight >= 0.65:
		return "high"
	case weight >= 0.35:
		return "medium"
	default:
		return "low"
	}
}

// classify assigns a category to a canonical keyword
func classify(canonical string) types.KeywordCategory {
	if cat, ok := categories[canonical]; ok {
		return cat
	}
	if _, aliased := skillAliases[strings.ToLower(canonical)]; aliased {
		return types.CategoryHardSkill
	}
	// Short terms with internal capitals or digits look like product names
	if len(canonical) <= 15 && strings.IndexFunc(canonical, unicode.IsUpper) >= 0 {
		return types.CategoryTool
	}
	return types.CategoryGeneral
}

// foldWithOffsets lowercases text rune by rune and returns the lowered string
// together with a byte-offset map back into the original. Case folding can
// change a rune's encoded length ("Ⱥ" is 2 bytes, its lowercase 3), so indices
// found in the lowered string cannot slice the original directly; orig[i] is
// the original-text offset of the rune that produced lowered byte i, and
// orig[len(lowered)] == len(text).
func foldWithOffsets(text string) (string, []int) {
	var b strings.Builder
	b.Grow(len(text))
	orig := make([]int, 0, len(text)+1)
	for i, r := range text {
		lr := unicode.ToLower(r)
		for range utf8.RuneLen(lr) {
			orig = append(orig, i)
		}
		b.WriteRune(lr)
	}
	orig = append(orig, len(text))
	return b.String(), orig
}

// wordBoundary reports whether lower[start:end] sits on word boundaries
func wordBoundary(lower string, start, end int) bool {
	if start > 0 {
		prev := rune(lower[start-1])
		if unicode.IsLetter(prev) || unicode.IsDigit(prev) {
			return false
		}
	}
	if end < len(lower) {
		next := rune(lower[end])
		if unicode.IsLetter(next) || unicode.IsDigit(next) {
			return false
		}
	}
	return true
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
