package gate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"

	"atsforge/internal/match"
	"atsforge/internal/selector"
	"atsforge/internal/types"
)

// MemoryDocumentCache is a process-local DocumentCache. Entries are keyed by
// content hash, so concurrent workers storing the same target text perform an
// idempotent upsert; similarity lookups scan the stored texts.
type MemoryDocumentCache struct {
	mu      sync.RWMutex
	entries map[string]docEntry
}

type docEntry struct {
	text    string
	outcome types.GateOutcome
}

func NewMemoryDocumentCache() *MemoryDocumentCache {
	return &MemoryDocumentCache{entries: make(map[string]docEntry)}
}

// Lookup returns the outcome stored for the most similar prior target text at
// or above minSimilarity
func (c *MemoryDocumentCache) Lookup(targetText string, minSimilarity float64) (types.GateOutcome, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	best := minSimilarity
	var found types.GateOutcome
	ok := false
	for _, entry := range c.entries {
		if sim := match.TokenSetSimilarity(targetText, entry.text); sim >= best {
			best = sim
			found = entry.outcome
			ok = true
		}
	}
	return found, ok
}

// Store upserts the outcome under the target text's content hash
func (c *MemoryDocumentCache) Store(targetText string, outcome types.GateOutcome) {
	key := contentHash(targetText)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = docEntry{text: targetText, outcome: outcome}
}

// Len returns the number of cached documents
func (c *MemoryDocumentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// summaryKeyKeywords is how many leading keywords participate in the summary
// cache key
const summaryKeyKeywords = 5

// CachingRewriter wraps a rewriting capability with a summary cache keyed by
// (target role, top keywords). It shortcuts repeat synthesis for the same
// role family even when the full-document cache misses.
type CachingRewriter struct {
	inner selector.Rewriter

	mu      sync.RWMutex
	entries map[string]selector.RewriteResult
}

// NewCachingRewriter wraps inner with a process-local summary cache. A nil
// inner is allowed and simply yields no rewrites.
func NewCachingRewriter(inner selector.Rewriter) *CachingRewriter {
	return &CachingRewriter{inner: inner, entries: make(map[string]selector.RewriteResult)}
}

func (c *CachingRewriter) RewriteSummary(ctx context.Context, input selector.RewriteInput) (selector.RewriteResult, error) {
	if c.inner == nil {
		return selector.RewriteResult{Confidence: "unknown"}, nil
	}

	key := summaryKey(input)
	c.mu.RLock()
	cached, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	result, err := c.inner.RewriteSummary(ctx, input)
	if err != nil {
		return result, err
	}
	if result.Confidence != "unknown" && strings.TrimSpace(result.Text) != "" {
		c.mu.Lock()
		c.entries[key] = result
		c.mu.Unlock()
	}
	return result, nil
}

func summaryKey(input selector.RewriteInput) string {
	top := make([]string, 0, summaryKeyKeywords)
	for _, kw := range input.Keywords {
		top = append(top, strings.ToLower(kw))
		if len(top) == summaryKeyKeywords {
			break
		}
	}
	sort.Strings(top)
	return strings.ToLower(input.TargetRole) + "|" + strings.Join(top, ",")
}
