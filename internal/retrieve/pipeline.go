// Package retrieve re-scores index candidates with multi-factor
// heuristics, applies diversity and budget caps, and returns the entries
// worth injecting into the next prompt.
package retrieve

import (
	"sort"
	"strings"
	"time"

	"github.com/mnemo-oss/mnemo/internal/config"
	"github.com/mnemo-oss/mnemo/internal/index"
	"github.com/mnemo-oss/mnemo/internal/memory"
	"github.com/mnemo-oss/mnemo/internal/slo"
)

// Scored is one retrieval result.
type Scored struct {
	Entry memory.Entry
	Score float64
	BM25  float64
}

// Options bound one retrieval call.
type Options struct {
	FilePaths []string // files in the caller's working set
	MaxTokens int      // 0 means no budget packing
}

// Result is what the injector renders.
type Result struct {
	Pinned    []memory.Entry
	Entries   []Scored
	Conflicts []memory.ConflictPair
	Degraded  bool
}

// Pipeline runs retrieval against a store snapshot.
type Pipeline struct {
	cfg     config.RetrievalConfig
	monitor *slo.Monitor
	rerank  Reranker
}

// New creates a pipeline. A nil reranker gets the identity hook.
func New(cfg config.RetrievalConfig, monitor *slo.Monitor, rerank Reranker) *Pipeline {
	if rerank == nil {
		rerank = Identity{}
	}
	return &Pipeline{cfg: cfg, monitor: monitor, rerank: rerank}
}

// Retrieve runs the full pipeline against the given snapshot. Read-only:
// access bookkeeping is the engine's job.
func (p *Pipeline) Retrieve(store *memory.Store, ix *index.Index, query string, opts Options) Result {
	start := time.Now()
	now := start

	res := Result{Degraded: p.monitor.ShouldDegrade()}

	// 1. Pinned entries are query-independent, capped, best first.
	res.Pinned = pinnedEntries(store, p.cfg.MaxPinned)
	pinnedIDs := make(map[string]bool, len(res.Pinned))
	for _, e := range res.Pinned {
		pinnedIDs[e.ID] = true
	}

	// 2. Lexical candidates, possibly narrowed by the SLO monitor.
	searchRes := ix.Search(query, p.monitor.SearchOptions(p.cfg))

	// 3. Multi-factor re-scoring.
	queryTerms := index.Tokenize(query)
	var scored []Scored
	for _, hit := range searchRes.Hits {
		e := store.Get(hit.ID)
		if e == nil || e.Suppressed() || pinnedIDs[e.ID] {
			continue
		}
		score := hit.Score *
			p.categoryWeight(e.Category) *
			recencyFactor(e, now) *
			(1 + accessBoost(e)) *
			p.filePathAffinity(e, opts.FilePaths) *
			statusBoost(e)
		if store.InUnresolvedConflict(e.ID) {
			score *= p.cfg.ConflictFactor
		}
		score *= 1 + p.categoryBonus(queryTerms, e.Category)
		scored = append(scored, Scored{Entry: *e, Score: score, BM25: hit.Score})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	// Rerank hook, identity by default.
	scored = p.rerank.Rerank(query, scored)

	// 4. Drop the long tail below half the top-K median.
	scored = medianFilter(scored, p.cfg.MedianFloor)

	// 5. Diversity cap per source session.
	scored = capPerSource(scored, p.cfg.MaxPerSource)

	// 6. Injection top-N.
	if len(scored) > p.cfg.InjectionTopN {
		scored = scored[:p.cfg.InjectionTopN]
	}
	res.Entries = scored

	// 7. Active conflicts among what we are about to inject.
	res.Conflicts = activeConflicts(store, res, p.cfg.MaxConflicts)

	// 8. Greedy budget packing by score.
	if opts.MaxTokens > 0 {
		packBudget(&res, opts.MaxTokens)
	}

	p.monitor.Record(time.Since(start))
	return res
}

func pinnedEntries(store *memory.Store, maxPinned int) []memory.Entry {
	var pinned []memory.Entry
	for i := range store.Entries {
		e := &store.Entries[i]
		if e.Status == memory.StatusPinned && !e.Suppressed() {
			pinned = append(pinned, *e)
		}
	}
	sort.SliceStable(pinned, func(i, j int) bool { return pinned[i].Importance > pinned[j].Importance })
	if len(pinned) > maxPinned {
		pinned = pinned[:maxPinned]
	}
	return pinned
}

func (p *Pipeline) categoryWeight(c memory.Category) float64 {
	if w, ok := p.cfg.CategoryWeights[c]; ok {
		return w
	}
	return 1.0
}

// recencyFactor favors recently touched entries, floored so old pinned
// knowledge can still surface via other factors.
func recencyFactor(e *memory.Entry, now time.Time) float64 {
	anchor := e.UpdatedAt
	if anchor.IsZero() {
		anchor = e.CreatedAt
	}
	days := now.Sub(anchor).Hours() / 24
	if days < 0 {
		days = 0
	}
	f := 1 / (1 + days/30)
	if f < 0.3 {
		f = 0.3
	}
	return f
}

func accessBoost(e *memory.Entry) float64 {
	boost := float64(e.AccessCount) * 0.05
	if boost > 0.5 {
		boost = 0.5
	}
	return boost
}

func (p *Pipeline) filePathAffinity(e *memory.Entry, working []string) float64 {
	if len(working) == 0 || len(e.FilePaths) == 0 {
		return 1.0
	}
	for _, w := range working {
		for _, ep := range e.FilePaths {
			if w == ep || strings.HasPrefix(ep, dirOf(w)) || strings.HasPrefix(w, dirOf(ep)) {
				return 1.3
			}
		}
	}
	return 1.0
}

func dirOf(path string) string {
	if i := strings.LastIndexByte(path, '/'); i > 0 {
		return path[:i+1]
	}
	return path
}

func statusBoost(e *memory.Entry) float64 {
	if e.Status == memory.StatusConfirmed {
		return 1.1
	}
	return 1.0
}

// categoryBonus returns the extra weight when the query's keywords name
// the entry's category group.
func (p *Pipeline) categoryBonus(queryTerms []string, c memory.Category) float64 {
	for _, g := range p.cfg.KeywordGroups {
		if !categoryIn(c, g.Categories) {
			continue
		}
		for _, kw := range g.Keywords {
			for _, qt := range queryTerms {
				if qt == kw {
					return g.Bonus
				}
			}
		}
	}
	return 0
}

func categoryIn(c memory.Category, cats []memory.Category) bool {
	for _, k := range cats {
		if k == c {
			return true
		}
	}
	return false
}

// medianFilter drops results scoring below floor × median of the
// candidates. Input must be sorted descending.
func medianFilter(scored []Scored, floor float64) []Scored {
	if len(scored) < 3 {
		return scored
	}
	median := scored[len(scored)/2].Score
	cutoff := floor * median
	out := scored[:0]
	for _, s := range scored {
		if s.Score >= cutoff {
			out = append(out, s)
		}
	}
	return out
}

// capPerSource limits how many results one session may contribute,
// preserving score order.
func capPerSource(scored []Scored, maxPerSource int) []Scored {
	if maxPerSource <= 0 {
		return scored
	}
	counts := make(map[string]int)
	out := scored[:0]
	for _, s := range scored {
		sid := s.Entry.Source.SessionID
		if sid != "" && counts[sid] >= maxPerSource {
			continue
		}
		counts[sid]++
		out = append(out, s)
	}
	return out
}

// activeConflicts returns up to max unresolved conflicts touching the
// retrieved or pinned entries.
func activeConflicts(store *memory.Store, res Result, max int) []memory.ConflictPair {
	inResult := make(map[string]bool, len(res.Pinned)+len(res.Entries))
	for _, e := range res.Pinned {
		inResult[e.ID] = true
	}
	for _, s := range res.Entries {
		inResult[s.Entry.ID] = true
	}

	var out []memory.ConflictPair
	for _, c := range store.Conflicts {
		if c.Resolved() {
			continue
		}
		if inResult[c.EntryA] || inResult[c.EntryB] {
			out = append(out, c)
			if len(out) >= max {
				break
			}
		}
	}
	return out
}

// packBudget greedily keeps pinned then scored entries while the token
// estimate fits.
func packBudget(res *Result, maxTokens int) {
	used := 0

	var pinned []memory.Entry
	for _, e := range res.Pinned {
		cost := memory.EstimateTokens(e.Content)
		if used+cost > maxTokens {
			break
		}
		used += cost
		pinned = append(pinned, e)
	}
	res.Pinned = pinned

	var entries []Scored
	for _, s := range res.Entries {
		cost := memory.EstimateTokens(s.Entry.Content)
		if used+cost > maxTokens {
			continue
		}
		used += cost
		entries = append(entries, s)
	}
	res.Entries = entries
}
