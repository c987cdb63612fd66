package engine

import (
	"github.com/mnemo-oss/mnemo/internal/budget"
	"github.com/mnemo-oss/mnemo/internal/inject"
	"github.com/mnemo-oss/mnemo/internal/memory"
	"github.com/mnemo-oss/mnemo/internal/retrieve"
)

// Retrieve returns pinned entries, scored results, and active conflicts
// for a query. Never errors: an uninitialized engine returns an empty
// result.
func (e *Engine) Retrieve(query, agentID string, opts retrieve.Options) retrieve.Result {
	if !e.isInitialized() {
		return retrieve.Result{}
	}
	e.metrics.IncRetrievals()

	key := retrieve.Key(e.gen.Load(), agentID, query, opts)
	if e.cache != nil {
		if res, ok := e.cache.Get(key); ok {
			e.metrics.IncCacheHits()
			// The cache memoizes pipeline work, not bookkeeping:
			// access evidence still accrues on hits.
			e.recordAccess(res)
			return res
		}
		e.metrics.IncCacheMisses()
	}

	res := e.pipeline.Retrieve(e.store.Load(), e.idx.Load(), query, opts)

	if e.cache != nil {
		e.cache.Set(key, res)
	}
	e.recordAccess(res)
	return res
}

// InjectionPrefix renders the ready-to-prepend memory block for the
// agent, or "" when there is nothing to inject.
func (e *Engine) InjectionPrefix(query, agentID string, tokenBudget int, filePaths []string) string {
	if !e.isInitialized() {
		return ""
	}
	res := e.Retrieve(query, agentID, retrieve.Options{FilePaths: filePaths, MaxTokens: tokenBudget})
	text := inject.Render(res, inject.FamilyFor(agentID))
	if text == "" {
		return ""
	}

	e.metrics.IncInjections()
	e.recordInjection(res, agentID)
	return text
}

// AllocateBudget splits the remaining prompt context into the four
// memory token pools.
func (e *Engine) AllocateBudget(remainingContextTokens int) budget.Allocation {
	return budget.Allocate(remainingContextTokens, e.cfg.Budget)
}

// recordAccess bumps access bookkeeping for retrieved entries. It swaps
// the store but not the generation: access counts alone do not
// invalidate cached retrievals.
func (e *Engine) recordAccess(res retrieve.Result) {
	if len(res.Entries) == 0 && len(res.Pinned) == 0 {
		return
	}
	ids := make(map[string]bool, len(res.Entries)+len(res.Pinned))
	for _, s := range res.Entries {
		ids[s.Entry.ID] = true
	}
	for _, p := range res.Pinned {
		ids[p.ID] = true
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	clone := e.store.Load().Clone()
	ts := now()
	for i := range clone.Entries {
		if ids[clone.Entries[i].ID] {
			clone.Entries[i].AccessCount++
			clone.Entries[i].LastAccessedAt = ts
		}
	}
	clone.Metadata.TotalAccesses++
	e.store.Store(clone)
	e.accessesSinceCompact++
	e.maybeCompactLocked()
}

// recordInjection updates per-entry injection telemetry and the
// last-injected sample surfaced by Status.
func (e *Engine) recordInjection(res retrieve.Result, agentID string) {
	ids := make([]string, 0, len(res.Pinned)+len(res.Entries))
	for _, p := range res.Pinned {
		ids = append(ids, p.ID)
	}
	for _, s := range res.Entries {
		ids = append(ids, s.Entry.ID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	clone := e.store.Load().Clone()
	ts := now()
	for i := range clone.Entries {
		entry := &clone.Entries[i]
		if !containsID(ids, entry.ID) {
			continue
		}
		if entry.Usage == nil {
			entry.Usage = &memory.Usage{}
		}
		entry.Usage.InjectionCount++
		entry.Usage.LastInjectedAt = ts
		if !containsID(entry.Usage.TargetAgents, agentID) {
			entry.Usage.TargetAgents = append(entry.Usage.TargetAgents, agentID)
		}
	}
	e.store.Store(clone)
	e.lastInjected = ids
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (e *Engine) isInitialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}
