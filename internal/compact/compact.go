// Package compact applies importance decay, TTL eviction, and soft-limit
// eviction to the project store. It runs on load and periodically after
// enough accesses or elapsed time.
package compact

import (
	"math"
	"sort"
	"time"

	"github.com/mnemo-oss/mnemo/internal/config"
	"github.com/mnemo-oss/mnemo/internal/memory"
)

// Decay tuning: importance halves roughly every 95 days of no access.
const (
	decayBase       = 0.95
	decayPeriodDays = 7.0

	candidateMultiplier = 0.9
)

// Result summarizes one compaction pass.
type Result struct {
	Decayed     int
	TTLEvicted  int
	SizeEvicted int
	Evicted     []memory.Entry // everything removed, for the cold archive
}

// Compactor runs decay and eviction.
type Compactor struct {
	cfg config.CompactionConfig
}

// New creates a compactor.
func New(cfg config.CompactionConfig) *Compactor {
	return &Compactor{cfg: cfg}
}

// ShouldRun reports whether a pass is due: every AccessInterval accesses
// or MaxInterval elapsed since the last pass.
func (c *Compactor) ShouldRun(lastCompactedAt time.Time, accessesSince int, now time.Time) bool {
	if accessesSince >= c.cfg.AccessInterval {
		return true
	}
	return now.Sub(lastCompactedAt) >= c.cfg.MaxInterval
}

// DecayImportance returns the entry's decayed importance at now. Pinned
// entries never decay; for everything else the result never exceeds the
// stored importance.
func DecayImportance(e *memory.Entry, now time.Time) float64 {
	if e.Status == memory.StatusPinned {
		return e.Importance
	}
	anchor := e.LastAccessedAt
	if anchor.IsZero() {
		anchor = e.CreatedAt
	}
	days := now.Sub(anchor).Hours() / 24
	if days < 0 {
		days = 0
	}

	statusMult := 1.0
	if e.Status == memory.StatusCandidate {
		statusMult = candidateMultiplier
	}
	resistance := 0.5 + float64(e.AccessCount)*0.05
	if resistance > 1 {
		resistance = 1
	}

	decayed := e.Importance * math.Pow(decayBase, days/decayPeriodDays) * statusMult * resistance
	if decayed > e.Importance {
		decayed = e.Importance
	}
	return decayed
}

// Compact mutates the store in place: decay, TTL eviction, then
// soft-limit eviction. The engine calls it on a clone it swaps in whole.
func (c *Compactor) Compact(store *memory.Store, now time.Time) Result {
	var res Result

	for i := range store.Entries {
		e := &store.Entries[i]
		if e.Status == memory.StatusPinned {
			continue
		}
		decayed := DecayImportance(e, now)
		if decayed < e.Importance {
			e.Importance = decayed
			res.Decayed++
		}
	}

	res.Evicted = append(res.Evicted, c.evictExpired(store, now)...)
	res.TTLEvicted = len(res.Evicted)

	sizeEvicted := c.evictOverLimit(store, now)
	res.SizeEvicted = len(sizeEvicted)
	res.Evicted = append(res.Evicted, sizeEvicted...)

	c.dropDanglingConflicts(store)

	store.Metadata.LastCompactedAt = now
	store.Metadata.TotalEvictions += len(res.Evicted)
	return res
}

// evictExpired removes non-pinned entries past their category TTL unless
// access evidence earns a stay.
func (c *Compactor) evictExpired(store *memory.Store, now time.Time) []memory.Entry {
	var evicted []memory.Entry
	kept := store.Entries[:0]
	for _, e := range store.Entries {
		if c.expired(&e, now) {
			evicted = append(evicted, e)
			continue
		}
		kept = append(kept, e)
	}
	store.Entries = kept
	return evicted
}

func (c *Compactor) expired(e *memory.Entry, now time.Time) bool {
	if e.Status == memory.StatusPinned {
		return false
	}
	if e.AccessCount >= c.cfg.AccessKeep {
		return false
	}
	ttl, ok := c.cfg.TTL[e.Category]
	if !ok {
		return false
	}
	return now.Sub(e.CreatedAt) > ttl
}

// evictOverLimit removes the least important entries above the soft
// limit, down to the target. Pinned entries and entries accessed within
// the recent window are skipped.
func (c *Compactor) evictOverLimit(store *memory.Store, now time.Time) []memory.Entry {
	if len(store.Entries) <= c.cfg.SoftLimit {
		return nil
	}
	excess := len(store.Entries) - c.cfg.EvictTarget

	candidates := make([]*memory.Entry, 0, len(store.Entries))
	for i := range store.Entries {
		e := &store.Entries[i]
		if e.Status == memory.StatusPinned {
			continue
		}
		if !e.LastAccessedAt.IsZero() && now.Sub(e.LastAccessedAt) < c.cfg.RecentWindow {
			continue
		}
		candidates = append(candidates, e)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Importance < candidates[j].Importance
	})
	if len(candidates) > excess {
		candidates = candidates[:excess]
	}

	drop := make(map[string]bool, len(candidates))
	for _, e := range candidates {
		drop[e.ID] = true
	}

	var evicted []memory.Entry
	kept := store.Entries[:0]
	for _, e := range store.Entries {
		if drop[e.ID] {
			evicted = append(evicted, e)
			continue
		}
		kept = append(kept, e)
	}
	store.Entries = kept
	return evicted
}

// dropDanglingConflicts removes conflict pairs whose entries are gone.
func (c *Compactor) dropDanglingConflicts(store *memory.Store) {
	if len(store.Conflicts) == 0 {
		return
	}
	ids := make(map[string]bool, len(store.Entries))
	for i := range store.Entries {
		ids[store.Entries[i].ID] = true
	}
	kept := store.Conflicts[:0]
	for _, cp := range store.Conflicts {
		if ids[cp.EntryA] && ids[cp.EntryB] {
			kept = append(kept, cp)
		}
	}
	store.Conflicts = kept
}
