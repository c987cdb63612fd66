package telemetry

import (
	"sync/atomic"
)

// Metrics collects engine runtime counters. Retrieval latency lives in
// the SLO monitor, not here.
type Metrics struct {
	Promotions     int64
	Boosts         int64
	Evictions      int64
	Retrievals     int64
	Injections     int64
	CacheHits      int64
	CacheMisses    int64
	RedactionsHit  int64
	ConflictsFound int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncPromotions increments the promotion counter.
func (m *Metrics) IncPromotions() { atomic.AddInt64(&m.Promotions, 1) }

// IncBoosts increments the fingerprint-boost counter.
func (m *Metrics) IncBoosts() { atomic.AddInt64(&m.Boosts, 1) }

// AddEvictions adds to the eviction counter.
func (m *Metrics) AddEvictions(n int) { atomic.AddInt64(&m.Evictions, int64(n)) }

// IncRetrievals increments the retrieval counter.
func (m *Metrics) IncRetrievals() { atomic.AddInt64(&m.Retrievals, 1) }

// IncInjections increments the injection counter.
func (m *Metrics) IncInjections() { atomic.AddInt64(&m.Injections, 1) }

// IncCacheHits increments the retrieval-cache hit counter.
func (m *Metrics) IncCacheHits() { atomic.AddInt64(&m.CacheHits, 1) }

// IncCacheMisses increments the retrieval-cache miss counter.
func (m *Metrics) IncCacheMisses() { atomic.AddInt64(&m.CacheMisses, 1) }

// IncRedactionsHit increments the redaction-hit counter.
func (m *Metrics) IncRedactionsHit() { atomic.AddInt64(&m.RedactionsHit, 1) }

// IncConflictsFound increments the conflict-detection counter.
func (m *Metrics) IncConflictsFound() { atomic.AddInt64(&m.ConflictsFound, 1) }

// Snapshot returns a copy of the counters for status reporting.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"promotions":      atomic.LoadInt64(&m.Promotions),
		"boosts":          atomic.LoadInt64(&m.Boosts),
		"evictions":       atomic.LoadInt64(&m.Evictions),
		"retrievals":      atomic.LoadInt64(&m.Retrievals),
		"injections":      atomic.LoadInt64(&m.Injections),
		"cache_hits":      atomic.LoadInt64(&m.CacheHits),
		"cache_misses":    atomic.LoadInt64(&m.CacheMisses),
		"redactions_hit":  atomic.LoadInt64(&m.RedactionsHit),
		"conflicts_found": atomic.LoadInt64(&m.ConflictsFound),
	}
}
