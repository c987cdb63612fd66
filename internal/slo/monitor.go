// Package slo tracks rolling retrieval latency and hands the retrieval
// pipeline a narrower search config when the p95 exceeds target. It is
// advisory: it never blocks, cancels, or errors.
package slo

import (
	"sort"
	"sync"
	"time"

	"github.com/mnemo-oss/mnemo/internal/config"
	"github.com/mnemo-oss/mnemo/internal/index"
)

// Monitor keeps a rolling window of retrieval latencies.
type Monitor struct {
	mu      sync.Mutex
	cfg     config.SLOConfig
	samples []time.Duration
	next    int
	full    bool
}

// New creates a monitor with the given thresholds.
func New(cfg config.SLOConfig) *Monitor {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 100
	}
	return &Monitor{
		cfg:     cfg,
		samples: make([]time.Duration, cfg.WindowSize),
	}
}

// Record adds one retrieval latency sample.
func (m *Monitor) Record(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples[m.next] = d
	m.next++
	if m.next == len(m.samples) {
		m.next = 0
		m.full = true
	}
}

// P95 returns the 95th-percentile latency over the window, or zero with
// no samples.
func (m *Monitor) P95() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.p95Locked()
}

func (m *Monitor) p95Locked() time.Duration {
	n := m.count()
	if n == 0 {
		return 0
	}
	window := make([]time.Duration, n)
	copy(window, m.samples[:n])
	sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })

	idx := int(float64(n) * 0.95)
	if idx >= n {
		idx = n - 1
	}
	return window[idx]
}

func (m *Monitor) count() int {
	if m.full {
		return len(m.samples)
	}
	return m.next
}

// Healthy reports whether p95 is under the healthy target.
func (m *Monitor) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.count() == 0 {
		return true
	}
	return m.p95Locked() < m.cfg.HealthyP95
}

// ShouldDegrade reports whether the next retrieval should run narrowed:
// p95 over the degrade threshold with enough samples to trust it.
func (m *Monitor) ShouldDegrade() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.count() < m.cfg.MinSamples {
		return false
	}
	return m.p95Locked() > m.cfg.DegradeP95
}

// SearchOptions derives index search bounds from the retrieval config,
// shrinking scan, top-K, and deadline when degraded. It narrows only the
// next retrieval; the window keeps rolling.
func (m *Monitor) SearchOptions(rc config.RetrievalConfig) index.SearchOptions {
	opts := index.SearchOptions{
		TopK:     rc.TopK,
		MaxScan:  rc.MaxScan,
		Deadline: rc.Deadline,
	}
	if m.ShouldDegrade() {
		opts.TopK = halve(opts.TopK)
		opts.MaxScan = halve(opts.MaxScan)
		opts.Deadline = rc.Deadline / 2
	}
	return opts
}

func halve(n int) int {
	n = n / 2
	if n < 1 {
		n = 1
	}
	return n
}
