// Package budget splits the remaining prompt context into four token
// pools: always-inject, context bridge, retrieval, and session summary.
package budget

import "github.com/mnemo-oss/mnemo/internal/config"

// Allocation is the four-way split. The components always sum to Total,
// and Total never exceeds the configured ceiling.
type Allocation struct {
	Total          int `json:"total"`
	AlwaysInject   int `json:"always_inject"`
	ContextBridge  int `json:"context_bridge"`
	Retrieval      int `json:"retrieval"`
	SessionSummary int `json:"session_summary"`
}

// Allocate runs the waterfall: a fraction of remaining context, capped,
// then each pool takes its clamped share of what is left. The minimum
// clamps are best-effort under tiny budgets; the sum invariant is exact.
func Allocate(remaining int, cfg config.BudgetConfig) Allocation {
	if remaining <= 0 {
		return Allocation{}
	}

	total := int(float64(remaining) * cfg.Fraction)
	if total > cfg.TotalCeiling {
		total = cfg.TotalCeiling
	}
	if total <= 0 {
		return Allocation{}
	}

	left := total
	always := take(int(float64(total)*cfg.AlwaysFraction), cfg.AlwaysMin, cfg.AlwaysMax, left)
	left -= always

	bridge := take(int(float64(left)*cfg.BridgeFraction), cfg.BridgeMin, cfg.BridgeMax, left)
	left -= bridge

	retrieval := take(int(float64(left)*cfg.RetrievalFraction), cfg.RetrievalMin, cfg.RetrievalMax, left)
	left -= retrieval

	// Summary gets the remainder. Overflow past its cap is rolled back
	// into the earlier pools so the parts still sum to total.
	summary := left
	if summary > cfg.SummaryMax {
		spill := summary - cfg.SummaryMax
		summary = cfg.SummaryMax

		grow := min(spill, cfg.BridgeMax-bridge)
		bridge += grow
		spill -= grow

		grow = min(spill, cfg.RetrievalMax-retrieval)
		retrieval += grow
		spill -= grow

		grow = min(spill, cfg.AlwaysMax-always)
		always += grow
		spill -= grow

		// Anything still left stays in summary; sum beats the cap.
		summary += spill
	}

	return Allocation{
		Total:          total,
		AlwaysInject:   always,
		ContextBridge:  bridge,
		Retrieval:      retrieval,
		SessionSummary: summary,
	}
}

// take clamps want into [lo, hi] and then into the available budget.
func take(want, lo, hi, available int) int {
	if want < lo {
		want = lo
	}
	if want > hi {
		want = hi
	}
	if want > available {
		want = available
	}
	if want < 0 {
		want = 0
	}
	return want
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
