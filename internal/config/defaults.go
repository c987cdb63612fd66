package config

import (
	"time"

	"github.com/mnemo-oss/mnemo/internal/memory"
)

// Default returns the balanced configuration.
func Default() *Config {
	cfg := &Config{
		Preset:     PresetBalanced,
		AutoMemory: true,
		Flags:      memory.DefaultFeatureFlags(),
		Promotion:  promotionFor(PresetBalanced),
		Retrieval: RetrievalConfig{
			MaxPinned:      5,
			InjectionTopN:  5,
			MaxPerSource:   2,
			TopK:           20,
			MaxScan:        2000,
			Deadline:       150 * time.Millisecond,
			MedianFloor:    0.5,
			ConflictFactor: 0.85,
			MaxConflicts:   2,
			DuplicateFloor: 0.55,
			CategoryWeights: map[memory.Category]float64{
				memory.CategoryDecision:     1.2,
				memory.CategoryArchitecture: 1.2,
				memory.CategoryPreference:   1.1,
				memory.CategoryWarning:      1.1,
				memory.CategoryTaskProgress: 0.8,
			},
			KeywordGroups: defaultKeywordGroups(),
		},
		Budget: BudgetConfig{
			Fraction:          0.08,
			TotalCeiling:      5000,
			AlwaysFraction:    0.08,
			AlwaysMin:         200,
			AlwaysMax:         400,
			BridgeFraction:    0.50,
			BridgeMin:         500,
			BridgeMax:         3000,
			RetrievalFraction: 0.65,
			RetrievalMin:      300,
			RetrievalMax:      1500,
			SummaryMin:        200,
			SummaryMax:        600,
		},
		SLO: SLOConfig{
			WindowSize: 100,
			HealthyP95: 200 * time.Millisecond,
			DegradeP95: 300 * time.Millisecond,
			MinSamples: 5,
		},
		Compaction: CompactionConfig{
			AccessInterval: 50,
			MaxInterval:    24 * time.Hour,
			SoftLimit:      3000,
			EvictTarget:    2700,
			HardLimit:      3000,
			AccessKeep:     3,
			RecentWindow:   24 * time.Hour,
			TTL:            DefaultTTLs(),
		},
		Finalize: FinalizeConfig{
			LongTextMin:  200,
			FastMaxScan:  50,
			SummaryLimit: 400,
		},
		Audit: AuditConfig{
			Cap:    5000,
			TrimTo: 4000,
		},
		Aliases: map[string][]string{},
	}
	return cfg
}

// ForPreset returns the default config tuned to the given preset.
func ForPreset(p Preset) *Config {
	cfg := Default()
	if p.Valid() {
		cfg.Preset = p
		cfg.Promotion = promotionFor(p)
	}
	return cfg
}

func promotionFor(p Preset) PromotionConfig {
	switch p {
	case PresetConservative:
		return PromotionConfig{MinPoints: 4, MinImportance: 0.4, MinLength: 50}
	case PresetAggressive:
		return PromotionConfig{MinPoints: 2, MinImportance: 0.15, MinLength: 20}
	default:
		return PromotionConfig{MinPoints: 3, MinImportance: 0.25, MinLength: 30}
	}
}

// DefaultTTLs returns the per-category eviction ages.
func DefaultTTLs() map[memory.Category]time.Duration {
	day := 24 * time.Hour
	return map[memory.Category]time.Duration{
		memory.CategoryDiscovery:    21 * day,
		memory.CategoryFileChange:   21 * day,
		memory.CategoryTaskProgress: 14 * day,
		memory.CategoryWarning:      30 * day,
		memory.CategoryDecision:     90 * day,
		memory.CategoryError:        90 * day,
		memory.CategoryArchitecture: 180 * day,
		memory.CategoryPattern:      180 * day,
		memory.CategoryPreference:   365 * day,
	}
}

// defaultKeywordGroups are the built-in query keyword → category bonuses.
// User config may replace them wholesale.
func defaultKeywordGroups() []KeywordGroup {
	return []KeywordGroup{
		{
			Name:       "errors",
			Keywords:   []string{"error", "fail", "failed", "failure", "exception", "bug", "crash", "fix", "broken"},
			Categories: []memory.Category{memory.CategoryError, memory.CategoryWarning},
			Bonus:      0.2,
		},
		{
			Name:       "decisions",
			Keywords:   []string{"decide", "decided", "decision", "choose", "chose", "convention", "policy", "agreed"},
			Categories: []memory.Category{memory.CategoryDecision, memory.CategoryPreference},
			Bonus:      0.2,
		},
		{
			Name:       "architecture",
			Keywords:   []string{"architecture", "structure", "design", "module", "layer", "component", "boundary"},
			Categories: []memory.Category{memory.CategoryArchitecture, memory.CategoryPattern},
			Bonus:      0.2,
		},
	}
}
