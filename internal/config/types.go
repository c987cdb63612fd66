package config

import (
	"time"

	"github.com/mnemo-oss/mnemo/internal/memory"
)

// Preset names a bundled promotion/retrieval tuning profile.
type Preset string

const (
	PresetConservative Preset = "conservative"
	PresetBalanced     Preset = "balanced"
	PresetAggressive   Preset = "aggressive"
)

// Valid reports whether p is a known preset.
func (p Preset) Valid() bool {
	return p == PresetConservative || p == PresetBalanced || p == PresetAggressive
}

// PromotionConfig controls how session findings become durable entries.
type PromotionConfig struct {
	MinPoints     int     `yaml:"min_points"`
	MinImportance float64 `yaml:"min_importance"`
	MinLength     int     `yaml:"min_length"`
}

// KeywordGroup boosts matching categories when the query contains one of
// the keywords.
type KeywordGroup struct {
	Name       string            `yaml:"name"`
	Keywords   []string          `yaml:"keywords"`
	Categories []memory.Category `yaml:"categories"`
	Bonus      float64           `yaml:"bonus"`
}

// RetrievalConfig controls the retrieval pipeline and index search.
type RetrievalConfig struct {
	MaxPinned      int           `yaml:"max_pinned"`
	InjectionTopN  int           `yaml:"injection_top_n"`
	MaxPerSource   int           `yaml:"max_per_source"`
	TopK           int           `yaml:"top_k"`
	MaxScan        int           `yaml:"max_scan"`
	Deadline       time.Duration `yaml:"deadline"`
	MedianFloor    float64       `yaml:"median_floor"`    // drop below floor × median
	ConflictFactor float64       `yaml:"conflict_factor"` // score multiplier for conflicted entries
	MaxConflicts   int           `yaml:"max_conflicts"`   // conflicts attached to a result
	DuplicateFloor float64       `yaml:"duplicate_floor"` // trigram similarity ⇒ duplicate

	CategoryWeights map[memory.Category]float64 `yaml:"category_weights"`
	KeywordGroups   []KeywordGroup              `yaml:"keyword_groups"`
}

// BudgetConfig controls the four-way token split.
type BudgetConfig struct {
	Fraction     float64 `yaml:"fraction"`      // share of remaining context
	TotalCeiling int     `yaml:"total_ceiling"` // absolute cap on the split

	AlwaysFraction float64 `yaml:"always_fraction"`
	AlwaysMin      int     `yaml:"always_min"`
	AlwaysMax      int     `yaml:"always_max"`

	BridgeFraction float64 `yaml:"bridge_fraction"`
	BridgeMin      int     `yaml:"bridge_min"`
	BridgeMax      int     `yaml:"bridge_max"`

	RetrievalFraction float64 `yaml:"retrieval_fraction"`
	RetrievalMin      int     `yaml:"retrieval_min"`
	RetrievalMax      int     `yaml:"retrieval_max"`

	SummaryMin int `yaml:"summary_min"`
	SummaryMax int `yaml:"summary_max"`
}

// SLOConfig controls the retrieval-latency degradation loop.
type SLOConfig struct {
	WindowSize int           `yaml:"window_size"`
	HealthyP95 time.Duration `yaml:"healthy_p95"`
	DegradeP95 time.Duration `yaml:"degrade_p95"`
	MinSamples int           `yaml:"min_samples"`
}

// CompactionConfig controls decay and eviction.
type CompactionConfig struct {
	AccessInterval int           `yaml:"access_interval"` // compact every N accesses
	MaxInterval    time.Duration `yaml:"max_interval"`    // or after this much time
	SoftLimit      int           `yaml:"soft_limit"`
	EvictTarget    int           `yaml:"evict_target"`
	HardLimit      int           `yaml:"hard_limit"`  // save-time guardrail
	AccessKeep     int           `yaml:"access_keep"` // accesses that exempt TTL eviction
	RecentWindow   time.Duration `yaml:"recent_window"`

	TTL map[memory.Category]time.Duration `yaml:"ttl"`
}

// FinalizeConfig controls transcript-to-finding extraction.
type FinalizeConfig struct {
	LongTextMin  int `yaml:"long_text_min"` // chars before free text is significant
	FastMaxScan  int `yaml:"fast_max_scan"` // messages scanned on abrupt shutdown
	SummaryLimit int `yaml:"summary_limit"` // chars of session summary
}

// AuditConfig controls the mutation log bounds.
type AuditConfig struct {
	Cap    int `yaml:"cap"`
	TrimTo int `yaml:"trim_to"`
}

// HookConfig declares one lifecycle hook. Type is shell, webhook, or
// log; Command serves shell hooks, URL webhooks, Level log hooks.
// Empty Events means the hook fires on everything.
type HookConfig struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	Command  string   `yaml:"command,omitempty"`
	URL      string   `yaml:"url,omitempty"`
	Level    string   `yaml:"level,omitempty"`
	Events   []string `yaml:"events,omitempty"`
	Blocking bool     `yaml:"blocking,omitempty"`
}

// Config is the fully enumerated engine configuration. Every behavior
// branch reads from here; nothing consults globals.
type Config struct {
	Preset     Preset              `yaml:"preset"`
	AutoMemory bool                `yaml:"auto_memory"`
	Flags      memory.FeatureFlags `yaml:"flags"`

	Promotion  PromotionConfig  `yaml:"promotion"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Budget     BudgetConfig     `yaml:"budget"`
	SLO        SLOConfig        `yaml:"slo"`
	Compaction CompactionConfig `yaml:"compaction"`
	Finalize   FinalizeConfig   `yaml:"finalize"`
	Audit      AuditConfig      `yaml:"audit"`

	// Aliases are user synonym overrides merged over the defaults.
	Aliases map[string][]string `yaml:"aliases"`

	// Hooks are optional lifecycle observers (advisory only).
	Hooks []HookConfig `yaml:"hooks"`

	Verbose bool `yaml:"verbose"`
}
