package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Load loads the engine configuration from <dir>/mnemo.yaml. A missing
// file yields the defaults; a malformed file is an error so the user can
// fix it rather than silently running mistuned.
func Load(dir string) (*Config, error) {
	configFile := filepath.Join(dir, "mnemo.yaml")

	content, err := os.ReadFile(configFile)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Interpolate environment variables
	content = []byte(interpolateEnv(string(content)))

	cfg := Default()
	// Promotion starts zeroed so a file that names only a preset gets that
	// preset's thresholds instead of the balanced ones baked into Default.
	cfg.Promotion = PromotionConfig{}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// interpolateEnv replaces ${VAR} references with environment values.
func interpolateEnv(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

// applyDefaults fills anything a partial config file zeroed out and
// re-derives the promotion thresholds when only a preset was given.
func applyDefaults(cfg *Config) {
	def := Default()

	if !cfg.Preset.Valid() {
		cfg.Preset = def.Preset
	}
	if cfg.Promotion == (PromotionConfig{}) {
		cfg.Promotion = promotionFor(cfg.Preset)
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Retrieval.MaxScan == 0 {
		cfg.Retrieval.MaxScan = def.Retrieval.MaxScan
	}
	if cfg.Retrieval.MaxPinned == 0 {
		cfg.Retrieval.MaxPinned = def.Retrieval.MaxPinned
	}
	if cfg.Retrieval.InjectionTopN == 0 {
		cfg.Retrieval.InjectionTopN = def.Retrieval.InjectionTopN
	}
	if cfg.Retrieval.MaxPerSource == 0 {
		cfg.Retrieval.MaxPerSource = def.Retrieval.MaxPerSource
	}
	if cfg.Retrieval.Deadline == 0 {
		cfg.Retrieval.Deadline = def.Retrieval.Deadline
	}
	if cfg.Retrieval.MedianFloor == 0 {
		cfg.Retrieval.MedianFloor = def.Retrieval.MedianFloor
	}
	if cfg.Retrieval.ConflictFactor == 0 {
		cfg.Retrieval.ConflictFactor = def.Retrieval.ConflictFactor
	}
	if cfg.Retrieval.MaxConflicts == 0 {
		cfg.Retrieval.MaxConflicts = def.Retrieval.MaxConflicts
	}
	if cfg.Retrieval.DuplicateFloor == 0 {
		cfg.Retrieval.DuplicateFloor = def.Retrieval.DuplicateFloor
	}
	if cfg.Retrieval.CategoryWeights == nil {
		cfg.Retrieval.CategoryWeights = def.Retrieval.CategoryWeights
	}
	if cfg.Retrieval.KeywordGroups == nil {
		cfg.Retrieval.KeywordGroups = def.Retrieval.KeywordGroups
	}
	if cfg.Budget.Fraction == 0 {
		cfg.Budget = def.Budget
	}
	if cfg.SLO.WindowSize == 0 {
		cfg.SLO = def.SLO
	}
	if cfg.Compaction.AccessInterval == 0 {
		cfg.Compaction.AccessInterval = def.Compaction.AccessInterval
	}
	if cfg.Compaction.MaxInterval == 0 {
		cfg.Compaction.MaxInterval = def.Compaction.MaxInterval
	}
	if cfg.Compaction.SoftLimit == 0 {
		cfg.Compaction.SoftLimit = def.Compaction.SoftLimit
	}
	if cfg.Compaction.EvictTarget == 0 {
		cfg.Compaction.EvictTarget = def.Compaction.EvictTarget
	}
	if cfg.Compaction.HardLimit == 0 {
		cfg.Compaction.HardLimit = def.Compaction.HardLimit
	}
	if cfg.Compaction.AccessKeep == 0 {
		cfg.Compaction.AccessKeep = def.Compaction.AccessKeep
	}
	if cfg.Compaction.RecentWindow == 0 {
		cfg.Compaction.RecentWindow = def.Compaction.RecentWindow
	}
	if cfg.Compaction.TTL == nil {
		cfg.Compaction.TTL = def.Compaction.TTL
	} else {
		// Partial TTL tables inherit the missing categories.
		for cat, ttl := range def.Compaction.TTL {
			if _, ok := cfg.Compaction.TTL[cat]; !ok {
				cfg.Compaction.TTL[cat] = ttl
			}
		}
	}
	if cfg.Finalize.LongTextMin == 0 {
		cfg.Finalize.LongTextMin = def.Finalize.LongTextMin
	}
	if cfg.Finalize.FastMaxScan == 0 {
		cfg.Finalize.FastMaxScan = def.Finalize.FastMaxScan
	}
	if cfg.Finalize.SummaryLimit == 0 {
		cfg.Finalize.SummaryLimit = def.Finalize.SummaryLimit
	}
	if cfg.Audit.Cap == 0 {
		cfg.Audit.Cap = def.Audit.Cap
	}
	if cfg.Audit.TrimTo == 0 {
		cfg.Audit.TrimTo = def.Audit.TrimTo
	}
	if cfg.Aliases == nil {
		cfg.Aliases = map[string][]string{}
	}
}
