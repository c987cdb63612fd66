package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mnemo-oss/mnemo/internal/memory"
)

// Durations in mnemo.yaml are Go duration strings ("150ms", "24h").
// yaml.v3 cannot decode those into time.Duration directly, so the
// structs that carry durations decode through a string mirror.

func (r *RetrievalConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MaxPinned      int     `yaml:"max_pinned"`
		InjectionTopN  int     `yaml:"injection_top_n"`
		MaxPerSource   int     `yaml:"max_per_source"`
		TopK           int     `yaml:"top_k"`
		MaxScan        int     `yaml:"max_scan"`
		Deadline       string  `yaml:"deadline"`
		MedianFloor    float64 `yaml:"median_floor"`
		ConflictFactor float64 `yaml:"conflict_factor"`
		MaxConflicts   int     `yaml:"max_conflicts"`
		DuplicateFloor float64 `yaml:"duplicate_floor"`

		CategoryWeights map[memory.Category]float64 `yaml:"category_weights"`
		KeywordGroups   []KeywordGroup              `yaml:"keyword_groups"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	*r = RetrievalConfig{
		MaxPinned:       raw.MaxPinned,
		InjectionTopN:   raw.InjectionTopN,
		MaxPerSource:    raw.MaxPerSource,
		TopK:            raw.TopK,
		MaxScan:         raw.MaxScan,
		MedianFloor:     raw.MedianFloor,
		ConflictFactor:  raw.ConflictFactor,
		MaxConflicts:    raw.MaxConflicts,
		DuplicateFloor:  raw.DuplicateFloor,
		CategoryWeights: raw.CategoryWeights,
		KeywordGroups:   raw.KeywordGroups,
	}
	return parseDuration(&r.Deadline, raw.Deadline, "retrieval.deadline")
}

func (s *SLOConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		WindowSize int    `yaml:"window_size"`
		HealthyP95 string `yaml:"healthy_p95"`
		DegradeP95 string `yaml:"degrade_p95"`
		MinSamples int    `yaml:"min_samples"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	*s = SLOConfig{WindowSize: raw.WindowSize, MinSamples: raw.MinSamples}
	if err := parseDuration(&s.HealthyP95, raw.HealthyP95, "slo.healthy_p95"); err != nil {
		return err
	}
	return parseDuration(&s.DegradeP95, raw.DegradeP95, "slo.degrade_p95")
}

func (c *CompactionConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		AccessInterval int    `yaml:"access_interval"`
		MaxInterval    string `yaml:"max_interval"`
		SoftLimit      int    `yaml:"soft_limit"`
		EvictTarget    int    `yaml:"evict_target"`
		HardLimit      int    `yaml:"hard_limit"`
		AccessKeep     int    `yaml:"access_keep"`
		RecentWindow   string `yaml:"recent_window"`

		TTL map[memory.Category]string `yaml:"ttl"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	*c = CompactionConfig{
		AccessInterval: raw.AccessInterval,
		SoftLimit:      raw.SoftLimit,
		EvictTarget:    raw.EvictTarget,
		HardLimit:      raw.HardLimit,
		AccessKeep:     raw.AccessKeep,
	}
	if err := parseDuration(&c.MaxInterval, raw.MaxInterval, "compaction.max_interval"); err != nil {
		return err
	}
	if err := parseDuration(&c.RecentWindow, raw.RecentWindow, "compaction.recent_window"); err != nil {
		return err
	}

	if raw.TTL != nil {
		c.TTL = make(map[memory.Category]time.Duration, len(raw.TTL))
		for cat, s := range raw.TTL {
			var d time.Duration
			if err := parseDuration(&d, s, "compaction.ttl."+string(cat)); err != nil {
				return err
			}
			c.TTL[cat] = d
		}
	}
	return nil
}

func parseDuration(dst *time.Duration, s, field string) error {
	if s == "" {
		*dst = 0
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration for %s: %q", field, s)
	}
	*dst = d
	return nil
}
