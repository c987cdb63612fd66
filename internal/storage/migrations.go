package storage

import (
	"fmt"

	"github.com/mnemo-oss/mnemo/internal/memory"
)

// migration transforms a raw store document from version From to From+1.
// Each step is validated before the next runs.
type migration struct {
	From  int
	Apply func(doc map[string]any) error
}

// Ordered chain. Version history:
//
//	1: entries + metadata only
//	2: adds aliases map
//	3: adds conflicts list and feature flags in metadata
var migrations = []migration{
	{From: 1, Apply: func(doc map[string]any) error {
		if _, ok := doc["aliases"]; !ok {
			doc["aliases"] = map[string]any{}
		}
		return nil
	}},
	{From: 2, Apply: func(doc map[string]any) error {
		if _, ok := doc["conflicts"]; !ok {
			doc["conflicts"] = []any{}
		}
		meta, ok := doc["metadata"].(map[string]any)
		if !ok {
			meta = map[string]any{}
			doc["metadata"] = meta
		}
		if _, ok := meta["flags"]; !ok {
			meta["flags"] = memory.DefaultFeatureFlags()
		}
		return nil
	}},
}

// migrate walks the chain from the document's version to the current one.
// A version with no registered step means the file came from a newer or
// unknown build; the caller falls back to recovery rather than risk a
// corrupt read.
func migrate(doc map[string]any) (map[string]any, bool, error) {
	version := intField(doc, "version")
	if version == memory.StoreVersion {
		return doc, false, nil
	}
	if version <= 0 || version > memory.StoreVersion {
		return nil, false, fmt.Errorf("unhandled store version %d", version)
	}

	migrated := false
	for version < memory.StoreVersion {
		step := stepFor(version)
		if step == nil {
			return nil, false, fmt.Errorf("no migration from version %d", version)
		}
		if err := step.Apply(doc); err != nil {
			return nil, false, fmt.Errorf("migration from version %d failed: %w", version, err)
		}
		version++
		doc["version"] = version
		if err := postStepValidate(doc); err != nil {
			return nil, false, fmt.Errorf("migration to version %d produced invalid store: %w", version, err)
		}
		migrated = true
	}
	return doc, migrated, nil
}

func stepFor(version int) *migration {
	for i := range migrations {
		if migrations[i].From == version {
			return &migrations[i]
		}
	}
	return nil
}

// postStepValidate checks the invariants every version shares.
func postStepValidate(doc map[string]any) error {
	if _, ok := doc["entries"]; !ok {
		return fmt.Errorf("missing entries")
	}
	if intField(doc, "version") <= 0 {
		return fmt.Errorf("missing version")
	}
	return nil
}

func intField(doc map[string]any, key string) int {
	switch v := doc[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
