package memory

import "time"

// StoreVersion is the current persisted schema version.
const StoreVersion = 3

// Metadata holds store-level counters and settings.
type Metadata struct {
	CreatedAt       time.Time `json:"created_at"`
	LastCompactedAt time.Time `json:"last_compacted_at,omitempty"`

	TotalPromotions int `json:"total_promotions"`
	TotalEvictions  int `json:"total_evictions"`
	TotalAccesses   int `json:"total_accesses"`

	AutoMemoryEnabled bool         `json:"auto_memory_enabled"`
	ConfigPreset      string       `json:"config_preset"`
	Flags             FeatureFlags `json:"flags"`
}

// Store is the persisted root for one project's memory. It is exclusively
// owned by the storage layer; other components receive it by reference for
// a single operation and must not retain it across a suspension point.
type Store struct {
	Version   int                 `json:"version"`
	Entries   []Entry             `json:"entries"`
	Aliases   map[string][]string `json:"aliases,omitempty"`
	Conflicts []ConflictPair      `json:"conflicts,omitempty"`
	Metadata  Metadata            `json:"metadata"`
}

// NewStore returns an empty store at the current version.
func NewStore() *Store {
	return &Store{
		Version: StoreVersion,
		Entries: make([]Entry, 0),
		Aliases: make(map[string][]string),
		Metadata: Metadata{
			CreatedAt:         time.Now(),
			AutoMemoryEnabled: true,
			ConfigPreset:      "balanced",
			Flags:             DefaultFeatureFlags(),
		},
	}
}

// Get returns a pointer to the entry with the given id, or nil.
func (s *Store) Get(id string) *Entry {
	for i := range s.Entries {
		if s.Entries[i].ID == id {
			return &s.Entries[i]
		}
	}
	return nil
}

// FindByFingerprint returns the entry with a matching fingerprint, or nil.
// A match means boost-not-insert, never a duplicate row.
func (s *Store) FindByFingerprint(fp string) *Entry {
	for i := range s.Entries {
		if s.Entries[i].Fingerprint == fp {
			return &s.Entries[i]
		}
	}
	return nil
}

// Remove deletes the entry with the given id, reporting whether it existed.
func (s *Store) Remove(id string) bool {
	for i := range s.Entries {
		if s.Entries[i].ID == id {
			s.Entries = append(s.Entries[:i], s.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// UnresolvedConflicts returns conflicts that have not been resolved.
func (s *Store) UnresolvedConflicts() []ConflictPair {
	var out []ConflictPair
	for _, c := range s.Conflicts {
		if !c.Resolved() {
			out = append(out, c)
		}
	}
	return out
}

// InUnresolvedConflict reports whether the entry id appears in any
// unresolved conflict pair.
func (s *Store) InUnresolvedConflict(id string) bool {
	for _, c := range s.Conflicts {
		if !c.Resolved() && c.Involves(id) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Mutators operate on a clone and swap it in
// wholesale so readers never observe a half-updated store.
func (s *Store) Clone() *Store {
	cp := &Store{
		Version:  s.Version,
		Entries:  make([]Entry, len(s.Entries)),
		Metadata: s.Metadata,
	}
	for i, e := range s.Entries {
		cp.Entries[i] = cloneEntry(e)
	}
	if s.Aliases != nil {
		cp.Aliases = make(map[string][]string, len(s.Aliases))
		for k, v := range s.Aliases {
			cp.Aliases[k] = append([]string(nil), v...)
		}
	}
	if s.Conflicts != nil {
		cp.Conflicts = make([]ConflictPair, len(s.Conflicts))
		for i, c := range s.Conflicts {
			cp.Conflicts[i] = c
			if c.ResolvedAt != nil {
				t := *c.ResolvedAt
				cp.Conflicts[i].ResolvedAt = &t
			}
		}
	}
	return cp
}

func cloneEntry(e Entry) Entry {
	e.FilePaths = append([]string(nil), e.FilePaths...)
	e.Tags = append([]string(nil), e.Tags...)
	e.Source.PromotionSignals = append([]string(nil), e.Source.PromotionSignals...)
	if e.Suppression != nil {
		sup := *e.Suppression
		e.Suppression = &sup
	}
	if e.Usage != nil {
		u := *e.Usage
		u.TargetAgents = append([]string(nil), u.TargetAgents...)
		e.Usage = &u
	}
	return e
}
