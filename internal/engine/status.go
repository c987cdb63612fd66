package engine

import (
	"time"

	"github.com/mnemo-oss/mnemo/internal/memory"
)

// Status is the engine's health and inventory snapshot.
type Status struct {
	Entries          int                     `json:"entries"`
	CountsByStatus   map[memory.Status]int   `json:"counts_by_status"`
	CountsByCategory map[memory.Category]int `json:"counts_by_category"`
	Suppressed       int                     `json:"suppressed"`
	EstimatedTokens  int                     `json:"estimated_tokens"`

	UnresolvedConflicts int      `json:"unresolved_conflicts"`
	LastInjected        []string `json:"last_injected,omitempty"`

	IndexDocs  int `json:"index_docs"`
	IndexTerms int `json:"index_terms"`

	SLOHealthy bool          `json:"slo_healthy"`
	Degraded   bool          `json:"degraded"`
	P95        time.Duration `json:"p95"`

	AutoMemory          bool                `json:"auto_memory"`
	Preset              string              `json:"preset"`
	Flags               memory.FeatureFlags `json:"flags"`
	RecoveredFromBackup bool                `json:"recovered_from_backup"`

	TotalPromotions int `json:"total_promotions"`
	TotalEvictions  int `json:"total_evictions"`
	TotalAccesses   int `json:"total_accesses"`
	ArchivedEntries int `json:"archived_entries"`
	AuditEvents     int `json:"audit_events"`

	Metrics map[string]int64 `json:"metrics"`
}

// GetStatus reports counts, token estimates, index health, and the SLO
// state. Read-only against the current snapshot.
func (e *Engine) GetStatus() Status {
	if !e.isInitialized() {
		return Status{}
	}
	st := e.store.Load()
	ix := e.idx.Load()

	s := Status{
		CountsByStatus:      make(map[memory.Status]int),
		CountsByCategory:    make(map[memory.Category]int),
		IndexDocs:           ix.Len(),
		IndexTerms:          ix.Terms(),
		SLOHealthy:          e.monitor.Healthy(),
		Degraded:            e.monitor.ShouldDegrade(),
		P95:                 e.monitor.P95(),
		AutoMemory:          st.Metadata.AutoMemoryEnabled,
		Preset:              st.Metadata.ConfigPreset,
		Flags:               st.Metadata.Flags,
		RecoveredFromBackup: e.recoveredFromBackup,
		TotalPromotions:     st.Metadata.TotalPromotions,
		TotalEvictions:      st.Metadata.TotalEvictions,
		TotalAccesses:       st.Metadata.TotalAccesses,
		AuditEvents:         e.auditor.Len(),
		Metrics:             e.metrics.Snapshot(),
	}

	for i := range st.Entries {
		entry := &st.Entries[i]
		if entry.Suppressed() {
			s.Suppressed++
			continue
		}
		s.Entries++
		s.CountsByStatus[entry.Status]++
		s.CountsByCategory[entry.Category]++
		s.EstimatedTokens += memory.EstimateTokens(entry.Content)
	}
	for _, c := range st.Conflicts {
		if !c.Resolved() {
			s.UnresolvedConflicts++
		}
	}

	e.mu.Lock()
	s.LastInjected = append([]string(nil), e.lastInjected...)
	e.mu.Unlock()

	if e.archive != nil {
		if n, err := e.archive.Count(); err == nil {
			s.ArchivedEntries = n
		}
	}
	return s
}
