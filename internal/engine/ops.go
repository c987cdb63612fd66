package engine

import (
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mnemo-oss/mnemo/internal/config"
	"github.com/mnemo-oss/mnemo/internal/errors"
	"github.com/mnemo-oss/mnemo/internal/event"
	"github.com/mnemo-oss/mnemo/internal/match"
	"github.com/mnemo-oss/mnemo/internal/memory"
	"github.com/mnemo-oss/mnemo/internal/promote"
	"github.com/mnemo-oss/mnemo/internal/redact"
	"github.com/mnemo-oss/mnemo/internal/storage"
)

// Remember saves content as a durable entry with explicit user intent.
// The user-intent signal alone clears every preset threshold.
func (e *Engine) Remember(content string, category memory.Category, agentID string, pin bool) (string, error) {
	if !e.isInitialized() {
		return "", errors.New(errors.CodeNotInitialized, "memory engine not initialized")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", errors.New(errors.CodeCommandInvalid, "nothing to remember")
	}
	if !category.Valid() {
		category = memory.CategoryDiscovery
	}
	if len(content) < e.cfg.Promotion.MinLength {
		return "", errors.Newf(errors.CodeCommandInvalid,
			"content too short to remember (minimum %d chars)", e.cfg.Promotion.MinLength)
	}

	var r redact.Result
	if e.cfg.Flags.EntropyRedaction {
		r = redact.Redact(content)
	} else {
		r = redact.RedactPatterns(content)
	}
	if r.HadPII {
		e.metrics.IncRedactionsHit()
	}
	content = r.Redacted
	if len(content) > memory.MaxContentLen {
		content = content[:memory.MaxContentLen]
	}

	f := memory.Finding{
		ID:          uuid.New().String(),
		Fingerprint: memory.Fingerprint(content),
		Content:     content,
		Category:    category,
		Importance:  0.9,
		Confidence:  0.9,
	}
	sm := &memory.SessionMemory{SessionID: "manual", AgentID: agentID}

	e.mu.Lock()
	e.mutateLocked(func(st *memory.Store) {
		e.promoteFinding(st, sm, &f, promote.Options{UserIntent: true, ExplicitPin: pin})
	})
	e.mu.Unlock()

	e.saveQuiet()
	if f.PromotedEntryID == "" {
		return "", errors.New(errors.CodeCommandInvalid, "entry was suppressed as a duplicate")
	}
	return f.PromotedEntryID, nil
}

// Forget suppresses an entry: it disappears from retrieval and duplicate
// candidacy but stays on disk for the audit trail.
func (e *Engine) Forget(id string, by memory.Actor) error {
	if !e.isInitialized() {
		return errors.New(errors.CodeNotInitialized, "memory engine not initialized")
	}
	found := false
	e.mutate(func(st *memory.Store) {
		entry := st.Get(id)
		if entry == nil {
			return
		}
		found = true
		entry.Suppression = &memory.Suppression{
			Suppressed:   true,
			SuppressedBy: string(by),
			SuppressedAt: now(),
		}
		entry.UpdatedAt = now()
	})
	if !found {
		return errors.Newf(errors.CodeEntryNotFound, "no entry %s", id)
	}
	e.auditor.Append("forget", id, "", by)
	e.emit(event.EntrySuppressed, map[string]interface{}{"entry_id": id, "by": string(by)})
	e.saveQuiet()
	return nil
}

// Pin promotes an entry to pinned status: always injected, exempt from
// decay and eviction.
func (e *Engine) Pin(id string) error {
	if !e.isInitialized() {
		return errors.New(errors.CodeNotInitialized, "memory engine not initialized")
	}
	found := false
	e.mutate(func(st *memory.Store) {
		entry := st.Get(id)
		if entry == nil {
			return
		}
		found = true
		entry.Status = memory.StatusPinned
		entry.UpdatedAt = now()
	})
	if !found {
		return errors.Newf(errors.CodeEntryNotFound, "no entry %s", id)
	}
	e.auditor.Append("pin", id, "", memory.ActorUser)
	e.emit(event.EntryPinned, map[string]interface{}{"entry_id": id})
	e.saveQuiet()
	return nil
}

// Confirm upgrades a candidate entry to confirmed.
func (e *Engine) Confirm(id string) error {
	if !e.isInitialized() {
		return errors.New(errors.CodeNotInitialized, "memory engine not initialized")
	}
	found := false
	e.mutate(func(st *memory.Store) {
		entry := st.Get(id)
		if entry == nil || entry.Status == memory.StatusPinned {
			return
		}
		found = true
		entry.Status = memory.StatusConfirmed
		entry.UpdatedAt = now()
	})
	if !found {
		return errors.Newf(errors.CodeEntryNotFound, "no candidate entry %s", id)
	}
	e.auditor.Append("confirm", id, "", memory.ActorUser)
	e.saveQuiet()
	return nil
}

// ResolveConflict marks the conflict between two entries resolved.
// Idempotent; resolution never reverts.
func (e *Engine) ResolveConflict(idA, idB string) error {
	if !e.isInitialized() {
		return errors.New(errors.CodeNotInitialized, "memory engine not initialized")
	}
	resolved := false
	e.mutate(func(st *memory.Store) {
		resolved = match.Resolve(st, idA, idB, now())
	})
	if !resolved {
		return errors.Newf(errors.CodeEntryNotFound, "no conflict between %s and %s", idA, idB)
	}
	e.auditor.Append("conflict-resolved", idA, idB, memory.ActorUser)
	e.emit(event.ConflictResolved, map[string]interface{}{"entry_a": idA, "entry_b": idB})
	e.saveQuiet()
	return nil
}

// SetAlias adds or replaces a user synonym mapping.
func (e *Engine) SetAlias(from string, to []string) error {
	if !e.isInitialized() {
		return errors.New(errors.CodeNotInitialized, "memory engine not initialized")
	}
	from = strings.ToLower(strings.TrimSpace(from))
	if from == "" || len(to) == 0 {
		return errors.New(errors.CodeCommandInvalid, "alias needs a term and at least one synonym")
	}
	e.mutate(func(st *memory.Store) {
		if st.Aliases == nil {
			st.Aliases = map[string][]string{}
		}
		st.Aliases[from] = to
	})
	e.auditor.Append("alias", "", from+" -> "+strings.Join(to, ","), memory.ActorUser)
	e.saveQuiet()
	return nil
}

// SetAutoMemory toggles automatic promotion at session close.
func (e *Engine) SetAutoMemory(enabled bool) {
	if !e.isInitialized() {
		return
	}
	e.mutate(func(st *memory.Store) {
		st.Metadata.AutoMemoryEnabled = enabled
	})
	e.auditor.Append("auto-memory", "", boolWord(enabled), memory.ActorUser)
	e.saveQuiet()
}

// SetPreset switches the promotion thresholds to another preset.
func (e *Engine) SetPreset(p config.Preset) error {
	if !p.Valid() {
		return errors.Newf(errors.CodeCommandInvalid, "unknown preset %q", p)
	}
	e.mu.Lock()
	e.cfg.Preset = p
	e.cfg.Promotion = config.ForPreset(p).Promotion
	e.promoter = promote.New(e.cfg.Promotion)
	e.mu.Unlock()

	e.mutate(func(st *memory.Store) {
		st.Metadata.ConfigPreset = string(p)
	})
	e.auditor.Append("preset", "", string(p), memory.ActorUser)
	e.saveQuiet()
	return nil
}

// Entries returns a snapshot copy of all non-suppressed entries, most
// important first.
func (e *Engine) Entries() []memory.Entry {
	if !e.isInitialized() {
		return nil
	}
	st := e.store.Load()
	out := make([]memory.Entry, 0, len(st.Entries))
	for _, entry := range st.Entries {
		if !entry.Suppressed() {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	return out
}

// Compact runs a maintenance pass immediately instead of waiting for the
// next access or time trigger: decay, TTL eviction, and soft-limit
// eviction. Returns the number of entries evicted.
func (e *Engine) Compact() (int, error) {
	if !e.isInitialized() {
		return 0, errors.New(errors.CodeNotInitialized, "memory engine not initialized")
	}
	evicted := 0
	e.mu.Lock()
	e.mutateLocked(func(st *memory.Store) {
		result := e.compactor.Compact(st, now())
		e.archiveEvicted(result.Evicted, "manual")
		evicted = len(result.Evicted)
	})
	e.accessesSinceCompact = 0
	e.mu.Unlock()
	e.metrics.AddEvictions(evicted)
	e.auditor.Append("compact", "", strconv.Itoa(evicted)+" evicted", memory.ActorUser)
	e.saveQuiet()
	return evicted, nil
}

// SearchArchive queries the cold archive of evicted entries.
func (e *Engine) SearchArchive(pattern string, limit int) ([]storage.ArchivedEntry, error) {
	if !e.isInitialized() {
		return nil, errors.New(errors.CodeNotInitialized, "memory engine not initialized")
	}
	if e.archive == nil {
		return nil, errors.New(errors.CodeArchiveError, "cold archive disabled").
			WithSuggestion("enable the cold_archive feature flag")
	}
	out, err := e.archive.Search(pattern, limit)
	if err != nil {
		return nil, errors.Wrap(errors.CodeArchiveError, "archive search failed", err)
	}
	return out, nil
}

// Flags returns the active feature flags.
func (e *Engine) Flags() memory.FeatureFlags { return e.cfg.Flags }

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// AuditTrail returns the most recent n audit events.
func (e *Engine) AuditTrail(n int) []memory.AuditEvent {
	if !e.isInitialized() {
		return nil
	}
	return e.auditor.Events(n)
}

func (e *Engine) saveQuiet() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return
	}
	if err := e.files.SaveProject(e.store.Load()); err != nil {
		e.warn("failed to save project memory", "error", err)
	}
	if err := e.auditor.Flush(); err != nil {
		e.warn("failed to flush audit log", "error", err)
	}
}

func boolWord(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
