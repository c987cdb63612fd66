package engine

import (
	"time"

	"github.com/mnemo-oss/mnemo/internal/event"
	"github.com/mnemo-oss/mnemo/internal/finalize"
	"github.com/mnemo-oss/mnemo/internal/match"
	"github.com/mnemo-oss/mnemo/internal/memory"
	"github.com/mnemo-oss/mnemo/internal/promote"
)

// now is swapped out by tests that need to age entries.
var now = time.Now

// OnMessage records one transcript turn for a live session. Cheap: a
// message pointer plus an in-memory buffer entry; findings are not
// scored until the session closes. A due compaction pass may still run
// here so long-lived sessions keep evicting.
func (e *Engine) OnMessage(sessionID, agentID string, msg finalize.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return
	}

	buf, ok := e.sessions[sessionID]
	if !ok {
		buf = &sessionBuffer{agentID: agentID}
		e.sessions[sessionID] = buf
	}
	buf.messages = append(buf.messages, msg)

	hint := memory.Category("")
	if msg.ErrorText != "" {
		hint = memory.CategoryError
	} else if len(msg.FileEdits) > 0 {
		hint = memory.CategoryFileChange
	}
	e.tracker.Record(msg.ID, msg.Text, hint)
	e.maybeCompactLocked()
}

// SetSessionParent links a session to the one that spawned it.
func (e *Engine) SetSessionParent(sessionID, parentSessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if buf, ok := e.sessions[sessionID]; ok {
		buf.parentSessionID = parentSessionID
	}
}

// OnSessionClose finalizes the session's transcript into findings,
// promotes what qualifies, and persists everything.
func (e *Engine) OnSessionClose(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return
	}

	buf, ok := e.sessions[sessionID]
	if !ok {
		return
	}
	delete(e.sessions, sessionID)

	sm := e.finalizer.Finalize(sessionID, buf.parentSessionID, buf.agentID, buf.messages)
	e.promoteSessionLocked(sm)
}

// promoteSessionLocked runs promotion for a finalized session and saves
// the store. Caller holds e.mu.
func (e *Engine) promoteSessionLocked(sm *memory.SessionMemory) {
	store := e.store.Load()
	autoEnabled := store.Metadata.AutoMemoryEnabled && e.cfg.AutoMemory

	if autoEnabled {
		e.mutateLocked(func(st *memory.Store) {
			for i := range sm.Findings {
				e.promoteFinding(st, sm, &sm.Findings[i], promote.Options{})
			}
		})
	}
	e.maybeCompactLocked()

	e.history = append(e.history, sm)
	e.emit(event.SessionFinalized, map[string]interface{}{
		"session_id": sm.SessionID,
		"agent_id":   sm.AgentID,
		"findings":   len(sm.Findings),
	})
	if err := e.files.SaveSession(sm); err != nil {
		e.warn("failed to save session memory", "session", sm.SessionID, "error", err)
	}
	if err := e.files.SaveProject(e.store.Load()); err != nil {
		e.warn("failed to save project memory", "error", err)
	}
	if err := e.auditor.Flush(); err != nil {
		e.warn("failed to flush audit log", "error", err)
	}
}

// promoteFinding evaluates one finding against the store being mutated.
func (e *Engine) promoteFinding(st *memory.Store, sm *memory.SessionMemory, f *memory.Finding, opts promote.Options) {
	decision := e.promoter.Evaluate(*f, st, e.history, opts)

	switch {
	case decision.Boost:
		if existing := st.Get(decision.EntryID); existing != nil {
			promote.Boost(existing, *f, now())
			f.PromotedToProjectMemory = true
			f.PromotedEntryID = existing.ID
			e.metrics.IncBoosts()
			e.auditor.Append("boost", existing.ID, "fingerprint collision", memory.ActorAuto)
			e.emit(event.EntryBoosted, map[string]interface{}{"entry_id": existing.ID})
		}
	case decision.Promote:
		if e.cfg.Flags.DuplicateCheck {
			if dup, ok := match.FindDuplicate(f.Content, st, e.idx.Load(), e.cfg.Retrieval.DuplicateFloor); ok {
				e.debug("finding suppressed as near-duplicate", "matched", dup.MatchedEntryID, "score", dup.Score)
				if existing := st.Get(dup.MatchedEntryID); existing != nil {
					promote.Boost(existing, *f, now())
				}
				e.auditor.Append("duplicate-suppressed", dup.MatchedEntryID, f.Content, memory.ActorAuto)
				return
			}
		}

		entry := promote.Materialize(*f, sm.SessionID, sm.AgentID, decision, now())
		st.Entries = append(st.Entries, entry)
		st.Metadata.TotalPromotions++
		f.PromotedToProjectMemory = true
		f.PromotedEntryID = entry.ID
		e.metrics.IncPromotions()
		e.auditor.Append("promote", entry.ID, entry.Content, promotionActor(opts))
		e.emit(event.EntryPromoted, map[string]interface{}{
			"entry_id": entry.ID,
			"category": string(entry.Category),
			"status":   string(entry.Status),
		})

		if e.cfg.Flags.ConflictDetection {
			e.detectConflicts(st, &entry)
		}
	}
}

func (e *Engine) detectConflicts(st *memory.Store, entry *memory.Entry) {
	pairs := match.DetectConflicts(entry, st, now())
	for _, cp := range pairs {
		if hasPair(st.Conflicts, cp.EntryA, cp.EntryB) {
			continue
		}
		st.Conflicts = append(st.Conflicts, cp)
		e.metrics.IncConflictsFound()
		e.auditor.Append("conflict-detected", cp.EntryA, cp.DetectedReason, memory.ActorSystem)
		e.emit(event.ConflictDetected, map[string]interface{}{
			"entry_a":  cp.EntryA,
			"entry_b":  cp.EntryB,
			"type":     string(cp.Type),
			"severity": string(cp.Severity),
		})
	}
}

func hasPair(conflicts []memory.ConflictPair, a, b string) bool {
	for _, c := range conflicts {
		if (c.EntryA == a && c.EntryB == b) || (c.EntryA == b && c.EntryB == a) {
			return true
		}
	}
	return false
}

func promotionActor(opts promote.Options) memory.Actor {
	if opts.UserIntent || opts.ExplicitPin {
		return memory.ActorUser
	}
	return memory.ActorAuto
}
