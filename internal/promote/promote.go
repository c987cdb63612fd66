// Package promote scores session findings against weighted signals and
// admits the winners as durable candidate entries.
package promote

import (
	"time"

	"github.com/google/uuid"

	"github.com/mnemo-oss/mnemo/internal/config"
	"github.com/mnemo-oss/mnemo/internal/memory"
)

// Signal names a promotion signal.
type Signal string

const (
	SignalUserIntent      Signal = "user-intent"
	SignalExplicitPin     Signal = "explicit-pin"
	SignalMultiSession    Signal = "multi-session"
	SignalErrorResolution Signal = "error-resolution"
	SignalMultiAgent      Signal = "multi-agent"
	SignalHighImportance  Signal = "high-importance"
)

// signalWeights are fixed; presets tune the threshold, not the weights.
var signalWeights = map[Signal]int{
	SignalUserIntent:      5,
	SignalExplicitPin:     5,
	SignalMultiSession:    2,
	SignalErrorResolution: 2,
	SignalMultiAgent:      1,
	SignalHighImportance:  1,
}

const highImportanceFloor = 0.7

// Options carries explicit user intent into evaluation.
type Options struct {
	UserIntent  bool // explicit manual save
	ExplicitPin bool // explicit pin request
}

// Decision is the outcome of evaluating one finding.
type Decision struct {
	Promote bool
	Boost   bool   // fingerprint matched an existing entry
	EntryID string // existing entry id when Boost
	Points  int
	Signals []Signal
	Reason  string
}

// Engine evaluates findings for promotion.
type Engine struct {
	cfg config.PromotionConfig
}

// New creates a promotion engine with the given thresholds.
func New(cfg config.PromotionConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Evaluate applies hard filters, then scores the finding against the
// weighted signals. history is the set of previously finalized sessions
// used for the multi-session and multi-agent signals. A fingerprint
// collision with an existing entry still scores but yields a boost
// decision, never a duplicate row.
func (p *Engine) Evaluate(f memory.Finding, store *memory.Store, history []*memory.SessionMemory, opts Options) Decision {
	// Hard filters: failing either skips scoring entirely.
	if len(f.Content) < p.cfg.MinLength {
		return Decision{Reason: "content below minimum length"}
	}
	if f.Importance < p.cfg.MinImportance {
		return Decision{Reason: "importance below minimum"}
	}

	var signals []Signal
	if opts.UserIntent {
		signals = append(signals, SignalUserIntent)
	}
	if opts.ExplicitPin {
		signals = append(signals, SignalExplicitPin)
	}
	sessions, agents := fingerprintSpread(f.Fingerprint, history)
	if sessions >= 2 {
		signals = append(signals, SignalMultiSession)
	}
	if f.Category == memory.CategoryError {
		signals = append(signals, SignalErrorResolution)
	}
	if agents >= 2 {
		signals = append(signals, SignalMultiAgent)
	}
	if f.Importance >= highImportanceFloor {
		signals = append(signals, SignalHighImportance)
	}

	points := 0
	for _, s := range signals {
		points += signalWeights[s]
	}

	if existing := store.FindByFingerprint(f.Fingerprint); existing != nil {
		return Decision{
			Boost:   true,
			EntryID: existing.ID,
			Points:  points,
			Signals: signals,
			Reason:  "fingerprint matches existing entry",
		}
	}

	d := Decision{Points: points, Signals: signals}
	if points >= p.cfg.MinPoints {
		d.Promote = true
	} else {
		d.Reason = "below promotion threshold"
	}
	return d
}

// Materialize turns a promoted finding into a candidate entry draft.
func Materialize(f memory.Finding, sessionID, agentID string, d Decision, now time.Time) memory.Entry {
	names := make([]string, len(d.Signals))
	for i, s := range d.Signals {
		names[i] = string(s)
	}
	status := memory.StatusCandidate
	for _, s := range d.Signals {
		if s == SignalExplicitPin {
			status = memory.StatusPinned
		}
	}
	return memory.Entry{
		ID:          uuid.New().String(),
		Fingerprint: f.Fingerprint,
		Content:     f.Content,
		Category:    f.Category,
		Importance:  f.Importance,
		Status:      status,
		Confidence:  f.Confidence,
		Source: memory.Source{
			SessionID:        sessionID,
			AgentID:          agentID,
			PromotedAt:       now,
			PromotionSignals: names,
		},
		FilePaths: f.FilePaths,
		Tags:      f.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Boost applies a fingerprint-collision decision to the existing entry:
// importance keeps the max, access evidence accumulates.
func Boost(e *memory.Entry, f memory.Finding, now time.Time) {
	if f.Importance > e.Importance {
		e.Importance = f.Importance
	}
	e.AccessCount++
	e.LastAccessedAt = now
	e.UpdatedAt = now
}

// fingerprintSpread counts the distinct sessions and agents that produced
// a finding with this fingerprint.
func fingerprintSpread(fp string, history []*memory.SessionMemory) (sessions, agents int) {
	seenSessions := make(map[string]bool)
	seenAgents := make(map[string]bool)
	for _, sm := range history {
		for _, fd := range sm.Findings {
			if fd.Fingerprint != fp {
				continue
			}
			seenSessions[sm.SessionID] = true
			if sm.AgentID != "" {
				seenAgents[sm.AgentID] = true
			}
			break
		}
	}
	return len(seenSessions), len(seenAgents)
}
