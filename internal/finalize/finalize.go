// Package finalize converts a finished session's transcript into
// deduplicated findings ready for promotion.
package finalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mnemo-oss/mnemo/internal/config"
	"github.com/mnemo-oss/mnemo/internal/memory"
	"github.com/mnemo-oss/mnemo/internal/redact"
	"github.com/mnemo-oss/mnemo/internal/telemetry"
)

// Message is one transcript turn as delivered by the hosting tool.
type Message struct {
	ID        string
	Role      string // user, assistant, system, tool
	Text      string
	FileEdits []string // paths touched by this turn
	ErrorText string   // error block attached to this turn, if any
	Timestamp time.Time
}

// Finalizer extracts findings from assistant turns.
type Finalizer struct {
	cfg     config.FinalizeConfig
	entropy bool // entropy redaction flag
	logger  *telemetry.Logger
}

// New creates a finalizer.
func New(cfg config.FinalizeConfig, flags memory.FeatureFlags, logger *telemetry.Logger) *Finalizer {
	return &Finalizer{cfg: cfg, entropy: flags.EntropyRedaction, logger: logger}
}

// Finalize walks the transcript and produces the session's memory. A
// single message's extraction failure is logged and skipped; it never
// aborts the rest of the walk.
func (f *Finalizer) Finalize(sessionID, parentSessionID, agentID string, msgs []Message) *memory.SessionMemory {
	sm := &memory.SessionMemory{
		SessionID:       sessionID,
		ParentSessionID: parentSessionID,
		AgentID:         agentID,
		CreatedAt:       time.Now(),
	}

	byFingerprint := make(map[string]int) // fingerprint -> index in sm.Findings
	for _, msg := range msgs {
		if msg.Role != "assistant" {
			continue
		}
		findings := f.extractSafe(msg)
		for _, fd := range findings {
			// Dedup on fingerprint, keeping the highest importance.
			if i, ok := byFingerprint[fd.Fingerprint]; ok {
				if fd.Importance > sm.Findings[i].Importance {
					sm.Findings[i] = fd
				}
				continue
			}
			byFingerprint[fd.Fingerprint] = len(sm.Findings)
			sm.Findings = append(sm.Findings, fd)
		}
	}

	sm.Summary = f.summarize(sm.Findings, msgs)
	sm.FinalizedAt = time.Now()
	return sm
}

// FinalizeFast is the synchronous variant for abrupt-shutdown paths: it
// scans only the most recent messages and skips summary generation.
func (f *Finalizer) FinalizeFast(sessionID, parentSessionID, agentID string, msgs []Message) *memory.SessionMemory {
	if len(msgs) > f.cfg.FastMaxScan {
		msgs = msgs[len(msgs)-f.cfg.FastMaxScan:]
	}
	sm := f.Finalize(sessionID, parentSessionID, agentID, msgs)
	sm.Summary = ""
	return sm
}

// extractSafe isolates per-message extraction so one bad message cannot
// abort finalization.
func (f *Finalizer) extractSafe(msg Message) (findings []memory.Finding) {
	defer func() {
		if r := recover(); r != nil {
			if f.logger != nil {
				f.logger.Warn("message extraction failed, skipping", "message", msg.ID, "panic", r)
			}
			findings = nil
		}
	}()
	return f.extract(msg)
}

// extract pulls one finding per significant item in the message: an
// error block, each file edit, and long free text.
func (f *Finalizer) extract(msg Message) []memory.Finding {
	var out []memory.Finding

	if msg.ErrorText != "" {
		out = append(out, f.newFinding(
			"Resolved error: "+firstLine(msg.ErrorText),
			memory.CategoryError, 0.75, 0.8, nil,
		))
	}

	for _, path := range msg.FileEdits {
		content := fmt.Sprintf("Edited %s: %s", path, snippet(msg.Text, 120))
		out = append(out, f.newFinding(content, memory.CategoryFileChange, 0.5, 0.7, []string{path}))
	}

	if len(msg.Text) >= f.cfg.LongTextMin {
		cat := classify(msg.Text)
		imp := 0.4 + lengthFactor(msg.Text)
		out = append(out, f.newFinding(snippet(msg.Text, memory.MaxContentLen), cat, imp, 0.6, nil))
	}

	return out
}

func (f *Finalizer) newFinding(content string, cat memory.Category, importance, confidence float64, paths []string) memory.Finding {
	var r redact.Result
	if f.entropy {
		r = redact.Redact(content)
	} else {
		r = redact.RedactPatterns(content)
	}
	content = snippet(r.Redacted, memory.MaxContentLen)

	return memory.Finding{
		ID:          uuid.New().String(),
		Fingerprint: memory.Fingerprint(content),
		Content:     content,
		Category:    cat,
		Importance:  clamp01(importance),
		Confidence:  clamp01(confidence),
		FilePaths:   paths,
	}
}

// classify buckets long free text by keyword. Heuristic only; the
// promotion engine weighs the result, it does not trust it.
func classify(text string) memory.Category {
	t := strings.ToLower(text)
	switch {
	case containsAny(t, "decided", "decision", "we chose", "going with", "agreed to"):
		return memory.CategoryDecision
	case containsAny(t, "warning", "careful", "watch out", "do not", "don't"):
		return memory.CategoryWarning
	case containsAny(t, "architecture", "structure", "module boundary", "layering"):
		return memory.CategoryArchitecture
	case containsAny(t, "pattern", "convention", "idiom"):
		return memory.CategoryPattern
	case containsAny(t, "prefer", "preference", "style"):
		return memory.CategoryPreference
	case containsAny(t, "todo", "next step", "in progress", "remaining"):
		return memory.CategoryTaskProgress
	default:
		return memory.CategoryDiscovery
	}
}

func (f *Finalizer) summarize(findings []memory.Finding, msgs []Message) string {
	var b strings.Builder
	for _, fd := range findings {
		if b.Len() >= f.cfg.SummaryLimit {
			break
		}
		b.WriteString(firstLine(fd.Content))
		b.WriteString("; ")
	}
	if b.Len() == 0 {
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i].Role == "assistant" && msgs[i].Text != "" {
				return snippet(msgs[i].Text, f.cfg.SummaryLimit)
			}
		}
	}
	return snippet(strings.TrimSuffix(b.String(), "; "), f.cfg.SummaryLimit)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func snippet(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// lengthFactor adds up to 0.3 importance for substantial text.
func lengthFactor(s string) float64 {
	f := float64(len(s)) / 2000.0 * 0.3
	if f > 0.3 {
		f = 0.3
	}
	return f
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
