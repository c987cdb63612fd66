// Package command routes chat slash-commands to the memory engine. Every
// outcome, including validation failure, comes back as user-visible text;
// the router never returns an error.
package command

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mnemo-oss/mnemo/internal/config"
	"github.com/mnemo-oss/mnemo/internal/engine"
	"github.com/mnemo-oss/mnemo/internal/memory"
	"github.com/mnemo-oss/mnemo/internal/retrieve"
)

const usage = `Memory commands:
  /remember [category:] <text>   save a fact (categories: discovery, decision,
                                 file_change, error, architecture, task_progress,
                                 pattern, warning, preference)
  /forget <entry-id>             suppress an entry
  /pin <entry-id>                pin an entry (always injected, never evicted)
  /memory status                 counts, tokens, index and SLO health
  /memory list [n]               top entries by importance
  /memory search <query>         search project memory
  /memory budget <remaining>     show the token split for a context size
  /memory alias <term> <syn,...> add a search synonym
  /memory auto on|off            toggle automatic promotion
  /memory config [preset]        show or switch preset
  /memory flags                  show feature flags`

// Router dispatches slash-commands against one engine.
type Router struct {
	eng *engine.Engine
}

// New creates a router.
func New(eng *engine.Engine) *Router {
	return &Router{eng: eng}
}

// Handles reports whether the line is a memory command.
func (r *Router) Handles(line string) bool {
	cmd := strings.Fields(strings.TrimSpace(line))
	if len(cmd) == 0 {
		return false
	}
	switch cmd[0] {
	case "/remember", "/forget", "/pin", "/memory":
		return true
	}
	return false
}

// Route executes the command and returns the reply text.
func (r *Router) Route(line, agentID string) string {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return usage
	}

	switch fields[0] {
	case "/remember":
		return r.remember(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "/remember")), agentID)
	case "/forget":
		if len(fields) != 2 {
			return "Usage: /forget <entry-id>"
		}
		if err := r.eng.Forget(fields[1], memory.ActorUser); err != nil {
			return err.Error()
		}
		return "Forgotten: " + fields[1]
	case "/pin":
		if len(fields) != 2 {
			return "Usage: /pin <entry-id>"
		}
		if err := r.eng.Pin(fields[1]); err != nil {
			return err.Error()
		}
		return "Pinned: " + fields[1]
	case "/memory":
		if len(fields) < 2 {
			return usage
		}
		return r.memory(fields[1], fields[2:])
	default:
		return usage
	}
}

func (r *Router) remember(arg, agentID string) string {
	if arg == "" {
		return "Usage: /remember [category:] <text>"
	}

	category := memory.CategoryDiscovery
	if i := strings.Index(arg, ":"); i > 0 {
		if c := memory.Category(arg[:i]); c.Valid() {
			category = c
			arg = strings.TrimSpace(arg[i+1:])
		}
	}

	id, err := r.eng.Remember(arg, category, agentID, false)
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("Remembered as %s entry %s", category, id)
}

func (r *Router) memory(sub string, args []string) string {
	switch sub {
	case "status":
		return r.status()
	case "list":
		n := 10
		if len(args) > 0 {
			if v, err := strconv.Atoi(args[0]); err == nil && v > 0 {
				n = v
			}
		}
		return r.list(n)
	case "search":
		if len(args) == 0 {
			return "Usage: /memory search <query>"
		}
		return r.search(strings.Join(args, " "))
	case "budget":
		if len(args) != 1 {
			return "Usage: /memory budget <remaining-context-tokens>"
		}
		remaining, err := strconv.Atoi(args[0])
		if err != nil || remaining < 0 {
			return "Usage: /memory budget <remaining-context-tokens>"
		}
		a := r.eng.AllocateBudget(remaining)
		return fmt.Sprintf("Budget for %d remaining tokens: total=%d always=%d bridge=%d retrieval=%d summary=%d",
			remaining, a.Total, a.AlwaysInject, a.ContextBridge, a.Retrieval, a.SessionSummary)
	case "alias":
		if len(args) < 2 {
			return "Usage: /memory alias <term> <synonym[,synonym...]>"
		}
		syns := strings.Split(strings.Join(args[1:], ","), ",")
		clean := syns[:0]
		for _, s := range syns {
			if s = strings.TrimSpace(s); s != "" {
				clean = append(clean, s)
			}
		}
		if err := r.eng.SetAlias(args[0], clean); err != nil {
			return err.Error()
		}
		return fmt.Sprintf("Alias added: %s -> %s", args[0], strings.Join(clean, ", "))
	case "auto":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return "Usage: /memory auto on|off"
		}
		r.eng.SetAutoMemory(args[0] == "on")
		return "Auto memory " + args[0]
	case "config":
		if len(args) == 0 {
			cfg := r.eng.Config()
			return fmt.Sprintf("Preset: %s (min points %d, min importance %.2f, min length %d)",
				cfg.Preset, cfg.Promotion.MinPoints, cfg.Promotion.MinImportance, cfg.Promotion.MinLength)
		}
		if err := r.eng.SetPreset(config.Preset(args[0])); err != nil {
			return err.Error()
		}
		return "Preset switched to " + args[0]
	case "flags":
		f := r.eng.Flags()
		return fmt.Sprintf("Flags: conflict_detection=%t duplicate_check=%t entropy_redaction=%t cold_archive=%t retrieval_cache=%t",
			f.ConflictDetection, f.DuplicateCheck, f.EntropyRedaction, f.ColdArchive, f.RetrievalCache)
	default:
		return usage
	}
}

func (r *Router) status() string {
	s := r.eng.GetStatus()
	var b strings.Builder
	fmt.Fprintf(&b, "Entries: %d (%d suppressed), ~%d tokens\n", s.Entries, s.Suppressed, s.EstimatedTokens)

	statuses := make([]string, 0, len(s.CountsByStatus))
	for st, n := range s.CountsByStatus {
		statuses = append(statuses, fmt.Sprintf("%s=%d", st, n))
	}
	sort.Strings(statuses)
	fmt.Fprintf(&b, "By status: %s\n", strings.Join(statuses, " "))

	cats := make([]string, 0, len(s.CountsByCategory))
	for c, n := range s.CountsByCategory {
		cats = append(cats, fmt.Sprintf("%s=%d", c, n))
	}
	sort.Strings(cats)
	fmt.Fprintf(&b, "By category: %s\n", strings.Join(cats, " "))

	fmt.Fprintf(&b, "Index: %d docs, %d terms\n", s.IndexDocs, s.IndexTerms)
	fmt.Fprintf(&b, "SLO: healthy=%t degraded=%t p95=%s\n", s.SLOHealthy, s.Degraded, s.P95)
	fmt.Fprintf(&b, "Conflicts unresolved: %d; promotions %d, evictions %d, accesses %d",
		s.UnresolvedConflicts, s.TotalPromotions, s.TotalEvictions, s.TotalAccesses)
	if s.RecoveredFromBackup {
		b.WriteString("\nNote: store was recovered from backup at startup")
	}
	return b.String()
}

func (r *Router) list(n int) string {
	entries := r.eng.Entries()
	if len(entries) == 0 {
		return "No memory entries yet."
	}
	if len(entries) > n {
		entries = entries[:n]
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s  [%s/%s] i=%.2f  %s\n", e.ID, e.Category, e.Status, e.Importance, clip(e.Content, 80))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Router) search(query string) string {
	res := r.eng.Retrieve(query, "user", retrieve.Options{})
	if len(res.Pinned) == 0 && len(res.Entries) == 0 {
		return "No matches."
	}
	var b strings.Builder
	for _, e := range res.Pinned {
		fmt.Fprintf(&b, "pinned  [%s] %s\n", e.Category, clip(e.Content, 100))
	}
	for _, s := range res.Entries {
		fmt.Fprintf(&b, "%.3f   [%s] %s\n", s.Score, s.Entry.Category, clip(s.Entry.Content, 100))
	}
	for _, c := range res.Conflicts {
		fmt.Fprintf(&b, "conflict (%s, %s): %s vs %s\n", c.Severity, c.Type, c.EntryA, c.EntryB)
	}
	return strings.TrimRight(b.String(), "\n")
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
