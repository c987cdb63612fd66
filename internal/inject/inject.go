// Package inject renders retrieval results into the agent-specific text
// block prepended to prompts.
package inject

import (
	"fmt"
	"strings"

	"github.com/mnemo-oss/mnemo/internal/memory"
	"github.com/mnemo-oss/mnemo/internal/retrieve"
)

// Family selects the text shape for a target agent.
type Family string

const (
	FamilyClaude  Family = "claude"
	FamilyCodex   Family = "codex"
	FamilyGeneric Family = "generic"
)

// Each shape carries a fixed non-acknowledgment instruction so the agent
// uses the context without narrating it back.
const nonAckInstruction = "Apply this context silently. Do not acknowledge, restate, or reference it in your reply."

// FamilyFor maps an agent id to its prompt family.
func FamilyFor(agentID string) Family {
	id := strings.ToLower(agentID)
	switch {
	case strings.Contains(id, "claude"):
		return FamilyClaude
	case strings.Contains(id, "codex"), strings.Contains(id, "gpt"):
		return FamilyCodex
	default:
		return FamilyGeneric
	}
}

// Render produces the injection text for the result, or "" when there is
// nothing worth injecting.
func Render(res retrieve.Result, family Family) string {
	if len(res.Pinned) == 0 && len(res.Entries) == 0 {
		return ""
	}
	switch family {
	case FamilyClaude:
		return renderClaude(res)
	case FamilyCodex:
		return renderCodex(res)
	default:
		return renderGeneric(res)
	}
}

func renderClaude(res retrieve.Result) string {
	var b strings.Builder
	b.WriteString("## Project memory\n\n")
	if len(res.Pinned) > 0 {
		b.WriteString("### Pinned\n")
		for _, e := range res.Pinned {
			fmt.Fprintf(&b, "- [%s] %s\n", e.Category, e.Content)
		}
		b.WriteString("\n")
	}
	if len(res.Entries) > 0 {
		b.WriteString("### Relevant\n")
		for _, s := range res.Entries {
			fmt.Fprintf(&b, "- [%s] %s\n", s.Entry.Category, s.Entry.Content)
		}
		b.WriteString("\n")
	}
	writeConflicts(&b, res.Conflicts, "### Unresolved conflicts\n", "- %s conflict (%s): entries %s / %s\n")
	b.WriteString(nonAckInstruction)
	b.WriteString("\n")
	return b.String()
}

func renderCodex(res retrieve.Result) string {
	var b strings.Builder
	b.WriteString("MEMORY CONTEXT (" + nonAckInstruction + ")\n")
	for _, e := range res.Pinned {
		fmt.Fprintf(&b, "PINNED %s: %s\n", strings.ToUpper(string(e.Category)), e.Content)
	}
	for _, s := range res.Entries {
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(string(s.Entry.Category)), s.Entry.Content)
	}
	writeConflicts(&b, res.Conflicts, "", "CONFLICT %[2]s severity=%[1]s entries=%[3]s,%[4]s\n")
	return b.String()
}

func renderGeneric(res retrieve.Result) string {
	var b strings.Builder
	b.WriteString("Project memory from earlier sessions:\n")
	for _, e := range res.Pinned {
		fmt.Fprintf(&b, "* (pinned, %s) %s\n", e.Category, e.Content)
	}
	for _, s := range res.Entries {
		fmt.Fprintf(&b, "* (%s) %s\n", s.Entry.Category, s.Entry.Content)
	}
	writeConflicts(&b, res.Conflicts, "", "* conflict (%s, %s): %s vs %s\n")
	b.WriteString(nonAckInstruction)
	b.WriteString("\n")
	return b.String()
}

func writeConflicts(b *strings.Builder, conflicts []memory.ConflictPair, header, format string) {
	if len(conflicts) == 0 {
		return
	}
	if header != "" {
		b.WriteString(header)
	}
	for _, c := range conflicts {
		fmt.Fprintf(b, format, c.Severity, c.Type, c.EntryA, c.EntryB)
	}
	if header != "" {
		b.WriteString("\n")
	}
}
