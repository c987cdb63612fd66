package inject

import (
	"strings"
	"testing"
	"time"

	"github.com/mnemo-oss/mnemo/internal/memory"
	"github.com/mnemo-oss/mnemo/internal/retrieve"
)

func sampleResult() retrieve.Result {
	return retrieve.Result{
		Pinned: []memory.Entry{
			{ID: "p", Content: "always run make lint", Category: memory.CategoryPreference},
		},
		Entries: []retrieve.Scored{
			{Entry: memory.Entry{ID: "a", Content: "the api uses cursor pagination", Category: memory.CategoryDiscovery}},
		},
		Conflicts: []memory.ConflictPair{
			{EntryA: "a", EntryB: "b", Type: memory.ConflictContradictory, Severity: memory.SeverityHigh, DetectedAt: time.Now()},
		},
	}
}

func TestFamilyFor(t *testing.T) {
	cases := []struct {
		agent string
		want  Family
	}{
		{"claude-worker-1", FamilyClaude},
		{"Claude", FamilyClaude},
		{"codex-reviewer", FamilyCodex},
		{"gpt-5-agent", FamilyCodex},
		{"aider", FamilyGeneric},
		{"", FamilyGeneric},
	}
	for _, c := range cases {
		if got := FamilyFor(c.agent); got != c.want {
			t.Errorf("FamilyFor(%q) = %s, want %s", c.agent, got, c.want)
		}
	}
}

func TestRender_EmptyResultIsEmpty(t *testing.T) {
	for _, fam := range []Family{FamilyClaude, FamilyCodex, FamilyGeneric} {
		if got := Render(retrieve.Result{}, fam); got != "" {
			t.Errorf("%s rendered empty result: %q", fam, got)
		}
	}
}

func TestRender_Claude(t *testing.T) {
	out := Render(sampleResult(), FamilyClaude)

	for _, want := range []string{
		"## Project memory",
		"### Pinned",
		"always run make lint",
		"### Relevant",
		"cursor pagination",
		"### Unresolved conflicts",
		nonAckInstruction,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("claude output missing %q:\n%s", want, out)
		}
	}
}

func TestRender_Codex(t *testing.T) {
	out := Render(sampleResult(), FamilyCodex)

	if strings.Contains(out, "##") {
		t.Error("codex shape must not use markdown headers")
	}
	for _, want := range []string{
		"MEMORY CONTEXT",
		"PINNED PREFERENCE: always run make lint",
		"DISCOVERY: the api uses cursor pagination",
		"CONFLICT contradictory severity=high",
		nonAckInstruction,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("codex output missing %q:\n%s", want, out)
		}
	}
}

func TestRender_Generic(t *testing.T) {
	out := Render(sampleResult(), FamilyGeneric)

	for _, want := range []string{
		"Project memory from earlier sessions:",
		"* (pinned, preference) always run make lint",
		"* (discovery) the api uses cursor pagination",
		nonAckInstruction,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("generic output missing %q:\n%s", want, out)
		}
	}
}

func TestRender_EveryFamilyCarriesNonAck(t *testing.T) {
	res := sampleResult()
	for _, fam := range []Family{FamilyClaude, FamilyCodex, FamilyGeneric} {
		if !strings.Contains(Render(res, fam), nonAckInstruction) {
			t.Errorf("%s missing the non-acknowledgment instruction", fam)
		}
	}
}
