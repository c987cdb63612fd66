package memory

import "time"

// Category classifies what kind of knowledge an entry captures.
type Category string

const (
	CategoryDiscovery    Category = "discovery"
	CategoryDecision     Category = "decision"
	CategoryFileChange   Category = "file_change"
	CategoryError        Category = "error"
	CategoryArchitecture Category = "architecture"
	CategoryTaskProgress Category = "task_progress"
	CategoryPattern      Category = "pattern"
	CategoryWarning      Category = "warning"
	CategoryPreference   Category = "preference"
)

// Categories lists every valid category, in a stable order.
var Categories = []Category{
	CategoryDiscovery,
	CategoryDecision,
	CategoryFileChange,
	CategoryError,
	CategoryArchitecture,
	CategoryTaskProgress,
	CategoryPattern,
	CategoryWarning,
	CategoryPreference,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of a durable entry.
type Status string

const (
	StatusCandidate Status = "candidate"
	StatusConfirmed Status = "confirmed"
	StatusPinned    Status = "pinned"
)

// Statuses lists every valid status.
var Statuses = []Status{StatusCandidate, StatusConfirmed, StatusPinned}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusCandidate || s == StatusConfirmed || s == StatusPinned
}

// ConflictType describes how two entries disagree.
type ConflictType string

const (
	ConflictContradictory ConflictType = "contradictory"
	ConflictSuperseded    ConflictType = "superseded"
	ConflictAmbiguous     ConflictType = "ambiguous"
)

// Severity ranks how seriously a conflict should be surfaced.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Actor identifies who caused a mutation.
type Actor string

const (
	ActorUser   Actor = "user"
	ActorAuto   Actor = "auto"
	ActorSystem Actor = "system"
	ActorAgent  Actor = "agent"
)

// Source records where an entry came from.
type Source struct {
	SessionID        string    `json:"session_id"`
	AgentID          string    `json:"agent_id"`
	MessageID        string    `json:"message_id,omitempty"`
	PromotedAt       time.Time `json:"promoted_at"`
	PromotionSignals []string  `json:"promotion_signals,omitempty"`
}

// Suppression marks an entry hidden by a duplicate or user action.
type Suppression struct {
	Suppressed   bool      `json:"suppressed"`
	SuppressedBy string    `json:"suppressed_by,omitempty"`
	SuppressedAt time.Time `json:"suppressed_at,omitempty"`
}

// Usage tracks how an entry has been injected into prompts.
type Usage struct {
	InjectionCount  int       `json:"injection_count"`
	LastInjectedAt  time.Time `json:"last_injected_at,omitempty"`
	TargetAgents    []string  `json:"target_agents,omitempty"`
	WasContradicted bool      `json:"was_contradicted,omitempty"`
	WasUseful       bool      `json:"was_useful,omitempty"`
}

// Entry is a durable memory fact scoped to one project.
type Entry struct {
	ID          string   `json:"id"`
	Fingerprint string   `json:"fingerprint"`
	Content     string   `json:"content"` // capped at MaxContentLen
	Category    Category `json:"category"`
	Importance  float64  `json:"importance"` // [0,1], decays over time
	Status      Status   `json:"status"`
	Confidence  float64  `json:"confidence"` // [0,1]
	Source      Source   `json:"source"`

	FilePaths []string `json:"file_paths,omitempty"`
	Tags      []string `json:"tags,omitempty"`

	AccessCount    int       `json:"access_count"`
	LastAccessedAt time.Time `json:"last_accessed_at,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Suppression *Suppression `json:"suppression,omitempty"`
	Usage       *Usage       `json:"usage,omitempty"`
}

// MaxContentLen caps entry content length.
const MaxContentLen = 500

// Suppressed reports whether the entry is hidden from retrieval and dedup.
func (e *Entry) Suppressed() bool {
	return e.Suppression != nil && e.Suppression.Suppressed
}

// Finding is an ephemeral fact extracted from one session's transcript.
// It lives inside its owning SessionMemory and is consumed once by promotion.
type Finding struct {
	ID          string   `json:"id"`
	Fingerprint string   `json:"fingerprint"`
	Content     string   `json:"content"`
	Category    Category `json:"category"`
	Importance  float64  `json:"importance"`
	Confidence  float64  `json:"confidence"`
	FilePaths   []string `json:"file_paths,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	PromotedToProjectMemory bool   `json:"promoted_to_project_memory"`
	PromotedEntryID         string `json:"promoted_entry_id,omitempty"`
}

// SessionMemory holds everything remembered about one finished session.
type SessionMemory struct {
	SessionID       string    `json:"session_id"`
	ParentSessionID string    `json:"parent_session_id,omitempty"`
	AgentID         string    `json:"agent_id"`
	Findings        []Finding `json:"findings"`
	Summary         string    `json:"summary,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	FinalizedAt     time.Time `json:"finalized_at,omitempty"`
}

// ConflictPair records a detected disagreement between two entries.
// The pair is undirected; resolution is monotonic.
type ConflictPair struct {
	EntryA     string       `json:"entry_a"`
	EntryB     string       `json:"entry_b"`
	Type       ConflictType `json:"type"`
	DetectedAt time.Time    `json:"detected_at"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`

	ConflictSetID  string   `json:"conflict_set_id,omitempty"`
	Severity       Severity `json:"severity,omitempty"`
	DetectedReason string   `json:"detected_reason,omitempty"`
	SourceAgentA   string   `json:"source_agent_a,omitempty"`
	SourceAgentB   string   `json:"source_agent_b,omitempty"`
}

// Resolved reports whether the conflict has been marked resolved.
func (c *ConflictPair) Resolved() bool {
	return c.ResolvedAt != nil
}

// Involves reports whether the pair references the given entry id.
func (c *ConflictPair) Involves(id string) bool {
	return c.EntryA == id || c.EntryB == id
}

// MessagePointer is a cheap per-message marker recorded live during a
// session. Advisory only, used for reconciliation, never scored.
type MessagePointer struct {
	MessageID    string    `json:"message_id"`
	ContentHash  string    `json:"content_hash"` // 8-char prefix
	CategoryHint Category  `json:"category_hint,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// FeatureFlags enumerates every behavior toggle. All fields default on
// except where noted; there is no optional-boolean bag anywhere else.
type FeatureFlags struct {
	ConflictDetection bool `json:"conflict_detection" yaml:"conflict_detection"`
	DuplicateCheck    bool `json:"duplicate_check" yaml:"duplicate_check"`
	EntropyRedaction  bool `json:"entropy_redaction" yaml:"entropy_redaction"`
	ColdArchive       bool `json:"cold_archive" yaml:"cold_archive"`
	RetrievalCache    bool `json:"retrieval_cache" yaml:"retrieval_cache"`
}

// DefaultFeatureFlags returns the default flag set.
func DefaultFeatureFlags() FeatureFlags {
	return FeatureFlags{
		ConflictDetection: true,
		DuplicateCheck:    true,
		EntropyRedaction:  true,
		ColdArchive:       true,
		RetrievalCache:    true,
	}
}

// AuditEvent is one record in the append-only mutation history.
type AuditEvent struct {
	Action    string    `json:"action"`
	EntryID   string    `json:"entry_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Source    Actor     `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}
