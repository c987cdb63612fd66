package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mnemo-oss/mnemo/internal/engine"
	"github.com/mnemo-oss/mnemo/internal/memory"
	"github.com/mnemo-oss/mnemo/internal/retrieve"
)

// ToolDef describes an MCP tool for tools/list.
type ToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// AllTools returns the memory tool definitions.
func AllTools() []ToolDef {
	return []ToolDef{
		{
			Name:        "memory_remember",
			Description: "Save a fact to persistent project memory",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"content":  map[string]any{"type": "string", "description": "The fact to remember"},
					"category": map[string]any{"type": "string", "description": "One of: discovery, decision, file_change, error, architecture, task_progress, pattern, warning, preference", "default": "discovery"},
					"pin":      map[string]any{"type": "boolean", "description": "Pin the entry so it is always injected", "default": false},
				},
				"required": []string{"content"},
			},
		},
		{
			Name:        "memory_search",
			Description: "Search project memory for relevant entries",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query":      map[string]any{"type": "string", "description": "Search query"},
					"file_paths": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Files in the current working set"},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "memory_context",
			Description: "Render the ready-to-use memory context block for a task",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query":        map[string]any{"type": "string", "description": "What you are about to work on"},
					"token_budget": map[string]any{"type": "integer", "description": "Maximum tokens of context to return", "default": 1500},
					"file_paths":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Files in the current working set"},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "memory_forget",
			Description: "Suppress a memory entry so it is never injected again",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"entry_id": map[string]any{"type": "string", "description": "ID of the entry to suppress"},
				},
				"required": []string{"entry_id"},
			},
		},
		{
			Name:        "memory_pin",
			Description: "Pin a memory entry so it is always injected and never evicted",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"entry_id": map[string]any{"type": "string", "description": "ID of the entry to pin"},
				},
				"required": []string{"entry_id"},
			},
		},
		{
			Name:        "memory_status",
			Description: "Report memory counts, token estimate, and health",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

// ToolHandler dispatches tool calls to the engine.
type ToolHandler struct {
	eng     *engine.Engine
	agentID string
}

// NewToolHandler creates a handler bound to one agent.
func NewToolHandler(eng *engine.Engine, agentID string) *ToolHandler {
	return &ToolHandler{eng: eng, agentID: agentID}
}

// Call dispatches a tool call by name.
func (h *ToolHandler) Call(name string, args json.RawMessage) (any, error) {
	switch name {
	case "memory_remember":
		return h.remember(args)
	case "memory_search":
		return h.search(args)
	case "memory_context":
		return h.contextBlock(args)
	case "memory_forget":
		return h.forget(args)
	case "memory_pin":
		return h.pin(args)
	case "memory_status":
		return h.status()
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func (h *ToolHandler) remember(args json.RawMessage) (any, error) {
	var params struct {
		Content  string `json:"content"`
		Category string `json:"category"`
		Pin      bool   `json:"pin"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	if params.Content == "" {
		return nil, fmt.Errorf("content is required")
	}

	id, err := h.eng.Remember(params.Content, memory.Category(params.Category), h.agentID, params.Pin)
	if err != nil {
		return nil, err
	}
	return map[string]string{"entry_id": id, "status": "remembered"}, nil
}

// searchHit is one search result row for the agent.
type searchHit struct {
	EntryID  string  `json:"entry_id"`
	Category string  `json:"category"`
	Status   string  `json:"status"`
	Score    float64 `json:"score,omitempty"`
	Content  string  `json:"content"`
}

func (h *ToolHandler) search(args json.RawMessage) (any, error) {
	var params struct {
		Query     string   `json:"query"`
		FilePaths []string `json:"file_paths"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	if params.Query == "" {
		return nil, fmt.Errorf("query is required")
	}

	res := h.eng.Retrieve(params.Query, h.agentID, retrieve.Options{FilePaths: params.FilePaths})
	hits := make([]searchHit, 0, len(res.Pinned)+len(res.Entries))
	for _, e := range res.Pinned {
		hits = append(hits, searchHit{
			EntryID: e.ID, Category: string(e.Category), Status: string(e.Status), Content: e.Content,
		})
	}
	for _, s := range res.Entries {
		hits = append(hits, searchHit{
			EntryID: s.Entry.ID, Category: string(s.Entry.Category), Status: string(s.Entry.Status),
			Score: s.Score, Content: s.Entry.Content,
		})
	}
	return map[string]any{"results": hits, "count": len(hits)}, nil
}

func (h *ToolHandler) contextBlock(args json.RawMessage) (any, error) {
	var params struct {
		Query       string   `json:"query"`
		TokenBudget int      `json:"token_budget"`
		FilePaths   []string `json:"file_paths"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	if params.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if params.TokenBudget <= 0 {
		params.TokenBudget = 1500
	}

	text := h.eng.InjectionPrefix(params.Query, h.agentID, params.TokenBudget, params.FilePaths)
	if text == "" {
		return "No relevant project memory.", nil
	}
	return text, nil
}

func (h *ToolHandler) forget(args json.RawMessage) (any, error) {
	var params struct {
		EntryID string `json:"entry_id"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	if params.EntryID == "" {
		return nil, fmt.Errorf("entry_id is required")
	}

	if err := h.eng.Forget(params.EntryID, memory.ActorAgent); err != nil {
		return nil, err
	}
	return map[string]string{"entry_id": params.EntryID, "status": "forgotten"}, nil
}

func (h *ToolHandler) pin(args json.RawMessage) (any, error) {
	var params struct {
		EntryID string `json:"entry_id"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	if params.EntryID == "" {
		return nil, fmt.Errorf("entry_id is required")
	}

	if err := h.eng.Pin(params.EntryID); err != nil {
		return nil, err
	}
	return map[string]string{"entry_id": params.EntryID, "status": "pinned"}, nil
}

func (h *ToolHandler) status() (any, error) {
	s := h.eng.GetStatus()
	return map[string]any{
		"entries":              s.Entries,
		"suppressed":           s.Suppressed,
		"estimated_tokens":     s.EstimatedTokens,
		"unresolved_conflicts": s.UnresolvedConflicts,
		"preset":               s.Preset,
		"auto_memory":          s.AutoMemory,
		"slo_healthy":          s.SLOHealthy,
	}, nil
}
