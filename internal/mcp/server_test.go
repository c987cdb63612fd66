package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/mnemo-oss/mnemo/internal/memory"
	"github.com/mnemo-oss/mnemo/internal/testutil"
)

// runServer feeds newline-delimited requests through a server and
// returns one decoded response per request line.
func runServer(t *testing.T, h *testutil.TestHarness, requests ...string) []map[string]any {
	t.Helper()

	srv := NewServer(h.Engine, "test-agent")
	var out bytes.Buffer
	srv.in = strings.NewReader(strings.Join(requests, "\n") + "\n")
	srv.out = &out

	if err := srv.Run(context.Background()); err != nil {
		t.Fatalf("server run: %v", err)
	}

	var responses []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp map[string]any
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("bad response line %q: %v", line, err)
		}
		responses = append(responses, resp)
	}
	return responses
}

// toolCall builds a tools/call request line.
func toolCall(id int, name string, args map[string]any) string {
	encoded, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	})
	return string(encoded)
}

// callText extracts the text content of a tools/call response.
func callText(t *testing.T, resp map[string]any) string {
	t.Helper()
	result, ok := resp["result"].(map[string]any)
	if !ok {
		t.Fatalf("response has no result: %+v", resp)
	}
	content, ok := result["content"].([]any)
	if !ok || len(content) == 0 {
		t.Fatalf("result has no content: %+v", result)
	}
	first := content[0].(map[string]any)
	return first["text"].(string)
}

func TestServer_Initialize(t *testing.T) {
	h := testutil.NewTestHarness(t)
	responses := runServer(t, h, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)

	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(responses))
	}
	result := responses[0]["result"].(map[string]any)
	info := result["serverInfo"].(map[string]any)
	if info["name"] != "mnemo" {
		t.Errorf("server name = %v", info["name"])
	}
	if result["protocolVersion"] != protocolVersion {
		t.Errorf("protocol version = %v", result["protocolVersion"])
	}
}

func TestServer_ToolsList(t *testing.T) {
	h := testutil.NewTestHarness(t)
	responses := runServer(t, h, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)

	result := responses[0]["result"].(map[string]any)
	tools := result["tools"].([]any)
	names := make(map[string]bool, len(tools))
	for _, tl := range tools {
		names[tl.(map[string]any)["name"].(string)] = true
	}
	for _, want := range []string{"memory_remember", "memory_search", "memory_context", "memory_forget", "memory_pin", "memory_status"} {
		if !names[want] {
			t.Errorf("tools/list missing %s", want)
		}
	}
}

func TestServer_RememberAndSearch(t *testing.T) {
	h := testutil.NewTestHarness(t)

	responses := runServer(t, h,
		toolCall(1, "memory_remember", map[string]any{
			"content":  "deployments roll back automatically when health checks fail",
			"category": "decision",
		}),
		toolCall(2, "memory_search", map[string]any{"query": "deployment rollback"}),
	)
	if len(responses) != 2 {
		t.Fatalf("got %d responses, want 2", len(responses))
	}

	var remembered map[string]string
	if err := json.Unmarshal([]byte(callText(t, responses[0])), &remembered); err != nil {
		t.Fatal(err)
	}
	if remembered["entry_id"] == "" || remembered["status"] != "remembered" {
		t.Fatalf("remember result = %+v", remembered)
	}

	var search struct {
		Results []struct {
			EntryID string `json:"entry_id"`
			Content string `json:"content"`
		} `json:"results"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(callText(t, responses[1])), &search); err != nil {
		t.Fatal(err)
	}
	if search.Count != 1 || search.Results[0].EntryID != remembered["entry_id"] {
		t.Errorf("search result = %+v", search)
	}

	h.AssertEntryCount(1)
}

func TestServer_ContextBlock(t *testing.T) {
	h := testutil.NewTestHarness(t)
	h.Remember("all background jobs are idempotent and safe to re-run", memory.CategoryPattern, true)

	responses := runServer(t, h,
		toolCall(1, "memory_context", map[string]any{"query": "background job retries"}),
	)
	text := callText(t, responses[0])
	if !strings.Contains(text, "background jobs are idempotent") {
		t.Errorf("context block missing entry:\n%s", text)
	}
}

func TestServer_ToolErrors(t *testing.T) {
	h := testutil.NewTestHarness(t)

	responses := runServer(t, h,
		toolCall(1, "memory_forget", map[string]any{"entry_id": "missing"}),
		toolCall(2, "memory_remember", map[string]any{}),
		toolCall(3, "nonexistent_tool", map[string]any{}),
	)
	for i, resp := range responses {
		result := resp["result"].(map[string]any)
		if result["isError"] != true {
			t.Errorf("response %d should carry isError: %+v", i, result)
		}
	}
}

func TestServer_ProtocolErrors(t *testing.T) {
	h := testutil.NewTestHarness(t)

	responses := runServer(t, h,
		`{"jsonrpc":"2.0","id":1,"method":"no/such/method"}`,
		`this is not json`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	)

	// The notification gets no response, so three lines come back.
	if len(responses) != 3 {
		t.Fatalf("got %d responses, want 3", len(responses))
	}
	if responses[0]["error"] == nil {
		t.Error("unknown method should return an error")
	}
	if responses[1]["error"] == nil {
		t.Error("malformed json should return a parse error")
	}
	if responses[2]["error"] != nil {
		t.Errorf("ping should succeed: %+v", responses[2])
	}
}

func TestToolHandler_Pin(t *testing.T) {
	h := testutil.NewTestHarness(t)
	id := h.Remember("feature flags default to off in production builds", memory.CategoryPreference, false)

	handler := NewToolHandler(h.Engine, "test-agent")
	result, err := handler.Call("memory_pin", json.RawMessage(fmt.Sprintf(`{"entry_id":%q}`, id)))
	if err != nil {
		t.Fatal(err)
	}
	if m := result.(map[string]string); m["status"] != "pinned" {
		t.Errorf("pin result = %+v", m)
	}
}
