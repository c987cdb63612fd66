// Package mcp exposes the memory engine to agents over the Model
// Context Protocol: a JSON-RPC 2.0 loop on stdin/stdout implementing
// initialize, tools/list, and tools/call.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mnemo-oss/mnemo/internal/engine"
)

const (
	protocolVersion = "2024-11-05"
	serverName      = "mnemo"
	serverVersion   = "0.1.0"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
)

// Server speaks JSON-RPC 2.0 over a line-delimited stream. One server
// per connected agent; the agent id tags every memory the agent writes.
type Server struct {
	handler *ToolHandler
	in      io.Reader
	out     io.Writer
}

// NewServer creates a server bound to the engine for the given agent.
func NewServer(eng *engine.Engine, agentID string) *Server {
	return &Server{
		handler: NewToolHandler(eng, agentID),
		in:      os.Stdin,
		out:     os.Stdout,
	}
}

type jsonrpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rpcError carries a JSON-RPC code alongside the message so dispatch
// failures map onto the right wire code.
type rpcError struct {
	code int
	msg  string
}

func (e *rpcError) Error() string { return e.msg }

func rpcErrorf(code int, format string, args ...any) *rpcError {
	return &rpcError{code: code, msg: fmt.Sprintf(format, args...)}
}

// Run reads requests until the context is cancelled or the stream ends.
// Notifications (requests without an id) get no response.
func (s *Server) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	// Tool results can carry whole injection blocks.
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req jsonrpcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.reply(jsonrpcResponse{
				JSONRPC: "2.0",
				Error:   &jsonrpcError{Code: codeParseError, Message: "parse error"},
			})
			continue
		}
		if req.ID == nil {
			continue
		}
		s.reply(s.dispatch(req))
	}
	return scanner.Err()
}

func (s *Server) dispatch(req jsonrpcRequest) jsonrpcResponse {
	var (
		result any
		err    error
	)
	switch req.Method {
	case "initialize":
		result = map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": serverName, "version": serverVersion},
		}
	case "tools/list":
		result = map[string]any{"tools": AllTools()}
	case "tools/call":
		result, err = s.callTool(req.Params)
	case "ping":
		result = map[string]any{}
	default:
		err = rpcErrorf(codeMethodNotFound, "method not found: %s", req.Method)
	}

	if err != nil {
		code := codeInternal
		if re, ok := err.(*rpcError); ok {
			code = re.code
		}
		return jsonrpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &jsonrpcError{Code: code, Message: err.Error()},
		}
	}
	return jsonrpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

// callTool runs the named tool. Tool failures are results with isError
// set, not protocol errors, so the agent sees them as tool output.
func (s *Server) callTool(params json.RawMessage) (any, error) {
	var call struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, rpcErrorf(codeInvalidParams, "parse tool call params: %v", err)
	}

	result, err := s.handler.Call(call.Name, call.Arguments)
	if err != nil {
		return textContent("Error: "+err.Error(), true), nil
	}

	// String results (rendered context blocks) pass through as-is.
	text, ok := result.(string)
	if !ok {
		encoded, err := json.Marshal(result)
		if err != nil {
			return nil, rpcErrorf(codeInternal, "marshal result: %v", err)
		}
		text = string(encoded)
	}
	return textContent(text, false), nil
}

func textContent(text string, isError bool) map[string]any {
	out := map[string]any{
		"content": []map[string]any{{"type": "text", "text": text}},
	}
	if isError {
		out["isError"] = true
	}
	return out
}

func (s *Server) reply(resp jsonrpcResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = s.out.Write(data)
}
