// Package mnemo provides the public API for the mnemo memory engine.
//
// Example usage:
//
//	import "github.com/mnemo-oss/mnemo/pkg/mnemo"
//
//	client, err := mnemo.Open("/path/to/project")
//	defer client.Close()
//
//	prefix := client.InjectionPrefix("fix the auth tests", "claude-worker", 1200, nil)
package mnemo

import (
	"fmt"
	"os"

	"github.com/mnemo-oss/mnemo/internal/budget"
	"github.com/mnemo-oss/mnemo/internal/command"
	"github.com/mnemo-oss/mnemo/internal/config"
	"github.com/mnemo-oss/mnemo/internal/engine"
	"github.com/mnemo-oss/mnemo/internal/finalize"
	"github.com/mnemo-oss/mnemo/internal/memory"
	"github.com/mnemo-oss/mnemo/internal/retrieve"
	"github.com/mnemo-oss/mnemo/internal/telemetry"
)

// Re-exported types so embedders rarely need internal imports.
type (
	// Message is one transcript turn fed to the engine.
	Message = finalize.Message
	// Options bounds one retrieval.
	Options = retrieve.Options
	// Result is a retrieval outcome.
	Result = retrieve.Result
	// Allocation is the four-way token split.
	Allocation = budget.Allocation
	// Status is the engine health snapshot.
	Status = engine.Status
	// Category classifies an entry.
	Category = memory.Category
)

// Client is one project's memory engine.
type Client struct {
	eng    *engine.Engine
	router *command.Router
	logger *telemetry.Logger
}

// Open loads or creates memory for the project. Configuration comes from
// <projectPath>/mnemo.yaml, falling back to defaults.
func Open(projectPath string) (*Client, error) {
	cfg, err := config.Load(projectPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return OpenWithConfig(projectPath, cfg)
}

// OpenWithConfig loads or creates memory with an explicit configuration.
func OpenWithConfig(projectPath string, cfg *config.Config) (*Client, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}

	logger := telemetry.NewLogger(cfg != nil && cfg.Verbose)
	eng := engine.New(cfg, logger)
	if err := eng.Init(home, projectPath); err != nil {
		return nil, err
	}
	return &Client{eng: eng, router: command.New(eng), logger: logger}, nil
}

// OnMessage records one live transcript turn for a session.
func (c *Client) OnMessage(sessionID, agentID string, msg Message) {
	c.eng.OnMessage(sessionID, agentID, msg)
}

// OnSessionClose finalizes and promotes a finished session.
func (c *Client) OnSessionClose(sessionID string) {
	c.eng.OnSessionClose(sessionID)
}

// Retrieve returns pinned entries, scored results, and active conflicts.
func (c *Client) Retrieve(query, agentID string, opts Options) Result {
	return c.eng.Retrieve(query, agentID, opts)
}

// InjectionPrefix returns the ready-to-prepend memory block, or "".
func (c *Client) InjectionPrefix(query, agentID string, tokenBudget int, filePaths []string) string {
	return c.eng.InjectionPrefix(query, agentID, tokenBudget, filePaths)
}

// AllocateBudget splits remaining prompt context into four token pools.
func (c *Client) AllocateBudget(remainingContextTokens int) Allocation {
	return c.eng.AllocateBudget(remainingContextTokens)
}

// Status reports counts, token estimates, and health.
func (c *Client) Status() Status {
	return c.eng.GetStatus()
}

// Handles reports whether the chat line is a memory command.
func (c *Client) Handles(line string) bool {
	return c.router.Handles(line)
}

// Command routes a chat slash-command, returning user-visible text.
func (c *Client) Command(line, agentID string) string {
	return c.router.Route(line, agentID)
}

// Close flushes state and releases resources.
func (c *Client) Close() error {
	err := c.eng.Close()
	if cerr := c.logger.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
