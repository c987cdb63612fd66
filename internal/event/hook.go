package event

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"time"
)

// Hook processes lifecycle events.
type Hook interface {
	Name() string
	// Matches reports whether the hook wants this event type.
	Matches(t EventType) bool
	// IsBlocking reports whether Emit waits for the hook.
	IsBlocking() bool
	// Handle processes one event. A blocking hook's error stops dispatch.
	Handle(ev Event) error
}

// baseHook carries the fields every hook implementation shares.
type baseHook struct {
	name     string
	events   []EventType
	blocking bool
}

func (h *baseHook) Name() string     { return h.name }
func (h *baseHook) IsBlocking() bool { return h.blocking }

// An empty event list subscribes to everything.
func (h *baseHook) Matches(t EventType) bool {
	if len(h.events) == 0 {
		return true
	}
	for _, ev := range h.events {
		if ev == t {
			return true
		}
	}
	return false
}

// shellTimeout bounds hook commands so a hung script cannot stall a
// blocking emit forever.
const shellTimeout = 30 * time.Second

// ShellHook runs a shell command with the event in its environment:
// MNEMO_EVENT_TYPE holds the type string, MNEMO_EVENT_JSON the full
// encoded event.
type ShellHook struct {
	baseHook
	Command string
}

func NewShellHook(name, command string, events []EventType, blocking bool) *ShellHook {
	return &ShellHook{
		baseHook: baseHook{name: name, events: events, blocking: blocking},
		Command:  command,
	}
}

func (h *ShellHook) Handle(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event for hook %s: %w", h.name, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shellTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", h.Command)
	cmd.Env = append(os.Environ(),
		"MNEMO_EVENT_TYPE="+string(ev.Type),
		"MNEMO_EVENT_JSON="+string(payload),
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("shell hook %s: %w", h.name, err)
	}
	return nil
}

// WebhookHook POSTs the event JSON to a URL.
type WebhookHook struct {
	baseHook
	URL    string
	client *http.Client
}

func NewWebhookHook(name, url string, events []EventType, blocking bool) *WebhookHook {
	return &WebhookHook{
		baseHook: baseHook{name: name, events: events, blocking: blocking},
		URL:      url,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *WebhookHook) Handle(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event for hook %s: %w", h.name, err)
	}

	resp, err := h.client.Post(h.URL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("webhook %s: %w", h.name, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook %s: status %d", h.name, resp.StatusCode)
	}
	return nil
}

// FullLogger extends Logger with the levels LogHook can target.
type FullLogger interface {
	Logger
	Info(msg string, keyvals ...interface{})
	Debug(msg string, keyvals ...interface{})
}

// LogHook writes events to the logger. Always non-blocking.
type LogHook struct {
	baseHook
	logger Logger
	level  string // "debug", "info", "warn"
}

func NewLogHook(name string, events []EventType, logger Logger, level string) *LogHook {
	if level == "" {
		level = "info"
	}
	return &LogHook{
		baseHook: baseHook{name: name, events: events, blocking: false},
		logger:   logger,
		level:    level,
	}
}

func (h *LogHook) Handle(ev Event) error {
	if h.logger == nil {
		return nil
	}
	keyvals := make([]interface{}, 0, len(ev.Data)*2+2)
	keyvals = append(keyvals, "event_type", string(ev.Type))
	for k, v := range ev.Data {
		keyvals = append(keyvals, k, v)
	}

	msg := "memory event"
	fl, ok := h.logger.(FullLogger)
	if !ok {
		h.logger.Warn(msg, keyvals...)
		return nil
	}
	switch h.level {
	case "debug":
		fl.Debug(msg, keyvals...)
	case "warn":
		fl.Warn(msg, keyvals...)
	default:
		fl.Info(msg, keyvals...)
	}
	return nil
}
