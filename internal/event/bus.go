package event

import (
	"fmt"
	"sync"

	"github.com/mnemo-oss/mnemo/internal/config"
)

// Bus fans lifecycle events out to registered hooks.
//
// Dispatch rules:
//  1. Blocking hooks run sequentially in registration order; the first
//     failure stops dispatch and is returned to the caller.
//  2. Non-blocking hooks run in goroutines; failures are logged.
//  3. A nil Bus is safe: every method is a no-op.
type Bus struct {
	mu      sync.RWMutex
	hooks   []Hook
	enabled bool
	logger  Logger
}

// Logger is the minimal logging surface the bus needs, so the package
// stays independent of telemetry.
type Logger interface {
	Warn(msg string, keyvals ...interface{})
}

// NewBus creates an enabled bus. A nil logger silences hook failures.
func NewBus(logger Logger) *Bus {
	return &Bus{
		hooks:   make([]Hook, 0),
		enabled: true,
		logger:  logger,
	}
}

// FromConfig builds a bus from the configured hook list. Returns nil
// when no hooks are configured, which disables eventing entirely.
// Unknown hook types are skipped with a warning.
func FromConfig(hooks []config.HookConfig, logger Logger) *Bus {
	if len(hooks) == 0 {
		return nil
	}
	bus := NewBus(logger)
	for _, hc := range hooks {
		types := make([]EventType, 0, len(hc.Events))
		for _, ev := range hc.Events {
			types = append(types, EventType(ev))
		}
		switch hc.Type {
		case "shell":
			bus.Register(NewShellHook(hc.Name, hc.Command, types, hc.Blocking))
		case "webhook":
			bus.Register(NewWebhookHook(hc.Name, hc.URL, types, hc.Blocking))
		case "log":
			bus.Register(NewLogHook(hc.Name, types, logger, hc.Level))
		default:
			if logger != nil {
				logger.Warn("skipping hook with unknown type", "hook", hc.Name, "type", hc.Type)
			}
		}
	}
	if len(bus.hooks) == 0 {
		return nil
	}
	return bus
}

// Register adds a hook.
func (b *Bus) Register(h Hook) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hooks = append(b.hooks, h)
}

// SetEnabled controls whether Emit dispatches anything.
func (b *Bus) SetEnabled(enabled bool) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = enabled
}

// Emit dispatches the event to every matching hook.
func (b *Bus) Emit(ev Event) error {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	if !b.enabled {
		b.mu.RUnlock()
		return nil
	}
	// Snapshot so hooks run outside the lock.
	hooks := make([]Hook, len(b.hooks))
	copy(hooks, b.hooks)
	b.mu.RUnlock()

	for _, h := range hooks {
		if !h.Matches(ev.Type) {
			continue
		}
		if h.IsBlocking() {
			if err := h.Handle(ev); err != nil {
				return fmt.Errorf("blocking hook %s failed: %w", h.Name(), err)
			}
			continue
		}
		go func(hook Hook) {
			defer func() {
				if r := recover(); r != nil && b.logger != nil {
					b.logger.Warn("hook panicked",
						"hook", hook.Name(), "event", string(ev.Type), "panic", r)
				}
			}()
			if err := hook.Handle(ev); err != nil && b.logger != nil {
				b.logger.Warn("hook failed",
					"hook", hook.Name(), "event", string(ev.Type), "error", err)
			}
		}(h)
	}
	return nil
}
