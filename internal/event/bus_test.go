package event

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mnemo-oss/mnemo/internal/config"
)

// testLogger records warn messages.
type testLogger struct {
	mu       sync.Mutex
	warnings []string
}

func (l *testLogger) Warn(msg string, keyvals ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, msg)
}

func (l *testLogger) Info(msg string, keyvals ...interface{})  {}
func (l *testLogger) Debug(msg string, keyvals ...interface{}) {}

// collectHook records handled events.
type collectHook struct {
	baseHook
	mu       sync.Mutex
	handled  []Event
	handleFn func(Event) error
}

func newCollectHook(name string, events []EventType, blocking bool) *collectHook {
	return &collectHook{
		baseHook: baseHook{name: name, events: events, blocking: blocking},
	}
}

func (h *collectHook) Handle(ev Event) error {
	if h.handleFn != nil {
		return h.handleFn(ev)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, ev)
	return nil
}

func (h *collectHook) events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	cp := make([]Event, len(h.handled))
	copy(cp, h.handled)
	return cp
}

func TestBus_Emit_BlockingHook(t *testing.T) {
	bus := NewBus(nil)
	hook := newCollectHook("test", []EventType{EntryPromoted}, true)
	bus.Register(hook)

	ev := NewEvent(EntryPromoted, map[string]interface{}{"entry_id": "e1"})
	if err := bus.Emit(ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	handled := hook.events()
	if len(handled) != 1 {
		t.Fatalf("expected 1 handled event, got %d", len(handled))
	}
	if handled[0].Type != EntryPromoted {
		t.Errorf("expected EntryPromoted, got %s", handled[0].Type)
	}
}

func TestBus_Emit_NonBlockingHook(t *testing.T) {
	bus := NewBus(nil)
	hook := newCollectHook("async", []EventType{EntryBoosted}, false)
	bus.Register(hook)

	bus.Emit(NewEvent(EntryBoosted, nil))

	// Give the goroutine time to execute.
	time.Sleep(50 * time.Millisecond)

	if got := len(hook.events()); got != 1 {
		t.Fatalf("expected 1 handled event, got %d", got)
	}
}

func TestBus_Emit_RoutingByEventType(t *testing.T) {
	bus := NewBus(nil)
	entryHook := newCollectHook("entries", []EventType{EntryPromoted, EntryBoosted}, true)
	conflictHook := newCollectHook("conflicts", []EventType{ConflictDetected}, true)
	bus.Register(entryHook)
	bus.Register(conflictHook)

	bus.Emit(NewEvent(EntryPromoted, nil))
	bus.Emit(NewEvent(ConflictDetected, nil))
	bus.Emit(NewEvent(EntryBoosted, nil))

	if got := len(entryHook.events()); got != 2 {
		t.Errorf("entry hook handled %d events, want 2", got)
	}
	if got := len(conflictHook.events()); got != 1 {
		t.Errorf("conflict hook handled %d events, want 1", got)
	}
}

func TestBus_Emit_NoMatchingEvents(t *testing.T) {
	bus := NewBus(nil)
	hook := newCollectHook("test", []EventType{StoreCompacted}, true)
	bus.Register(hook)

	bus.Emit(NewEvent(EntryPromoted, nil))

	if len(hook.events()) != 0 {
		t.Error("hook should not have been called for non-matching event")
	}
}

func TestBus_Emit_MatchAllEvents(t *testing.T) {
	bus := NewBus(nil)
	hook := newCollectHook("catch-all", nil, true) // nil events = match all
	bus.Register(hook)

	bus.Emit(NewEvent(EntryPromoted, nil))
	bus.Emit(NewEvent(SessionFinalized, nil))

	if got := len(hook.events()); got != 2 {
		t.Errorf("expected 2 events, got %d", got)
	}
}

func TestBus_BlockingHookError(t *testing.T) {
	bus := NewBus(nil)
	hook := newCollectHook("failing", []EventType{EntryPromoted}, true)
	hook.handleFn = func(ev Event) error {
		return fmt.Errorf("hook error")
	}
	bus.Register(hook)

	if err := bus.Emit(NewEvent(EntryPromoted, nil)); err == nil {
		t.Fatal("expected error from blocking hook")
	}
}

func TestBus_NonBlockingHookErrorLogged(t *testing.T) {
	logger := &testLogger{}
	bus := NewBus(logger)
	hook := newCollectHook("failing-async", []EventType{EntryPromoted}, false)
	hook.handleFn = func(ev Event) error {
		return fmt.Errorf("async hook error")
	}
	bus.Register(hook)

	bus.Emit(NewEvent(EntryPromoted, nil))
	time.Sleep(50 * time.Millisecond)

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.warnings) == 0 {
		t.Error("expected warning to be logged for failed async hook")
	}
}

func TestBus_BlockingHooksSequential(t *testing.T) {
	bus := NewBus(nil)
	var order []string
	var mu sync.Mutex

	for i := 0; i < 3; i++ {
		idx := i
		hook := newCollectHook(fmt.Sprintf("hook-%d", idx), []EventType{EntryPromoted}, true)
		hook.handleFn = func(ev Event) error {
			mu.Lock()
			order = append(order, fmt.Sprintf("hook-%d", idx))
			mu.Unlock()
			return nil
		}
		bus.Register(hook)
	}

	bus.Emit(NewEvent(EntryPromoted, nil))

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 {
		t.Fatalf("expected 3 hook executions, got %d", len(order))
	}
	for i, name := range order {
		if want := fmt.Sprintf("hook-%d", i); name != want {
			t.Errorf("position %d = %s, want %s", i, name, want)
		}
	}
}

func TestBus_Disabled(t *testing.T) {
	bus := NewBus(nil)
	hook := newCollectHook("test", nil, true)
	bus.Register(hook)

	bus.SetEnabled(false)
	bus.Emit(NewEvent(EntryPromoted, nil))

	if len(hook.events()) != 0 {
		t.Error("disabled bus should not dispatch events")
	}
}

func TestBus_NilBusSafe(t *testing.T) {
	var bus *Bus

	bus.Register(nil)
	bus.SetEnabled(false)
	if err := bus.Emit(NewEvent(EntryPromoted, nil)); err != nil {
		t.Errorf("nil bus Emit should return nil error, got %v", err)
	}
}

func TestBus_ConcurrentEmit(t *testing.T) {
	bus := NewBus(nil)
	var count int64
	hook := newCollectHook("concurrent", nil, true)
	hook.handleFn = func(ev Event) error {
		atomic.AddInt64(&count, 1)
		return nil
	}
	bus.Register(hook)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Emit(NewEvent(EntryPromoted, nil))
		}()
	}
	wg.Wait()

	if atomic.LoadInt64(&count) != 100 {
		t.Errorf("expected 100 hook invocations, got %d", count)
	}
}

func TestBus_FromConfig(t *testing.T) {
	if bus := FromConfig(nil, nil); bus != nil {
		t.Error("no hooks should yield a nil bus")
	}

	logger := &testLogger{}
	bus := FromConfig([]config.HookConfig{
		{Name: "notify", Type: "shell", Command: "true", Events: []string{"entry.promoted"}},
		{Name: "trace", Type: "log", Level: "debug"},
		{Name: "bogus", Type: "carrier-pigeon"},
	}, logger)
	if bus == nil {
		t.Fatal("expected a bus from valid hooks")
	}
	if len(bus.hooks) != 2 {
		t.Errorf("registered %d hooks, want 2", len(bus.hooks))
	}

	logger.mu.Lock()
	warned := len(logger.warnings) > 0
	logger.mu.Unlock()
	if !warned {
		t.Error("unknown hook type should be warned about")
	}

	if bus := FromConfig([]config.HookConfig{{Name: "only-bad", Type: "nope"}}, nil); bus != nil {
		t.Error("all-invalid hook list should yield a nil bus")
	}
}
