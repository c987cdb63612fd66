// Package engine wires storage, indexing, promotion, retrieval, and
// injection into one per-project orchestrator. One Engine instance per
// open project; collaborators hold the instance, never globals.
package engine

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mnemo-oss/mnemo/internal/audit"
	"github.com/mnemo-oss/mnemo/internal/compact"
	"github.com/mnemo-oss/mnemo/internal/config"
	"github.com/mnemo-oss/mnemo/internal/event"
	"github.com/mnemo-oss/mnemo/internal/finalize"
	"github.com/mnemo-oss/mnemo/internal/index"
	"github.com/mnemo-oss/mnemo/internal/memory"
	"github.com/mnemo-oss/mnemo/internal/promote"
	"github.com/mnemo-oss/mnemo/internal/retrieve"
	"github.com/mnemo-oss/mnemo/internal/slo"
	"github.com/mnemo-oss/mnemo/internal/storage"
	"github.com/mnemo-oss/mnemo/internal/telemetry"
	"github.com/mnemo-oss/mnemo/internal/track"
)

// Engine is the per-project memory orchestrator.
//
// Concurrency model: single logical writer. All mutations run to
// completion under mu; the store and index are swapped in wholesale so
// concurrent reads never observe a half-updated structure.
type Engine struct {
	mu sync.Mutex // serializes mutations and init

	cfg     *config.Config
	logger  *telemetry.Logger
	metrics *telemetry.Metrics

	files   *storage.Files
	archive *storage.Archive
	auditor *audit.Log

	// bus is nil unless hooks are configured. Blocking hooks run inside
	// the mutation path and delay writes.
	bus *event.Bus

	store atomic.Pointer[memory.Store]
	idx   atomic.Pointer[index.Index]
	gen   atomic.Uint64 // bumped on content mutations; keys the cache

	finalizer *finalize.Finalizer
	promoter  *promote.Engine
	compactor *compact.Compactor
	monitor   *slo.Monitor
	pipeline  *retrieve.Pipeline
	cache     *retrieve.Cache
	tracker   *track.Tracker

	sessions map[string]*sessionBuffer
	history  []*memory.SessionMemory

	accessesSinceCompact int
	lastInjected         []string
	recoveredFromBackup  bool
	initialized          bool
	root                 string
}

type sessionBuffer struct {
	agentID         string
	parentSessionID string
	messages        []finalize.Message
}

// Option customizes engine construction.
type Option func(*Engine)

// WithReranker injects a retrieval rerank hook. Default is identity.
func WithReranker(r retrieve.Reranker) Option {
	return func(e *Engine) { e.pipeline = retrieve.New(e.cfg.Retrieval, e.monitor, r) }
}

// New creates an engine from config. Call Init before anything else.
func New(cfg *config.Config, logger *telemetry.Logger, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	e := &Engine{
		cfg:       cfg,
		logger:    logger,
		metrics:   telemetry.NewMetrics(),
		finalizer: finalize.New(cfg.Finalize, cfg.Flags, logger),
		promoter:  promote.New(cfg.Promotion),
		compactor: compact.New(cfg.Compaction),
		monitor:   slo.New(cfg.SLO),
		tracker:   track.New(0),
		sessions:  make(map[string]*sessionBuffer),
	}
	var busLog event.Logger
	if logger != nil {
		busLog = logger
	}
	e.bus = event.FromConfig(cfg.Hooks, busLog)
	e.pipeline = retrieve.New(cfg.Retrieval, e.monitor, nil)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Init loads or creates the project's memory under
// <homeDir>/.mnemo/projects/<project>. Idempotent: a second call for the
// same project is a no-op.
func (e *Engine) Init(homeDir, projectPath string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	root := filepath.Join(homeDir, ".mnemo", "projects", projectKey(projectPath))
	if e.initialized {
		if e.root == root {
			return nil
		}
		return fmt.Errorf("engine already initialized for %s", e.root)
	}

	files, err := storage.New(root, e.cfg.Compaction.HardLimit, e.logger)
	if err != nil {
		return err
	}
	e.files = files
	e.root = root

	if e.logger != nil {
		if err := e.logger.WithFile(filepath.Join(root, "engine.log")); err != nil {
			e.warn("log file unavailable", "error", err)
		}
	}

	store, report := files.LoadProject()
	e.recoveredFromBackup = report.RecoveredFromBackup
	if report.Reset {
		e.warn("project store was unreadable and has been reset")
	}

	if e.cfg.Flags.ColdArchive {
		archive, err := storage.OpenArchive(files.ArchivePath())
		if err != nil {
			e.warn("cold archive unavailable", "error", err)
		} else {
			e.archive = archive
		}
	}
	if e.cfg.Flags.RetrievalCache {
		cache, err := retrieve.NewCache()
		if err != nil {
			e.warn("retrieval cache unavailable", "error", err)
		} else {
			e.cache = cache
		}
	}

	e.auditor = audit.Open(files.AuditPath(), e.cfg.Audit)
	e.history = files.LoadAllSessions()

	// Config is the source of truth for flags and preset; the store
	// metadata mirrors them for status and forensics.
	store.Metadata.Flags = e.cfg.Flags
	if store.Metadata.ConfigPreset == "" {
		store.Metadata.ConfigPreset = string(e.cfg.Preset)
	}

	// Compaction runs on load before the first retrieval can see stale
	// entries.
	result := e.compactor.Compact(store, now())
	e.archiveEvicted(result.Evicted, "compaction-on-load")
	e.metrics.AddEvictions(len(result.Evicted))

	ix := index.New()
	ix.SetAliases(mergedAliases(e.cfg.Aliases, store.Aliases))
	ix.Rebuild(store.Entries)

	e.store.Store(store)
	e.idx.Store(ix)
	e.initialized = true

	if report.Migrated || len(result.Evicted) > 0 {
		if err := files.SaveProject(store); err != nil {
			e.warn("failed to persist store after load", "error", err)
		}
	}
	return nil
}

// Close flushes everything and releases resources. The persisted state
// reflects the last completed mutation.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return nil
	}

	// Abrupt-close path: finalize any sessions still open, fast.
	for id, buf := range e.sessions {
		sm := e.finalizer.FinalizeFast(id, buf.parentSessionID, buf.agentID, buf.messages)
		e.promoteSessionLocked(sm)
		delete(e.sessions, id)
	}

	var firstErr error
	if err := e.files.SaveProject(e.store.Load()); err != nil {
		firstErr = err
	}
	if err := e.auditor.Flush(); err != nil && firstErr == nil {
		firstErr = err
	}
	if e.archive != nil {
		if err := e.archive.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.cache != nil {
		e.cache.Close()
	}
	e.initialized = false
	return firstErr
}

// mutate runs fn on a clone of the store under the mutation lock, then
// swaps the clone in, rebuilds the index, and bumps the generation.
func (e *Engine) mutate(fn func(*memory.Store)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mutateLocked(fn)
}

func (e *Engine) mutateLocked(fn func(*memory.Store)) {
	clone := e.store.Load().Clone()
	fn(clone)

	ix := index.New()
	ix.SetAliases(mergedAliases(e.cfg.Aliases, clone.Aliases))
	ix.Rebuild(clone.Entries)

	e.store.Store(clone)
	e.idx.Store(ix)
	e.gen.Add(1)
}

// maybeCompactLocked runs a compaction pass when the access or time
// trigger is due, then persists the result. Caller holds e.mu. Both the
// retrieval path and session close funnel through here, so a long-lived
// session keeps compacting even when auto memory is off.
func (e *Engine) maybeCompactLocked() {
	st := e.store.Load()
	if !e.compactor.ShouldRun(st.Metadata.LastCompactedAt, e.accessesSinceCompact, now()) {
		return
	}
	evicted := 0
	e.mutateLocked(func(clone *memory.Store) {
		result := e.compactor.Compact(clone, now())
		e.archiveEvicted(result.Evicted, "compaction")
		evicted = len(result.Evicted)
	})
	e.metrics.AddEvictions(evicted)
	e.accessesSinceCompact = 0
	if err := e.files.SaveProject(e.store.Load()); err != nil {
		e.warn("failed to persist store after compaction", "error", err)
	}
}

func (e *Engine) archiveEvicted(entries []memory.Entry, reason string) {
	if len(entries) == 0 {
		return
	}
	if e.archive != nil {
		if err := e.archive.Append(entries, reason); err != nil {
			e.warn("failed to archive evicted entries", "error", err)
		}
	}
	for _, entry := range entries {
		e.emit(event.EntryEvicted, map[string]interface{}{
			"entry_id": entry.ID,
			"category": string(entry.Category),
			"reason":   reason,
		})
	}
	e.emit(event.StoreCompacted, map[string]interface{}{"evicted": len(entries), "reason": reason})
}

// emit publishes a lifecycle event. Hook errors never propagate.
func (e *Engine) emit(t event.EventType, data map[string]interface{}) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Emit(event.NewEvent(t, data)); err != nil {
		e.warn("event hook failed", "event", string(t), "error", err)
	}
}

func (e *Engine) warn(msg string, keyvals ...interface{}) {
	if e.logger != nil {
		e.logger.Warn(msg, keyvals...)
	}
}

func (e *Engine) debug(msg string, keyvals ...interface{}) {
	if e.logger != nil {
		e.logger.Debug(msg, keyvals...)
	}
}

// projectKey flattens a project path into a directory name.
func projectKey(projectPath string) string {
	key := strings.Trim(filepath.ToSlash(projectPath), "/")
	key = strings.ReplaceAll(key, "/", "-")
	key = strings.ReplaceAll(key, ":", "")
	if key == "" {
		key = "default"
	}
	if len(key) > 120 {
		// Keep the tail: the project name is usually at the end.
		key = key[len(key)-120:]
	}
	return key
}

func mergedAliases(cfgAliases, storeAliases map[string][]string) map[string][]string {
	merged := make(map[string][]string, len(cfgAliases)+len(storeAliases))
	for k, v := range cfgAliases {
		merged[k] = v
	}
	for k, v := range storeAliases {
		merged[k] = v
	}
	return merged
}
