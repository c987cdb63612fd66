// Package storage owns durable persistence for one project's memory:
// the project store, per-session files, the audit log path, and the
// SQLite cold archive. Loads never fail — they fall back through
// migration, validation, backup recovery, and finally an empty store.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mnemo-oss/mnemo/internal/memory"
	"github.com/mnemo-oss/mnemo/internal/telemetry"
)

const (
	projectFile = "project.json"
	backupFile  = "project.json.bak"
	sessionsDir = "sessions"
	auditFile   = "audit.json"
	archiveFile = "archive.db"
)

// Files manages the on-disk layout under one memory root.
type Files struct {
	root      string
	hardLimit int
	logger    *telemetry.Logger
}

// LoadReport describes how a project store load went.
type LoadReport struct {
	RecoveredFromBackup bool
	Reset               bool // store was unreadable and replaced with empty
	Migrated            bool
}

// New creates a Files manager rooted at dir, creating it if needed.
func New(dir string, hardLimit int, logger *telemetry.Logger) (*Files, error) {
	if err := os.MkdirAll(filepath.Join(dir, sessionsDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create memory root: %w", err)
	}
	if hardLimit <= 0 {
		hardLimit = 3000
	}
	return &Files{root: dir, hardLimit: hardLimit, logger: logger}, nil
}

// Root returns the memory root directory.
func (f *Files) Root() string { return f.root }

// AuditPath returns the audit log location.
func (f *Files) AuditPath() string { return filepath.Join(f.root, auditFile) }

// ArchivePath returns the cold archive location.
func (f *Files) ArchivePath() string { return filepath.Join(f.root, archiveFile) }

func (f *Files) projectPath() string { return filepath.Join(f.root, projectFile) }
func (f *Files) backupPath() string  { return filepath.Join(f.root, backupFile) }

// LoadProject loads the project store. It never returns an error: a
// corrupt or unmigratable primary falls back to the backup, and a corrupt
// backup falls back to an empty store.
func (f *Files) LoadProject() (*memory.Store, LoadReport) {
	var report LoadReport

	store, migrated, err := f.loadStoreFile(f.projectPath())
	if err == nil {
		report.Migrated = migrated
		return store, report
	}
	if !os.IsNotExist(err) {
		f.warn("project store unreadable, trying backup", "error", err)
	}

	store, migrated, bakErr := f.loadStoreFile(f.backupPath())
	if bakErr == nil {
		report.RecoveredFromBackup = true
		report.Migrated = migrated
		return store, report
	}

	if !os.IsNotExist(err) || !os.IsNotExist(bakErr) {
		report.Reset = true
	}
	return memory.NewStore(), report
}

// loadStoreFile reads, migrates, and validates one store file.
func (f *Files) loadStoreFile(path string) (*memory.Store, bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}

	var raw map[string]any
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, false, fmt.Errorf("failed to parse store: %w", err)
	}

	raw, migrated, err := migrate(raw)
	if err != nil {
		return nil, false, err
	}

	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, false, err
	}
	var store memory.Store
	if err := json.Unmarshal(normalized, &store); err != nil {
		return nil, false, fmt.Errorf("failed to decode store: %w", err)
	}

	if err := validateStore(&store); err != nil {
		return nil, false, err
	}
	if store.Aliases == nil {
		store.Aliases = map[string][]string{}
	}
	return &store, migrated, nil
}

// validateStore smoke-checks structural shape: version, and the first 3
// entries carry id/content/fingerprint. Cheap, not full per-record
// validation.
func validateStore(store *memory.Store) error {
	if store.Version != memory.StoreVersion {
		return fmt.Errorf("unexpected store version %d", store.Version)
	}
	n := len(store.Entries)
	if n > 3 {
		n = 3
	}
	for i := 0; i < n; i++ {
		e := store.Entries[i]
		if e.ID == "" || e.Content == "" || e.Fingerprint == "" {
			return fmt.Errorf("entry %d missing required fields", i)
		}
	}
	return nil
}

// SaveProject persists the store atomically: the last good copy is moved
// to .bak first, then the new content is written to a temp file and
// renamed into place. A partial failure never corrupts the last good copy.
func (f *Files) SaveProject(store *memory.Store) error {
	enforceHardLimit(store, f.hardLimit)

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	primary := f.projectPath()
	if _, err := os.Stat(primary); err == nil {
		if err := copyFile(primary, f.backupPath()); err != nil {
			f.warn("failed to write backup", "error", err)
		}
	}

	tmp := primary + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := os.Rename(tmp, primary); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace store: %w", err)
	}
	return nil
}

// enforceHardLimit truncates an oversized store by removing the least
// important entries first. Pinned entries are dropped only after
// everything else is gone.
func enforceHardLimit(store *memory.Store, limit int) {
	if len(store.Entries) <= limit {
		return
	}
	sorted := make([]memory.Entry, len(store.Entries))
	copy(sorted, store.Entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := sorted[i].Status == memory.StatusPinned, sorted[j].Status == memory.StatusPinned
		if pi != pj {
			return pj // non-pinned sort first, so they are removed first
		}
		return sorted[i].Importance < sorted[j].Importance
	})
	drop := make(map[string]bool, len(store.Entries)-limit)
	for _, e := range sorted[:len(store.Entries)-limit] {
		drop[e.ID] = true
	}
	kept := store.Entries[:0]
	for _, e := range store.Entries {
		if !drop[e.ID] {
			kept = append(kept, e)
		}
	}
	store.Entries = kept
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

func (f *Files) warn(msg string, keyvals ...interface{}) {
	if f.logger != nil {
		f.logger.Warn(msg, keyvals...)
	}
}
