package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mnemo-oss/mnemo/internal/memory"
)

// Archive is the SQLite cold store for evicted entries. Eviction is
// lossy by design for the hot path; the archive keeps what compaction
// removed so it can still be searched after the fact.
type Archive struct {
	db *sql.DB
}

// ArchivedEntry is one evicted entry plus eviction bookkeeping.
type ArchivedEntry struct {
	EntryID     string
	Fingerprint string
	Content     string
	Category    memory.Category
	Importance  float64
	Reason      string
	EvictedAt   time.Time
}

// OpenArchive opens (or creates) the archive database at path.
func OpenArchive(path string) (*Archive, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}

	a := &Archive{db: db}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate archive database: %w", err)
	}
	return a, nil
}

func (a *Archive) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS archived_memory (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entry_id TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		content TEXT NOT NULL,
		category TEXT NOT NULL,
		importance REAL NOT NULL,
		file_paths TEXT,
		tags TEXT,
		reason TEXT NOT NULL,
		evicted_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_archived_memory_entry ON archived_memory(entry_id);
	CREATE INDEX IF NOT EXISTS idx_archived_memory_evicted ON archived_memory(evicted_at);
	`
	_, err := a.db.Exec(schema)
	return err
}

// Append records evicted entries with the given reason.
func (a *Archive) Append(entries []memory.Entry, reason string) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := a.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO archived_memory (entry_id, fingerprint, content, category, importance, file_paths, tags, reason, evicted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, e := range entries {
		paths, _ := json.Marshal(e.FilePaths)
		tags, _ := json.Marshal(e.Tags)
		if _, err := stmt.Exec(e.ID, e.Fingerprint, e.Content, string(e.Category), e.Importance, string(paths), string(tags), reason, now); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Search returns archived entries whose content matches the pattern
// (case-insensitive LIKE), most recently evicted first.
func (a *Archive) Search(pattern string, limit int) ([]ArchivedEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := a.db.Query(`
		SELECT entry_id, fingerprint, content, category, importance, reason, evicted_at
		FROM archived_memory
		WHERE content LIKE ?
		ORDER BY evicted_at DESC, id DESC
		LIMIT ?
	`, "%"+pattern+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ArchivedEntry
	for rows.Next() {
		var ae ArchivedEntry
		var cat string
		if err := rows.Scan(&ae.EntryID, &ae.Fingerprint, &ae.Content, &cat, &ae.Importance, &ae.Reason, &ae.EvictedAt); err != nil {
			return nil, err
		}
		ae.Category = memory.Category(cat)
		out = append(out, ae)
	}
	return out, rows.Err()
}

// Count returns the number of archived rows.
func (a *Archive) Count() (int, error) {
	var n int
	err := a.db.QueryRow(`SELECT COUNT(*) FROM archived_memory`).Scan(&n)
	return n, err
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}
