package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mnemo-oss/mnemo/internal/memory"
)

const sessionSuffix = ".memory.json"

func (f *Files) sessionPath(sessionID string) string {
	return filepath.Join(f.root, sessionsDir, sanitizeID(sessionID)+sessionSuffix)
}

// SaveSession persists one session's memory file.
func (f *Files) SaveSession(sm *memory.SessionMemory) error {
	data, err := json.MarshalIndent(sm, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return os.WriteFile(f.sessionPath(sm.SessionID), data, 0644)
}

// LoadSession loads one session's memory. Session files are disposable:
// missing or corrupt files return nil without error, and no backup is kept.
func (f *Files) LoadSession(sessionID string) *memory.SessionMemory {
	content, err := os.ReadFile(f.sessionPath(sessionID))
	if err != nil {
		return nil
	}
	var sm memory.SessionMemory
	if err := json.Unmarshal(content, &sm); err != nil {
		f.warn("session file corrupt, ignoring", "session", sessionID, "error", err)
		return nil
	}
	if sm.SessionID == "" {
		return nil
	}
	return &sm
}

// LoadAllSessions returns every readable session memory, skipping corrupt
// files. Used for multi-session promotion signals.
func (f *Files) LoadAllSessions() []*memory.SessionMemory {
	entries, err := os.ReadDir(filepath.Join(f.root, sessionsDir))
	if err != nil {
		return nil
	}
	var out []*memory.SessionMemory
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, sessionSuffix) {
			continue
		}
		if sm := f.LoadSession(strings.TrimSuffix(name, sessionSuffix)); sm != nil {
			out = append(out, sm)
		}
	}
	return out
}

// sanitizeID keeps session ids filesystem-safe.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, id)
}
