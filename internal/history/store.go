package history

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/chess10kp/bluepanel/internal/apps"
)

// Record is the persisted usage for one application name.
type Record struct {
	Count    int  `json:"count"`
	Favorite bool `json:"favorite"`
}

// Store reads and rewrites the history JSON file. It holds no state
// between calls.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted records. A missing or malformed file is logged
// and treated as empty.
func (s *Store) Load() map[string]Record {
	records := make(map[string]Record)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[HISTORY] No history file at %s, starting fresh", s.path)
		} else {
			log.Printf("[HISTORY] Failed to read history: %v", err)
		}
		return records
	}

	if err := json.Unmarshal(data, &records); err != nil {
		log.Printf("[HISTORY] Failed to parse history %s: %v", s.path, err)
		return make(map[string]Record)
	}

	return records
}

// Merge copies counts and favorite flags from records into matching entries.
// Records for names not present in entries are ignored.
func Merge(entries []apps.Entry, records map[string]Record) {
	for i := range entries {
		record, ok := records[entries[i].Name]
		if !ok {
			continue
		}
		count := record.Count
		if count < 0 {
			count = 0
		}
		entries[i].LaunchCount = count
		entries[i].IsFavorite = record.Favorite
	}
}

// Build keeps only entries that were launched or favorited.
func Build(entries []apps.Entry) map[string]Record {
	records := make(map[string]Record)
	for _, e := range entries {
		if e.LaunchCount > 0 || e.IsFavorite {
			records[e.Name] = Record{Count: e.LaunchCount, Favorite: e.IsFavorite}
		}
	}
	return records
}

// Save rebuilds the history from entries and replaces the file atomically.
func (s *Store) Save(entries []apps.Entry) error {
	records := Build(entries)

	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp history file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp history file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod temp history file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp history file: %w", err)
	}

	log.Printf("[HISTORY] Saved %d records to %s", len(records), s.path)
	return nil
}
