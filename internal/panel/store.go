package panel

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Store persists the panel config as JSON. Writes are serialized by mu.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the stored config. A missing or invalid file is replaced by
// the default config on disk.
func (s *Store) Load() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// ReadFile parses the config at path without touching the file.
func ReadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}

func (s *Store) loadLocked() Config {
	cfg, err := ReadFile(s.path)
	switch {
	case err == nil:
		return cfg
	case errors.Is(err, ErrInvalidConfig):
		log.Printf("[PANEL-CONFIG] Invalid config format in %s, resetting to default: %v", s.path, err)
	case !os.IsNotExist(err):
		log.Printf("[PANEL-CONFIG] Failed to read %s: %v", s.path, err)
	}

	cfg = DefaultConfig()
	if err := s.saveLocked(cfg); err != nil {
		log.Printf("[PANEL-CONFIG] Failed to write default config: %v", err)
	} else {
		log.Printf("[PANEL-CONFIG] Created default config at %s", s.path)
	}
	return cfg
}

// Save validates and writes cfg.
func (s *Store) Save(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(cfg)
}

func (s *Store) saveLocked(cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if cfg.PinnedApps == nil {
		cfg.PinnedApps = []PinnedApp{}
	}

	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal panel config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tempFile := s.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp config file: %w", err)
	}
	if err := os.Rename(tempFile, s.path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp config file: %w", err)
	}

	log.Printf("[PANEL-CONFIG] Saved config to %s", s.path)
	return nil
}

func (s *Store) PinnedApps() []PinnedApp {
	return s.Load().PinnedApps
}

// SetPinnedApps replaces the pinned list, keeping the given order.
func (s *Store) SetPinnedApps(pins []PinnedApp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.loadLocked()
	cfg.PinnedApps = append([]PinnedApp{}, pins...)
	if err := s.saveLocked(cfg); err != nil {
		return err
	}
	log.Printf("[PANEL-CONFIG] Updated pinned apps (%d)", len(pins))
	return nil
}
