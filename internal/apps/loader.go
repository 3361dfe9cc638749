package apps

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2"

	"github.com/chess10kp/bluepanel/internal/config"
)

var (
	ErrNotFound       = errors.New("application not found")
	errMissingFields  = errors.New("invalid desktop file: missing Name or Exec")
	errNotDisplayable = errors.New("desktop file is not displayable")
)

// Entry is an installed application as served by GET /apps.
type Entry struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Exec        string `json:"exec"`
	IsSystem    bool   `json:"is_system"`
	LaunchCount int    `json:"launch_count"`
	IsFavorite  bool   `json:"is_favorite"`

	IconName string `json:"-"`
	File     string `json:"-"`
}

// desktopFile holds the raw [Desktop Entry] keys we care about.
type desktopFile struct {
	Name      string
	Exec      string
	Icon      string
	Type      string
	NoDisplay bool
	Hidden    bool
}

type cachedFile struct {
	modTime time.Time
	size    int64
	file    desktopFile
	err     error
}

// Loader reads desktop entries from disk. Every Load call rescans the
// directories; the optional LRU only skips re-parsing files whose size and
// mtime are unchanged.
type Loader struct {
	dirs  []string
	icons *IconResolver
	cache *lru.Cache[string, cachedFile]
}

// NewLoader creates a loader for the configured application directories.
func NewLoader(cfg *config.Config, icons *IconResolver) (*Loader, error) {
	l := &Loader{
		dirs:  append([]string(nil), cfg.Apps.Dirs...),
		icons: icons,
	}

	if cfg.Apps.EntryCacheSize > 0 {
		cache, err := lru.New[string, cachedFile](cfg.Apps.EntryCacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create entry cache: %w", err)
		}
		l.cache = cache
	}

	return l, nil
}

// Dirs returns the directories scanned by Load.
func (l *Loader) Dirs() []string {
	return append([]string(nil), l.dirs...)
}

// Load scans all directories and returns displayable entries sorted by name.
// Read errors are logged and skipped; the result is never nil.
func (l *Loader) Load() []Entry {
	start := time.Now()
	entries := []Entry{}
	seenIDs := make(map[string]bool)
	seenNames := make(map[string]bool)

	for _, dir := range l.dirs {
		if _, err := os.Stat(dir); err != nil {
			log.Printf("[APPS-LOADER] Skipping directory %s: %v", dir, err)
			continue
		}

		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Printf("[APPS-LOADER] Error reading %s: %v", path, err)
				return nil
			}
			if d.IsDir() || !strings.HasSuffix(path, ".desktop") {
				return nil
			}

			id := desktopFileID(dir, path)
			if seenIDs[id] {
				return nil
			}
			seenIDs[id] = true

			df, err := l.readDesktopFile(path)
			if err != nil {
				if !errors.Is(err, errNotDisplayable) {
					log.Printf("[APPS-LOADER] Skipping %s: %v", path, err)
				}
				return nil
			}

			if seenNames[df.Name] {
				return nil
			}
			seenNames[df.Name] = true

			entries = append(entries, l.toEntry(path, df))
			return nil
		})
		if err != nil {
			log.Printf("[APPS-LOADER] Failed to walk %s: %v", dir, err)
		}
	}

	SortEntries(entries)

	log.Printf("[APPS-LOADER] Loaded %d applications in %v", len(entries), time.Since(start))
	return entries
}

func (l *Loader) toEntry(path string, df desktopFile) Entry {
	icon := ""
	if l.icons != nil {
		icon = l.icons.Resolve(df.Icon)
	}
	return Entry{
		Name:     df.Name,
		Icon:     icon,
		Exec:     df.Exec,
		IsSystem: true,
		IconName: df.Icon,
		File:     path,
	}
}

func (l *Loader) readDesktopFile(path string) (desktopFile, error) {
	if l.cache == nil {
		return parseDesktopFile(path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return desktopFile{}, err
	}

	if cached, ok := l.cache.Get(path); ok && cached.modTime.Equal(info.ModTime()) && cached.size == info.Size() {
		return cached.file, cached.err
	}

	df, err := parseDesktopFile(path)
	var pathErr *fs.PathError
	if !errors.As(err, &pathErr) {
		l.cache.Add(path, cachedFile{modTime: info.ModTime(), size: info.Size(), file: df, err: err})
	}
	return df, err
}

// Invalidate drops any cached parse of path.
func (l *Loader) Invalidate(path string) {
	if l.cache != nil {
		l.cache.Remove(path)
	}
}

// Purge drops every cached parse.
func (l *Loader) Purge() {
	if l.cache != nil {
		l.cache.Purge()
	}
}

// parseDesktopFile parses a single .desktop file
func parseDesktopFile(path string) (desktopFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return desktopFile{}, err
	}
	defer file.Close()

	var df desktopFile
	inDesktopEntry := false

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			inDesktopEntry = line == "[Desktop Entry]"
			continue
		}

		if !inDesktopEntry {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"")

		switch key {
		case "Name":
			df.Name = value
		case "Exec":
			df.Exec = value
		case "Icon":
			df.Icon = value
		case "Type":
			df.Type = value
		case "NoDisplay":
			df.NoDisplay = strings.EqualFold(value, "true")
		case "Hidden":
			df.Hidden = strings.EqualFold(value, "true")
		}
	}
	if err := scanner.Err(); err != nil {
		return desktopFile{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if df.Name == "" || df.Exec == "" {
		return desktopFile{}, errMissingFields
	}
	if df.NoDisplay || df.Hidden || (df.Type != "" && df.Type != "Application") {
		return desktopFile{}, errNotDisplayable
	}

	return df, nil
}

// desktopFileID follows the XDG rule: path relative to the data dir with
// separators replaced by '-'.
func desktopFileID(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return filepath.Base(path)
	}
	return strings.ReplaceAll(rel, string(filepath.Separator), "-")
}

// SortEntries orders entries case-insensitively by name.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := strings.ToLower(entries[i].Name), strings.ToLower(entries[j].Name)
		if a != b {
			return a < b
		}
		return entries[i].Name < entries[j].Name
	})
}

// Find returns a pointer into entries for the given name.
func Find(entries []Entry, name string) (*Entry, error) {
	for i := range entries {
		if entries[i].Name == name {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}
