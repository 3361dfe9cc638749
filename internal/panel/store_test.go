package panel

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const validConfig = `{
  "pinned_apps": [{"name": "Editor", "icon": "editor.png", "exec": "editor"}],
  "settings": {
    "theme": "light", "opacity": 0.5, "accent_color": "#ff0000",
    "show_wifi": true, "show_bt": false, "show_battery": true,
    "show_volume": false, "show_clock": true
  }
}`

func TestLoad_CreatesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blue-panel", "config.json")
	store := NewStore(path)

	cfg := store.Load()
	if cfg.Settings.Theme != "dark" || cfg.Settings.Opacity != 0.9 || cfg.Settings.AccentColor != "#6200ea" {
		t.Errorf("Unexpected default settings %+v", cfg.Settings)
	}
	if cfg.PinnedApps == nil || len(cfg.PinnedApps) != 0 {
		t.Errorf("Expected empty pinned apps, got %v", cfg.PinnedApps)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected default config to be written: %v", err)
	}
}

func TestLoad_ResetsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"settings": {"theme": 3}}`), 0644); err != nil {
		t.Fatalf("Failed to seed config: %v", err)
	}

	cfg := NewStore(path).Load()
	if cfg.Settings.Theme != "dark" {
		t.Errorf("Expected reset to defaults, got %+v", cfg.Settings)
	}

	data, _ := os.ReadFile(path)
	if _, err := Parse(data); err != nil {
		t.Errorf("Expected file to be rewritten with a valid config: %v", err)
	}
}

func TestLoad_ReadsValidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(validConfig), 0644); err != nil {
		t.Fatalf("Failed to seed config: %v", err)
	}

	cfg := NewStore(path).Load()
	if cfg.Settings.Theme != "light" || cfg.Settings.ShowBT {
		t.Errorf("Unexpected settings %+v", cfg.Settings)
	}
	if len(cfg.PinnedApps) != 1 || cfg.PinnedApps[0].Exec != "editor" {
		t.Errorf("Unexpected pinned apps %+v", cfg.PinnedApps)
	}
}

func TestSave_RejectsInvalid(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "config.json"))

	cfg := DefaultConfig()
	cfg.Settings.Opacity = 3
	if err := store.Save(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.PinnedApps = []PinnedApp{{Name: "NoExec"}}
	if err := store.Save(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for pinned app without exec, got %v", err)
	}
}

func TestSetPinnedApps_KeepsOrderAndSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(validConfig), 0644); err != nil {
		t.Fatalf("Failed to seed config: %v", err)
	}
	store := NewStore(path)

	pins := []PinnedApp{
		{Name: "Terminal", Icon: "term.png", Exec: "term"},
		{Name: "Editor", Icon: "editor.png", Exec: "editor"},
	}
	if err := store.SetPinnedApps(pins); err != nil {
		t.Fatalf("SetPinnedApps failed: %v", err)
	}

	got := store.PinnedApps()
	if len(got) != 2 || got[0].Name != "Terminal" || got[1].Name != "Editor" {
		t.Errorf("Expected reordered pins, got %+v", got)
	}
	if store.Load().Settings.Theme != "light" {
		t.Error("Expected settings to survive pinned update")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"valid", validConfig, false},
		{"not json", `{`, true},
		{"missing pinned", `{"settings": {}}`, true},
		{"pinned not array", `{"pinned_apps": {}, "settings": {}}`, true},
		{"pinned missing icon", `{"pinned_apps": [{"name": "a", "exec": "a"}], "settings": {}}`, true},
		{"missing setting", `{"pinned_apps": [], "settings": {"theme": "dark"}}`, true},
		{"opacity as string", `{"pinned_apps": [], "settings": {"theme": "dark", "opacity": "0.9", "accent_color": "#000", "show_wifi": true, "show_bt": true, "show_battery": true, "show_volume": true, "show_clock": true}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestParsePinned(t *testing.T) {
	pins, err := ParsePinned([]byte(`[{"name": "Editor", "icon": "e.png", "exec": "editor"}]`))
	if err != nil {
		t.Fatalf("ParsePinned failed: %v", err)
	}
	if len(pins) != 1 || pins[0].Name != "Editor" {
		t.Errorf("Unexpected pins %+v", pins)
	}

	if pins, err := ParsePinned([]byte(`[]`)); err != nil || len(pins) != 0 {
		t.Errorf("Expected empty list to parse, got %v %v", pins, err)
	}

	for _, bad := range []string{`null`, `{}`, `[1]`, `[{"name": "x"}]`} {
		if _, err := ParsePinned([]byte(bad)); err == nil {
			t.Errorf("Expected error for %s", bad)
		}
	}
}
