package panel

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid panel config")

type Settings struct {
	Theme       string  `json:"theme"`
	Opacity     float64 `json:"opacity"`
	AccentColor string  `json:"accent_color"`
	ShowWifi    bool    `json:"show_wifi"`
	ShowBT      bool    `json:"show_bt"`
	ShowBattery bool    `json:"show_battery"`
	ShowVolume  bool    `json:"show_volume"`
	ShowClock   bool    `json:"show_clock"`
}

// PinnedApp is a launcher shown in the panel strip, in display order.
type PinnedApp struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
	Exec string `json:"exec"`
}

type Config struct {
	PinnedApps []PinnedApp `json:"pinned_apps"`
	Settings   Settings    `json:"settings"`
}

func DefaultConfig() Config {
	return Config{
		PinnedApps: []PinnedApp{},
		Settings: Settings{
			Theme:       "dark",
			Opacity:     0.9,
			AccentColor: "#6200ea",
			ShowWifi:    true,
			ShowBT:      true,
			ShowBattery: true,
			ShowVolume:  true,
			ShowClock:   true,
		},
	}
}

var settingKinds = []struct {
	key  string
	kind string
}{
	{"theme", "string"},
	{"opacity", "number"},
	{"accent_color", "string"},
	{"show_wifi", "bool"},
	{"show_bt", "bool"},
	{"show_battery", "bool"},
	{"show_volume", "bool"},
	{"show_clock", "bool"},
}

// Parse decodes a full panel config and checks that every field is present
// with the right JSON type.
func Parse(data []byte) (Config, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	pins, ok := raw["pinned_apps"].([]any)
	if !ok {
		return Config{}, fmt.Errorf("%w: pinned_apps must be an array", ErrInvalidConfig)
	}
	if err := checkPinned(pins); err != nil {
		return Config{}, err
	}

	settings, ok := raw["settings"].(map[string]any)
	if !ok {
		return Config{}, fmt.Errorf("%w: settings must be an object", ErrInvalidConfig)
	}
	for _, sk := range settingKinds {
		if !hasKind(settings[sk.key], sk.kind) {
			return Config{}, fmt.Errorf("%w: settings.%s must be a %s", ErrInvalidConfig, sk.key, sk.kind)
		}
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParsePinned decodes a pinned-apps array.
func ParsePinned(data []byte) ([]PinnedApp, error) {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: pinned apps must be an array", ErrInvalidConfig)
	}
	if err := checkPinned(raw); err != nil {
		return nil, err
	}

	pins := []PinnedApp{}
	if err := json.Unmarshal(data, &pins); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return pins, nil
}

func checkPinned(pins []any) error {
	for i, p := range pins {
		obj, ok := p.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: pinned_apps[%d] must be an object", ErrInvalidConfig, i)
		}
		for _, key := range []string{"name", "icon", "exec"} {
			if !hasKind(obj[key], "string") {
				return fmt.Errorf("%w: pinned_apps[%d].%s must be a string", ErrInvalidConfig, i, key)
			}
		}
	}
	return nil
}

func hasKind(v any, kind string) bool {
	switch kind {
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		_, ok := v.(float64)
		return ok
	case "bool":
		_, ok := v.(bool)
		return ok
	}
	return false
}

// Validate checks value ranges on an already decoded config.
func Validate(cfg Config) error {
	s := cfg.Settings
	if s.Theme == "" {
		return fmt.Errorf("%w: theme must not be empty", ErrInvalidConfig)
	}
	if s.Opacity < 0 || s.Opacity > 1 {
		return fmt.Errorf("%w: opacity %.2f out of range 0-1", ErrInvalidConfig, s.Opacity)
	}
	for i, p := range cfg.PinnedApps {
		if p.Name == "" || p.Exec == "" {
			return fmt.Errorf("%w: pinned_apps[%d] needs name and exec", ErrInvalidConfig, i)
		}
	}
	return nil
}
