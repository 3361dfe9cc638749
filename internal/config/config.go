package config

import (
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `toml:"server" yaml:"server"`
	Apps    AppsConfig    `toml:"apps" yaml:"apps"`
	Icons   IconsConfig   `toml:"icons" yaml:"icons"`
	History HistoryConfig `toml:"history" yaml:"history"`
	Panel   PanelConfig   `toml:"panel" yaml:"panel"`
	Status  StatusConfig  `toml:"status" yaml:"status"`
}

type ServerConfig struct {
	Host string `toml:"host" yaml:"host"`
	Port int    `toml:"port" yaml:"port"`
}

type AppsConfig struct {
	Dirs           []string `toml:"dirs" yaml:"dirs"`
	EntryCacheSize int      `toml:"entry_cache_size" yaml:"entry_cache_size"`
	Watch          bool     `toml:"watch" yaml:"watch"`
}

type IconsConfig struct {
	Root        string   `toml:"root" yaml:"root"`
	Theme       string   `toml:"theme" yaml:"theme"`
	Sizes       []int    `toml:"sizes" yaml:"sizes"`
	Extensions  []string `toml:"extensions" yaml:"extensions"`
	Placeholder string   `toml:"placeholder" yaml:"placeholder"`
	MountPrefix string   `toml:"mount_prefix" yaml:"mount_prefix"`
}

type HistoryConfig struct {
	Path      string `toml:"path" yaml:"path"`
	QueueSize int    `toml:"queue_size" yaml:"queue_size"`
}

type PanelConfig struct {
	ConfigPath  string `toml:"config_path" yaml:"config_path"`
	FrontendDir string `toml:"frontend_dir" yaml:"frontend_dir"`
}

type StatusConfig struct {
	CacheTTLMs     int    `toml:"cache_ttl_ms" yaml:"cache_ttl_ms"`
	ProbeTimeoutMs int    `toml:"probe_timeout_ms" yaml:"probe_timeout_ms"`
	WifiCmd        string `toml:"wifi_cmd" yaml:"wifi_cmd"`
	BluetoothCmd   string `toml:"bluetooth_cmd" yaml:"bluetooth_cmd"`
	VolumeCmd      string `toml:"volume_cmd" yaml:"volume_cmd"`
	MuteCmd        string `toml:"mute_cmd" yaml:"mute_cmd"`
	BatteryPath    string `toml:"battery_path" yaml:"battery_path"`
	UseDBus        bool   `toml:"use_dbus" yaml:"use_dbus"`
}

// Addr returns the host:port the HTTP facade listens on.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// BaseURL is the origin icon URLs are built against.
func (s ServerConfig) BaseURL() string {
	host := s.Host
	if host == "" || host == "0.0.0.0" || host == "127.0.0.1" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(s.Port))
}

// DefaultPath is where the daemon looks for its own config file.
const DefaultPath = "~/.config/blue-panel/bluepanel.toml"

var DefaultConfig = Config{
	Server: ServerConfig{
		Host: "127.0.0.1",
		Port: 3000,
	},
	Apps: AppsConfig{
		Dirs:           []string{"/usr/share/applications", "~/.local/share/applications"},
		EntryCacheSize: 512,
		Watch:          true,
	},
	Icons: IconsConfig{
		Root:        "/usr/share/icons",
		Theme:       "breeze",
		Sizes:       []int{64, 48, 32},
		Extensions:  []string{".png", ".svg"},
		Placeholder: "https://via.placeholder.com/72",
		MountPrefix: "/usr/share/icons",
	},
	History: HistoryConfig{
		Path:      "~/.config/blue_launcher_history.json",
		QueueSize: 64,
	},
	Panel: PanelConfig{
		ConfigPath:  "~/.config/blue-panel/config.json",
		FrontendDir: "",
	},
	Status: StatusConfig{
		CacheTTLMs:     1000,
		ProbeTimeoutMs: 800,
		WifiCmd:        "nmcli -t -f active,ssid,signal dev wifi",
		BluetoothCmd:   "bluetoothctl show",
		VolumeCmd:      "pactl get-sink-volume @DEFAULT_SINK@",
		MuteCmd:        "pactl get-sink-mute @DEFAULT_SINK@",
		BatteryPath:    "/sys/class/power_supply/BAT0/capacity",
		UseDBus:        true,
	},
}

// Default returns a deep copy of DefaultConfig with paths expanded.
func Default() *Config {
	cfg := DefaultConfig
	cfg.Apps.Dirs = append([]string(nil), DefaultConfig.Apps.Dirs...)
	cfg.Icons.Sizes = append([]int(nil), DefaultConfig.Icons.Sizes...)
	cfg.Icons.Extensions = append([]string(nil), DefaultConfig.Icons.Extensions...)
	cfg.expandPaths()
	return &cfg
}

func LoadConfig(path string) (*Config, error) {
	expandedPath := ExpandPath(path)

	if _, err := os.Stat(expandedPath); os.IsNotExist(err) {
		return Default(), nil
	}

	data, err := os.ReadFile(expandedPath)
	if err != nil {
		return nil, err
	}

	// Fields absent from the file keep their defaults.
	cfg := Default()
	switch strings.ToLower(filepath.Ext(expandedPath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse yaml config: %w", err)
		}
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse toml config: %w", err)
		}
	}

	cfg.expandPaths()
	return cfg, nil
}

func LoadAndValidateConfig(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) expandPaths() {
	for i, dir := range c.Apps.Dirs {
		c.Apps.Dirs[i] = ExpandPath(dir)
	}
	c.Icons.Root = ExpandPath(c.Icons.Root)
	c.History.Path = ExpandPath(c.History.Path)
	c.Panel.ConfigPath = ExpandPath(c.Panel.ConfigPath)
	c.Panel.FrontendDir = ExpandPath(c.Panel.FrontendDir)
}

// ExpandPath resolves a leading ~ to the current user's home directory.
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		usr, err := user.Current()
		if err == nil {
			return filepath.Join(usr.HomeDir, path[1:])
		}
	}
	return path
}

func SaveConfig(cfg *Config, path string) error {
	expandedPath := ExpandPath(path)

	dir := filepath.Dir(expandedPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(expandedPath)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		data, err = toml.Marshal(cfg)
	}
	if err != nil {
		return err
	}

	return os.WriteFile(expandedPath, data, 0644)
}

func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateApps(); err != nil {
		return err
	}
	if err := c.validateIcons(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	if err := c.validateStatus(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Server.Port)
	}
	return nil
}

func (c *Config) validateApps() error {
	if len(c.Apps.Dirs) == 0 {
		return fmt.Errorf("apps.dirs must list at least one directory")
	}
	if c.Apps.EntryCacheSize < 0 || c.Apps.EntryCacheSize > 100000 {
		return fmt.Errorf("invalid entry_cache_size: %d (must be 0-100000)", c.Apps.EntryCacheSize)
	}
	return nil
}

func (c *Config) validateIcons() error {
	i := c.Icons
	if len(i.Sizes) == 0 {
		return fmt.Errorf("icons.sizes must list at least one size")
	}
	for _, size := range i.Sizes {
		if size < 8 || size > 1024 {
			return fmt.Errorf("invalid icon size: %d (must be 8-1024)", size)
		}
	}
	if len(i.Extensions) == 0 {
		return fmt.Errorf("icons.extensions must list at least one extension")
	}
	for _, ext := range i.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("invalid icon extension: %q (must start with '.')", ext)
		}
	}
	if !strings.HasPrefix(i.MountPrefix, "/") || strings.Trim(i.MountPrefix, "/") == "" {
		return fmt.Errorf("invalid icons.mount_prefix: %q (must be an absolute path below '/')", i.MountPrefix)
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.Path == "" {
		return fmt.Errorf("history.path must not be empty")
	}
	if c.History.QueueSize < 1 || c.History.QueueSize > 10000 {
		return fmt.Errorf("invalid history queue_size: %d (must be 1-10000)", c.History.QueueSize)
	}
	return nil
}

func (c *Config) validateStatus() error {
	s := c.Status
	if s.CacheTTLMs < 0 || s.CacheTTLMs > 60000 {
		return fmt.Errorf("invalid cache_ttl_ms: %d (must be 0-60000)", s.CacheTTLMs)
	}
	if s.ProbeTimeoutMs < 50 || s.ProbeTimeoutMs > 30000 {
		return fmt.Errorf("invalid probe_timeout_ms: %d (must be 50-30000)", s.ProbeTimeoutMs)
	}
	return nil
}

func ValidateConfig(path string) error {
	_, err := LoadAndValidateConfig(path)
	return err
}
