package status

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/chess10kp/bluepanel/internal/config"
)

type fakeRunner struct {
	mu      sync.Mutex
	outputs map[string]string
	calls   map[string]int
}

func newFakeRunner(outputs map[string]string) *fakeRunner {
	return &fakeRunner{outputs: outputs, calls: make(map[string]int)}
}

func (f *fakeRunner) run(ctx context.Context, command string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[command]++
	out, ok := f.outputs[command]
	if !ok {
		return "", errors.New("command not found")
	}
	return out, nil
}

func (f *fakeRunner) count(command string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[command]
}

func testConfig(t *testing.T, ttlMs int) *config.Config {
	t.Helper()

	dir := t.TempDir()
	capacity := filepath.Join(dir, "capacity")
	if err := os.WriteFile(capacity, []byte("87\n"), 0644); err != nil {
		t.Fatalf("Failed to write capacity: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "status"), []byte("Charging\n"), 0644); err != nil {
		t.Fatalf("Failed to write status: %v", err)
	}

	cfg := config.Default()
	cfg.Status = config.StatusConfig{
		CacheTTLMs:     ttlMs,
		ProbeTimeoutMs: 500,
		WifiCmd:        "wifi",
		BluetoothCmd:   "bt",
		VolumeCmd:      "vol",
		MuteCmd:        "mute",
		BatteryPath:    capacity,
	}
	return cfg
}

func TestParseWifi(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   WifiStatus
	}{
		{"connected", "no:Other:40\nyes:HomeNet:72\n", WifiStatus{Connected: true, SSID: "HomeNet", Signal: 72}},
		{"escaped colon", `yes:Cafe\:Guest:55`, WifiStatus{Connected: true, SSID: "Cafe:Guest", Signal: 55}},
		{"not connected", "no:HomeNet:72\n", WifiStatus{}},
		{"empty", "", WifiStatus{}},
		{"empty ssid", "yes::30", WifiStatus{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseWifi(tt.output); got != tt.want {
				t.Errorf("parseWifi() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseVolume(t *testing.T) {
	tests := []struct {
		output string
		want   int
		ok     bool
	}{
		{"Volume: front-left: 42598 /  65% / -11.23 dB,   front-right: 42598 /  65% / -11.23 dB", 65, true},
		{"40\n", 40, true},
		{"garbage", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseVolume(tt.output)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseVolume(%q) = %d, %v; want %d, %v", tt.output, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseMuteAndBluetooth(t *testing.T) {
	if !parseMute("Mute: yes\n") || !parseMute("true") {
		t.Error("Expected muted output to parse as muted")
	}
	if parseMute("Mute: no") || parseMute("false") {
		t.Error("Expected unmuted output to parse as unmuted")
	}
	if !parseBluetoothShow("Controller 00:11\n\tPowered: yes\n") {
		t.Error("Expected powered controller")
	}
	if parseBluetoothShow("\tPowered: no\n") {
		t.Error("Expected unpowered controller")
	}
}

func TestReadSysfsBattery(t *testing.T) {
	cfg := testConfig(t, 0)

	got, err := readSysfsBattery(cfg.Status.BatteryPath)
	if err != nil {
		t.Fatalf("readSysfsBattery failed: %v", err)
	}
	if got.Percentage != 87 || !got.Charging {
		t.Errorf("Unexpected battery status %+v", got)
	}

	if _, err := readSysfsBattery(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for missing capacity file")
	}
}

func TestSnapshot(t *testing.T) {
	runner := newFakeRunner(map[string]string{
		"wifi": "yes:HomeNet:72\n",
		"bt":   "Powered: yes\n",
		"vol":  "Volume: 65%\n",
		"mute": "Mute: no\n",
	})
	c := NewCollector(testConfig(t, 0), runner.run, nil)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	snap := c.Snapshot(context.Background())

	if !snap.Wifi.Connected || snap.Wifi.SSID != "HomeNet" {
		t.Errorf("Unexpected wifi %+v", snap.Wifi)
	}
	if !snap.Bluetooth.Enabled {
		t.Errorf("Expected bluetooth enabled")
	}
	if snap.Battery.Percentage != 87 || !snap.Battery.Charging {
		t.Errorf("Unexpected battery %+v", snap.Battery)
	}
	if snap.Volume.Level != 65 || snap.Volume.Muted {
		t.Errorf("Unexpected volume %+v", snap.Volume)
	}
	if snap.Clock != "2024-05-01T12:00:00Z" {
		t.Errorf("Unexpected clock %q", snap.Clock)
	}
}

func TestSnapshot_FailedProbesDegrade(t *testing.T) {
	runner := newFakeRunner(map[string]string{})
	cfg := testConfig(t, 0)
	cfg.Status.BatteryPath = filepath.Join(t.TempDir(), "missing")

	snap := NewCollector(cfg, runner.run, nil).Snapshot(context.Background())

	if snap.Wifi != (WifiStatus{}) || snap.Bluetooth.Enabled || snap.Battery != (BatteryStatus{}) || snap.Volume != (VolumeStatus{}) {
		t.Errorf("Expected zero values for failed probes, got %+v", snap)
	}
	if snap.Clock == "" {
		t.Error("Expected clock to be set")
	}
}

func TestSnapshot_CachesWithinTTL(t *testing.T) {
	runner := newFakeRunner(map[string]string{
		"wifi": "yes:HomeNet:72\n",
		"bt":   "Powered: no\n",
		"vol":  "50%",
		"mute": "false",
	})
	c := NewCollector(testConfig(t, 60000), runner.run, nil)

	c.Snapshot(context.Background())
	c.Snapshot(context.Background())

	if n := runner.count("wifi"); n != 1 {
		t.Errorf("Expected wifi probe to run once, ran %d times", n)
	}

	c.Invalidate(keyWifi)
	c.Snapshot(context.Background())

	if n := runner.count("wifi"); n != 2 {
		t.Errorf("Expected wifi probe to re-run after invalidate, ran %d times", n)
	}
	if n := runner.count("vol"); n != 1 {
		t.Errorf("Expected volume probe to stay cached, ran %d times", n)
	}
}

func TestSnapshot_CancelledRequestDoesNotFillCache(t *testing.T) {
	runner := newFakeRunner(map[string]string{"vol": "Volume: 55%"})
	ctxAware := func(ctx context.Context, command string) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return runner.run(ctx, command)
	}
	c := NewCollector(testConfig(t, 60000), ctxAware, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if snap := c.Snapshot(ctx); snap.Volume.Level != 0 {
		t.Errorf("Expected zero volume for cancelled request, got %d", snap.Volume.Level)
	}

	snap := c.Snapshot(context.Background())
	if snap.Volume.Level != 55 {
		t.Errorf("Expected live request to re-probe volume, got %d", snap.Volume.Level)
	}
	if n := runner.count("vol"); n != 1 {
		t.Errorf("Expected one volume command to run, ran %d times", n)
	}

	c.Snapshot(context.Background())
	if n := runner.count("vol"); n != 1 {
		t.Errorf("Expected live result to be cached, ran %d times", n)
	}
}

func TestSnapshot_NoCacheWhenTTLZero(t *testing.T) {
	runner := newFakeRunner(map[string]string{"wifi": "no:x:1"})
	c := NewCollector(testConfig(t, 0), runner.run, nil)

	c.Snapshot(context.Background())
	c.Snapshot(context.Background())

	if n := runner.count("wifi"); n != 2 {
		t.Errorf("Expected wifi probe to run every time, ran %d times", n)
	}
}

func TestWatch_NoBus(t *testing.T) {
	c := NewCollector(testConfig(t, 0), newFakeRunner(nil).run, nil)
	if err := c.Watch(context.Background()); err != nil {
		t.Errorf("Expected nil error without a bus, got %v", err)
	}
}

func TestKeyForInterface(t *testing.T) {
	tests := map[string]string{
		"org.freedesktop.NetworkManager.Device.Wireless": keyWifi,
		"org.bluez.Adapter1":                             keyBluetooth,
		"org.freedesktop.UPower.Device":                  keyBattery,
		"org.example.Other":                              "",
	}
	for iface, want := range tests {
		if got := keyForInterface(iface); got != want {
			t.Errorf("keyForInterface(%q) = %q, want %q", iface, got, want)
		}
	}
}
