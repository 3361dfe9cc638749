package status

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

type WifiStatus struct {
	Connected bool   `json:"connected"`
	SSID      string `json:"ssid"`
	Signal    int    `json:"signal"`
}

type BluetoothStatus struct {
	Enabled bool `json:"enabled"`
}

type BatteryStatus struct {
	Percentage int  `json:"percentage"`
	Charging   bool `json:"charging"`
}

type VolumeStatus struct {
	Level int  `json:"level"`
	Muted bool `json:"muted"`
}

// Runner executes a shell command line and returns its stdout.
type Runner func(ctx context.Context, command string) (string, error)

// ShellRunner runs command through sh -c.
func ShellRunner(ctx context.Context, command string) (string, error) {
	output, err := exec.CommandContext(ctx, "sh", "-c", command).Output()
	if err != nil {
		return "", fmt.Errorf("%q failed: %w", command, err)
	}
	return string(output), nil
}

// parseWifi reads `nmcli -t -f active,ssid,signal dev wifi` output and
// returns the first active network.
func parseWifi(output string) WifiStatus {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "yes:") {
			continue
		}

		// SSIDs may contain escaped colons, so the signal is the last field.
		rest := strings.TrimPrefix(line, "yes:")
		idx := strings.LastIndex(rest, ":")
		if idx < 0 {
			continue
		}
		ssid := strings.ReplaceAll(rest[:idx], `\:`, ":")
		if ssid == "" {
			continue
		}
		signal, _ := strconv.Atoi(strings.TrimSpace(rest[idx+1:]))
		return WifiStatus{Connected: true, SSID: ssid, Signal: signal}
	}
	return WifiStatus{}
}

func parseBluetoothShow(output string) bool {
	return strings.Contains(output, "Powered: yes")
}

var percentRe = regexp.MustCompile(`(\d+)%`)

// parseVolume returns the first percentage in pactl/amixer style output, or
// a bare integer as printed by pamixer.
func parseVolume(output string) (int, bool) {
	if m := percentRe.FindStringSubmatch(output); m != nil {
		level, err := strconv.Atoi(m[1])
		return level, err == nil
	}
	level, err := strconv.Atoi(strings.TrimSpace(output))
	return level, err == nil
}

func parseMute(output string) bool {
	s := strings.ToLower(strings.TrimSpace(output))
	return s == "true" || s == "1" || strings.Contains(s, "mute: yes")
}

// readSysfsBattery reads capacity from path and the charging state from the
// sibling status file.
func readSysfsBattery(path string) (BatteryStatus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BatteryStatus{}, err
	}

	percentage, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return BatteryStatus{}, fmt.Errorf("invalid battery capacity %q: %w", strings.TrimSpace(string(data)), err)
	}

	status := BatteryStatus{Percentage: percentage}

	statusPath := strings.Replace(path, "capacity", "status", 1)
	if statusData, err := os.ReadFile(statusPath); err == nil {
		status.Charging = strings.TrimSpace(string(statusData)) == "Charging"
	}

	return status, nil
}
