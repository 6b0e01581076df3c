package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"govee-gateway/internal/config"
)

const replayFixture = `# two readings, one interleaved frame, one foreign device
GVH5075_CBD1,-71,0D09475648353037355F43424431030388EC02010509FF88EC000410C66400
GVH5075_CBD1,-72,0201060303F5FE
LYWSD03MMC,-50,0D09475648353037355F43424431030388EC02010509FF88EC000410C66400
GVH5075_CBD1,-70,0D09475648353037355F43424431030388EC02010509FF88EC000009605A00
`

func replayConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	replay := filepath.Join(dir, "adv.txt")
	if err := os.WriteFile(replay, []byte(replayFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	return config.Config{
		AppEnv:       "dev",
		BLEBackend:   config.BackendReplay,
		ReplayFile:   replay,
		ScanDuration: time.Second,
		ScanPause:    time.Millisecond,
		SQLitePath:   filepath.Join(dir, "history.db"),
	}
}

var uptimePrefix = regexp.MustCompile(`^\d{5}\|\d{2}:\d{2}:\d{2}:\d{3} \|\| `)

func TestRun_Replay(t *testing.T) {
	cfg := replayConfig(t)
	var out bytes.Buffer

	if err := Run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	want := []string{
		"Device: GVH5075_CBD1 (RSSI: -71) | Temperature: 26.64 C | Humidity: 43 % | Battery: 100 %",
		"Device: GVH5075_CBD1 length [7] advertisement...no sensor data!",
		"Device: GVH5075_CBD1 (RSSI: -70) | Temperature: 0.24 C | Humidity: 40 % | Battery: 90 %",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), out.String())
	}
	for i, line := range lines {
		if !uptimePrefix.MatchString(line) {
			t.Errorf("line %d missing uptime prefix: %q", i, line)
			continue
		}
		if got := uptimePrefix.ReplaceAllString(line, ""); got != want[i] {
			t.Errorf("line %d = %q, want %q", i, got, want[i])
		}
	}

	var hist bytes.Buffer
	if err := History(context.Background(), cfg, &hist, "GVH5075_CBD1", 0); err != nil {
		t.Fatalf("History() error = %v", err)
	}
	histLines := strings.Split(strings.TrimSpace(hist.String()), "\n")
	if len(histLines) != 2 {
		t.Fatalf("history lines = %q, want 2", histLines)
	}
	if !strings.HasSuffix(histLines[0], "Temperature: 0.24 C | Humidity: 40 % | Battery: 90 %") {
		t.Errorf("newest history line = %q", histLines[0])
	}

	var devs bytes.Buffer
	if err := Devices(context.Background(), cfg, &devs); err != nil {
		t.Fatalf("Devices() error = %v", err)
	}
	if !strings.HasPrefix(devs.String(), "GVH5075_CBD1 replay:") || !strings.Contains(devs.String(), "readings=2") {
		t.Errorf("devices = %q", devs.String())
	}
}

func TestRun_UnknownBackend(t *testing.T) {
	cfg := replayConfig(t)
	cfg.BLEBackend = "carrier-pigeon"
	cfg.SQLitePath = ""

	if err := Run(context.Background(), cfg, &bytes.Buffer{}); err == nil {
		t.Fatal("Run() error = nil, want unknown backend")
	}
}

func TestRun_MissingReplayFile(t *testing.T) {
	cfg := replayConfig(t)
	cfg.ReplayFile = filepath.Join(t.TempDir(), "missing.txt")

	if err := Run(context.Background(), cfg, &bytes.Buffer{}); err == nil {
		t.Fatal("Run() error = nil, want missing file error")
	}
}

func TestHistory_RequiresSQLite(t *testing.T) {
	if err := History(context.Background(), config.Config{}, &bytes.Buffer{}, "", 5); err == nil {
		t.Fatal("History() error = nil, want SQLITE_PATH error")
	}
	if err := Devices(context.Background(), config.Config{}, &bytes.Buffer{}); err == nil {
		t.Fatal("Devices() error = nil, want SQLITE_PATH error")
	}
}
