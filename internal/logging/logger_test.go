package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"govee-gateway/internal/config"
)

func TestNewLogger_ProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "prod", LogLevel: slog.LevelInfo}

	logger := newLogger(&buf, cfg, "1.2.3", "govee-gateway")
	logger.Info("hello", "device", "GVH5075_AB12")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	for k, want := range map[string]string{
		"msg":     "hello",
		"app":     "govee-gateway",
		"version": "1.2.3",
		"env":     "prod",
		"device":  "GVH5075_AB12",
	} {
		if rec[k] != want {
			t.Errorf("%s = %v, want %q", k, rec[k], want)
		}
	}
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "prod", LogLevel: slog.LevelWarn}

	logger := newLogger(&buf, cfg, "1.2.3", "govee-gateway")
	logger.Info("dropped")
	logger.Debug("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}
	logger.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("warn record missing: %q", buf.String())
	}
}

func TestNewLogger_DevUsesTint(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "dev", LogLevel: slog.LevelDebug}

	logger := newLogger(&buf, cfg, "dev", "govee-gateway")
	logger.Debug("scan window", "backend", "replay")

	out := buf.String()
	// tint colours attribute keys, so match key and value separately.
	if !strings.Contains(out, "scan window") || !strings.Contains(out, "backend") || !strings.Contains(out, "replay") {
		t.Fatalf("unexpected dev output %q", out)
	}
	if json.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Fatalf("dev output should be text, got JSON %q", out)
	}
}
