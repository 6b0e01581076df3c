package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"govee-gateway/internal/ble"
	"govee-gateway/internal/config"
	"govee-gateway/internal/mqtt"
	"govee-gateway/internal/pipeline"
	"govee-gateway/internal/report"
	"govee-gateway/internal/store"
	"govee-gateway/internal/uptime"
)

// Run scans until ctx is cancelled (or a replay file is exhausted) and writes
// one report line per accepted advertisement to stdout.
func Run(ctx context.Context, cfg config.Config, stdout io.Writer) error {
	logger := slog.Default()
	clock := uptime.NewClock()

	logger.Info("initializing gateway",
		"backend", cfg.BLEBackend,
		"adapter", cfg.BLEAdapter,
		"scan_duration", cfg.ScanDuration,
		"scan_pause", cfg.ScanPause,
		"mqtt_enabled", cfg.MQTTEnabled,
		"sqlite_path", cfg.SQLitePath,
	)

	reporters := []report.Reporter{report.NewConsole(stdout)}

	if cfg.SQLitePath != "" {
		st, err := store.Open(cfg.SQLitePath, logger, cfg.LogLevel <= slog.LevelDebug)
		if err != nil {
			return err
		}
		defer st.Close()
		reporters = append(reporters, store.NewSink(st))
	}

	if cfg.MQTTEnabled {
		mqttClient, err := mqtt.NewClient(cfg, logger)
		if err != nil {
			return err
		}
		defer mqttClient.Disconnect()

		go func() {
			if err := mqttClient.Connect(ctx); err != nil && ctx.Err() == nil {
				logger.Error("mqtt connect failed", "error", err)
			}
		}()
		reporters = append(reporters, mqttClient)
	}

	source, closeSource, err := newSource(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	p := pipeline.New(logger, clock, reporters...)
	session := ble.NewSession(source, ble.SessionOptions{
		Window: cfg.ScanDuration,
		Pause:  cfg.ScanPause,
	}, p.Handle, logger)

	if err := session.Run(ctx); err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	logger.Info("gateway shutting down", "uptime", uptime.Elapsed(clock.Millis()).String())
	return nil
}

func newSource(cfg config.Config, logger *slog.Logger) (ble.Source, func(), error) {
	noop := func() {}

	switch cfg.BLEBackend {
	case config.BackendReplay:
		src, err := ble.NewReplaySource(cfg.ReplayFile)
		if err != nil {
			return nil, noop, err
		}
		return src, noop, nil

	case config.BackendTinyGo:
		return ble.NewTinyGoSource(cfg.BLEAdapter, logger), noop, nil

	case config.BackendHCI:
		id, err := cfg.HCIDeviceID()
		if err != nil {
			return nil, noop, err
		}
		src, err := ble.NewHCISource(ble.HCIOptions{
			DeviceID: id,
			Interval: cfg.ScanInterval,
			Window:   cfg.ScanWindow,
			Active:   cfg.ScanActive,
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		return src, func() {
			if err := src.Close(); err != nil {
				logger.Warn("ble close failed", "error", err)
			}
		}, nil
	}

	return nil, noop, fmt.Errorf("unknown ble backend %q", cfg.BLEBackend)
}
