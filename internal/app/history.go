package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"govee-gateway/internal/config"
	"govee-gateway/internal/report"
	"govee-gateway/internal/store"
)

const DefaultHistoryLimit = 20

func openHistory(cfg config.Config) (*store.Store, error) {
	if cfg.SQLitePath == "" {
		return nil, fmt.Errorf("SQLITE_PATH is not set; no history recorded")
	}
	return store.Open(cfg.SQLitePath, slog.Default(), cfg.LogLevel <= slog.LevelDebug)
}

// History prints the newest stored readings, optionally for one device.
func History(ctx context.Context, cfg config.Config, out io.Writer, device string, limit int) error {
	st, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	readings, err := st.LatestReadings(ctx, device, limit)
	if err != nil {
		return err
	}

	for _, r := range readings {
		if _, err := fmt.Fprintf(out, "%s || %s\n",
			r.SeenAt.Local().Format(time.DateTime), report.FormatReading(r.SensorReading())); err != nil {
			return fmt.Errorf("write history: %w", err)
		}
	}
	return nil
}

// Devices prints every device the gateway has seen.
func Devices(ctx context.Context, cfg config.Config, out io.Writer) error {
	st, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	devices, err := st.Devices(ctx)
	if err != nil {
		return err
	}

	for _, d := range devices {
		if _, err := fmt.Fprintf(out, "%s %s readings=%d first=%s last=%s\n",
			d.Name, d.Address, d.Readings,
			d.FirstSeen.Local().Format(time.DateTime),
			d.LastSeen.Local().Format(time.DateTime)); err != nil {
			return fmt.Errorf("write devices: %w", err)
		}
	}
	return nil
}
