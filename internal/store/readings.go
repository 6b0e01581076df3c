package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"govee-gateway/internal/govee"
)

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Reading struct {
	ID          int64
	Device      string
	Address     string
	Temperature float64
	Humidity    int
	Battery     int
	RSSI        int
	SeenAt      time.Time
}

// SensorReading converts the stored row back to the decoder's value.
func (r Reading) SensorReading() govee.SensorReading {
	return govee.SensorReading{
		Name:        r.Device,
		RSSI:        r.RSSI,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Battery:     r.Battery,
	}
}

type Device struct {
	Name      string
	Address   string
	FirstSeen time.Time
	LastSeen  time.Time
	Readings  int
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

// TouchDevice records that name was seen at address, without a reading.
func (s *Store) TouchDevice(ctx context.Context, name, address string, seenAt time.Time) error {
	if err := upsertDevice(ctx, s.db, name, address, seenAt); err != nil {
		return fmt.Errorf("touch device %s: %w", name, err)
	}
	return nil
}

// InsertReading stores r and refreshes its device row. It returns the new row id.
func (s *Store) InsertReading(ctx context.Context, r Reading) (int64, error) {
	if r.SeenAt.IsZero() {
		r.SeenAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertDevice(ctx, tx, r.Device, r.Address, r.SeenAt); err != nil {
		return 0, fmt.Errorf("upsert device %s: %w", r.Device, err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO readings (device, temperature_c, humidity_pct, battery_pct, rssi, seen_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.Device, r.Temperature, r.Humidity, r.Battery, r.RSSI, formatTime(r.SeenAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert reading: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert reading: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertDevice(ctx context.Context, db execer, name, address string, seenAt time.Time) error {
	ts := formatTime(seenAt)
	_, err := db.ExecContext(ctx, `
		INSERT INTO devices (name, address, first_seen, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			address   = CASE WHEN excluded.address <> '' THEN excluded.address ELSE devices.address END,
			last_seen = MAX(devices.last_seen, excluded.last_seen)`,
		name, address, ts, ts,
	)
	return err
}

// LatestReadings returns up to limit readings, newest first. An empty device
// matches every device.
func (s *Store) LatestReadings(ctx context.Context, device string, limit int) ([]Reading, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.device, d.address, r.temperature_c, r.humidity_pct, r.battery_pct, r.rssi, r.seen_at
		FROM readings r
		JOIN devices d ON d.name = r.device
		WHERE (? = '' OR r.device = ?)
		ORDER BY r.seen_at DESC, r.id DESC
		LIMIT ?`,
		device, device, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var out []Reading
	for rows.Next() {
		var (
			r      Reading
			seenAt string
		)
		if err := rows.Scan(&r.ID, &r.Device, &r.Address, &r.Temperature, &r.Humidity, &r.Battery, &r.RSSI, &seenAt); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		if r.SeenAt, err = parseTime(seenAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	return out, nil
}

// Devices lists every device ever seen, most recently seen first.
func (s *Store) Devices(ctx context.Context) ([]Device, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.name, d.address, d.first_seen, d.last_seen, COUNT(r.id)
		FROM devices d
		LEFT JOIN readings r ON r.device = d.name
		GROUP BY d.name
		ORDER BY d.last_seen DESC, d.name`)
	if err != nil {
		return nil, fmt.Errorf("query devices: %w", err)
	}
	defer rows.Close()

	var out []Device
	for rows.Next() {
		var (
			d               Device
			first, lastSeen string
		)
		if err := rows.Scan(&d.Name, &d.Address, &first, &lastSeen, &d.Readings); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		if d.FirstSeen, err = parseTime(first); err != nil {
			return nil, err
		}
		if d.LastSeen, err = parseTime(lastSeen); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate devices: %w", err)
	}
	return out, nil
}
