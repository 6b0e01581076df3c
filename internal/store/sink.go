package store

import (
	"context"
	"time"

	"govee-gateway/internal/govee"
	"govee-gateway/internal/report"
)

// Sink records pipeline reports: readings become rows, rejections only
// refresh the device's last-seen time.
type Sink struct {
	store *Store
}

func NewSink(s *Store) *Sink {
	return &Sink{store: s}
}

func (k *Sink) Report(ctx context.Context, r report.Report) error {
	switch o := r.Outcome.(type) {
	case govee.SensorReading:
		_, err := k.store.InsertReading(ctx, Reading{
			Device:      o.Name,
			Address:     r.Address,
			Temperature: o.Temperature,
			Humidity:    o.Humidity,
			Battery:     o.Battery,
			RSSI:        o.RSSI,
			SeenAt:      r.SeenAt,
		})
		return err
	case govee.Rejection:
		return k.store.TouchDevice(ctx, o.Name, r.Address, seenAt(r))
	}
	return nil
}

func seenAt(r report.Report) time.Time {
	if r.SeenAt.IsZero() {
		return time.Now()
	}
	return r.SeenAt
}
