package report

import (
	"context"
	"fmt"
	"time"

	"govee-gateway/internal/govee"
	"govee-gateway/internal/uptime"
)

// Report is one decoded advertisement on its way to the sinks.
type Report struct {
	Outcome govee.Outcome
	Uptime  uptime.Breakdown
	SeenAt  time.Time
	Address string
	// RSSI of the advertisement, also known for rejections.
	RSSI    int
	Payload []byte
}

// Device returns the advertised name the outcome belongs to.
func (r Report) Device() string {
	switch o := r.Outcome.(type) {
	case govee.SensorReading:
		return o.Name
	case govee.Rejection:
		return o.Name
	}
	return ""
}

type Reporter interface {
	Report(ctx context.Context, r Report) error
}

// ReporterFunc adapts a plain function to Reporter.
type ReporterFunc func(ctx context.Context, r Report) error

func (f ReporterFunc) Report(ctx context.Context, r Report) error { return f(ctx, r) }

// FormatReading renders the reading part of a report line (everything after
// the "||" separator).
func FormatReading(r govee.SensorReading) string {
	return fmt.Sprintf("Device: %s (RSSI: %d) | Temperature: %.2f C | Humidity: %d %% | Battery: %d %%",
		r.Name, r.RSSI, r.Temperature, r.Humidity, r.Battery)
}

func FormatRejection(r govee.Rejection) string {
	return fmt.Sprintf("Device: %s length [%d] advertisement...no sensor data!", r.Name, r.PayloadLength)
}

// Line renders the full console line for r.
func Line(r Report) string {
	switch o := r.Outcome.(type) {
	case govee.SensorReading:
		return r.Uptime.String() + " || " + FormatReading(o)
	case govee.Rejection:
		return r.Uptime.String() + " || " + FormatRejection(o)
	}
	return r.Uptime.String() + " || unknown outcome"
}
