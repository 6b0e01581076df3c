// Package pipeline wires the name filter, the payload decoder and the report
// sinks together. It holds no state between advertisements.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"govee-gateway/internal/ble"
	"govee-gateway/internal/govee"
	"govee-gateway/internal/report"
	"govee-gateway/internal/uptime"
)

// Clock supplies the milliseconds-since-start stamped on each report.
type Clock interface {
	Millis() uint64
}

type Pipeline struct {
	logger    *slog.Logger
	clock     Clock
	reporters []report.Reporter
}

func New(logger *slog.Logger, clock Clock, reporters ...report.Reporter) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = uptime.NewClock()
	}
	return &Pipeline{
		logger:    logger,
		clock:     clock,
		reporters: reporters,
	}
}

// Process runs one advertisement through the filter and decoder and hands the
// outcome to every reporter in order. It returns nil for advertisements from
// other devices, which are dropped without a trace.
func (p *Pipeline) Process(ctx context.Context, a ble.Advertisement) govee.Outcome {
	if !govee.Accepts(a.LocalName) {
		return nil
	}

	p.logger.DebugContext(ctx, "advertisement payload",
		"device", a.LocalName,
		"addr", a.Address,
		"len", len(a.Payload),
		"data", payloadHex(a.Payload),
	)

	outcome := govee.Decode(a.LocalName, a.RSSI, a.Payload)
	r := report.Report{
		Outcome: outcome,
		Uptime:  uptime.Elapsed(p.clock.Millis()),
		SeenAt:  a.SeenAt,
		Address: a.Address,
		RSSI:    a.RSSI,
		Payload: a.Payload,
	}

	for _, rep := range p.reporters {
		if err := rep.Report(ctx, r); err != nil {
			p.logger.Warn("reporter failed", "device", a.LocalName, "error", err)
		}
	}
	return outcome
}

// payloadHex renders as upper-case hex, only when the record is emitted.
type payloadHex []byte

func (p payloadHex) LogValue() slog.Value {
	return slog.StringValue(fmt.Sprintf("%X", []byte(p)))
}

// Handle adapts Process to ble.Handler.
func (p *Pipeline) Handle(ctx context.Context, a ble.Advertisement) {
	p.Process(ctx, a)
}
