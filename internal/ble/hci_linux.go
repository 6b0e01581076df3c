//go:build linux

package ble

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gble "github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
)

type HCIOptions struct {
	DeviceID int
	Interval time.Duration
	Window   time.Duration
	Active   bool
}

// HCISource scans through a raw HCI socket (needs CAP_NET_ADMIN and the
// adapter released by bluetoothd).
type HCISource struct {
	dev    *linux.Device
	opts   HCIOptions
	logger *slog.Logger
}

func NewHCISource(opts HCIOptions, logger *slog.Logger) (*HCISource, error) {
	params := scanParameters(opts.Interval, opts.Window, opts.Active)
	dev, err := linux.NewDevice(gble.OptDeviceID(opts.DeviceID), gble.OptScanParams(params))
	if err != nil {
		return nil, fmt.Errorf("ble open hci%d: %w", opts.DeviceID, err)
	}
	logger.Info("ble: hci device opened",
		"device", fmt.Sprintf("hci%d", opts.DeviceID),
		"interval_units", params.LEScanInterval,
		"window_units", params.LEScanWindow,
		"active", opts.Active,
	)
	return &HCISource{dev: dev, opts: opts, logger: logger}, nil
}

func (s *HCISource) Scan(ctx context.Context, fn func(Advertisement)) error {
	err := s.dev.Scan(ctx, true, func(a gble.Advertisement) {
		fn(fromGoBLE(a, time.Now()))
	})
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("ble scan (hci%d): %w", s.opts.DeviceID, err)
	}
	return nil
}

func (s *HCISource) Close() error {
	if err := s.dev.Stop(); err != nil {
		return fmt.Errorf("ble close hci%d: %w", s.opts.DeviceID, err)
	}
	return nil
}
