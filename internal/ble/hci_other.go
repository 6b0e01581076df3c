//go:build !linux

package ble

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

type HCIOptions struct {
	DeviceID int
	Interval time.Duration
	Window   time.Duration
	Active   bool
}

type HCISource struct{}

func NewHCISource(opts HCIOptions, logger *slog.Logger) (*HCISource, error) {
	return nil, errors.New("ble: hci backend is only available on linux")
}

func (s *HCISource) Scan(ctx context.Context, fn func(Advertisement)) error {
	return errors.New("ble: hci backend is only available on linux")
}

func (s *HCISource) Close() error { return nil }
