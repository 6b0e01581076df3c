package ble

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gble "github.com/go-ble/ble"
	"tinygo.org/x/bluetooth"
)

// TinyGoSource scans with tinygo.org/x/bluetooth (BlueZ over D-Bus on Linux).
type TinyGoSource struct {
	adapter *bluetooth.Adapter
	name    string
	logger  *slog.Logger

	enableOnce sync.Once
	enableErr  error
}

func NewTinyGoSource(adapterName string, logger *slog.Logger) *TinyGoSource {
	if adapterName == "" {
		adapterName = "hci0"
	}
	return &TinyGoSource{
		adapter: newAdapter(adapterName),
		name:    adapterName,
		logger:  logger,
	}
}

func (s *TinyGoSource) enable() error {
	s.enableOnce.Do(func() {
		s.logger.Info("ble: enabling adapter", "adapter", s.name)
		if err := s.adapter.Enable(); err != nil {
			s.enableErr = fmt.Errorf("ble enable (%s): %w", s.name, err)
			return
		}
		s.logger.Info("ble: adapter enabled", "adapter", s.name)
	})
	return s.enableErr
}

func (s *TinyGoSource) Scan(ctx context.Context, fn func(Advertisement)) error {
	if err := s.enable(); err != nil {
		return err
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.adapter.StopScan()
		case <-stop:
		}
	}()

	// adapter.Scan blocks until StopScan() or error.
	err := s.adapter.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
		fn(fromScanResult(r, time.Now()))
	})
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("ble scan (%s): %w", s.name, err)
	}
	return nil
}

func fromScanResult(r bluetooth.ScanResult, seenAt time.Time) Advertisement {
	name := r.LocalName()
	payload := r.Bytes()
	if payload != nil {
		payload = append([]byte(nil), payload...)
	} else {
		var uuids []gble.UUID
		if r.HasServiceUUID(bluetooth.New16BitUUID(goveeServiceUUID)) {
			uuids = append(uuids, gble.UUID16(goveeServiceUUID))
		}
		var mfr []manufacturerData
		for _, md := range r.ManufacturerData() {
			mfr = append(mfr, manufacturerData{CompanyID: md.CompanyID, Data: md.Data})
		}
		payload = encodeAD(name, uuids, assumedFlags, mfr)
	}

	return Advertisement{
		Address:   r.Address.String(),
		LocalName: name,
		RSSI:      int(r.RSSI),
		Payload:   payload,
		SeenAt:    seenAt,
	}
}
