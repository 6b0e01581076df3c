package ble

import (
	"time"

	gble "github.com/go-ble/ble"
	"github.com/go-ble/ble/linux/hci/cmd"
)

// LE scan timing is expressed in 0.625 ms units, valid range 0x0004..0x4000.
const (
	scanUnit     = 625 * time.Microsecond
	minScanUnits = 0x0004
	maxScanUnits = 0x4000
)

func scanUnits(d time.Duration) uint16 {
	n := d / scanUnit
	if n < minScanUnits {
		return minScanUnits
	}
	if n > maxScanUnits {
		return maxScanUnits
	}
	return uint16(n)
}

// scanParameters mirrors the classic passive scan: accept all, public address.
func scanParameters(interval, window time.Duration, active bool) cmd.LESetScanParameters {
	var scanType uint8 // 0x00: passive
	if active {
		scanType = 0x01
	}
	return cmd.LESetScanParameters{
		LEScanType:           scanType,
		LEScanInterval:       scanUnits(interval),
		LEScanWindow:         scanUnits(window),
		OwnAddressType:       0x00,
		ScanningFilterPolicy: 0x00,
	}
}

// fromGoBLE converts a go-ble advertisement. On Linux the HCI advertisement
// exposes the raw advertising data; anything else is rebuilt from its fields.
func fromGoBLE(a gble.Advertisement, seenAt time.Time) Advertisement {
	var payload []byte
	if raw, ok := a.(interface{ Data() []byte }); ok {
		payload = append([]byte(nil), raw.Data()...)
	} else {
		var mfr []manufacturerData
		if md := a.ManufacturerData(); len(md) >= 2 {
			mfr = append(mfr, manufacturerData{
				CompanyID: uint16(md[0]) | uint16(md[1])<<8,
				Data:      md[2:],
			})
		}
		payload = encodeAD(a.LocalName(), a.Services(), assumedFlags, mfr)
	}

	addr := ""
	if a.Addr() != nil {
		addr = a.Addr().String()
	}
	return Advertisement{
		Address:   addr,
		LocalName: a.LocalName(),
		RSSI:      a.RSSI(),
		Payload:   payload,
		SeenAt:    seenAt,
	}
}
