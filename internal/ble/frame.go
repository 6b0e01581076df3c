package ble

import (
	gble "github.com/go-ble/ble"
	"github.com/go-ble/ble/linux/adv"
)

// Some stacks (BlueZ over D-Bus) hand out parsed AD fields instead of the raw
// PDU. For those the payload is re-serialised in the order the H5075 puts its
// structures on air: complete name, 16-bit service UUIDs, flags, manufacturer
// data. Flags are not exposed by BlueZ, so the sensor's value is assumed.
const (
	goveeServiceUUID = 0xEC88
	assumedFlags     = 0x05
)

type manufacturerData struct {
	CompanyID uint16
	Data      []byte
}

// encodeAD builds legacy advertising data from its parts. It returns nil when
// the structures do not fit in 31 bytes.
func encodeAD(name string, uuids []gble.UUID, flags byte, mfr []manufacturerData) []byte {
	var fields []adv.Field
	if name != "" {
		fields = append(fields, adv.CompleteName(name))
	}
	for _, u := range uuids {
		fields = append(fields, adv.AllUUID(u))
	}
	if flags != 0 {
		fields = append(fields, adv.Flags(flags))
	}
	for _, m := range mfr {
		fields = append(fields, adv.ManufacturerData(m.CompanyID, m.Data))
	}
	if len(fields) == 0 {
		return nil
	}

	p, err := adv.NewPacket(fields...)
	if err != nil {
		return nil
	}
	return append([]byte(nil), p.Bytes()...)
}
