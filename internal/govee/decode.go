package govee

// H5075 broadcast advertisement (31 bytes), e.g.
//
//	0D09475648353037355F43424431 030388EC 020105 09FF88EC00 0410C6 64 00
//	name "GVH5075_CBD1"          uuids    flags  mfr hdr    T+H    batt
//
// Bytes 26..28 hold temperature and humidity packed as one big-endian 24-bit
// decimal value, byte 29 is the battery percentage. Everything else is AD
// framing and is not interpreted here.
const (
	PayloadLen = 31

	packedOffset  = 26
	batteryOffset = 29

	ReasonUnsupportedLength = "unsupported payload length"
)

// Outcome is the result of decoding one advertisement: either a SensorReading
// or a Rejection.
type Outcome interface {
	outcome()
}

// SensorReading is a decoded H5075 measurement.
type SensorReading struct {
	Name        string
	RSSI        int
	Temperature float64 // °C
	Humidity    int     // %
	Battery     int     // %
}

// Rejection describes an advertisement from a matching device that carries no
// sensor data (other advertisement types are interleaved by the firmware).
type Rejection struct {
	Name          string
	Reason        string
	PayloadLength int
}

func (SensorReading) outcome() {}
func (Rejection) outcome()     {}

// Decode extracts the sensor fields from a raw advertisement payload. A payload
// of any length other than PayloadLen yields a Rejection; Decode never fails
// otherwise.
func Decode(name string, rssi int, payload []byte) Outcome {
	if len(payload) != PayloadLen {
		return Rejection{
			Name:          name,
			Reason:        ReasonUnsupportedLength,
			PayloadLength: len(payload),
		}
	}

	packed := uint32(payload[packedOffset])<<16 |
		uint32(payload[packedOffset+1])<<8 |
		uint32(payload[packedOffset+2])

	// Humidity keeps only whole percent; the vendor scaling drops the last digit.
	return SensorReading{
		Name:        name,
		RSSI:        rssi,
		Temperature: float64(packed) / 10000.0,
		Humidity:    int((packed % 1000) / 10),
		Battery:     int(payload[batteryOffset]),
	}
}
