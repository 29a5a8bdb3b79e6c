// Package packet decodes raw LiDAR wire packets into typed point records.
//
// Decoding is pure: no shared state, explicit field-by-field extraction with
// explicit endianness, no in-memory structure overlays. A decoded packet
// preserves the physical sampling order of its points.
package packet

import (
	"encoding/binary"
	"math"
)

// Wire format. These are hard-coded knowledge of the protocol, not tunables.
const (
	// SupportedVersion is the single packet format version this decoder
	// understands.
	SupportedVersion = 5

	// TimestampTypeNoSync is the only supported timestamp encoding:
	// nanoseconds on the device clock, not synchronized to any source.
	TimestampTypeNoSync = 0

	DataTypeCartesian = 0
	DataTypeSpherical = 1

	CartesianRecordSize = 13
	SphericalRecordSize = 9

	// headerSize covers version, slot, id, reserved, error code, timestamp
	// type, data type and the 8-byte timestamp.
	headerSize = 1 + 1 + 1 + 1 + 4 + 1 + 1 + 8

	// ppsStatusBit flags PPS sync status inside the error code. It reports
	// signal presence, not an error, and is masked out before the error
	// check.
	ppsStatusBit = 1 << 9
)

// Point is one decoded sample, either Cartesian or Spherical. The active
// shape is fixed by the packet's data type and constant within a packet.
type Point interface {
	point()
}

// CartesianPoint is a sample in meters.
type CartesianPoint struct {
	X, Y, Z      float32
	Reflectivity uint8
}

// SphericalPoint is a sample with depth in meters and angles in radians.
type SphericalPoint struct {
	Depth        float32
	Theta, Phi   float32
	Reflectivity uint8
}

func (CartesianPoint) point() {}
func (SphericalPoint) point() {}

// DataPacket is one decoded unit of sensor output: a device-clock timestamp
// in nanoseconds and the points of a single native data callback, in sampling
// order.
type DataPacket struct {
	Timestamp uint64
	Points    []Point
}

// Decode parses one raw wire packet. pointCount is the point count declared
// by the native layer alongside the buffer; the payload length must match it
// exactly for the packet's record size.
//
// Any unsupported version, timestamp type or data type, any error-code bit
// other than PPS status, and any payload length mismatch is a *ProtocolError.
func Decode(raw []byte, pointCount uint32) (*DataPacket, error) {
	if len(raw) < headerSize {
		return nil, &ProtocolError{Violation: ViolationTruncated, Value: uint64(len(raw)), Expected: headerSize}
	}

	version := raw[0]
	// raw[1] slot, raw[2] id, raw[3] reserved
	errCode := binary.LittleEndian.Uint32(raw[4:8])
	tsType := raw[8]
	dataType := raw[9]
	payload := raw[headerSize:]

	if masked := errCode &^ ppsStatusBit; masked != 0 {
		return nil, &ProtocolError{Violation: ViolationErrorCode, Value: uint64(masked)}
	}
	if version != SupportedVersion {
		return nil, &ProtocolError{Violation: ViolationVersion, Value: uint64(version), Expected: SupportedVersion}
	}
	if tsType != TimestampTypeNoSync {
		return nil, &ProtocolError{Violation: ViolationTimestampType, Value: uint64(tsType)}
	}

	var recordSize uint64
	switch dataType {
	case DataTypeCartesian:
		recordSize = CartesianRecordSize
	case DataTypeSpherical:
		recordSize = SphericalRecordSize
	default:
		return nil, &ProtocolError{Violation: ViolationDataType, Value: uint64(dataType)}
	}

	// The declared count is native-layer input; it must be validated against
	// the payload before sizing any allocation from it.
	if uint64(len(payload)) != uint64(pointCount)*recordSize {
		return nil, &ProtocolError{
			Violation: ViolationPayloadLength,
			Value:     uint64(len(payload)),
			Expected:  uint64(pointCount) * recordSize,
		}
	}

	dp := &DataPacket{
		Timestamp: decodeTimestamp(raw[10:18]),
		Points:    make([]Point, 0, pointCount),
	}
	if dataType == DataTypeCartesian {
		decodeCartesian(dp, payload, pointCount)
	} else {
		decodeSpherical(dp, payload, pointCount)
	}
	return dp, nil
}

// decodeTimestamp treats the 8-byte field as a big-endian unsigned integer,
// most-significant byte first.
func decodeTimestamp(b []byte) uint64 {
	var val uint64
	for i := 0; i < 8; i++ {
		val = val*256 + uint64(b[i])
	}
	return val
}

// decodeCartesian parses 13-byte records: x, y, z as signed 32-bit
// little-endian millimeters, then one reflectivity byte. Millimeters are
// scaled to meters.
func decodeCartesian(dp *DataPacket, payload []byte, n uint32) {
	for i := uint32(0); i < n; i++ {
		rec := payload[i*CartesianRecordSize:]
		x := int32(binary.LittleEndian.Uint32(rec[0:4]))
		y := int32(binary.LittleEndian.Uint32(rec[4:8]))
		z := int32(binary.LittleEndian.Uint32(rec[8:12]))
		dp.Points = append(dp.Points, CartesianPoint{
			X:            float32(x) / 1000.0,
			Y:            float32(y) / 1000.0,
			Z:            float32(z) / 1000.0,
			Reflectivity: rec[12],
		})
	}
}

// decodeSpherical parses 9-byte records: depth as unsigned 32-bit
// little-endian scaled by 1/1000 to meters, theta and phi as unsigned 16-bit
// little-endian hundredths of a degree converted to radians, then one
// reflectivity byte.
func decodeSpherical(dp *DataPacket, payload []byte, n uint32) {
	for i := uint32(0); i < n; i++ {
		rec := payload[i*SphericalRecordSize:]
		depth := binary.LittleEndian.Uint32(rec[0:4])
		theta := binary.LittleEndian.Uint16(rec[4:6])
		phi := binary.LittleEndian.Uint16(rec[6:8])
		dp.Points = append(dp.Points, SphericalPoint{
			Depth:        float32(depth) / 1000.0,
			Theta:        float32(theta) / 100.0 / 180.0 * math.Pi,
			Phi:          float32(phi) / 100.0 / 180.0 * math.Pi,
			Reflectivity: rec[8],
		})
	}
}
