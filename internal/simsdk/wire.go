package simsdk

import (
	"encoding/binary"

	"github.com/srg/lvx/packet"
)

// RawCartesian is one Cartesian wire record before unit scaling: millimeters
// and a reflectivity byte.
type RawCartesian struct {
	X, Y, Z      int32
	Reflectivity uint8
}

// RawSpherical is one Spherical wire record before unit scaling: depth units,
// hundredths of a degree, and a reflectivity byte.
type RawSpherical struct {
	Depth        uint32
	Theta, Phi   uint16
	Reflectivity uint8
}

// header writes the 18-byte packet header: version, slot, id, reserved,
// little-endian error code, timestamp type, data type, big-endian timestamp.
func header(dataType uint8, ts uint64, payloadLen int) []byte {
	buf := make([]byte, 18, 18+payloadLen)
	buf[0] = packet.SupportedVersion
	// buf[1] slot, buf[2] id, buf[3] reserved, buf[4:8] error code: zero
	buf[8] = packet.TimestampTypeNoSync
	buf[9] = dataType
	binary.BigEndian.PutUint64(buf[10:18], ts)
	return buf
}

// EncodeCartesian builds a Cartesian wire packet and returns the raw buffer
// with its point count.
func EncodeCartesian(ts uint64, pts []RawCartesian) ([]byte, uint32) {
	buf := header(packet.DataTypeCartesian, ts, len(pts)*packet.CartesianRecordSize)
	var rec [packet.CartesianRecordSize]byte
	for _, p := range pts {
		binary.LittleEndian.PutUint32(rec[0:4], uint32(p.X))
		binary.LittleEndian.PutUint32(rec[4:8], uint32(p.Y))
		binary.LittleEndian.PutUint32(rec[8:12], uint32(p.Z))
		rec[12] = p.Reflectivity
		buf = append(buf, rec[:]...)
	}
	return buf, uint32(len(pts))
}

// EncodeSpherical builds a Spherical wire packet and returns the raw buffer
// with its point count.
func EncodeSpherical(ts uint64, pts []RawSpherical) ([]byte, uint32) {
	buf := header(packet.DataTypeSpherical, ts, len(pts)*packet.SphericalRecordSize)
	var rec [packet.SphericalRecordSize]byte
	for _, p := range pts {
		binary.LittleEndian.PutUint32(rec[0:4], p.Depth)
		binary.LittleEndian.PutUint16(rec[4:6], p.Theta)
		binary.LittleEndian.PutUint16(rec[6:8], p.Phi)
		rec[8] = p.Reflectivity
		buf = append(buf, rec[:]...)
	}
	return buf, uint32(len(pts))
}
