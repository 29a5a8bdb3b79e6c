// Package native defines the boundary to the vendor LiDAR SDK.
//
// It declares the command entry points the rest of the module invokes and the
// fixed-signature callback payloads the SDK delivers on threads it owns. The
// SDK's internal discovery and network machinery is opaque; only the
// documented entry points below are consumed.
package native

import "fmt"

// Handle identifies a connected device for the duration of one connection.
// It is assigned by the native layer at connect time and is not stable across
// reconnects; BroadcastCode is the stable identifier.
type Handle uint8

// BroadcastCodeSize is the length of a device broadcast code on the wire,
// excluding the trailing NUL.
const BroadcastCodeSize = 15

// LidarState is the device lifecycle state as reported by the native layer.
type LidarState uint8

const (
	LidarStateInit LidarState = iota
	LidarStateNormal
	LidarStatePowerSaving
	LidarStateStandBy
	LidarStateError
	LidarStateUnknown
)

// StateFromRaw maps a raw state value from a state-update callback to a
// LidarState. The ok result is false for values outside the documented range;
// callers must treat those as a protocol fault rather than coerce them.
func StateFromRaw(v uint32) (LidarState, bool) {
	if v > uint32(LidarStateUnknown) {
		return LidarStateUnknown, false
	}
	return LidarState(v), true
}

func (s LidarState) String() string {
	switch s {
	case LidarStateInit:
		return "init"
	case LidarStateNormal:
		return "normal"
	case LidarStatePowerSaving:
		return "power_saving"
	case LidarStateStandBy:
		return "standby"
	case LidarStateError:
		return "error"
	case LidarStateUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// LidarMode is a commanded operating mode. It is distinct from LidarState:
// setting a mode is asynchronous and is eventually reflected as a state
// transition reported through the state-update callback.
type LidarMode uint8

const (
	LidarModeNormal      LidarMode = 1
	LidarModePowerSaving LidarMode = 2
	LidarModeStandby     LidarMode = 3
)

func (m LidarMode) String() string {
	switch m {
	case LidarModeNormal:
		return "normal"
	case LidarModePowerSaving:
		return "power_saving"
	case LidarModeStandby:
		return "standby"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// CoordinateSystem selects the wire encoding of point records for a device.
type CoordinateSystem int

const (
	CoordinateCartesian CoordinateSystem = iota
	CoordinateSpherical
)

func (c CoordinateSystem) String() string {
	switch c {
	case CoordinateCartesian:
		return "cartesian"
	case CoordinateSpherical:
		return "spherical"
	default:
		return fmt.Sprintf("coordinate_system(%d)", int(c))
	}
}

// BroadcastInfo is the payload of a device-discovered callback.
type BroadcastInfo struct {
	// Code is the broadcast code, NUL-trimmed.
	Code string
	// DevType is the raw device type reported by the native layer.
	DevType uint8
}

// DeviceStateInfo is the payload of a device state-update callback. State is
// kept raw so that out-of-range values remain representable and can be
// surfaced as faults.
type DeviceStateInfo struct {
	Handle Handle
	State  uint32
}

// CommandAck is the status/handle/response triple delivered to command
// acknowledgment callbacks.
type CommandAck struct {
	Status   uint8
	Handle   Handle
	Response uint8
}

// Callback signatures. These run on SDK-owned threads at unpredictable times:
// implementations must be short, must never block indefinitely, and must not
// panic past the caller.
type (
	BroadcastHandler   func(BroadcastInfo)
	StateUpdateHandler func(DeviceStateInfo)
	// DataHandler receives one raw wire packet and the declared point count.
	// The buffer is only valid for the duration of the call.
	DataHandler func(handle Handle, raw []byte, pointCount uint32)
	// CommandCallback receives the acknowledgment for an asynchronous command.
	CommandCallback func(CommandAck)
)

// API is the set of native SDK entry points consumed by this module. The
// production implementation wraps the vendor library; tests and the CLI's
// simulate mode use internal/simsdk.
type API interface {
	Init() error
	Start() error
	Uninit()

	SetBroadcastCallback(fn BroadcastHandler)
	SetDeviceStateUpdateCallback(fn StateUpdateHandler)

	// AddLidarToConnect requests a connection to the device with the given
	// broadcast code and returns the handle assigned to it.
	AddLidarToConnect(code string) (Handle, error)

	SetDataCallback(h Handle, fn DataHandler)
	LidarStartSampling(h Handle, ack CommandCallback) error
	LidarStopSampling(h Handle, ack CommandCallback) error
	LidarSetMode(h Handle, m LidarMode, ack CommandCallback) error
	SetCartesianCoordinate(h Handle, ack CommandCallback) error
	SetSphericalCoordinate(h Handle, ack CommandCallback) error
}
