package lidar

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/lvx/bridge"
	"github.com/srg/lvx/native"
)

// Device is a handle bound to one connected lidar. It owns no goroutine;
// lifecycle observation goes through the bridge's state table and sampling
// goes through a DataStream.
//
// Devices are obtained only via Sdk.Connect. There is no explicit disconnect:
// a device dies logically when the caller drops it, and physically when the
// session closes.
type Device struct {
	handle       native.Handle
	code         string
	api          native.API
	registry     *bridge.Registry
	logger       *logrus.Logger
	pollInterval time.Duration
	dataBuffer   int
}

// Handle returns the connection-scoped identity assigned by the native layer.
func (d *Device) Handle() native.Handle {
	return d.handle
}

// BroadcastCode returns the stable identifier of the physical device.
func (d *Device) BroadcastCode() string {
	return d.code
}

// State returns the last state reported for this device. A device that has
// not reported yet reads as Unknown.
func (d *Device) State() native.LidarState {
	state, ok := d.registry.DeviceState(d.handle)
	if !ok {
		return native.LidarStateUnknown
	}
	return state
}

// SetMode issues an asynchronous mode command. It does not wait for the
// device to acknowledge or transition; call WaitForState afterwards to
// observe the effect.
func (d *Device) SetMode(mode native.LidarMode) error {
	d.logger.WithFields(logrus.Fields{
		"handle": d.handle,
		"mode":   mode,
	}).Debug("Setting lidar mode")
	return d.api.LidarSetMode(d.handle, mode, d.ackLogger("set_mode"))
}

// SetCoordinateSystem selects the wire encoding for subsequent data packets.
// Set it before sampling starts: the decoder trusts the data-type field of
// each packet, not a remembered setting.
func (d *Device) SetCoordinateSystem(system native.CoordinateSystem) error {
	d.logger.WithFields(logrus.Fields{
		"handle": d.handle,
		"system": system,
	}).Debug("Setting coordinate system")

	switch system {
	case native.CoordinateCartesian:
		return d.api.SetCartesianCoordinate(d.handle, d.ackLogger("set_cartesian"))
	case native.CoordinateSpherical:
		return d.api.SetSphericalCoordinate(d.handle, d.ackLogger("set_spherical"))
	default:
		return fmt.Errorf("invalid coordinate system %d", system)
	}
}

// WaitForState polls the state table until the stored state matches the mask,
// then returns nil.
//
// It has no inherent timeout: issue the command expected to cause the
// transition before calling, or the wait can block for the life of the
// context. Callers wanting a bound pass a context with a deadline.
func (d *Device) WaitForState(ctx context.Context, mask StateMask) error {
	if mask == 0 {
		return fmt.Errorf("empty state mask can never be satisfied")
	}

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		if mask.Matches(d.State()) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for state %s on handle %d: %w", mask, d.handle, ctx.Err())
		case <-ticker.C:
		}
	}
}

// StartSampling opens a DataStream for this device. It fails with
// bridge.ErrStreamActive while a previous stream for the same handle is still
// open.
func (d *Device) StartSampling() (*DataStream, error) {
	return newDataStream(d)
}

// ackLogger builds the acknowledgment callback for asynchronous commands.
// Acks are observed and logged, not propagated: a non-zero status is reported
// at Warn, everything else at Debug.
func (d *Device) ackLogger(op string) native.CommandCallback {
	return func(ack native.CommandAck) {
		fields := logrus.Fields{
			"op":       op,
			"status":   ack.Status,
			"handle":   ack.Handle,
			"response": ack.Response,
		}
		if ack.Status != 0 {
			d.logger.WithFields(fields).Warn("Command acknowledged with non-zero status")
			return
		}
		d.logger.WithFields(fields).Debug("Command acknowledged")
	}
}
