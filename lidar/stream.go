package lidar

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/lvx/bridge"
	"github.com/srg/lvx/internal/ringchan"
	"github.com/srg/lvx/native"
	"github.com/srg/lvx/packet"
)

// DataStream is an open-ended, pollable sequence of decoded packets for one
// device. Within a stream, packets arrive in the order the native layer
// delivered them; there is no timestamp ordering guarantee across devices.
//
// The stream owns its registry entry: it is registered at construction and
// removed on Close.
type DataStream struct {
	handle   native.Handle
	api      native.API
	registry *bridge.Registry
	ch       *ringchan.RingChannel[packet.DataPacket]
	logger   *logrus.Logger

	closeOnce sync.Once
}

func newDataStream(d *Device) (*DataStream, error) {
	ch := ringchan.New[packet.DataPacket](d.dataBuffer)
	if err := d.registry.RegisterDataChannel(d.handle, ch); err != nil {
		return nil, fmt.Errorf("failed to start sampling: %w", err)
	}

	s := &DataStream{
		handle:   d.handle,
		api:      d.api,
		registry: d.registry,
		ch:       ch,
		logger:   d.logger,
	}

	d.api.SetDataCallback(d.handle, d.registry.HandleData)
	if err := d.api.LidarStartSampling(d.handle, d.ackLogger("start_sampling")); err != nil {
		d.registry.DeregisterDataChannel(d.handle)
		return nil, fmt.Errorf("failed to start sampling: %w", err)
	}

	d.logger.WithField("handle", d.handle).Info("Sampling started")
	return s, nil
}

// Poll returns the next buffered packet, or ok=false when nothing is queued
// yet. It never blocks; callers wanting pacing loop with their own timer, or
// receive from C().
func (s *DataStream) Poll() (packet.DataPacket, bool) {
	return s.ch.TryReceive()
}

// C exposes the stream's channel for callers that prefer select-based
// consumption. The channel is never closed; stop consuming after Close.
func (s *DataStream) C() <-chan packet.DataPacket {
	return s.ch.C()
}

// Metrics returns delivery counters for the stream buffer, including how many
// packets were overwritten unread.
func (s *DataStream) Metrics() ringchan.Metrics {
	return s.ch.GetMetrics()
}

// Close deregisters the stream's channel and then issues the stop-sampling
// command. Deregistering first means no further decode work races with the
// stop; data callbacks arriving in between find no channel and are dropped
// silently by the bridge.
func (s *DataStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.registry.DeregisterDataChannel(s.handle)
		err = s.api.LidarStopSampling(s.handle, func(ack native.CommandAck) {
			s.logger.WithFields(logrus.Fields{
				"op":       "stop_sampling",
				"status":   ack.Status,
				"handle":   ack.Handle,
				"response": ack.Response,
			}).Debug("Command acknowledged")
		})
		s.logger.WithField("handle", s.handle).Info("Sampling stopped")
	})
	return err
}
