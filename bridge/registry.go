// Package bridge carries asynchronous native SDK callbacks over to consumer
// channels.
//
// The native layer invokes fixed-signature callbacks on threads it owns, with
// no caller-supplied context threaded through. The Registry is the single
// lock-protected lookup structure reachable from those callback contexts: one
// optional discovery channel, a per-handle map of data channels, and the
// device state table. Handler methods never block, never panic past the
// native boundary, and silently no-op when no channel is registered.
package bridge

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/lvx/internal/ringchan"
	"github.com/srg/lvx/native"
	"github.com/srg/lvx/packet"
)

var (
	// ErrSessionActive is returned when the discovery channel slot is
	// already claimed. The bridge supports exactly one active session.
	ErrSessionActive = errors.New("discovery channel already claimed")

	// ErrStreamActive is returned when a data channel is already registered
	// for a handle. Overlapping registrations are rejected, not overwritten.
	ErrStreamActive = errors.New("data channel already registered")
)

// Registry is the shared lookup structure bridging native callback contexts
// to consumer-facing channels. Every access is lock, read-or-write, unlock;
// no lock is held across decoding or channel hand-off.
type Registry struct {
	mu        sync.Mutex
	logger    *logrus.Logger
	discovery *ringchan.RingChannel[native.BroadcastInfo]
	data      map[native.Handle]*ringchan.RingChannel[packet.DataPacket]
	states    map[native.Handle]native.LidarState
	fault     error
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	return &Registry{
		logger: logger,
		data:   make(map[native.Handle]*ringchan.RingChannel[packet.DataPacket]),
		states: make(map[native.Handle]native.LidarState),
	}
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry. The native layer's callbacks are
// fixed and context-free, so exactly one registry instance is installed at
// session start and torn down at session end.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(nil)
	})
	return defaultRegistry
}

// SetLogger replaces the registry logger. Called once at session start,
// before any callback is installed.
func (r *Registry) SetLogger(logger *logrus.Logger) {
	if logger == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// SetDiscoveryChannel claims the discovery slot. It fails with
// ErrSessionActive if a channel is already set.
func (r *Registry) SetDiscoveryChannel(ch *ringchan.RingChannel[native.BroadcastInfo]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.discovery != nil {
		return ErrSessionActive
	}
	r.discovery = ch
	// Faults are scoped to the session that owns the slot.
	r.fault = nil
	return nil
}

// ClearDiscoveryChannel releases the discovery slot, allowing a new session
// to be constructed.
func (r *Registry) ClearDiscoveryChannel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discovery = nil
}

// RegisterDataChannel installs the outbound channel for decoded packets of
// one handle. A second registration for the same handle is rejected with
// ErrStreamActive; the caller must deregister the first stream before opening
// another.
func (r *Registry) RegisterDataChannel(h native.Handle, ch *ringchan.RingChannel[packet.DataPacket]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.data[h]; exists {
		return fmt.Errorf("handle %d: %w", h, ErrStreamActive)
	}
	r.data[h] = ch
	return nil
}

// DeregisterDataChannel removes the entry for a handle. Subsequent data
// callbacks for that handle become silent no-ops; that is the expected
// shutdown race during stream teardown, not an error.
func (r *Registry) DeregisterDataChannel(h native.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, h)
}

// InitDeviceState creates the state-table entry for a freshly connected
// handle, defaulted to Unknown. Entries are never proactively removed; stale
// entries are benign and only looked up by handles still held by a caller.
func (r *Registry) InitDeviceState(h native.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[h] = native.LidarStateUnknown
}

// DeviceState returns the last-known state for a handle. The ok result is
// false when no entry exists; callers treat that as Unknown.
func (r *Registry) DeviceState(h native.Handle) (native.LidarState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[h]
	return s, ok
}

// Fault returns the first fatal protocol fault recorded by a callback
// handler, or nil. Handlers cannot surface errors to the native layer, so
// faults are parked here for the session to inspect.
func (r *Registry) Fault() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fault
}

func (r *Registry) recordFault(err error) {
	r.mu.Lock()
	if r.fault == nil {
		r.fault = err
	}
	logger := r.logger
	r.mu.Unlock()

	logger.WithError(err).Error("Fatal protocol fault in native callback")
}

// recoverCallback stops panics from unwinding past the native boundary.
func (r *Registry) recoverCallback(entry string) {
	if rec := recover(); rec != nil {
		r.mu.Lock()
		logger := r.logger
		r.mu.Unlock()
		logger.WithFields(logrus.Fields{
			"entry": entry,
			"panic": rec,
		}).Error("Panic in native callback handler")
	}
}

// HandleBroadcast is the device-discovered entry point. With no session
// listening it is a no-op.
func (r *Registry) HandleBroadcast(info native.BroadcastInfo) {
	defer r.recoverCallback("broadcast")

	r.mu.Lock()
	ch := r.discovery
	logger := r.logger
	r.mu.Unlock()

	if ch == nil {
		logger.WithField("code", info.Code).Debug("Broadcast with no active session, dropping")
		return
	}
	if ch.ForceSend(info) {
		logger.WithField("code", info.Code).Warn("Discovery buffer full, dropped oldest event")
	}
}

// HandleStateUpdate is the device state-change entry point. An unrecognized
// state value is a fatal fault and is surfaced distinctly rather than
// silently defaulted.
func (r *Registry) HandleStateUpdate(info native.DeviceStateInfo) {
	defer r.recoverCallback("state_update")

	state, ok := native.StateFromRaw(info.State)
	if !ok {
		r.recordFault(fmt.Errorf("unrecognized lidar state %d for handle %d", info.State, info.Handle))
		return
	}

	r.mu.Lock()
	r.states[info.Handle] = state
	logger := r.logger
	r.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"handle": info.Handle,
		"state":  state,
	}).Debug("Device state updated")
}

// HandleData is the sampling-data entry point. Packets for a handle with no
// registered channel are dropped silently; decode failures are recorded as
// faults. The registry lock is released before decoding so callback delivery
// for other handles is never stalled.
func (r *Registry) HandleData(h native.Handle, raw []byte, pointCount uint32) {
	defer r.recoverCallback("data")

	r.mu.Lock()
	ch := r.data[h]
	logger := r.logger
	r.mu.Unlock()

	if ch == nil {
		// Normal during stream teardown.
		logger.WithField("handle", h).Trace("Data callback with no registered channel, dropping")
		return
	}

	dp, err := packet.Decode(raw, pointCount)
	if err != nil {
		r.recordFault(fmt.Errorf("handle %d: %w", h, err))
		return
	}

	if ch.ForceSend(*dp) {
		logger.WithField("handle", h).Trace("Data buffer full, dropped oldest packet")
	}
}
