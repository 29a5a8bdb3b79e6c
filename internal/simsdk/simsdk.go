// Package simsdk provides an in-process implementation of native.API.
//
// It stands in for the vendor SDK in tests and in the CLI's simulate mode:
// commands are recorded, callbacks can be fired manually from tests, and an
// optional autopilot broadcasts a synthetic device and emits packets on the
// same kind of SDK-owned goroutine the real library would use.
package simsdk

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/lvx/native"
)

// Command records one asynchronous command issued to the simulator.
type Command struct {
	Op     string
	Handle native.Handle
	Mode   native.LidarMode
}

// Options configures simulator behavior.
type Options struct {
	// BroadcastCode is the code of the synthetic device the autopilot
	// announces.
	BroadcastCode string
	// DevType is the raw device type in broadcast events.
	DevType uint8
	// AutoBroadcast makes the autopilot announce the synthetic device
	// periodically after Start.
	AutoBroadcast bool
	// AutoTransition makes mode commands fire the matching state update
	// shortly after, as a live device would.
	AutoTransition bool
	// EmitInterval is the autopilot tick for broadcasts and packet emission.
	EmitInterval time.Duration
	// PointsPerPacket sets the size of autopilot-emitted packets.
	PointsPerPacket int
}

// DefaultOptions returns a configuration suitable for the CLI simulate mode.
func DefaultOptions() *Options {
	return &Options{
		BroadcastCode:   "SIM0000000000A1",
		DevType:         1,
		AutoBroadcast:   true,
		AutoTransition:  true,
		EmitInterval:    100 * time.Millisecond,
		PointsPerPacket: 96,
	}
}

// SimSDK implements native.API.
type SimSDK struct {
	mu     sync.Mutex
	logger *logrus.Logger
	opts   Options

	initialized bool
	started     bool

	broadcastFn native.BroadcastHandler
	stateFn     native.StateUpdateHandler
	dataFns     map[native.Handle]native.DataHandler

	nextHandle native.Handle
	connected  map[string]native.Handle
	coordinate map[native.Handle]native.CoordinateSystem
	sampling   map[native.Handle]bool
	commands   []Command

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a simulator. A nil opts uses manual-control settings: no
// autopilot, no automatic state transitions.
func New(logger *logrus.Logger, opts *Options) *SimSDK {
	if logger == nil {
		logger = logrus.New()
	}
	if opts == nil {
		opts = &Options{BroadcastCode: "SIM0000000000A1"}
	}
	return &SimSDK{
		logger:     logger,
		opts:       *opts,
		dataFns:    make(map[native.Handle]native.DataHandler),
		connected:  make(map[string]native.Handle),
		coordinate: make(map[native.Handle]native.CoordinateSystem),
		sampling:   make(map[native.Handle]bool),
	}
}

func (s *SimSDK) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return fmt.Errorf("simsdk: already initialized")
	}
	s.initialized = true
	s.stop = make(chan struct{})
	return nil
}

func (s *SimSDK) Start() error {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return fmt.Errorf("simsdk: not initialized")
	}
	s.started = true
	autopilot := s.opts.AutoBroadcast || s.opts.PointsPerPacket > 0 && s.opts.EmitInterval > 0
	s.mu.Unlock()

	if autopilot && s.opts.EmitInterval > 0 {
		s.wg.Add(1)
		go s.runAutopilot()
	}
	return nil
}

func (s *SimSDK) Uninit() {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return
	}
	s.initialized = false
	s.started = false
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *SimSDK) SetBroadcastCallback(fn native.BroadcastHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastFn = fn
}

func (s *SimSDK) SetDeviceStateUpdateCallback(fn native.StateUpdateHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateFn = fn
}

func (s *SimSDK) AddLidarToConnect(code string) (native.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.connected[code]; ok {
		return h, nil
	}
	h := s.nextHandle
	s.nextHandle++
	s.connected[code] = h
	s.coordinate[h] = native.CoordinateCartesian
	return h, nil
}

func (s *SimSDK) SetDataCallback(h native.Handle, fn native.DataHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataFns[h] = fn
}

func (s *SimSDK) LidarStartSampling(h native.Handle, ack native.CommandCallback) error {
	s.record(Command{Op: "start_sampling", Handle: h})
	s.mu.Lock()
	s.sampling[h] = true
	s.mu.Unlock()
	s.ack(h, ack)
	return nil
}

func (s *SimSDK) LidarStopSampling(h native.Handle, ack native.CommandCallback) error {
	s.record(Command{Op: "stop_sampling", Handle: h})
	s.mu.Lock()
	s.sampling[h] = false
	s.mu.Unlock()
	s.ack(h, ack)
	return nil
}

func (s *SimSDK) LidarSetMode(h native.Handle, m native.LidarMode, ack native.CommandCallback) error {
	s.record(Command{Op: "set_mode", Handle: h, Mode: m})
	s.ack(h, ack)

	if s.opts.AutoTransition {
		// A live device reports the transition shortly after the command.
		var state native.LidarState
		switch m {
		case native.LidarModeNormal:
			state = native.LidarStateNormal
		case native.LidarModePowerSaving:
			state = native.LidarStatePowerSaving
		case native.LidarModeStandby:
			state = native.LidarStateStandBy
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			time.Sleep(time.Millisecond)
			s.FireStateUpdate(h, uint32(state))
		}()
	}
	return nil
}

func (s *SimSDK) SetCartesianCoordinate(h native.Handle, ack native.CommandCallback) error {
	s.record(Command{Op: "set_cartesian", Handle: h})
	s.mu.Lock()
	s.coordinate[h] = native.CoordinateCartesian
	s.mu.Unlock()
	s.ack(h, ack)
	return nil
}

func (s *SimSDK) SetSphericalCoordinate(h native.Handle, ack native.CommandCallback) error {
	s.record(Command{Op: "set_spherical", Handle: h})
	s.mu.Lock()
	s.coordinate[h] = native.CoordinateSpherical
	s.mu.Unlock()
	s.ack(h, ack)
	return nil
}

// Commands returns a snapshot of recorded commands in issue order.
func (s *SimSDK) Commands() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Command, len(s.commands))
	copy(out, s.commands)
	return out
}

// FireBroadcast delivers a synthetic device-discovered callback.
func (s *SimSDK) FireBroadcast(code string, devType uint8) {
	s.mu.Lock()
	fn := s.broadcastFn
	s.mu.Unlock()
	if fn != nil {
		fn(native.BroadcastInfo{Code: code, DevType: devType})
	}
}

// FireStateUpdate delivers a synthetic state-change callback with a raw state
// value.
func (s *SimSDK) FireStateUpdate(h native.Handle, rawState uint32) {
	s.mu.Lock()
	fn := s.stateFn
	s.mu.Unlock()
	if fn != nil {
		fn(native.DeviceStateInfo{Handle: h, State: rawState})
	}
}

// FireData delivers a synthetic data callback. With no callback registered
// for the handle it is a no-op, as with the real SDK.
func (s *SimSDK) FireData(h native.Handle, raw []byte, pointCount uint32) {
	s.mu.Lock()
	fn := s.dataFns[h]
	s.mu.Unlock()
	if fn != nil {
		fn(h, raw, pointCount)
	}
}

func (s *SimSDK) record(c Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, c)
}

func (s *SimSDK) ack(h native.Handle, ack native.CommandCallback) {
	if ack != nil {
		ack(native.CommandAck{Status: 0, Handle: h, Response: 0})
	}
}

// runAutopilot plays the SDK-owned thread: it announces the synthetic device
// until it is connected and emits packets for every sampling handle.
func (s *SimSDK) runAutopilot() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.EmitInterval)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			_, connected := s.connected[s.opts.BroadcastCode]
			emit := make(map[native.Handle]native.CoordinateSystem)
			for h, on := range s.sampling {
				if on {
					emit[h] = s.coordinate[h]
				}
			}
			s.mu.Unlock()

			if s.opts.AutoBroadcast && !connected {
				s.FireBroadcast(s.opts.BroadcastCode, s.opts.DevType)
			}

			for h, coord := range emit {
				seq++
				raw, count := s.syntheticPacket(seq, coord)
				s.FireData(h, raw, count)
			}
		}
	}
}

func (s *SimSDK) syntheticPacket(seq uint64, coord native.CoordinateSystem) ([]byte, uint32) {
	n := s.opts.PointsPerPacket
	if n <= 0 {
		n = 96
	}
	ts := seq * uint64(s.opts.EmitInterval.Nanoseconds())

	if coord == native.CoordinateSpherical {
		pts := make([]RawSpherical, n)
		for i := range pts {
			pts[i] = RawSpherical{
				Depth:        uint32(1000 + (seq+uint64(i))%5000),
				Theta:        uint16((seq*37 + uint64(i)*91) % 18000),
				Phi:          uint16((seq*53 + uint64(i)*17) % 36000),
				Reflectivity: uint8(i),
			}
		}
		return EncodeSpherical(ts, pts)
	}

	pts := make([]RawCartesian, n)
	for i := range pts {
		pts[i] = RawCartesian{
			X:            int32(seq%2000) - 1000 + int32(i),
			Y:            int32((seq*3)%2000) - 1000,
			Z:            int32(i * 10),
			Reflectivity: uint8(i),
		}
	}
	return EncodeCartesian(ts, pts)
}
