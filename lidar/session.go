package lidar

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
	"github.com/srg/lvx/bridge"
	"github.com/srg/lvx/internal/groutine"
	"github.com/srg/lvx/internal/nativefactory"
	"github.com/srg/lvx/internal/ringchan"
	"github.com/srg/lvx/native"
	"github.com/srg/lvx/pkg/config"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	// ErrSessionActive is returned by New when a session already exists.
	// Close the existing Sdk before constructing a new one.
	ErrSessionActive = bridge.ErrSessionActive

	// ErrUnknownDevice is returned by Connect for a broadcast code that has
	// not been discovered.
	ErrUnknownDevice = errors.New("unknown broadcast code")

	// ErrInvalidCode is returned by Connect for a code that is not a
	// well-formed broadcast code.
	ErrInvalidCode = errors.New("malformed broadcast code")

	// ErrAlreadyConnected is returned by Connect for a code that already has
	// a live device.
	ErrAlreadyConnected = errors.New("device already connected")

	// ErrClosed is returned for operations on a closed Sdk.
	ErrClosed = errors.New("sdk is closed")
)

// Sdk owns native SDK initialization and shutdown. It is the sole gateway for
// obtaining Device handles and runs the one background goroutine that drains
// discovery notifications into the known-devices set.
//
// At most one Sdk can be live process-wide, enforced through the bridge's
// discovery channel slot.
type Sdk struct {
	api      native.API
	registry *bridge.Registry
	cfg      *config.Config
	logger   *logrus.Logger

	discovery *ringchan.RingChannel[native.BroadcastInfo]

	// known holds discovered-but-not-connected broadcast codes in discovery
	// order. connected maps a code to its live handle.
	knownMu   sync.Mutex
	known     *orderedmap.OrderedMap[string, native.BroadcastInfo]
	connected *hashmap.Map[string, native.Handle]

	stop    chan struct{}
	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

// New initializes the native layer, installs the bridge callbacks, starts the
// discovery drain goroutine and the native event loop.
//
// It fails with ErrSessionActive if a session is already live; the old Sdk
// must be closed first.
func New(cfg *config.Config, logger *logrus.Logger) (*Sdk, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = cfg.NewLogger()
	}

	api, err := nativefactory.NewAPI(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create native sdk: %w", err)
	}

	registry := bridge.Default()
	registry.SetLogger(logger)

	discovery := ringchan.New[native.BroadcastInfo](cfg.DiscoveryBuffer)
	if err := registry.SetDiscoveryChannel(discovery); err != nil {
		return nil, err
	}

	s := &Sdk{
		api:       api,
		registry:  registry,
		cfg:       cfg,
		logger:    logger,
		discovery: discovery,
		known:     orderedmap.New[string, native.BroadcastInfo](),
		connected: hashmap.New[string, native.Handle](),
		stop:      make(chan struct{}),
	}

	if err := api.Init(); err != nil {
		registry.ClearDiscoveryChannel()
		return nil, fmt.Errorf("native init failed: %w", err)
	}

	api.SetBroadcastCallback(registry.HandleBroadcast)
	api.SetDeviceStateUpdateCallback(registry.HandleStateUpdate)

	s.wg.Add(1)
	groutine.Go(context.Background(), "discovery-drain", s.drainDiscovery)

	if err := api.Start(); err != nil {
		s.shutdown()
		return nil, fmt.Errorf("native start failed: %w", err)
	}

	logger.Info("Lidar session started")
	return s, nil
}

// drainDiscovery moves broadcast events into the known-devices set until the
// stop signal is observed.
func (s *Sdk) drainDiscovery(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stop:
			return
		case info := <-s.discovery.C():
			if _, live := s.connected.Get(info.Code); live {
				continue
			}
			s.knownMu.Lock()
			_, seen := s.known.Get(info.Code)
			if !seen {
				s.known.Set(info.Code, info)
			}
			s.knownMu.Unlock()

			if !seen {
				s.logger.WithFields(logrus.Fields{
					"code":     info.Code,
					"dev_type": info.DevType,
				}).Info("Discovered device")
			}
		}
	}
}

// ListKnownDevices returns a snapshot of the broadcast codes seen since
// session start that have not been connected, in discovery order.
func (s *Sdk) ListKnownDevices() []string {
	s.knownMu.Lock()
	defer s.knownMu.Unlock()

	codes := make([]string, 0, s.known.Len())
	for pair := s.known.Oldest(); pair != nil; pair = pair.Next() {
		if _, live := s.connected.Get(pair.Key); live {
			continue
		}
		codes = append(codes, pair.Key)
	}
	return codes
}

// Connect requests a connection to the device with the given broadcast code
// and returns its handle wrapped in a Device. The device's state-table entry
// starts as Unknown; callers observe transitions via Device.WaitForState.
func (s *Sdk) Connect(code string) (*Device, error) {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return nil, ErrClosed
	}
	s.closeMu.Unlock()

	if len(code) != native.BroadcastCodeSize {
		return nil, fmt.Errorf("%q: want %d characters: %w", code, native.BroadcastCodeSize, ErrInvalidCode)
	}

	if _, live := s.connected.Get(code); live {
		return nil, fmt.Errorf("%q: %w", code, ErrAlreadyConnected)
	}

	s.knownMu.Lock()
	_, seen := s.known.Get(code)
	s.knownMu.Unlock()
	if !seen {
		return nil, fmt.Errorf("%q: %w", code, ErrUnknownDevice)
	}

	handle, err := s.api.AddLidarToConnect(code)
	if err != nil {
		return nil, fmt.Errorf("failed to connect %q: %w", code, err)
	}

	s.registry.InitDeviceState(handle)

	s.knownMu.Lock()
	s.known.Delete(code)
	s.knownMu.Unlock()
	s.connected.Set(code, handle)

	s.logger.WithFields(logrus.Fields{
		"code":   code,
		"handle": handle,
	}).Info("Connected device")

	return &Device{
		handle:       handle,
		code:         code,
		api:          s.api,
		registry:     s.registry,
		logger:       s.logger,
		pollInterval: s.cfg.StatePollInterval,
		dataBuffer:   s.cfg.DataBuffer,
	}, nil
}

// Fault returns the first fatal protocol fault recorded by a native callback
// since session start, or nil. A non-nil result means the native layer
// emitted something this module does not understand; the session should be
// closed.
func (s *Sdk) Fault() error {
	return s.registry.Fault()
}

// Close un-inits the native layer, stops the discovery goroutine and releases
// the session slot, in that order. Releasing the slot last keeps a new
// session from being constructed while teardown is still in flight.
func (s *Sdk) Close() error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return nil
	}
	s.closed = true
	s.closeMu.Unlock()

	s.shutdown()
	s.logger.Info("Lidar session closed")
	return nil
}

func (s *Sdk) shutdown() {
	s.api.Uninit()

	close(s.stop)
	s.wg.Wait()

	s.registry.ClearDiscoveryChannel()
}
