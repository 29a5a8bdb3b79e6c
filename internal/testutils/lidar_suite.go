// Package testutils provides reusable test scaffolding: a testify suite base
// that wires a simulated native SDK into the session factory.
package testutils

import (
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"github.com/srg/lvx/internal/nativefactory"
	"github.com/srg/lvx/internal/simsdk"
	"github.com/srg/lvx/native"
)

// MockLidarSuite provides a test suite with a simulated native SDK installed
// as the session factory.
//
// Basic usage:
//
//	type SessionSuite struct {
//	    testutils.MockLidarSuite
//	}
//
//	func TestSessionSuite(t *testing.T) {
//	    suite.Run(t, new(SessionSuite))
//	}
//
// Suites needing autopilot behavior set Options before calling the parent
// SetupTest:
//
//	func (s *MySuite) SetupTest() {
//	    s.Options = simsdk.DefaultOptions()
//	    s.MockLidarSuite.SetupTest()
//	}
type MockLidarSuite struct {
	suite.Suite

	// Logger is shared by the simulator and sessions under test. Defaults to
	// a quiet logger.
	Logger *logrus.Logger
	// Options configures the simulator; nil means fully manual control.
	Options *simsdk.Options
	// SDK is the simulator installed for the current test.
	SDK *simsdk.SimSDK

	prevFactory func(*logrus.Logger) (native.API, error)
}

// SetupTest installs a fresh simulator as the native factory.
func (s *MockLidarSuite) SetupTest() {
	if s.Logger == nil {
		s.Logger = logrus.New()
		s.Logger.SetLevel(logrus.WarnLevel)
	}

	s.SDK = simsdk.New(s.Logger, s.Options)
	s.prevFactory = nativefactory.SetFactory(func(*logrus.Logger) (native.API, error) {
		return s.SDK, nil
	})
}

// TearDownTest restores the previous native factory.
func (s *MockLidarSuite) TearDownTest() {
	if s.prevFactory != nil {
		nativefactory.SetFactory(s.prevFactory)
		s.prevFactory = nil
	}
}
