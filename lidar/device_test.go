package lidar_test

import (
	"context"
	"testing"
	"time"

	suitelib "github.com/stretchr/testify/suite"
	"github.com/srg/lvx/internal/simsdk"
	"github.com/srg/lvx/internal/testutils"
	"github.com/srg/lvx/lidar"
	"github.com/srg/lvx/native"
)

type DeviceTestSuite struct {
	testutils.MockLidarSuite

	sdk *lidar.Sdk
	dev *lidar.Device
}

func TestDeviceTestSuite(t *testing.T) {
	suitelib.Run(t, new(DeviceTestSuite))
}

func (suite *DeviceTestSuite) SetupTest() {
	suite.MockLidarSuite.SetupTest()

	sdk, err := lidar.New(nil, suite.Logger)
	suite.Require().NoError(err)
	suite.sdk = sdk

	suite.SDK.FireBroadcast(testCode, 1)
	suite.Require().Eventually(func() bool {
		return len(suite.sdk.ListKnownDevices()) == 1
	}, time.Second, time.Millisecond)

	suite.dev, err = suite.sdk.Connect(testCode)
	suite.Require().NoError(err)
}

func (suite *DeviceTestSuite) TearDownTest() {
	suite.NoError(suite.sdk.Close())
	suite.MockLidarSuite.TearDownTest()
}

func (suite *DeviceTestSuite) hasCommand(want simsdk.Command) bool {
	for _, c := range suite.SDK.Commands() {
		if c == want {
			return true
		}
	}
	return false
}

func (suite *DeviceTestSuite) TestWaitForStateReturnsImmediatelyOnMatch() {
	suite.SDK.FireStateUpdate(suite.dev.Handle(), uint32(native.LidarStateNormal))

	done := make(chan error, 1)
	go func() {
		done <- suite.dev.WaitForState(context.Background(), lidar.MaskNormal)
	}()

	select {
	case err := <-done:
		suite.NoError(err)
	case <-time.After(time.Second):
		suite.Fail("WaitForState did not return for an already-matching state")
	}
}

func (suite *DeviceTestSuite) TestWaitForStateHonorsContextDeadline() {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := suite.dev.WaitForState(ctx, lidar.MaskNormal)
	suite.ErrorIs(err, context.DeadlineExceeded)
}

func (suite *DeviceTestSuite) TestMaskAnyNotSatisfiedByUnknown() {
	// Unknown is the pre-contact default, not a reported state.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	suite.ErrorIs(suite.dev.WaitForState(ctx, lidar.MaskAny), context.DeadlineExceeded)

	suite.SDK.FireStateUpdate(suite.dev.Handle(), uint32(native.LidarStateInit))
	suite.NoError(suite.dev.WaitForState(context.Background(), lidar.MaskAny))
}

func (suite *DeviceTestSuite) TestWaitForStateRejectsEmptyMask() {
	suite.Error(suite.dev.WaitForState(context.Background(), 0))
}

func (suite *DeviceTestSuite) TestStateTracksUpdates() {
	suite.Equal(native.LidarStateUnknown, suite.dev.State())

	suite.SDK.FireStateUpdate(suite.dev.Handle(), uint32(native.LidarStatePowerSaving))
	suite.Equal(native.LidarStatePowerSaving, suite.dev.State())
}

func (suite *DeviceTestSuite) TestSetModeIssuesAsyncCommand() {
	suite.NoError(suite.dev.SetMode(native.LidarModePowerSaving))

	suite.True(suite.hasCommand(simsdk.Command{
		Op:     "set_mode",
		Handle: suite.dev.Handle(),
		Mode:   native.LidarModePowerSaving,
	}))

	// The command alone must not touch the state table.
	suite.Equal(native.LidarStateUnknown, suite.dev.State())
}

func (suite *DeviceTestSuite) TestSetCoordinateSystem() {
	suite.NoError(suite.dev.SetCoordinateSystem(native.CoordinateCartesian))
	suite.True(suite.hasCommand(simsdk.Command{Op: "set_cartesian", Handle: suite.dev.Handle()}))

	suite.NoError(suite.dev.SetCoordinateSystem(native.CoordinateSpherical))
	suite.True(suite.hasCommand(simsdk.Command{Op: "set_spherical", Handle: suite.dev.Handle()}))

	suite.Error(suite.dev.SetCoordinateSystem(native.CoordinateSystem(7)))
}
