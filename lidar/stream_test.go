package lidar_test

import (
	"testing"
	"time"

	suitelib "github.com/stretchr/testify/suite"
	"github.com/srg/lvx/bridge"
	"github.com/srg/lvx/internal/simsdk"
	"github.com/srg/lvx/internal/testutils"
	"github.com/srg/lvx/lidar"
	"github.com/srg/lvx/packet"
)

type StreamTestSuite struct {
	testutils.MockLidarSuite

	sdk *lidar.Sdk
	dev *lidar.Device
}

func TestStreamTestSuite(t *testing.T) {
	suitelib.Run(t, new(StreamTestSuite))
}

func (suite *StreamTestSuite) SetupTest() {
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

func (suite *StreamTestSuite) TearDownTest() {
	suite.NoError(suite.sdk.Close())
	suite.MockLidarSuite.TearDownTest()
}

func (suite *StreamTestSuite) fireCartesian(ts uint64, pts ...simsdk.RawCartesian) {
	raw, count := simsdk.EncodeCartesian(ts, pts)
	suite.SDK.FireData(suite.dev.Handle(), raw, count)
}

func (suite *StreamTestSuite) TestStartSamplingIssuesCommands() {
	ds, err := suite.dev.StartSampling()
	suite.Require().NoError(err)
	defer ds.Close()

	var ops []string
	for _, c := range suite.SDK.Commands() {
		ops = append(ops, c.Op)
	}
	suite.Contains(ops, "start_sampling")
}

func (suite *StreamTestSuite) TestPollEmptyStream() {
	ds, err := suite.dev.StartSampling()
	suite.Require().NoError(err)
	defer ds.Close()

	_, ok := ds.Poll()
	suite.False(ok)
}

func (suite *StreamTestSuite) TestPollDeliversPacketsInOrder() {
	ds, err := suite.dev.StartSampling()
	suite.Require().NoError(err)
	defer ds.Close()

	suite.fireCartesian(100, simsdk.RawCartesian{X: 1000, Reflectivity: 1})
	suite.fireCartesian(200, simsdk.RawCartesian{X: 2000, Reflectivity: 2}, simsdk.RawCartesian{X: 3000, Reflectivity: 3})
	suite.fireCartesian(300)

	for i, want := range []uint64{100, 200, 300} {
		dp, ok := ds.Poll()
		suite.Require().True(ok, "packet %d missing", i)
		suite.Equal(want, dp.Timestamp)
	}

	_, ok := ds.Poll()
	suite.False(ok)
	suite.NoError(suite.sdk.Fault())
}

func (suite *StreamTestSuite) TestPollDecodesPoints() {
	ds, err := suite.dev.StartSampling()
	suite.Require().NoError(err)
	defer ds.Close()

	suite.fireCartesian(7, simsdk.RawCartesian{X: 1500, Y: -500, Z: 250, Reflectivity: 42})

	dp, ok := ds.Poll()
	suite.Require().True(ok)
	suite.Require().Len(dp.Points, 1)
	suite.Equal(packet.CartesianPoint{X: 1.5, Y: -0.5, Z: 0.25, Reflectivity: 42}, dp.Points[0])
}

func (suite *StreamTestSuite) TestSecondStreamRejectedWhileOpen() {
	ds, err := suite.dev.StartSampling()
	suite.Require().NoError(err)
	defer ds.Close()

	_, err = suite.dev.StartSampling()
	suite.ErrorIs(err, bridge.ErrStreamActive)
}

func (suite *StreamTestSuite) TestCloseStopsSamplingAndDeregisters() {
	ds, err := suite.dev.StartSampling()
	suite.Require().NoError(err)
	suite.NoError(ds.Close())

	var ops []string
	for _, c := range suite.SDK.Commands() {
		ops = append(ops, c.Op)
	}
	suite.Contains(ops, "stop_sampling")

	// A late data callback after teardown is a silent no-op.
	suite.NotPanics(func() {
		suite.fireCartesian(1, simsdk.RawCartesian{X: 1})
	})
	_, ok := ds.Poll()
	suite.False(ok)
	suite.NoError(suite.sdk.Fault())
}

func (suite *StreamTestSuite) TestCloseIsIdempotent() {
	ds, err := suite.dev.StartSampling()
	suite.Require().NoError(err)
	suite.NoError(ds.Close())
	suite.NoError(ds.Close())
}

func (suite *StreamTestSuite) TestRestartAfterClose() {
	ds, err := suite.dev.StartSampling()
	suite.Require().NoError(err)
	suite.NoError(ds.Close())

	ds2, err := suite.dev.StartSampling()
	suite.Require().NoError(err)
	defer ds2.Close()

	suite.fireCartesian(9, simsdk.RawCartesian{X: 1000})
	dp, ok := ds2.Poll()
	suite.Require().True(ok)
	suite.Equal(uint64(9), dp.Timestamp)
}

func (suite *StreamTestSuite) TestOverflowDropsOldestAndCounts() {
	ds, err := suite.dev.StartSampling()
	suite.Require().NoError(err)
	defer ds.Close()

	// Default buffer is 256; overfill by 10.
	for i := uint64(1); i <= 266; i++ {
		suite.fireCartesian(i)
	}

	dp, ok := ds.Poll()
	suite.Require().True(ok)
	suite.Equal(uint64(11), dp.Timestamp, "oldest packets should have been dropped")
	suite.Equal(int64(10), ds.Metrics().Overwritten)
}
