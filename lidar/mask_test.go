package lidar_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/srg/lvx/lidar"
	"github.com/srg/lvx/native"
)

func TestStateMaskMatches(t *testing.T) {
	m := lidar.MaskNormal | lidar.MaskStandBy

	assert.True(t, m.Matches(native.LidarStateNormal))
	assert.True(t, m.Matches(native.LidarStateStandBy))
	assert.False(t, m.Matches(native.LidarStateInit))
	assert.False(t, m.Matches(native.LidarStateError))
	assert.False(t, m.Matches(native.LidarStateUnknown))
}

func TestMaskAnyCoversReportedStates(t *testing.T) {
	assert.Equal(t, lidar.StateMask(0x1F), lidar.MaskAny)

	for s := native.LidarStateInit; s <= native.LidarStateError; s++ {
		assert.True(t, lidar.MaskAny.Matches(s), "state %s", s)
	}
	assert.False(t, lidar.MaskAny.Matches(native.LidarStateUnknown))
}

func TestMaskFor(t *testing.T) {
	m := lidar.MaskFor(native.LidarStateError, native.LidarStateInit)
	assert.Equal(t, lidar.MaskInit|lidar.MaskError, m)
}

func TestMaskString(t *testing.T) {
	assert.Equal(t, "none", lidar.StateMask(0).String())
	assert.Equal(t, "normal", lidar.MaskNormal.String())
	assert.Equal(t, "init|error", (lidar.MaskInit | lidar.MaskError).String())
}
