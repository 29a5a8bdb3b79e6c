package ringchan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/srg/lvx/internal/ringchan"
)

func TestForceSendOverwritesOldest(t *testing.T) {
	rc := ringchan.New[int](3)

	for i := 1; i <= 5; i++ {
		rc.ForceSend(i)
	}

	// Oldest two were discarded; the last three remain in order.
	for want := 3; want <= 5; want++ {
		v, ok := rc.TryReceive()
		require.True(t, ok)
		assert.Equal(t, want, v)
	}
	_, ok := rc.TryReceive()
	assert.False(t, ok)

	m := rc.GetMetrics()
	assert.Equal(t, int64(5), m.Written)
	assert.Equal(t, int64(2), m.Overwritten)
	assert.Equal(t, int64(3), m.Processed)
}

func TestTrySendFullBuffer(t *testing.T) {
	rc := ringchan.New[string](1)

	assert.True(t, rc.TrySend("a"))
	assert.False(t, rc.TrySend("b"))

	v, ok := rc.TryReceive()
	require.True(t, ok)
	assert.Equal(t, "a", v)
}

func TestTryReceiveEmpty(t *testing.T) {
	rc := ringchan.New[int](2)
	v, ok := rc.TryReceive()
	assert.False(t, ok)
	assert.Zero(t, v)
}

func TestZeroCapacityPanics(t *testing.T) {
	assert.Panics(t, func() { ringchan.New[int](0) })
}
