package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/srg/lvx/pkg/config"
)

func TestDefault(t *testing.T) {
	c := config.Default()

	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, 16, c.DiscoveryBuffer)
	assert.Equal(t, 256, c.DataBuffer)
	assert.Equal(t, time.Millisecond, c.StatePollInterval)
	assert.NoError(t, c.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lvx.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\ndata_buffer: 64\n"), 0o644))

	c, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, 64, c.DataBuffer)
	// Untouched fields keep their defaults.
	assert.Equal(t, 16, c.DiscoveryBuffer)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero data buffer", "data_buffer: 0\n"},
		{"negative discovery buffer", "discovery_buffer: -1\n"},
		{"bad log level", "log_level: shouting\n"},
		{"zero poll interval", "state_poll_interval: 0s\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "lvx.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.yaml), 0o644))

			_, err := config.Load(path)
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	c := config.Default()
	c.LogLevel = "debug"

	logger := c.NewLogger()
	require.NotNil(t, logger)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}
