package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_ENV", "missing")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 10, cfg.MaxRoomSize)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Zero(t, cfg.ReadLimit, "inbound message size is unlimited unless configured")
	assert.Equal(t, "drop", cfg.Backpressure)
}

func TestLoad_EnvAndFlags(t *testing.T) {
	t.Setenv("CONFIG_ENV", "missing")
	t.Setenv("ROOMS_MAX_ROOM_SIZE", "4")
	t.Setenv("ROOMS_STORE_DRIVER", "sqlite")

	fs := Flags()
	require.NoError(t, fs.Parse([]string{"--port=9090", "--backpressure=kick", "--read_limit=65536"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "kick", cfg.Backpressure)
	assert.Equal(t, int64(65536), cfg.ReadLimit)
	assert.Equal(t, 4, cfg.MaxRoomSize)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("CONFIG_ENV", "missing")
	t.Setenv("ROOMS_STORE_DRIVER", "cassandra")

	_, err := Load(nil)
	assert.Error(t, err)
}
