package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// No config file in the test working directory, so everything
	// comes from defaults.
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)

	assert.Equal(t, 30*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, 60*time.Second, cfg.WebSocket.PongWait)
	assert.Equal(t, 10*time.Second, cfg.WebSocket.WriteWait)
	assert.Equal(t, int64(4096), cfg.WebSocket.MaxMessageSize)

	assert.Equal(t, 256, cfg.Hub.SendQueueSize)
	assert.Equal(t, 8, cfg.Hub.MaxSendStrikes)

	assert.Equal(t, "logs", cfg.Transcript.Dir)
	assert.Equal(t, 4096, cfg.Transcript.QueueSize)
	assert.Equal(t, time.Second, cfg.Transcript.FlushInterval)

	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("TRANSCRIPT_DIR", "/var/log/chatrelay")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/var/log/chatrelay", cfg.Transcript.Dir)
	assert.Equal(t, "debug", cfg.Log.Level)
}
