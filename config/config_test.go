package config

import (
	"testing"

	"github.com/kelseyhightower/envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigProcessAppliesDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, envconfig.Process("", &cfg))

	assert.Equal(t, "0.0.0.0:8989", cfg.ListenAddress)
	assert.Equal(t, "confabulator.sqlite", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 2, cfg.MercyLimit)
	assert.Equal(t, 10, cfg.DefaultReplaySize)
	assert.Equal(t, 10000, cfg.BuiltinBufferLimit)
	assert.False(t, cfg.FailFast)
}

func TestConfigProcessHonorsEnvOverride(t *testing.T) {
	t.Setenv("LISTEN_ADDRESS", "127.0.0.1:9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("FAIL_FAST", "true")

	var cfg Config
	require.NoError(t, envconfig.Process("", &cfg))

	assert.Equal(t, "127.0.0.1:9999", cfg.ListenAddress)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.FailFast)
}
