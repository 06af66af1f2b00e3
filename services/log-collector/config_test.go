package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "tcp://mqtt:1883", cfg.MQTTBroker)
	assert.Equal(t, "aura-log-collector", cfg.MQTTClientID)
	assert.Equal(t, "logs/#", cfg.LogTopic)
	assert.Equal(t, "/var/log/auralink", cfg.LogDir)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_Overrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOG_TOPIC", "logs/aura-bridge")
	t.Setenv("LOG_DIR", dir)
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "logs/aura-bridge", cfg.LogTopic)
	assert.Equal(t, dir, cfg.LogDir)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"LOG_TOPIC", "aura/#"},
		{"LOG_TOPIC", "logs/"},
		{"LOG_TOPIC", "#"},
		{"LOG_DIR", "relative/logs"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
