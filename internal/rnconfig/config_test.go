package rnconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerConfigSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := ServerConfig{
		Passphrase:    "hunter2",
		Size:          16,
		LocalPort:     19200,
		MaxPacketSize: 2048,
		TimeoutLimit:  10 * time.Second,
	}
	require.NoError(t, SaveServerConfig(cfg))

	got, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestClientConfigSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := ClientConfig{
		Passphrase:    "hunter2",
		MaxPacketSize: 1500,
		TimeoutLimit:  3 * time.Second,
	}
	require.NoError(t, SaveClientConfig(cfg))

	got, err := LoadClientConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadServerConfigWithoutSaveReturnsDefaultsAndError(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := LoadServerConfig()
	assert.Error(t, err) // no server.json written yet
	assert.Equal(t, DefaultServerConfig(), cfg)
}

func TestServerConfigValidateRejectsBadSize(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Size = 0
	err := cfg.Validate()
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "Size", cfgErr.Field)
}

func TestServerConfigValidateRejectsBadMaxPacketSize(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.MaxPacketSize = -1
	err := cfg.Validate()
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "MaxPacketSize", cfgErr.Field)
}

func TestServerConfigValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, DefaultServerConfig().Validate())
}

func TestClientConfigValidateRejectsBadMaxPacketSize(t *testing.T) {
	cfg := DefaultClientConfig()
	cfg.MaxPacketSize = 0
	err := cfg.Validate()
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "MaxPacketSize", cfgErr.Field)
}

func TestClientConfigValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, DefaultClientConfig().Validate())
}
