package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/launchpad/internal/launchpad"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, launchpad.DefaultParams(), cfg.Protocol.Defaults())
	assert.True(t, cfg.API.Enabled)
	assert.Equal(t, ":8080", cfg.API.ListenAddr)
	assert.Equal(t, 5*time.Second, cfg.API.ShutdownTimeout)
	assert.Equal(t, uint(5), cfg.Migration.MaxTries)
	assert.Equal(t, 500*time.Millisecond, cfg.Migration.InitialInterval)
	assert.False(t, cfg.Archive.Enabled)
	assert.Equal(t, 256, cfg.Events.BufferSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Events.PollInterval)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := writeConfig(t, "launchpad.yaml", `
protocol:
  trade_fee_bps: 50
  graduation_threshold: 1000000000
api:
  listen_addr: 127.0.0.1:9000
migration:
  initial_interval: 2s
  max_interval: 1m
log:
  development: true
`)
	t.Setenv("LAUNCHPAD_EVENTS_BUFFER_SIZE", "32")
	t.Setenv("LAUNCHPAD_AUTHORITY_KEY_FILE", "/keys/authority.json")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint16(50), cfg.Protocol.TradeFeeBps)
	assert.Equal(t, launchpad.LamportsPerSol, cfg.Protocol.GraduationThreshold)
	assert.Equal(t, launchpad.DefaultCreatorShareBps, cfg.Protocol.CreatorShareBps)
	assert.Equal(t, "127.0.0.1:9000", cfg.API.ListenAddr)
	assert.Equal(t, 2*time.Second, cfg.Migration.InitialInterval)
	assert.Equal(t, time.Minute, cfg.Migration.MaxInterval)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, 32, cfg.Events.BufferSize)
	assert.Equal(t, "/keys/authority.json", cfg.Authority.KeyFile)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bps out of range", "protocol:\n  creator_share_bps: 10001\n"},
		{"real above virtual", "protocol:\n  initial_real_token: 2000000000000000\n"},
		{"zero threshold", "protocol:\n  graduation_threshold: 0\n"},
		{"listen addr", "api:\n  listen_addr: nope\n"},
		{"intervals", "migration:\n  initial_interval: 10s\n  max_interval: 1s\n"},
		{"archive without dsn", "archive:\n  enabled: true\n"},
		{"buffer", "events:\n  buffer_size: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, "c.yaml", tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_ExampleFile(t *testing.T) {
	cfg, err := LoadConfig("../../configs/launchpad.yaml")
	require.NoError(t, err)

	assert.Equal(t, launchpad.DefaultParams(), cfg.Protocol.Defaults())
	assert.Equal(t, "logs/launchpad.log", cfg.Log.File)
	assert.Equal(t, time.Hour, cfg.Archive.ConnMaxLifetime)
	assert.Empty(t, cfg.Migration.Destination)
}
