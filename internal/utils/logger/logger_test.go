package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launchpad.log")
	l, err := New(&Config{LogFile: path, MaxSize: 1, Development: true})
	require.NoError(t, err)

	mint := solana.NewWallet().PublicKey()
	l.WithMint(mint).Debug("curve loaded")
	l.WithComponent("api").Info("listening")
	done := l.TrackPerformance("sweep")
	done()
	_ = l.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Contains(t, lines[0], `"mint":"`+mint.String()+`"`)
	assert.Contains(t, lines[0], `"timestamp"`)
	assert.Contains(t, lines[1], `"logger":"api"`)
	assert.Contains(t, lines[2], `"correlation_id"`)
}

func TestNew_ProductionSkipsDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prod.log")
	l, err := New(&Config{LogFile: path, MaxSize: 1})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("shown")
	_ = l.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hidden")
	assert.Contains(t, string(raw), "shown")
}

func TestNew_ConsoleOnly(t *testing.T) {
	l, err := New(&Config{})
	require.NoError(t, err)
	assert.NotNil(t, l.Logger)
	assert.Equal(t, "launchpad.log", DefaultConfig().LogFile)
}
