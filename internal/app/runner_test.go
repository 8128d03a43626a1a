package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchpad/internal/config"
	"github.com/rovshanmuradov/launchpad/internal/launchpad"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.API.Enabled = false
	cfg.Archive.Enabled = false
	cfg.Migration.Enabled = true
	cfg.Migration.InitialInterval = time.Millisecond
	cfg.Migration.MaxInterval = 5 * time.Millisecond
	return cfg
}

func TestRunner_RunBeforeInitialize(t *testing.T) {
	r := NewRunner(testConfig(t), zaptest.NewLogger(t))
	assert.Error(t, r.Run(context.Background()))
}

func TestRunner_InitializeAndServe(t *testing.T) {
	cfg := testConfig(t)
	r := NewRunner(cfg, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, r.Initialize(ctx))
	assert.False(t, r.Authority().IsZero())

	global, err := r.Program().GetGlobal(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.Authority(), global.Authority)
	assert.Equal(t, cfg.Protocol.TradeFeeBps, global.TradeFeeBps)

	// второй Initialize отклоняется программой, Runner это терпит
	assert.ErrorIs(t, r.Program().Initialize(ctx, r.Authority()), launchpad.ErrAlreadyInitialized)
}

func TestRunner_StopsOnCancel(t *testing.T) {
	r := NewRunner(testConfig(t), zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Initialize(ctx))

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
}
