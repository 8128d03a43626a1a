package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/events"
)

func newCollector(t *testing.T) *Collector {
	t.Helper()
	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	return c
}

func TestNewCollector_DoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)
	_, err = NewCollector(reg)
	assert.Error(t, err)
}

func TestObserve_Trades(t *testing.T) {
	c := newCollector(t)
	mint := solana.NewWallet().PublicKey()
	now := time.Now()

	c.Observe(events.TradeExecutedEvent{
		BaseEvent:       events.NewBase(events.TradeExecuted, now),
		Mint:            mint,
		IsBuy:           true,
		SolAmount:       1_000,
		CreatorFee:      6,
		ReferralFee:     1,
		ProtocolFee:     3,
		RealSolReserves: 990,
	})
	c.Observe(events.TradeExecutedEvent{
		BaseEvent:       events.NewBase(events.TradeExecuted, now),
		Mint:            mint,
		SolAmount:       400,
		CreatorFee:      2,
		ProtocolFee:     2,
		RealSolReserves: 590,
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.trades.WithLabelValues("buy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.trades.WithLabelValues("sell")))
	assert.Equal(t, 1000.0, testutil.ToFloat64(c.volume.WithLabelValues("buy")))
	assert.Equal(t, 400.0, testutil.ToFloat64(c.volume.WithLabelValues("sell")))
	assert.Equal(t, 8.0, testutil.ToFloat64(c.fees.WithLabelValues("creator")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fees.WithLabelValues("referral")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.fees.WithLabelValues("protocol")))
	assert.Equal(t, 590.0, testutil.ToFloat64(c.reserves.WithLabelValues(mint.String())))

	c.Observe(events.CurveMigratedEvent{BaseEvent: events.NewBase(events.CurveMigrated, now), Mint: mint})
	assert.Equal(t, 0, testutil.CollectAndCount(c.reserves))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.lifecycle.WithLabelValues("migrated")))
}

func TestSubscribe(t *testing.T) {
	c := newCollector(t)
	bus := events.NewBus(zap.NewNop(), 0)
	defer func() { _ = bus.Shutdown(context.Background()) }()
	subs := c.Subscribe(bus)
	assert.Len(t, subs, 6)

	ctx := context.Background()
	now := time.Now()
	require.NoError(t, bus.PublishSync(ctx, events.TokenCreatedEvent{BaseEvent: events.NewBase(events.TokenCreated, now)}))
	require.NoError(t, bus.PublishSync(ctx, events.CurveCompletedEvent{BaseEvent: events.NewBase(events.CurveCompleted, now)}))
	require.NoError(t, bus.PublishSync(ctx, events.ReferralRegisteredEvent{BaseEvent: events.NewBase(events.ReferralRegistered, now)}))
	require.NoError(t, bus.PublishSync(ctx, events.ReferralClaimedEvent{BaseEvent: events.NewBase(events.ReferralClaimed, now)}))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.tokens))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.lifecycle.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.lifecycle.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.referrals.WithLabelValues("registered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.referrals.WithLabelValues("claimed")))

	for _, s := range subs {
		s.Unsubscribe()
	}
	require.NoError(t, bus.PublishSync(ctx, events.TokenCreatedEvent{BaseEvent: events.NewBase(events.TokenCreated, now)}))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tokens))
}

func TestRecordOperation(t *testing.T) {
	c := newCollector(t)
	ctx := context.Background()

	require.NoError(t, c.Measure(ctx, "buy", func() error { return nil }))
	boom := errors.New("boom")
	assert.ErrorIs(t, c.Measure(ctx, "buy", func() error { return boom }), boom)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	c.RecordOperation(cancelled, "buy", time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("buy", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("buy", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("buy", "cancelled")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.latency))

	c.Reset()
	assert.Equal(t, 0, testutil.CollectAndCount(c.operations))
}
