// internal/utils/metrics/collector.go
package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rovshanmuradov/launchpad/internal/events"
)

// Namespace prefixes every metric name.
const Namespace = "launchpad"

// MetricType представляет тип метрики
type MetricType string

const (
	TradeCounterType     MetricType = "trades"
	TradeVolumeType      MetricType = "trade_volume"
	FeeCounterType       MetricType = "fees"
	TokenCounterType     MetricType = "tokens_created"
	CurveLifecycleType   MetricType = "curve_lifecycle"
	CurveReservesType    MetricType = "curve_reserves"
	ReferralCounterType  MetricType = "referrals"
	OperationCounterType MetricType = "operations"
	OperationLatencyType MetricType = "operation_duration"
)

// Collector owns the launchpad metrics. Metrics live on the registerer
// passed to NewCollector so several collectors can coexist in tests.
type Collector struct {
	metrics sync.Map

	trades     *prometheus.CounterVec
	volume     *prometheus.CounterVec
	fees       *prometheus.CounterVec
	tokens     prometheus.Counter
	lifecycle  *prometheus.CounterVec
	reserves   *prometheus.GaugeVec
	referrals  *prometheus.CounterVec
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewCollector создает коллектор и регистрирует метрики в reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "trades_total",
			Help:      "Executed trades by side",
		}, []string{"side"}),
		volume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "trade_volume_lamports_total",
			Help:      "Gross SOL volume in lamports by side",
		}, []string{"side"}),
		fees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fees_lamports_total",
			Help:      "Trade fees in lamports by recipient",
		}, []string{"recipient"}),
		tokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tokens_created_total",
			Help:      "Tokens launched",
		}),
		lifecycle: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "curves_total",
			Help:      "Bonding curve lifecycle transitions",
		}, []string{"stage"}),
		reserves: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "curve_real_sol_lamports",
			Help:      "Real SOL reserves of a bonding curve",
		}, []string{"mint"}),
		referrals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "referral_events_total",
			Help:      "Referral registrations and claims",
		}, []string{"action"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Handled operations by outcome",
		}, []string{"operation", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Operation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"operation"}),
	}

	metricsMap := map[MetricType]prometheus.Collector{
		TradeCounterType:     c.trades,
		TradeVolumeType:      c.volume,
		FeeCounterType:       c.fees,
		TokenCounterType:     c.tokens,
		CurveLifecycleType:   c.lifecycle,
		CurveReservesType:    c.reserves,
		ReferralCounterType:  c.referrals,
		OperationCounterType: c.operations,
		OperationLatencyType: c.latency,
	}
	for metricType, metric := range metricsMap {
		if err := reg.Register(metric); err != nil {
			return nil, fmt.Errorf("register %s: %w", metricType, err)
		}
		c.metrics.Store(metricType, metric)
	}
	return c, nil
}

// Reset сбрасывает все метрики (полезно для тестирования)
func (c *Collector) Reset() {
	c.metrics.Range(func(_, value interface{}) bool {
		switch m := value.(type) {
		case *prometheus.CounterVec:
			m.Reset()
		case *prometheus.GaugeVec:
			m.Reset()
		case *prometheus.HistogramVec:
			m.Reset()
		}
		return true
	})
}

// Subscribe feeds the collector from bus.
func (c *Collector) Subscribe(bus *events.Bus) []events.Subscription {
	return []events.Subscription{
		bus.SubscribeFunc(events.TradeExecuted, c.onEvent),
		bus.SubscribeFunc(events.TokenCreated, c.onEvent),
		bus.SubscribeFunc(events.CurveCompleted, c.onEvent),
		bus.SubscribeFunc(events.CurveMigrated, c.onEvent),
		bus.SubscribeFunc(events.ReferralRegistered, c.onEvent),
		bus.SubscribeFunc(events.ReferralClaimed, c.onEvent),
	}
}

func (c *Collector) onEvent(_ context.Context, e events.Event) error {
	c.Observe(e)
	return nil
}

// Observe records a single event.
func (c *Collector) Observe(e events.Event) {
	switch ev := e.(type) {
	case events.TradeExecutedEvent:
		side := "sell"
		if ev.IsBuy {
			side = "buy"
		}
		c.trades.WithLabelValues(side).Inc()
		c.volume.WithLabelValues(side).Add(float64(ev.SolAmount))
		c.fees.WithLabelValues("creator").Add(float64(ev.CreatorFee))
		c.fees.WithLabelValues("referral").Add(float64(ev.ReferralFee))
		c.fees.WithLabelValues("protocol").Add(float64(ev.ProtocolFee))
		c.reserves.WithLabelValues(ev.Mint.String()).Set(float64(ev.RealSolReserves))
	case events.TokenCreatedEvent:
		c.tokens.Inc()
		c.lifecycle.WithLabelValues("created").Inc()
	case events.CurveCompletedEvent:
		c.lifecycle.WithLabelValues("completed").Inc()
	case events.CurveMigratedEvent:
		c.lifecycle.WithLabelValues("migrated").Inc()
		c.reserves.DeleteLabelValues(ev.Mint.String())
	case events.ReferralRegisteredEvent:
		c.referrals.WithLabelValues("registered").Inc()
	case events.ReferralClaimedEvent:
		c.referrals.WithLabelValues("claimed").Inc()
	}
}

// RecordOperation записывает результат операции с учетом контекста
func (c *Collector) RecordOperation(ctx context.Context, operation string, duration time.Duration, err error) {
	select {
	case <-ctx.Done():
		c.operations.WithLabelValues(operation, "cancelled").Inc()
		return
	default:
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	c.operations.WithLabelValues(operation, status).Inc()
	c.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// Measure runs f and records it under operation.
func (c *Collector) Measure(ctx context.Context, operation string, f func() error) error {
	start := time.Now()
	err := f()
	c.RecordOperation(ctx, operation, time.Since(start), err)
	return err
}

// OperationCounter returns the counter for operation and status.
func (c *Collector) OperationCounter(operation, status string) prometheus.Counter {
	return c.operations.WithLabelValues(operation, status)
}
