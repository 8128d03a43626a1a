// internal/storage/archiver.go
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/storage/models"
)

// Archiver copies launchpad events into a Storage.
type Archiver struct {
	store  Storage
	logger *zap.Logger
}

// NewArchiver creates an Archiver writing to store.
func NewArchiver(store Storage, logger *zap.Logger) *Archiver {
	return &Archiver{store: store, logger: logger.Named("archiver")}
}

// Subscribe attaches the archiver to bus.
func (a *Archiver) Subscribe(bus *events.Bus) []events.Subscription {
	return []events.Subscription{
		bus.SubscribeFunc(events.TokenCreated, a.Handle),
		bus.SubscribeFunc(events.TradeExecuted, a.Handle),
		bus.SubscribeFunc(events.CurveCompleted, a.Handle),
		bus.SubscribeFunc(events.CurveMigrated, a.Handle),
	}
}

// Handle archives a single event. Unrelated events are ignored.
func (a *Archiver) Handle(ctx context.Context, e events.Event) error {
	var err error
	switch ev := e.(type) {
	case events.TokenCreatedEvent:
		err = a.store.SaveLaunch(ctx, &models.Launch{
			Mint:         ev.Mint.String(),
			BondingCurve: ev.BondingCurve.String(),
			Creator:      ev.Creator.String(),
			Name:         ev.Name,
			Symbol:       ev.Symbol,
			URI:          ev.URI,
			LaunchedAt:   ev.Timestamp(),
		})
	case events.TradeExecutedEvent:
		err = a.saveTrade(ctx, ev)
	case events.CurveCompletedEvent:
		err = a.store.MarkCompleted(ctx, ev.Mint.String(), ev.Timestamp())
	case events.CurveMigratedEvent:
		err = a.store.MarkMigrated(ctx, ev.Mint.String(), ev.Timestamp())
	default:
		return nil
	}
	if err != nil {
		a.logger.Error("Failed to archive event",
			zap.String("event_type", string(e.Type())),
			zap.Error(err))
		return fmt.Errorf("archive %s: %w", e.Type(), err)
	}
	return nil
}

func (a *Archiver) saveTrade(ctx context.Context, ev events.TradeExecutedEvent) error {
	side := "sell"
	if ev.IsBuy {
		side = "buy"
	}
	referrer := ""
	if !ev.Referrer.IsZero() {
		referrer = ev.Referrer.String()
	}
	trade := &models.Trade{
		EventID:      ev.ID().String(),
		Mint:         ev.Mint.String(),
		Trader:       ev.Trader.String(),
		Referrer:     referrer,
		Side:         side,
		SolAmount:    ev.SolAmount,
		TokenAmount:  ev.TokenAmount,
		Fee:          ev.Fee,
		CreatorFee:   ev.CreatorFee,
		ReferralFee:  ev.ReferralFee,
		ProtocolFee:  ev.ProtocolFee,
		VirtualSol:   ev.VirtualSol,
		VirtualToken: ev.VirtualToken,
		ExecutedAt:   ev.Timestamp(),
	}
	if err := a.store.SaveTrade(ctx, trade); err != nil {
		return err
	}
	return a.store.RecordCurveState(ctx, trade.Mint, ev.RealSolReserves, ev.Timestamp())
}
