package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/storage/models"
)

// mockStorage - мок для storage.Storage
type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) SaveTrade(ctx context.Context, trade *models.Trade) error {
	return m.Called(ctx, trade).Error(0)
}

func (m *mockStorage) ListTrades(ctx context.Context, mint string, limit, offset int) ([]*models.Trade, error) {
	args := m.Called(ctx, mint, limit, offset)
	trades, _ := args.Get(0).([]*models.Trade)
	return trades, args.Error(1)
}

func (m *mockStorage) SaveLaunch(ctx context.Context, launch *models.Launch) error {
	return m.Called(ctx, launch).Error(0)
}

func (m *mockStorage) GetLaunch(ctx context.Context, mint string) (*models.Launch, error) {
	args := m.Called(ctx, mint)
	launch, _ := args.Get(0).(*models.Launch)
	return launch, args.Error(1)
}

func (m *mockStorage) RecordCurveState(ctx context.Context, mint string, realSol uint64, at time.Time) error {
	return m.Called(ctx, mint, realSol, at).Error(0)
}

func (m *mockStorage) MarkCompleted(ctx context.Context, mint string, at time.Time) error {
	return m.Called(ctx, mint, at).Error(0)
}

func (m *mockStorage) MarkMigrated(ctx context.Context, mint string, at time.Time) error {
	return m.Called(ctx, mint, at).Error(0)
}

func (m *mockStorage) RunMigrations() error { return m.Called().Error(0) }
func (m *mockStorage) Close() error         { return m.Called().Error(0) }

func TestArchiver_TradeWriteFailureSkipsCurveState(t *testing.T) {
	store := new(mockStorage)
	dbDown := errors.New("connection refused")
	store.On("SaveTrade", mock.Anything, mock.AnythingOfType("*models.Trade")).Return(dbDown)

	a := storage.NewArchiver(store, zap.NewNop())
	err := a.Handle(context.Background(), events.TradeExecutedEvent{
		BaseEvent: events.NewBase(events.TradeExecuted, time.Now()),
		Mint:      solana.NewWallet().PublicKey(),
		IsBuy:     true,
	})

	assert.ErrorIs(t, err, dbDown)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "RecordCurveState", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestArchiver_TradeMapsFields(t *testing.T) {
	store := new(mockStorage)
	mint := solana.NewWallet().PublicKey()
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	ev := events.TradeExecutedEvent{
		BaseEvent:       events.NewBase(events.TradeExecuted, at),
		Mint:            mint,
		Trader:          solana.NewWallet().PublicKey(),
		SolAmount:       4_000,
		TokenAmount:     120,
		Fee:             40,
		CreatorFee:      26,
		ReferralFee:     0,
		ProtocolFee:     14,
		RealSolReserves: 12_345,
	}

	store.On("SaveTrade", mock.Anything, mock.MatchedBy(func(tr *models.Trade) bool {
		return tr.EventID == ev.ID().String() &&
			tr.Side == "sell" &&
			tr.Referrer == "" &&
			tr.CreatorFee+tr.ReferralFee+tr.ProtocolFee == tr.Fee &&
			tr.ExecutedAt.Equal(at)
	})).Return(nil).Once()
	store.On("RecordCurveState", mock.Anything, mint.String(), uint64(12_345), at).Return(nil).Once()

	a := storage.NewArchiver(store, zap.NewNop())
	assert.NoError(t, a.Handle(context.Background(), ev))
	store.AssertExpectations(t)
}

func TestArchiver_IgnoresUnrelatedEvents(t *testing.T) {
	store := new(mockStorage)
	a := storage.NewArchiver(store, zap.NewNop())

	assert.NoError(t, a.Handle(context.Background(), events.ReferralClaimedEvent{
		BaseEvent: events.NewBase(events.ReferralClaimed, time.Now()),
	}))
	store.AssertExpectations(t)
	assert.Empty(t, store.Calls)
}
