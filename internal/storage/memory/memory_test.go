package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/storage/models"
)

func TestListTrades_Pagination(t *testing.T) {
	ctx := context.Background()
	s := New()
	t0 := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveTrade(ctx, &models.Trade{
			EventID:    string(rune('a' + i)),
			Mint:       "mint",
			SolAmount:  uint64(i),
			ExecutedAt: t0.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, s.SaveTrade(ctx, &models.Trade{EventID: "z", Mint: "other"}))

	page, err := s.ListTrades(ctx, "mint", 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(4), page[0].SolAmount)
	assert.Equal(t, uint64(3), page[1].SolAmount)

	page, err = s.ListTrades(ctx, "mint", 2, 4)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, uint64(0), page[0].SolAmount)

	page, err = s.ListTrades(ctx, "mint", 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page)

	// returned records are copies
	page, _ = s.ListTrades(ctx, "mint", 1, 0)
	page[0].SolAmount = 99
	again, _ := s.ListTrades(ctx, "mint", 1, 0)
	assert.Equal(t, uint64(4), again[0].SolAmount)
}

func TestLaunch_NotFound(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.GetLaunch(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.MarkCompleted(ctx, "missing", time.Now()), storage.ErrNotFound)

	require.NoError(t, s.SaveLaunch(ctx, &models.Launch{Mint: "m", Name: "first"}))
	require.NoError(t, s.SaveLaunch(ctx, &models.Launch{Mint: "m", Name: "second"}))
	l, err := s.GetLaunch(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, "first", l.Name)
	assert.NotZero(t, l.ID)
}
