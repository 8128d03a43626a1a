package launchpad

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFee_Scenario(t *testing.T) {
	g := &GlobalConfig{TradeFeeBps: 100, CreatorShareBps: 6500, ReferralShareBps: 1000}

	split, err := SplitFee(1_000_000_000, g, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000_000), split.Total)
	assert.Equal(t, uint64(6_500_000), split.Creator)
	assert.Equal(t, uint64(350_000), split.Referral)
	assert.Equal(t, uint64(3_150_000), split.Protocol)

	split, err = SplitFee(1_000_000_000, g, false)
	require.NoError(t, err)
	assert.Zero(t, split.Referral)
	assert.Equal(t, uint64(3_500_000), split.Protocol)
}

func TestSplitFee_SumsExactly(t *testing.T) {
	amounts := []uint64{0, 1, 99, 101, 12_345, 999_999_999, 1_000_000_007, math.MaxUint64}
	shares := []uint16{0, 1, 3333, 5000, 6500, 9999, 10_000}

	for _, amount := range amounts {
		for _, fee := range []uint16{0, 1, 100, 10_000} {
			for _, creator := range shares {
				for _, referral := range shares {
					g := &GlobalConfig{TradeFeeBps: fee, CreatorShareBps: creator, ReferralShareBps: referral}
					split, err := SplitFee(amount, g, true)
					require.NoError(t, err)
					assert.Equal(t, split.Total, split.Creator+split.Referral+split.Protocol)
					assert.LessOrEqual(t, split.Total, amount)
				}
			}
		}
	}
}

func TestMinAmountOut(t *testing.T) {
	out, err := MinAmountOut(1_000_000, SlippageConfig{Type: SlippageBps, Value: 100})
	require.NoError(t, err)
	assert.Equal(t, uint64(990_000), out)

	out, err = MinAmountOut(1_000_000, SlippageConfig{Type: SlippageFixed, Value: 42})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), out)

	out, err = MinAmountOut(1_000_000, SlippageConfig{Type: SlippageNone})
	require.NoError(t, err)
	assert.Zero(t, out)

	_, err = MinAmountOut(1, SlippageConfig{Type: SlippageBps, Value: 10_001})
	assert.ErrorIs(t, err, ErrInvalidBps)

	_, err = MinAmountOut(1, SlippageConfig{Type: "percent"})
	assert.Error(t, err)
}
