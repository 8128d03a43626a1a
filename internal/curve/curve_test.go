package curve

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testVirtualSol   = 30_000_000_000
	testVirtualToken = 1_073_000_000_000_000
)

func TestBuyOut_Scenario(t *testing.T) {
	out, err := BuyOut(testVirtualSol, testVirtualToken, 990_000_000)
	require.NoError(t, err)

	// 1_073_000_000_000_000 * 990_000_000 / 30_990_000_000
	assert.Equal(t, uint64(34_277_831_558_567), out)
}

func TestBuyOut_MonotonicAndBelowReserve(t *testing.T) {
	var prev uint64
	for _, solIn := range []uint64{1, 1_000, 1_000_000, 1_000_000_000, 85_000_000_000, 1 << 50, math.MaxUint64 / 2} {
		out, err := BuyOut(testVirtualSol, testVirtualToken, solIn)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, out, prev, "solIn=%d", solIn)
		assert.Less(t, out, uint64(testVirtualToken), "solIn=%d", solIn)
		prev = out
	}
}

func TestRoundTripNeverProfits(t *testing.T) {
	cases := []struct {
		vSol, vTok, solIn uint64
	}{
		{testVirtualSol, testVirtualToken, 1},
		{testVirtualSol, testVirtualToken, 990_000_000},
		{testVirtualSol, testVirtualToken, 84_000_000_000},
		{1, 1, 1},
		{7, 1_000_003, 13},
		{math.MaxUint64 / 4, math.MaxUint64 / 3, math.MaxUint64 / 5},
	}
	for _, tc := range cases {
		tokens, err := BuyOut(tc.vSol, tc.vTok, tc.solIn)
		require.NoError(t, err)

		back, err := SellOut(tokens, tc.vSol+tc.solIn, tc.vTok-tokens)
		require.NoError(t, err)
		assert.LessOrEqual(t, back, tc.solIn, "case %+v", tc)
	}
}

func TestSellOut(t *testing.T) {
	out, err := SellOut(1_000_000, 100, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), out)

	out, err = SellOut(0, testVirtualSol, testVirtualToken)
	require.NoError(t, err)
	assert.Zero(t, out)
}

func TestDivisionByZero(t *testing.T) {
	_, err := BuyOut(0, testVirtualToken, 0)
	assert.ErrorIs(t, err, ErrDivisionByZero)

	_, err = SellOut(0, testVirtualSol, 0)
	assert.ErrorIs(t, err, ErrDivisionByZero)

	_, err = MulDivFloor(1, 1, 0)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestMulDivFloor(t *testing.T) {
	v, err := MulDivFloor(math.MaxUint64, math.MaxUint64, math.MaxUint64)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), v)

	_, err = MulDivFloor(math.MaxUint64, 2, 1)
	assert.ErrorIs(t, err, ErrOverflow)

	v, err = MulDivFloor(10, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)
}

func TestApplyBps(t *testing.T) {
	fee, err := ApplyBps(1_000_000_000, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000_000), fee)

	creator, err := ApplyBps(fee, 6500)
	require.NoError(t, err)
	assert.Equal(t, uint64(6_500_000), creator)

	all, err := ApplyBps(math.MaxUint64, BpsDenominator)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), all)
}
