package codec

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ubin "github.com/rovshanmuradov/launchpad/internal/utils/binary"
)

func TestEventDiscriminator(t *testing.T) {
	sum := sha256.Sum256([]byte("event:TradeEvent"))
	assert.Equal(t, sum[:8], TradeDiscriminator[:])

	all := map[Discriminator]string{}
	for _, name := range []string{NameTrade, NameCreate, NameComplete, NameMigrate} {
		d := EventDiscriminator(name)
		_, dup := all[d]
		assert.False(t, dup, name)
		all[d] = name
	}
	assert.NotEqual(t, AccountDiscriminator("TradeEvent"), TradeDiscriminator)
}

func TestTradeEvent_FixedLayout(t *testing.T) {
	ev := TradeEvent{
		Mint:         solana.NewWallet().PublicKey(),
		Trader:       solana.NewWallet().PublicKey(),
		IsBuy:        true,
		SolAmount:    1_000_000_000,
		TokenAmount:  34_277_831_558_567,
		Fee:          10_000_000,
		Timestamp:    1_700_000_000,
		VirtualSol:   30_990_000_000,
		VirtualToken: 1_038_722_168_441_433,
	}
	data, err := ev.Encode()
	require.NoError(t, err)
	require.Len(t, data, TradeEventSize+tradeTrailerSize)

	assert.Equal(t, TradeDiscriminator[:], data[:8])
	assert.Equal(t, ev.Mint[:], data[8:40])
	assert.Equal(t, ev.Trader[:], data[40:72])
	assert.Equal(t, byte(1), data[72])
	amounts := ubin.NewReader(data, 73)
	assert.Equal(t, ev.SolAmount, amounts.Uint64())
	assert.Equal(t, ev.TokenAmount, amounts.Uint64())
	assert.Equal(t, ev.Fee, amounts.Uint64())
	require.NoError(t, amounts.Err())

	got, ok := Decode(data)
	require.True(t, ok)
	assert.Equal(t, ev, got)
}

func TestDecodeTrade_WithoutTrailer(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	data := make([]byte, TradeEventSize)
	copy(data, TradeDiscriminator[:])
	copy(data[8:], mint[:])
	data[72] = 0
	binary.LittleEndian.PutUint64(data[73:], 5)
	binary.LittleEndian.PutUint64(data[81:], 7)
	binary.LittleEndian.PutUint64(data[89:], 1)

	ev, ok := DecodeTrade(data)
	require.True(t, ok)
	assert.Equal(t, mint, ev.Mint)
	assert.False(t, ev.IsBuy)
	assert.Equal(t, uint64(5), ev.SolAmount)
	assert.Equal(t, uint64(7), ev.TokenAmount)
	assert.Equal(t, uint64(1), ev.Fee)
	assert.Zero(t, ev.Timestamp)
}

func TestDecode_SkipsForeignAndShortRecords(t *testing.T) {
	full, err := TradeEvent{SolAmount: 1}.Encode()
	require.NoError(t, err)

	cases := map[string][]byte{
		"empty":          nil,
		"short":          {1, 2, 3},
		"truncated":      full[:TradeEventSize-1],
		"unknown":        append(NewDiscriminator("event", "SomethingElse").bytes(), make([]byte, 128)...),
		"bad create":     append(CreateDiscriminator.bytes(), 1, 2),
		"trade tag only": TradeDiscriminator.bytes(),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			ev, ok := Decode(data)
			assert.False(t, ok)
			assert.Nil(t, ev)
		})
	}
}

func TestDecode_OtherVariants(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	events := []Event{
		CreateEvent{
			Mint:         mint,
			BondingCurve: solana.NewWallet().PublicKey(),
			Creator:      solana.NewWallet().PublicKey(),
			Name:         "Doge Classic",
			Symbol:       "DOGEC",
			URI:          "https://example.org/dogec.json",
			Timestamp:    42,
		},
		CompleteEvent{Mint: mint, RealSolReserves: 85_000_000_000, Timestamp: 43},
		MigrateEvent{Mint: mint, SolAmount: 84_500_000_000, TokenAmount: 206_900_000_000_000, Fee: 500_000_000, Timestamp: 44},
	}
	for _, ev := range events {
		data, err := ev.Encode()
		require.NoError(t, err)
		got, ok := Decode(data)
		require.True(t, ok, ev.EventName())
		assert.Equal(t, ev, got)
		assert.Equal(t, ev.EventName(), got.EventName())
	}
}

func TestParseLogLine(t *testing.T) {
	data, err := TradeEvent{IsBuy: true, SolAmount: 9}.Encode()
	require.NoError(t, err)

	lines := []string{
		"Program GzXpRdSJRrd9qqbigtawUFAqjf39inX5Zju7sZDSpdJx invoke [1]",
		FormatLogLine(data),
		"Program data: !!!not-base64",
		FormatLogLine([]byte("garbage record")),
		"Program log: Instruction: Buy",
	}

	raw, ok := ParseLogLine(lines[1])
	require.True(t, ok)
	assert.Equal(t, data, raw)

	_, ok = ParseLogLine(lines[2])
	assert.False(t, ok)

	evs := DecodeLogs(lines)
	require.Len(t, evs, 1)
	trade, ok := evs[0].(TradeEvent)
	require.True(t, ok)
	assert.Equal(t, uint64(9), trade.SolAmount)
}

func (d Discriminator) bytes() []byte { return append([]byte(nil), d[:]...) }
