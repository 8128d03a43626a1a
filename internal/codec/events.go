// =============================
// File: internal/codec/events.go
// =============================
package codec

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	ubin "github.com/rovshanmuradov/launchpad/internal/utils/binary"
)

// Event names as they appear in the log.
const (
	NameTrade    = "TradeEvent"
	NameCreate   = "CreateEvent"
	NameComplete = "CompleteEvent"
	NameMigrate  = "MigrateEvent"
)

var (
	TradeDiscriminator    = EventDiscriminator(NameTrade)
	CreateDiscriminator   = EventDiscriminator(NameCreate)
	CompleteDiscriminator = EventDiscriminator(NameComplete)
	MigrateDiscriminator  = EventDiscriminator(NameMigrate)
)

const (
	// TradeEventSize is discriminator + mint + trader + isBuy + sol + token + fee.
	TradeEventSize = DiscriminatorSize + 32 + 32 + 1 + 8 + 8 + 8
	// tradeTrailerSize covers timestamp + virtual SOL + virtual token.
	tradeTrailerSize = 8 + 8 + 8
)

// Event is any record the program writes to the log.
type Event interface {
	EventName() string
	Encode() ([]byte, error)
}

// TradeEvent is written once per executed buy or sell. SolAmount is gross
// (before fees); Fee is the total fee charged.
type TradeEvent struct {
	Mint        solana.PublicKey
	Trader      solana.PublicKey
	IsBuy       bool
	SolAmount   uint64
	TokenAmount uint64
	Fee         uint64

	// Trailer. Older records stop after Fee and decode with these zeroed.
	Timestamp    int64
	VirtualSol   uint64
	VirtualToken uint64
}

// CreateEvent is written when a token and its curve are created.
type CreateEvent struct {
	Mint         solana.PublicKey
	BondingCurve solana.PublicKey
	Creator      solana.PublicKey
	Name         string
	Symbol       string
	URI          string
	Timestamp    int64
}

// CompleteEvent is written in the same commit as the trade that graduates a curve.
type CompleteEvent struct {
	Mint            solana.PublicKey
	BondingCurve    solana.PublicKey
	User            solana.PublicKey
	RealSolReserves uint64
	Timestamp       int64
}

// MigrateEvent is written when a graduated curve's liquidity leaves for the sink.
type MigrateEvent struct {
	Mint        solana.PublicKey
	SolAmount   uint64
	TokenAmount uint64
	Fee         uint64
	Timestamp   int64
}

func (TradeEvent) EventName() string    { return NameTrade }
func (CreateEvent) EventName() string   { return NameCreate }
func (CompleteEvent) EventName() string { return NameComplete }
func (MigrateEvent) EventName() string  { return NameMigrate }

func (e TradeEvent) Encode() ([]byte, error)    { return encode(TradeDiscriminator, e) }
func (e CreateEvent) Encode() ([]byte, error)   { return encode(CreateDiscriminator, e) }
func (e CompleteEvent) Encode() ([]byte, error) { return encode(CompleteDiscriminator, e) }
func (e MigrateEvent) Encode() ([]byte, error)  { return encode(MigrateDiscriminator, e) }

func encode(d Discriminator, v interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(d[:])
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode %s: %w", d, err)
	}
	return buf.Bytes(), nil
}

// DecodeTrade reads a TradeEvent. ok is false when data is not a TradeEvent
// or is shorter than the fixed layout.
func DecodeTrade(data []byte) (ev TradeEvent, ok bool) {
	if len(data) < TradeEventSize || !TradeDiscriminator.Matches(data) {
		return TradeEvent{}, false
	}
	r := ubin.NewReader(data, DiscriminatorSize)
	ev.Mint = r.PubKey()
	ev.Trader = r.PubKey()
	ev.IsBuy = r.Bool()
	ev.SolAmount = r.Uint64()
	ev.TokenAmount = r.Uint64()
	ev.Fee = r.Uint64()
	if r.Remaining() >= tradeTrailerSize {
		ev.Timestamp = r.Int64()
		ev.VirtualSol = r.Uint64()
		ev.VirtualToken = r.Uint64()
	}
	return ev, r.Err() == nil
}

// decodeBorsh checks d and Borsh-decodes the payload into v.
func decodeBorsh(d Discriminator, data []byte, v interface{}) bool {
	if !d.Matches(data) {
		return false
	}
	return bin.NewBorshDecoder(data[DiscriminatorSize:]).Decode(v) == nil
}

// Decode dispatches on the discriminator. Records of unknown type, short
// records and records that fail to decode all yield ok == false.
func Decode(data []byte) (Event, bool) {
	if len(data) < DiscriminatorSize {
		return nil, false
	}
	switch Discriminator(data[:DiscriminatorSize]) {
	case TradeDiscriminator:
		ev, ok := DecodeTrade(data)
		if !ok {
			return nil, false
		}
		return ev, true
	case CreateDiscriminator:
		var ev CreateEvent
		if !decodeBorsh(CreateDiscriminator, data, &ev) {
			return nil, false
		}
		return ev, true
	case CompleteDiscriminator:
		var ev CompleteEvent
		if !decodeBorsh(CompleteDiscriminator, data, &ev) {
			return nil, false
		}
		return ev, true
	case MigrateDiscriminator:
		var ev MigrateEvent
		if !decodeBorsh(MigrateDiscriminator, data, &ev) {
			return nil, false
		}
		return ev, true
	}
	return nil, false
}
