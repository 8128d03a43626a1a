// internal/events/types.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// EventType represents the type of event.
type EventType string

const (
	// Launch events
	TokenCreated EventType = "token.created"

	// Trading events
	TradeExecuted  EventType = "trade.executed"
	CurveCompleted EventType = "curve.completed"
	CurveMigrated  EventType = "curve.migrated"

	// Admin events
	ConfigUpdated EventType = "config.updated"
	FeesWithdrawn EventType = "fees.withdrawn"

	// Referral events
	ReferralRegistered EventType = "referral.registered"
	ReferralClaimed    EventType = "referral.claimed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
	ID() uuid.UUID
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventID   uuid.UUID
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// ID returns the unique event id.
func (e BaseEvent) ID() uuid.UUID {
	return e.EventID
}

// NewBase stamps an event of type t at time at with a fresh id.
func NewBase(t EventType, at time.Time) BaseEvent {
	return BaseEvent{EventID: uuid.New(), EventType: t, EventTime: at}
}

// TokenCreatedEvent is published after a token and its curve are committed.
type TokenCreatedEvent struct {
	BaseEvent
	Mint         solana.PublicKey
	BondingCurve solana.PublicKey
	Creator      solana.PublicKey
	Name         string
	Symbol       string
	URI          string
}

// TradeExecutedEvent is published after a buy or sell commits.
type TradeExecutedEvent struct {
	BaseEvent
	Mint        solana.PublicKey
	Trader      solana.PublicKey
	Referrer    solana.PublicKey // zero when no referral was cited
	IsBuy       bool
	SolAmount   uint64 // gross, before fees
	TokenAmount uint64
	Fee         uint64
	CreatorFee  uint64
	ReferralFee uint64
	ProtocolFee uint64

	VirtualSol      uint64
	VirtualToken    uint64
	RealSolReserves uint64
}

// CurveCompletedEvent is published when a trade pushes a curve past the
// graduation threshold.
type CurveCompletedEvent struct {
	BaseEvent
	Mint            solana.PublicKey
	BondingCurve    solana.PublicKey
	User            solana.PublicKey
	RealSolReserves uint64
}

// CurveMigratedEvent is published after a graduated curve is settled into
// the sink.
type CurveMigratedEvent struct {
	BaseEvent
	Mint        solana.PublicKey
	Destination solana.PublicKey
	SolAmount   uint64
	TokenAmount uint64
	Fee         uint64
}

// ConfigUpdatedEvent is published after initialize or updateConfig.
type ConfigUpdatedEvent struct {
	BaseEvent
	Authority solana.PublicKey
	Fields    []string
}

// FeesWithdrawnEvent is published after the protocol fee vault is emptied.
type FeesWithdrawnEvent struct {
	BaseEvent
	Receiver solana.PublicKey
	Amount   uint64
}

// ReferralRegisteredEvent is published when a referrer opens an account.
type ReferralRegisteredEvent struct {
	BaseEvent
	Referrer solana.PublicKey
}

// ReferralClaimedEvent is published after a referrer claims accrued fees.
type ReferralClaimedEvent struct {
	BaseEvent
	Referrer solana.PublicKey
	Amount   uint64
}
