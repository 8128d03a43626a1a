// =============================
// File: internal/launchpad/types.go
// =============================
package launchpad

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// ProgramStatus gates which operations the protocol accepts.
type ProgramStatus uint8

const (
	// StatusRunning accepts every operation.
	StatusRunning ProgramStatus = iota
	// StatusSwapOnly rejects token creation; trading continues.
	StatusSwapOnly
	// StatusPaused rejects trading and creation.
	StatusPaused
)

func (s ProgramStatus) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusSwapOnly:
		return "swap_only"
	case StatusPaused:
		return "paused"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// ParseProgramStatus accepts the String form, case-insensitively.
func ParseProgramStatus(s string) (ProgramStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "running":
		return StatusRunning, nil
	case "swap_only", "swaponly":
		return StatusSwapOnly, nil
	case "paused":
		return StatusPaused, nil
	}
	return 0, fmt.Errorf("%w: unknown status %q", ErrInvalidConfig, s)
}

func (s ProgramStatus) valid() bool { return s <= StatusPaused }

// GlobalConfig is the protocol-wide singleton.
type GlobalConfig struct {
	Authority           solana.PublicKey
	FeeReceiver         solana.PublicKey
	InitialVirtualSol   uint64
	InitialVirtualToken uint64
	InitialRealToken    uint64
	TokenTotalSupply    uint64
	TokenDecimals       uint8
	TradeFeeBps         uint16
	CreatorShareBps     uint16
	ReferralShareBps    uint16
	GraduationThreshold uint64
	Status              ProgramStatus
	Bump                uint8
}

// BondingCurve is the per-token reserve state.
type BondingCurve struct {
	Mint             solana.PublicKey
	Creator          solana.PublicKey
	VirtualSol       uint64
	VirtualToken     uint64
	RealToken        uint64
	RealSolReserves  uint64
	TokenTotalSupply uint64
	StartTime        int64
	Completed        bool
	Migrated         bool
	Bump             uint8
}

// Referral accrues fee shares for one referrer. TotalEarned only grows;
// Claimable is what the next claim pays out.
type Referral struct {
	Referrer     solana.PublicKey
	TotalEarned  uint64
	TradeCount   uint64
	Claimable    uint64
	TotalClaimed uint64
	Bump         uint8
}

// TokenMetadata describes a launched token.
type TokenMetadata struct {
	Mint     solana.PublicKey
	Creator  solana.PublicKey
	Name     string
	Symbol   string
	URI      string
	Decimals uint8
}

// ConfigPatch is a sparse update: nil fields keep their current value.
type ConfigPatch struct {
	FeeReceiver         *solana.PublicKey
	InitialVirtualSol   *uint64
	InitialVirtualToken *uint64
	InitialRealToken    *uint64
	TokenTotalSupply    *uint64
	TradeFeeBps         *uint16
	CreatorShareBps     *uint16
	ReferralShareBps    *uint16
	GraduationThreshold *uint64
	Status              *ProgramStatus
}

// CreateTokenParams describes a token launch. A zero Mint is replaced with a
// freshly generated key.
type CreateTokenParams struct {
	Mint    solana.PublicKey
	Creator solana.PublicKey
	Name    string
	Symbol  string
	URI     string
}

// BuyParams describes a buy. Referrer is the referrer's wallet, or zero.
type BuyParams struct {
	Mint         solana.PublicKey
	Buyer        solana.PublicKey
	SolAmount    uint64
	MinTokensOut uint64
	Referrer     solana.PublicKey
}

// SellParams describes a sell. Referrer is the referrer's wallet, or zero.
type SellParams struct {
	Mint        solana.PublicKey
	Seller      solana.PublicKey
	TokenAmount uint64
	MinSolOut   uint64
	Referrer    solana.PublicKey
}

// TradeResult reports a committed trade.
type TradeResult struct {
	Mint        solana.PublicKey
	Trader      solana.PublicKey
	IsBuy       bool
	SolAmount   uint64 // gross: paid in on a buy, curve payout before fees on a sell
	TokenAmount uint64
	Fees        FeeSplit
	Curve       BondingCurve // state after the trade
	Completed   bool         // this trade graduated the curve
}

// NetSol is what the trader paid into the curve (buy) or received (sell).
func (r *TradeResult) NetSol() uint64 {
	return r.SolAmount - r.Fees.Total
}
