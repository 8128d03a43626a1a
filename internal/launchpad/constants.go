// internal/launchpad/constants.go
package launchpad

import "github.com/gagliardetto/solana-go"

var (
	// ProgramID is the default program identity all addresses derive from.
	ProgramID = solana.MustPublicKeyFromBase58("GzXpRdSJRrd9qqbigtawUFAqjf39inX5Zju7sZDSpdJx")
	// TokenMetadataProgramID owns token metadata records.
	TokenMetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
)

// Address seeds
const (
	GlobalSeed       = "global"
	BondingCurveSeed = "bonding-curve"
	FeeVaultSeed     = "fee-vault"
	ReferralSeed     = "referral"
	MetadataSeed     = "metadata"
)

// Unit helpers
const (
	LamportsPerSol      uint64 = 1_000_000_000
	DefaultDecimals     uint8  = 6
	TokenDecimalsFactor uint64 = 1_000_000
)

// Curve defaults
const (
	DefaultVirtualSol    = 30 * LamportsPerSol
	DefaultVirtualTokens = 1_073_000_000 * TokenDecimalsFactor
	DefaultRealTokens    = 793_100_000 * TokenDecimalsFactor
	DefaultTokenSupply   = 1_000_000_000 * TokenDecimalsFactor

	DefaultTradeFeeBps      uint16 = 100   // 1%
	DefaultCreatorShareBps  uint16 = 6_500 // 65% of the fee
	DefaultReferralShareBps uint16 = 1_000 // 10% of what is left after the creator

	DefaultGraduationThreshold = 85 * LamportsPerSol
	MigrationFee               = LamportsPerSol / 2
)

// Metadata limits
const (
	MaxNameLen   = 32
	MaxSymbolLen = 10
	MaxURILen    = 200
)

// Defaults seed a freshly initialised GlobalConfig.
type Defaults struct {
	InitialVirtualSol   uint64
	InitialVirtualToken uint64
	InitialRealToken    uint64
	TokenTotalSupply    uint64
	TokenDecimals       uint8
	TradeFeeBps         uint16
	CreatorShareBps     uint16
	ReferralShareBps    uint16
	GraduationThreshold uint64
	MigrationFee        uint64
}

// DefaultParams returns the stock protocol parameters.
func DefaultParams() Defaults {
	return Defaults{
		InitialVirtualSol:   DefaultVirtualSol,
		InitialVirtualToken: DefaultVirtualTokens,
		InitialRealToken:    DefaultRealTokens,
		TokenTotalSupply:    DefaultTokenSupply,
		TokenDecimals:       DefaultDecimals,
		TradeFeeBps:         DefaultTradeFeeBps,
		CreatorShareBps:     DefaultCreatorShareBps,
		ReferralShareBps:    DefaultReferralShareBps,
		GraduationThreshold: DefaultGraduationThreshold,
		MigrationFee:        MigrationFee,
	}
}
