// internal/storage/models/trade.go
package models

import "time"

// Trade is one archived buy or sell. Amounts are raw lamports and token
// base units.
type Trade struct {
	BaseModel
	EventID      string    `gorm:"uniqueIndex;not null;type:varchar(36)"`
	Mint         string    `gorm:"index:idx_trades_mint_time,priority:1;not null;type:varchar(44)"`
	Trader       string    `gorm:"index;not null;type:varchar(44)"`
	Referrer     string    `gorm:"type:varchar(44)"`
	Side         string    `gorm:"not null;type:varchar(4)"`
	SolAmount    uint64    `gorm:"type:numeric(20,0);not null"`
	TokenAmount  uint64    `gorm:"type:numeric(20,0);not null"`
	Fee          uint64    `gorm:"type:numeric(20,0);not null"`
	CreatorFee   uint64    `gorm:"type:numeric(20,0);not null"`
	ReferralFee  uint64    `gorm:"type:numeric(20,0);not null"`
	ProtocolFee  uint64    `gorm:"type:numeric(20,0);not null"`
	VirtualSol   uint64    `gorm:"type:numeric(20,0);not null"`
	VirtualToken uint64    `gorm:"type:numeric(20,0);not null"`
	ExecutedAt   time.Time `gorm:"index:idx_trades_mint_time,priority:2;not null"`
}
