// internal/storage/models/launch.go
package models

import "time"

// Launch records a token creation and the later lifecycle of its curve.
type Launch struct {
	BaseModel
	Mint         string `gorm:"unique;not null;type:varchar(44)"`
	BondingCurve string `gorm:"not null;type:varchar(44)"`
	Creator      string `gorm:"index;not null;type:varchar(44)"`
	Name         string `gorm:"not null;type:varchar(32)"`
	Symbol       string `gorm:"not null;type:varchar(10)"`
	URI          string `gorm:"type:varchar(200)"`

	RealSolReserves uint64 `gorm:"type:numeric(20,0);default:0"`
	TradeCount      int64  `gorm:"default:0"`
	LaunchedAt      time.Time
	CompletedAt     *time.Time
	MigratedAt      *time.Time
}
