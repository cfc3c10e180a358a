package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TreasuryStats is the per-treasury aggregate. Created lazily by the first
// strategy registration, then updated only inside the same transaction as
// the operation that changed it. Counters never go below zero.
type TreasuryStats struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Treasury          string `gorm:"type:varchar(64);not null;uniqueIndex"`
	TreasuryAuthority string `gorm:"type:varchar(64);not null;index"`

	TotalStableDeposited  decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	TotalStableWithdrawn  decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	TotalYieldGenerated   decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	CurrentPortfolioValue decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`

	StrategiesCount       int `gorm:"not null;default:0"`
	ActiveStrategiesCount int `gorm:"not null;default:0"`

	LastUpdatedAt time.Time `gorm:"type:timestamptz;not null"`
	Bump          uint8     `gorm:"not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (TreasuryStats) TableName() string {
	return "treasury_stats"
}
