package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TreasurySnapshot is a periodic roll-up of TreasuryStats plus the custody
// account balance at capture time.
type TreasurySnapshot struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	Treasury   string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_treasury_snapshot_at"`
	SnapshotAt time.Time `gorm:"type:timestamptz;not null;uniqueIndex:idx_treasury_snapshot_at"`

	PortfolioValue decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	TotalYield     decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	TotalDeposited decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	TotalWithdrawn decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	CustodyBalance decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	StrategiesCount       int `gorm:"not null"`
	ActiveStrategiesCount int `gorm:"not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (TreasurySnapshot) TableName() string {
	return "treasury_snapshots"
}
