package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/chappie1998/jetson/internal/ledger"
)

// Strategy is one registered delta-neutral strategy and its lifecycle state.
// Address is derived from (treasury, seed), so the pair is unique per treasury.
type Strategy struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Address string `gorm:"type:varchar(64);not null;uniqueIndex"`
	Seed    string `gorm:"type:varchar(32);not null"`

	Authority string               `gorm:"type:varchar(64);not null;index"`
	Type      ledger.StrategyType  `gorm:"type:varchar(30);not null;index"`
	State     ledger.StrategyState `gorm:"type:varchar(20);not null;index"`

	AllocationPct int   `gorm:"not null;default:0"`
	TargetAPYBps  int64 `gorm:"column:target_apy_bps;not null"`
	CurrentAPYBps int64 `gorm:"column:current_apy_bps;not null;default:0"`
	RiskScore     int   `gorm:"not null;default:0"`

	Treasury             string `gorm:"type:varchar(64);not null;index"`
	TreasuryTokenAccount string `gorm:"type:varchar(64);not null"`

	// JSON array of venue account addresses, at most five.
	TokenAccounts datatypes.JSON `gorm:"type:jsonb"`

	DataVersion int            `gorm:"not null;default:1"`
	Data        datatypes.JSON `gorm:"type:jsonb"`

	LastRebalanceAt *time.Time `gorm:"type:timestamptz"`
	Bump            uint8      `gorm:"not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Strategy) TableName() string {
	return "strategies"
}
