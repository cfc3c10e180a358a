package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenAccount holds one owner's balance in one mint.
type TokenAccount struct {
	Address string `gorm:"type:varchar(64);primaryKey"`
	Mint    string `gorm:"type:varchar(64);not null;index"`
	Owner   string `gorm:"type:varchar(64);not null;index"`

	Balance decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	Frozen  bool            `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (TokenAccount) TableName() string {
	return "token_accounts"
}
