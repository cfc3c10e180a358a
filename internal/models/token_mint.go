package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenMint is one currency in the in-house token ledger. Authority is the
// only address allowed to mint; supply tracks mints minus burns.
type TokenMint struct {
	Address string `gorm:"type:varchar(64);primaryKey"`
	Symbol  string `gorm:"type:varchar(16);not null;uniqueIndex"`

	Authority string `gorm:"type:varchar(64);not null;index"`

	Supply   decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	Decimals int             `gorm:"not null;default:6"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (TokenMint) TableName() string {
	return "token_mints"
}
