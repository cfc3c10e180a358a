package models

import "time"

// ConfigID pins the singleton row.
const ConfigID = 1

// Config is the swap configuration created once by system initialize.
type Config struct {
	ID uint64 `gorm:"primaryKey"`

	StableMint    string `gorm:"type:varchar(64);not null"`
	SyntheticMint string `gorm:"type:varchar(64);not null"`

	Treasury             string `gorm:"type:varchar(64);not null;uniqueIndex"`
	TreasuryTokenAccount string `gorm:"type:varchar(64);not null"`
	MintAuthority        string `gorm:"type:varchar(64);not null"`

	TreasuryBump      uint8 `gorm:"not null"`
	MintAuthorityBump uint8 `gorm:"not null"`

	Admin string `gorm:"type:varchar(64);not null;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Config) TableName() string {
	return "config"
}
