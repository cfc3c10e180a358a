package models

import (
	"time"

	"gorm.io/datatypes"
)

// SystemSetting is one operator-controlled switch, keyed like
// "feature.swaps". Flipping a switch takes effect on the next request
// without a redeploy.
type SystemSetting struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Key string `gorm:"type:varchar(80);not null;uniqueIndex"`

	// JSON so a switch can later grow from a bare bool into an object
	// without a migration.
	Value datatypes.JSON `gorm:"type:jsonb;not null"`

	Description string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;autoUpdateTime;index"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}
