package models

import (
	"time"

	"gorm.io/datatypes"
)

// LedgerEvent is the append-only operation outbox. Rows are written inside
// the same transaction as the state change they describe, so autoincrement
// order is commit order. There is no update or delete path.
type LedgerEvent struct {
	ID  uint64 `gorm:"primaryKey;autoIncrement"`
	UID string `gorm:"type:varchar(36);not null;uniqueIndex"`

	Kind     string  `gorm:"type:varchar(40);not null;index"`
	Treasury string  `gorm:"type:varchar(64);index"`
	Strategy *string `gorm:"type:varchar(64);index"`
	Actor    string  `gorm:"type:varchar(64);index"`

	Payload datatypes.JSON `gorm:"type:jsonb;not null"`

	EmittedAt time.Time `gorm:"type:timestamptz;not null;index"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (LedgerEvent) TableName() string {
	return "ledger_events"
}
