package db

import (
	"github.com/chappie1998/jetson/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Config{},
		&models.Strategy{},
		&models.TreasuryStats{},
		&models.LedgerEvent{},
		&models.TokenMint{},
		&models.TokenAccount{},
		&models.TreasurySnapshot{},
		&models.SystemSetting{},
	)
}
