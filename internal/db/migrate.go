package db

import (
	"chronicle/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Event{},
		&models.WebhookLog{},
		&models.EventLink{},
		&models.EventVersion{},
		&models.SyncState{},
		&models.EventTemplate{},
		&models.Backup{},
	)
}
