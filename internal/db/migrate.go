package db

import (
	"github.com/nakatash/pokeca-search/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.CardSet{},
		&models.Card{},
		&models.Shop{},
		&models.CardPrice{},
		&models.PriceSnapshot{},
		&models.Ranking{},
		&models.CollectorRun{},
		&models.SystemSetting{},
	)
}
