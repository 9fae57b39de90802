package database

import (
	"gorm.io/gorm"

	"github.com/foodbridge/foodbridge/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.Claim{},
		&models.Trade{},
		&models.TradeMessage{},
		&models.VolunteerTask{},
		&models.Notification{},
	)
}
