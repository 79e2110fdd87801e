package db

import (
	"fmt"

	"github.com/ogurtsov/gorodok/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Ad{},
		&models.Find{},
		&models.Comment{},
		&models.User{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// Reset drops all tables and recreates them empty.
func Reset(db *gorm.DB) error {
	for _, m := range AllModels() {
		if err := db.Migrator().DropTable(m); err != nil {
			return fmt.Errorf("db: drop table: %w", err)
		}
	}
	return AutoMigrate(db)
}
