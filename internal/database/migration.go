package database

import (
	"fmt"

	"github.com/aathi-11/university-voting-portal/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate runs schema migrations for subjects, ballots and the announcement.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Subject{},
		&models.Ballot{},
		&models.Announcement{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
