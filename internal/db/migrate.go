package db

import (
	"fmt"

	"github.com/deskpilot/deskpilot/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the roster tables.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errMigrate := conn.AutoMigrate(&models.User{}); errMigrate != nil {
		return fmt.Errorf("db: migrate users: %w", errMigrate)
	}
	return nil
}
