package db

import (
	"fmt"

	"github.com/folioworks/portfolio-api/internal/models"
	"gorm.io/gorm"
)

// Migrate creates the tables owned by this service. Content tables are managed
// by the upstream schema and seeding scripts and are never migrated here.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errMigrate := conn.AutoMigrate(&models.ContactSubmission{}); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}
	return nil
}
