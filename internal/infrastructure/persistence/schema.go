package persistence

import (
	"fmt"

	"github.com/farmtrack/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// PlacementModels lists every persistence model of the placement schema
func PlacementModels() []any {
	return []any{
		&models.TrackedEntityModel{},
		&models.ZoneModel{},
		&models.PlacementPeriodModel{},
		&models.LegacyMovementModel{},
		&models.LegacyEventModel{},
		&models.BreedingMembershipModel{},
		&models.PregnancyCheckModel{},
		&models.BirthRecordModel{},
	}
}

// AutoMigrate creates the placement schema from the models. Postgres deployments
// use the versioned SQL migrations instead; this serves the sqlite driver.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(PlacementModels()...); err != nil {
		return fmt.Errorf("failed to auto-migrate placement schema: %w", err)
	}
	return nil
}
