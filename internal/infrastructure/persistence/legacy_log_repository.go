package persistence

import (
	"context"

	"github.com/farmtrack/backend/internal/domain/placement"
	"github.com/farmtrack/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLegacyLogRepository implements placement.LegacyLogReader over the deprecated logs
type GormLegacyLogRepository struct {
	db *gorm.DB
}

// NewGormLegacyLogRepository creates a new GormLegacyLogRepository
func NewGormLegacyLogRepository(db *gorm.DB) *GormLegacyLogRepository {
	return &GormLegacyLogRepository{db: db}
}

// MovementsByEntity returns the movement log rows of an entity, oldest first
func (r *GormLegacyLogRepository) MovementsByEntity(ctx context.Context, entityID uuid.UUID) ([]placement.LegacyMovement, error) {
	var rows []models.LegacyMovementModel
	if err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("moved_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	movements := make([]placement.LegacyMovement, len(rows))
	for i := range rows {
		movements[i] = rows[i].ToDomain()
	}
	return movements, nil
}

// EventsByEntity returns the event log rows of an entity, oldest first
func (r *GormLegacyLogRepository) EventsByEntity(ctx context.Context, entityID uuid.UUID) ([]placement.LegacyEvent, error) {
	var rows []models.LegacyEventModel
	if err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("event_date ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	events := make([]placement.LegacyEvent, len(rows))
	for i := range rows {
		events[i] = rows[i].ToDomain()
	}
	return events, nil
}

var _ placement.LegacyLogReader = (*GormLegacyLogRepository)(nil)
