package persistence

import (
	"context"
	"time"

	"github.com/farmtrack/backend/internal/domain/placement"
	"github.com/farmtrack/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormEnrichmentRepository implements placement.EnrichmentSource over the breeding
// and pregnancy-check tables. Date bounds are bound in UTC so the comparison reads
// the same on postgres timestamps and sqlite's text-encoded times.
type GormEnrichmentRepository struct {
	db *gorm.DB
}

// NewGormEnrichmentRepository creates a new GormEnrichmentRepository
func NewGormEnrichmentRepository(db *gorm.DB) *GormEnrichmentRepository {
	return &GormEnrichmentRepository{db: db}
}

// BreedingMemberships returns memberships of the entity active anywhere in [from, to).
// A window whose end is not after from selects memberships holding at from.
func (r *GormEnrichmentRepository) BreedingMemberships(ctx context.Context, entityID uuid.UUID, from time.Time, to *time.Time) ([]placement.BreedingMembership, error) {
	from = from.UTC()
	query := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Where("end_date IS NULL OR end_date > ?", from)
	if to != nil && to.After(from) {
		query = query.Where("start_date < ?", to.UTC())
	} else if to != nil {
		query = query.Where("start_date <= ?", from)
	}

	var rows []models.BreedingMembershipModel
	if err := query.Order("start_date ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]placement.BreedingMembership, len(rows))
	for i := range rows {
		result[i] = rows[i].ToDomain()
	}
	return result, nil
}

// PregnancyChecks returns checks of the entity dated in [from, to)
func (r *GormEnrichmentRepository) PregnancyChecks(ctx context.Context, entityID uuid.UUID, from time.Time, to *time.Time) ([]placement.PregnancyCheck, error) {
	query := r.db.WithContext(ctx).
		Where("entity_id = ? AND check_date >= ?", entityID, from.UTC())
	if to != nil {
		query = query.Where("check_date < ?", to.UTC())
	}

	var rows []models.PregnancyCheckModel
	if err := query.Order("check_date ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]placement.PregnancyCheck, len(rows))
	for i := range rows {
		result[i] = rows[i].ToDomain()
	}
	return result, nil
}

// BirthRecords returns every birth record of the entity
func (r *GormEnrichmentRepository) BirthRecords(ctx context.Context, entityID uuid.UUID) ([]placement.BirthRecord, error) {
	var rows []models.BirthRecordModel
	if err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("birth_date ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]placement.BirthRecord, len(rows))
	for i := range rows {
		result[i] = rows[i].ToDomain()
	}
	return result, nil
}

var _ placement.EnrichmentSource = (*GormEnrichmentRepository)(nil)
