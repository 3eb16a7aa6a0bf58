package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/farmtrack/backend/internal/domain/placement"
	"github.com/farmtrack/backend/internal/domain/shared"
	"github.com/farmtrack/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTrackedEntityRepository implements placement.EntityDirectory using GORM
type GormTrackedEntityRepository struct {
	db *gorm.DB
}

// NewGormTrackedEntityRepository creates a new GormTrackedEntityRepository
func NewGormTrackedEntityRepository(db *gorm.DB) *GormTrackedEntityRepository {
	return &GormTrackedEntityRepository{db: db}
}

// FindByID finds an entity by its ID
func (r *GormTrackedEntityRepository) FindByID(ctx context.Context, id uuid.UUID) (*placement.TrackedEntity, error) {
	var model models.TrackedEntityModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds multiple entities by their IDs
func (r *GormTrackedEntityRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]placement.TrackedEntity, error) {
	if len(ids) == 0 {
		return []placement.TrackedEntity{}, nil
	}
	var rows []models.TrackedEntityModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	entities := make([]placement.TrackedEntity, len(rows))
	for i := range rows {
		entities[i] = *rows[i].ToDomain()
	}
	return entities, nil
}

// Save creates or updates an entity
func (r *GormTrackedEntityRepository) Save(ctx context.Context, entity *placement.TrackedEntity) error {
	model := models.TrackedEntityModelFromDomain(entity)
	if model.Version < 1 {
		model.Version = 1
	}
	return r.db.WithContext(ctx).Save(model).Error
}

// UpdateMirror writes current_zone_id guarded by the entity version, bumping the version on success
func (r *GormTrackedEntityRepository) UpdateMirror(ctx context.Context, id uuid.UUID, zoneID *uuid.UUID, expectedVersion int) error {
	result := r.db.WithContext(ctx).
		Model(&models.TrackedEntityModel{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]any{
			"current_zone_id": zoneID,
			"version":         gorm.Expr("version + 1"),
			"updated_at":      time.Now().UTC().Truncate(time.Second),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.TrackedEntityModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return shared.ErrNotFound
	}
	return placement.ErrConcurrentMutation
}

// GormZoneRepository implements placement.ZoneDirectory using GORM
type GormZoneRepository struct {
	db *gorm.DB
}

// NewGormZoneRepository creates a new GormZoneRepository
func NewGormZoneRepository(db *gorm.DB) *GormZoneRepository {
	return &GormZoneRepository{db: db}
}

// FindByID finds a zone by its ID
func (r *GormZoneRepository) FindByID(ctx context.Context, id uuid.UUID) (*placement.Zone, error) {
	var model models.ZoneModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds the zones that still exist among ids
func (r *GormZoneRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]placement.Zone, error) {
	if len(ids) == 0 {
		return []placement.Zone{}, nil
	}
	var rows []models.ZoneModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	zones := make([]placement.Zone, len(rows))
	for i := range rows {
		zones[i] = *rows[i].ToDomain()
	}
	return zones, nil
}

// Save creates or updates a zone
func (r *GormZoneRepository) Save(ctx context.Context, zone *placement.Zone) error {
	return r.db.WithContext(ctx).Save(models.ZoneModelFromDomain(zone)).Error
}

// GormPlacementPeriodRepository implements placement.PeriodRepository using GORM
type GormPlacementPeriodRepository struct {
	db *gorm.DB
}

// NewGormPlacementPeriodRepository creates a new GormPlacementPeriodRepository
func NewGormPlacementPeriodRepository(db *gorm.DB) *GormPlacementPeriodRepository {
	return &GormPlacementPeriodRepository{db: db}
}

// FindByID finds a period by its ID
func (r *GormPlacementPeriodRepository) FindByID(ctx context.Context, id uuid.UUID) (*placement.PlacementPeriod, error) {
	var model models.PlacementPeriodModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByEntity returns every period of an entity ordered by start date
func (r *GormPlacementPeriodRepository) FindByEntity(ctx context.Context, entityID uuid.UUID) ([]placement.PlacementPeriod, error) {
	var rows []models.PlacementPeriodModel
	if err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("start_date ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainPeriods(rows), nil
}

// FindOpenByEntity returns the open periods of an entity, locking them on postgres when forUpdate is set
func (r *GormPlacementPeriodRepository) FindOpenByEntity(ctx context.Context, entityID uuid.UUID, forUpdate bool) ([]placement.PlacementPeriod, error) {
	query := r.db.WithContext(ctx).
		Where("entity_id = ? AND end_date IS NULL", entityID).
		Order("start_date ASC, id ASC")
	if forUpdate && lockingSupported(r.db) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var rows []models.PlacementPeriodModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainPeriods(rows), nil
}

// FindByZones returns every period held in any of the zones
func (r *GormPlacementPeriodRepository) FindByZones(ctx context.Context, zoneIDs []uuid.UUID) ([]placement.PlacementPeriod, error) {
	if len(zoneIDs) == 0 {
		return []placement.PlacementPeriod{}, nil
	}
	var rows []models.PlacementPeriodModel
	if err := r.db.WithContext(ctx).
		Where("zone_id IN ?", zoneIDs).
		Order("start_date ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainPeriods(rows), nil
}

// FindAll lists periods matching the filter with the total match count
func (r *GormPlacementPeriodRepository) FindAll(ctx context.Context, filter placement.PeriodFilter) ([]placement.PlacementPeriod, int64, error) {
	var total int64
	if err := applyPeriodFilter(r.db.WithContext(ctx).Model(&models.PlacementPeriodModel{}), filter).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := applyPeriodFilter(r.db.WithContext(ctx), filter).Order(periodOrder(filter.Filter))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.PlacementPeriodModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toDomainPeriods(rows), total, nil
}

// periodSortColumns whitelists the columns a period listing may be sorted by
var periodSortColumns = map[string]bool{
	"start_date":    true,
	"end_date":      true,
	"created_at":    true,
	"updated_at":    true,
	"function_type": true,
}

// periodOrder builds the ORDER BY for a listing. Unknown columns fall back to
// start_date, anything but "asc" sorts descending, and id breaks ties.
func periodOrder(filter shared.Filter) clause.OrderBy {
	column := strings.TrimSpace(filter.OrderBy)
	if !periodSortColumns[column] {
		column = "start_date"
	}
	desc := !strings.EqualFold(strings.TrimSpace(filter.OrderDir), "asc")
	return clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: column}, Desc: desc},
		{Column: clause.Column{Name: "id"}},
	}}
}

func applyPeriodFilter(query *gorm.DB, filter placement.PeriodFilter) *gorm.DB {
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}
	if filter.ZoneID != nil {
		query = query.Where("zone_id = ?", *filter.ZoneID)
	}
	if filter.Open != nil {
		if *filter.Open {
			query = query.Where("end_date IS NULL")
		} else {
			query = query.Where("end_date IS NOT NULL")
		}
	}
	return query
}

// Save creates or updates a period
func (r *GormPlacementPeriodRepository) Save(ctx context.Context, period *placement.PlacementPeriod) error {
	return r.db.WithContext(ctx).Save(models.PlacementPeriodModelFromDomain(period)).Error
}

// Delete deletes a period
func (r *GormPlacementPeriodRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PlacementPeriodModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func toDomainPeriods(rows []models.PlacementPeriodModel) []placement.PlacementPeriod {
	periods := make([]placement.PlacementPeriod, len(rows))
	for i := range rows {
		periods[i] = *rows[i].ToDomain()
	}
	return periods
}

// Ensure the repositories implement the domain interfaces
var (
	_ placement.EntityDirectory  = (*GormTrackedEntityRepository)(nil)
	_ placement.ZoneDirectory    = (*GormZoneRepository)(nil)
	_ placement.PeriodRepository = (*GormPlacementPeriodRepository)(nil)
)
