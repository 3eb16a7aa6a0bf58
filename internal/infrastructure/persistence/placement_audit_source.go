package persistence

import (
	"context"

	"github.com/farmtrack/backend/internal/domain/placement"
	"github.com/farmtrack/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// openPlacementColumns selects one row per (entity, open period) pair; entities
// without an open period still yield a single row with NULL period columns.
const openPlacementColumns = `e.id AS entity_id,
	e.tag AS tag,
	e.status AS status,
	e.version AS entity_version,
	e.current_zone_id AS mirror_zone_id,
	(mz.id IS NOT NULL) AS mirror_zone_exists,
	p.id AS period_id,
	p.zone_id AS period_zone_id,
	(pz.id IS NOT NULL) AS period_zone_exists,
	p.start_date AS period_start`

// GormPlacementAuditSource implements placement.AuditSource with one LEFT JOIN scan
type GormPlacementAuditSource struct {
	db *gorm.DB
}

// NewGormPlacementAuditSource creates a new GormPlacementAuditSource
func NewGormPlacementAuditSource(db *gorm.DB) *GormPlacementAuditSource {
	return &GormPlacementAuditSource{db: db}
}

// ScanOpenPlacements returns the entity-to-open-period join with zone existence flags
func (s *GormPlacementAuditSource) ScanOpenPlacements(ctx context.Context, activeOnly bool) ([]placement.OpenPlacementRow, error) {
	query := s.db.WithContext(ctx).
		Table("tracked_entities AS e").
		Select(openPlacementColumns).
		Joins("LEFT JOIN placement_periods AS p ON p.entity_id = e.id AND p.end_date IS NULL").
		Joins("LEFT JOIN zones AS mz ON mz.id = e.current_zone_id").
		Joins("LEFT JOIN zones AS pz ON pz.id = p.zone_id")
	if activeOnly {
		query = query.Where("e.status = ?", string(placement.LifecycleActive))
	}

	var rows []models.OpenPlacementScanRow
	if err := query.Order("e.id ASC, p.start_date ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]placement.OpenPlacementRow, len(rows))
	for i := range rows {
		result[i] = rows[i].ToDomain()
	}
	return result, nil
}

var _ placement.AuditSource = (*GormPlacementAuditSource)(nil)
