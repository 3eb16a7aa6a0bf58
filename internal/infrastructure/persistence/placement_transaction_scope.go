package persistence

import (
	"context"

	appplacement "github.com/farmtrack/backend/internal/application/placement"
	"github.com/farmtrack/backend/internal/domain/placement"
	"gorm.io/gorm"
)

// GormPlacementTransactionScope implements the placement TransactionScope using GORM transactions.
// A per-entity fix reads, locks and writes through the same transaction.
type GormPlacementTransactionScope struct {
	db *gorm.DB
}

// NewGormPlacementTransactionScope creates a new GormPlacementTransactionScope.
func NewGormPlacementTransactionScope(db *gorm.DB) *GormPlacementTransactionScope {
	return &GormPlacementTransactionScope{db: db}
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
func (s *GormPlacementTransactionScope) Execute(ctx context.Context, fn func(repos appplacement.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormPlacementRepositories{tx: tx})
	})
}

// gormPlacementRepositories provides the placement repositories bound to one transaction.
type gormPlacementRepositories struct {
	tx *gorm.DB
}

// EntityRepo returns the entity directory scoped to the current transaction.
func (r *gormPlacementRepositories) EntityRepo() placement.EntityDirectory {
	return NewGormTrackedEntityRepository(r.tx)
}

// ZoneRepo returns the zone directory scoped to the current transaction.
func (r *gormPlacementRepositories) ZoneRepo() placement.ZoneDirectory {
	return NewGormZoneRepository(r.tx)
}

// PeriodRepo returns the period ledger scoped to the current transaction.
func (r *gormPlacementRepositories) PeriodRepo() placement.PeriodRepository {
	return NewGormPlacementPeriodRepository(r.tx)
}

var (
	_ appplacement.TransactionScope          = (*GormPlacementTransactionScope)(nil)
	_ appplacement.TransactionalRepositories = (*gormPlacementRepositories)(nil)
)
