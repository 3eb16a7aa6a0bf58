package placement

import (
	"context"

	"github.com/farmtrack/backend/internal/domain/placement"
)

// TransactionScope provides transactional access to the placement repositories.
// Every repository handed to fn shares one database transaction that is committed
// when fn returns nil and rolled back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories are the repositories a per-entity fix may touch.
//   - EntityRepo: mirror writes, guarded by the entity version.
//   - PeriodRepo: ledger reads (row-locked where supported) and writes.
//   - ZoneRepo: existence checks for referenced zones.
type TransactionalRepositories interface {
	EntityRepo() placement.EntityDirectory
	ZoneRepo() placement.ZoneDirectory
	PeriodRepo() placement.PeriodRepository
}

// NoOpTransactionScope runs fn against plain repositories without a transaction.
// Useful for tests.
type NoOpTransactionScope struct {
	entities placement.EntityDirectory
	zones    placement.ZoneDirectory
	periods  placement.PeriodRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	entities placement.EntityDirectory,
	zones placement.ZoneDirectory,
	periods placement.PeriodRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		entities: entities,
		zones:    zones,
		periods:  periods,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// EntityRepo returns the entity directory.
func (s *NoOpTransactionScope) EntityRepo() placement.EntityDirectory {
	return s.entities
}

// ZoneRepo returns the zone directory.
func (s *NoOpTransactionScope) ZoneRepo() placement.ZoneDirectory {
	return s.zones
}

// PeriodRepo returns the period ledger.
func (s *NoOpTransactionScope) PeriodRepo() placement.PeriodRepository {
	return s.periods
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
