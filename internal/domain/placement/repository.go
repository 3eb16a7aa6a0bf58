package placement

import (
	"context"
	"time"

	"github.com/farmtrack/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// EntityDirectory reads entities and writes only their mirror field
type EntityDirectory interface {
	// FindByID finds an entity by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*TrackedEntity, error)

	// FindByIDs finds multiple entities by their IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]TrackedEntity, error)

	// Save creates or updates an entity
	Save(ctx context.Context, entity *TrackedEntity) error

	// UpdateMirror overwrites current_zone_ref if the stored version still equals
	// expectedVersion. It returns ErrConcurrentMutation when the version moved.
	UpdateMirror(ctx context.Context, id uuid.UUID, zoneID *uuid.UUID, expectedVersion int) error
}

// ZoneDirectory reads zones
type ZoneDirectory interface {
	// FindByID finds a zone by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Zone, error)

	// FindByIDs finds the zones that still exist among ids
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Zone, error)

	// Save creates or updates a zone
	Save(ctx context.Context, zone *Zone) error
}

// PeriodFilter narrows ledger queries
type PeriodFilter struct {
	shared.Filter
	EntityID *uuid.UUID
	ZoneID   *uuid.UUID
	Open     *bool
}

// PeriodRepository is the period ledger store
type PeriodRepository interface {
	// FindByID finds a period by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*PlacementPeriod, error)

	// FindByEntity returns every period of an entity ordered by start date
	FindByEntity(ctx context.Context, entityID uuid.UUID) ([]PlacementPeriod, error)

	// FindOpenByEntity returns the open periods of an entity. With forUpdate the rows
	// are locked for the remainder of the surrounding transaction where the dialect allows.
	FindOpenByEntity(ctx context.Context, entityID uuid.UUID, forUpdate bool) ([]PlacementPeriod, error)

	// FindByZones returns every period held in any of the zones
	FindByZones(ctx context.Context, zoneIDs []uuid.UUID) ([]PlacementPeriod, error)

	// FindAll lists periods matching the filter with the total match count
	FindAll(ctx context.Context, filter PeriodFilter) ([]PlacementPeriod, int64, error)

	// Save creates or updates a period
	Save(ctx context.Context, period *PlacementPeriod) error

	// Delete deletes a period
	Delete(ctx context.Context, id uuid.UUID) error
}

// AuditSource runs the bulk entity-to-open-period scan
type AuditSource interface {
	// ScanOpenPlacements left-joins entities to their open periods and the zones both
	// sides reference, returning one row per (entity, open period) pair.
	ScanOpenPlacements(ctx context.Context, activeOnly bool) ([]OpenPlacementRow, error)
}

// LegacyLogReader reads the two deprecated, immutable logs
type LegacyLogReader interface {
	// MovementsByEntity returns the movement log rows of an entity
	MovementsByEntity(ctx context.Context, entityID uuid.UUID) ([]LegacyMovement, error)

	// EventsByEntity returns the event log rows of an entity
	EventsByEntity(ctx context.Context, entityID uuid.UUID) ([]LegacyEvent, error)
}

// EnrichmentSource reads the breeding-group and pregnancy-check subsystems
type EnrichmentSource interface {
	// BreedingMemberships returns memberships of the entity active in [from, to)
	BreedingMemberships(ctx context.Context, entityID uuid.UUID, from time.Time, to *time.Time) ([]BreedingMembership, error)

	// PregnancyChecks returns pregnancy checks of the entity dated in [from, to)
	PregnancyChecks(ctx context.Context, entityID uuid.UUID, from time.Time, to *time.Time) ([]PregnancyCheck, error)

	// BirthRecords returns every birth record of the entity
	BirthRecords(ctx context.Context, entityID uuid.UUID) ([]BirthRecord, error)
}
