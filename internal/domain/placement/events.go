package placement

import (
	"github.com/farmtrack/backend/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	// AggregateTypeEntity is the aggregate type of placement events
	AggregateTypeEntity = "TrackedEntity"

	EventTypeReconciled = "placement.reconciled"
	EventTypeMoved      = "placement.moved"
	EventTypeClosed     = "placement.closed"
)

// PlacementReconciled is published for every fix the reconciler applied
type PlacementReconciled struct {
	shared.BaseDomainEvent
	Resolution     Resolution  `json:"resolution"`
	ClosedPeriods  []uuid.UUID `json:"closed_periods,omitempty"`
	OpenedPeriodID *uuid.UUID  `json:"opened_period_id,omitempty"`
	MirrorZoneID   *uuid.UUID  `json:"mirror_zone_id,omitempty"`
}

// NewPlacementReconciledEvent creates a reconciliation event from an applied plan
func NewPlacementReconciledEvent(plan *FixPlan, mirror *uuid.UUID) *PlacementReconciled {
	closed := make([]uuid.UUID, 0, len(plan.Close))
	for _, p := range plan.Close {
		closed = append(closed, p.ID)
	}
	var opened *uuid.UUID
	if plan.Open != nil {
		id := plan.Open.ID
		opened = &id
	}
	return &PlacementReconciled{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReconciled, AggregateTypeEntity, plan.EntityID),
		Resolution:      plan.Resolution,
		ClosedPeriods:   closed,
		OpenedPeriodID:  opened,
		MirrorZoneID:    cloneID(mirror),
	}
}

// PlacementMoved is published when an entity is moved to a new zone
type PlacementMoved struct {
	shared.BaseDomainEvent
	FromZoneID *uuid.UUID `json:"from_zone_id,omitempty"`
	ToZoneID   uuid.UUID  `json:"to_zone_id"`
	PeriodID   uuid.UUID  `json:"period_id"`
}

// NewPlacementMovedEvent creates a move event
func NewPlacementMovedEvent(entityID uuid.UUID, from *uuid.UUID, to, periodID uuid.UUID) *PlacementMoved {
	return &PlacementMoved{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMoved, AggregateTypeEntity, entityID),
		FromZoneID:      cloneID(from),
		ToZoneID:        to,
		PeriodID:        periodID,
	}
}

// PlacementClosed is published when an entity's open placement is ended without a successor
type PlacementClosed struct {
	shared.BaseDomainEvent
	ZoneID   uuid.UUID `json:"zone_id"`
	PeriodID uuid.UUID `json:"period_id"`
}

// NewPlacementClosedEvent creates a close event
func NewPlacementClosedEvent(entityID, zoneID, periodID uuid.UUID) *PlacementClosed {
	return &PlacementClosed{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeClosed, AggregateTypeEntity, entityID),
		ZoneID:          zoneID,
		PeriodID:        periodID,
	}
}
