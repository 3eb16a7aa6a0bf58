package placement

import (
	"time"

	"github.com/farmtrack/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// FunctionType is the semantic role a placement period serves
type FunctionType string

const (
	FunctionGeneral           FunctionType = "general"
	FunctionBreedingGroup     FunctionType = "breeding-group"
	FunctionConfirmedPregnant FunctionType = "confirmed-pregnant"
	FunctionQuarantine        FunctionType = "quarantine"
	FunctionNursing           FunctionType = "nursing"
)

// ReconciliationReason is recorded on periods opened by a keep_mirror fix
const ReconciliationReason = "reconciliation: field authoritative"

// PeriodMetadata carries function-specific data of a placement period
type PeriodMetadata struct {
	PairingStartDate *time.Time  `json:"pairing_start_date,omitempty"`
	PartnerIDs       []uuid.UUID `json:"partner_ids,omitempty"`
	OccupantSnapshot []uuid.UUID `json:"occupant_snapshot,omitempty"`
	Historical       bool        `json:"historical,omitempty"`
	Reason           string      `json:"reason,omitempty"`
	ParentPeriodID   *uuid.UUID  `json:"parent_period_id,omitempty"`
	Notes            string      `json:"notes,omitempty"`
}

// PlacementPeriod is an authoritative ledger row recording occupancy of a zone
// by an entity over [StartDate, EndDate). A nil EndDate means the period is open.
type PlacementPeriod struct {
	shared.BaseEntity
	EntityID     uuid.UUID
	ZoneID       uuid.UUID
	FunctionType FunctionType
	StartDate    time.Time
	EndDate      *time.Time
	Metadata     PeriodMetadata
}

// NewPlacementPeriod opens a new period starting at start
func NewPlacementPeriod(entityID, zoneID uuid.UUID, fn FunctionType, start time.Time, meta PeriodMetadata) (*PlacementPeriod, error) {
	if entityID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period requires an entity")
	}
	if zoneID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period requires a zone")
	}
	if start.IsZero() {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period requires a start date")
	}
	if fn == "" {
		fn = FunctionGeneral
	}
	return &PlacementPeriod{
		BaseEntity:   shared.NewBaseEntity(),
		EntityID:     entityID,
		ZoneID:       zoneID,
		FunctionType: fn,
		StartDate:    normalizeInstant(start),
		Metadata:     meta,
	}, nil
}

// IsOpen returns true if the period has no end date
func (p *PlacementPeriod) IsOpen() bool {
	return p.EndDate == nil
}

// IsSubPeriod returns true if the period refines a coarser parent period
func (p *PlacementPeriod) IsSubPeriod() bool {
	return p.Metadata.ParentPeriodID != nil
}

// Close ends the period at the given instant. Closing before the start clamps to the start.
func (p *PlacementPeriod) Close(at time.Time) error {
	if !p.IsOpen() {
		return shared.NewDomainError("PERIOD_CLOSED", "Period is already closed")
	}
	end := normalizeInstant(at)
	if end.Before(p.StartDate) {
		end = p.StartDate
	}
	p.EndDate = &end
	p.Touch(at)
	return nil
}

// Contains reports whether t lies in the half-open range [StartDate, EndDate)
func (p *PlacementPeriod) Contains(t time.Time) bool {
	if t.Before(p.StartDate) {
		return false
	}
	return p.EndDate == nil || t.Before(*p.EndDate)
}

// Overlaps reports whether the period intersects the window. A nil windowEnd is unbounded;
// a window with windowEnd equal to windowStart is treated as the single instant windowStart.
func (p *PlacementPeriod) Overlaps(windowStart time.Time, windowEnd *time.Time) bool {
	if windowEnd != nil && !windowEnd.After(windowStart) {
		return p.Contains(windowStart)
	}
	if windowEnd != nil && !p.StartDate.Before(*windowEnd) {
		return false
	}
	return p.EndDate == nil || p.EndDate.After(windowStart)
}

func normalizeInstant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
