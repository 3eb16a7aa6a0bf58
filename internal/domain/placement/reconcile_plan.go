package placement

import (
	"fmt"
	"time"

	"github.com/farmtrack/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ErrAlreadyConsistent is returned by PlanFix when there is nothing to repair
var ErrAlreadyConsistent = shared.NewDomainError("ALREADY_CONSISTENT", "Entity mirror and ledger already agree")

// FixPlan is the set of writes that applies one resolution to one entity
type FixPlan struct {
	EntityID    uuid.UUID
	Resolution  Resolution
	Close       []*PlacementPeriod
	Open        *PlacementPeriod
	Mirror      *uuid.UUID
	WriteMirror bool
}

// PlanFix decides the writes for a resolution against freshly read state.
// The periods in open are closed in place when the plan closes them.
func PlanFix(entity *TrackedEntity, open []PlacementPeriod, zones ZoneSet, res Resolution, now time.Time) (*FixPlan, error) {
	mirror := entity.CurrentZoneID
	if len(open) == 0 && mirror == nil {
		return nil, ErrNoSourceOfTruth
	}
	if len(open) == 1 && mirror != nil && *mirror == open[0].ZoneID && zones.Has(*mirror) {
		return nil, ErrAlreadyConsistent
	}

	plan := &FixPlan{EntityID: entity.ID, Resolution: res}
	switch res {
	case ResolutionKeepMirror:
		if mirror != nil && !zones.Has(*mirror) {
			return nil, fmt.Errorf("mirror zone %s: %w", mirror, ErrReferentialGap)
		}
		fn := FunctionGeneral
		var latest *PlacementPeriod
		for i := range open {
			p := &open[i]
			if err := p.Close(now); err != nil {
				return nil, err
			}
			plan.Close = append(plan.Close, p)
			if latest == nil || p.StartDate.After(latest.StartDate) {
				latest = p
			}
		}
		if latest != nil {
			fn = latest.FunctionType
		}
		if mirror != nil {
			period, err := NewPlacementPeriod(entity.ID, *mirror, fn, now, PeriodMetadata{Reason: ReconciliationReason})
			if err != nil {
				return nil, err
			}
			plan.Open = period
		}
		// rewriting the unchanged mirror bumps the version, so a concurrent
		// move that wrote it first aborts this fix
		plan.WriteMirror = true
		if mirror != nil {
			zoneID := *mirror
			plan.Mirror = &zoneID
		}

	case ResolutionKeepLedger:
		if len(open) > 1 {
			return nil, ErrAmbiguousLedger
		}
		plan.WriteMirror = true
		if len(open) == 1 {
			zoneID := open[0].ZoneID
			if !zones.Has(zoneID) {
				return nil, fmt.Errorf("ledger zone %s: %w", zoneID, ErrReferentialGap)
			}
			plan.Mirror = &zoneID
		}

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownResolution, res)
	}
	return plan, nil
}

// ReferencedZones returns the zone ids a fix could depend on
func ReferencedZones(entity *TrackedEntity, open []PlacementPeriod) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(open)+1)
	if entity.CurrentZoneID != nil {
		ids = append(ids, *entity.CurrentZoneID)
	}
	for _, p := range open {
		ids = append(ids, p.ZoneID)
	}
	return ids
}

// ActiveRows keeps scan rows of entities in the active lifecycle state
func ActiveRows(rows []OpenPlacementRow) []OpenPlacementRow {
	out := make([]OpenPlacementRow, 0, len(rows))
	for _, r := range rows {
		if r.Status == LifecycleActive {
			out = append(out, r)
		}
	}
	return out
}
