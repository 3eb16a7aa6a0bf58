package placement

import (
	"context"
	"time"

	"github.com/farmtrack/backend/internal/domain/placement"
	"github.com/farmtrack/backend/internal/domain/shared"
	"github.com/farmtrack/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrInactiveEntity is returned when moving an entity that left the active lifecycle
	ErrInactiveEntity = shared.NewDomainError("INVALID_STATE", "Only active entities can be placed")
	// ErrDateBeforeHistory is returned when a move or close would overlap recorded periods
	ErrDateBeforeHistory = shared.NewDomainError("INVALID_PLACEMENT_DATE", "Date precedes recorded placement history")
	// ErrNotPlaced is returned when closing an entity with nothing to close
	ErrNotPlaced = shared.NewDomainError("NOT_PLACED", "Entity has no open placement")
)

// Move closes the entity's open periods and opens a new one in the target zone,
// writing the mirror in the same transaction.
func (s *PlacementService) Move(ctx context.Context, req MoveRequest) (*placement.PlacementPeriod, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "placement", "move",
		telemetry.SpanAttrEntityID, req.EntityID,
		telemetry.SpanAttrZoneID, req.ZoneID)
	defer span.End()

	at := s.instant(req.At)
	var (
		opened *placement.PlacementPeriod
		from   *uuid.UUID
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		entity, err := repos.EntityRepo().FindByID(ctx, req.EntityID)
		if err != nil {
			return storeErr("load entity", notFoundAs(err, placement.ErrEntityNotFound))
		}
		if !entity.IsActive() {
			return ErrInactiveEntity
		}
		if _, err := repos.ZoneRepo().FindByID(ctx, req.ZoneID); err != nil {
			return storeErr("load zone", notFoundAs(err, placement.ErrZoneNotFound))
		}
		open, err := repos.PeriodRepo().FindOpenByEntity(ctx, req.EntityID, true)
		if err != nil {
			return storeErr("load open periods", err)
		}
		history, err := repos.PeriodRepo().FindByEntity(ctx, req.EntityID)
		if err != nil {
			return storeErr("load ledger", err)
		}
		if precedesHistory(at, history) {
			return ErrDateBeforeHistory
		}

		for i := range open {
			if err := open[i].Close(at); err != nil {
				return err
			}
			if err := repos.PeriodRepo().Save(ctx, &open[i]); err != nil {
				return storeErr("close period", err)
			}
		}
		opened, err = placement.NewPlacementPeriod(req.EntityID, req.ZoneID, req.FunctionType, at, req.Metadata)
		if err != nil {
			return err
		}
		if err := repos.PeriodRepo().Save(ctx, opened); err != nil {
			return storeErr("open period", err)
		}
		from = entity.CurrentZoneID
		zoneID := req.ZoneID
		if err := repos.EntityRepo().UpdateMirror(ctx, req.EntityID, &zoneID, entity.GetVersion()); err != nil {
			return storeErr("write mirror", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("Placement move failed",
			zap.String("entity_id", req.EntityID.String()),
			zap.String("zone_id", req.ZoneID.String()),
			zap.Error(err))
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrPeriodID, opened.ID)
	s.invalidateCache(ctx)
	s.publish(ctx, placement.NewPlacementMovedEvent(req.EntityID, from, req.ZoneID, opened.ID))
	s.logger.Info("Entity moved",
		zap.String("entity_id", req.EntityID.String()),
		zap.String("zone_id", req.ZoneID.String()),
		zap.String("period_id", opened.ID.String()))
	return opened, nil
}

// Close ends every open period of the entity and nulls its mirror
func (s *PlacementService) Close(ctx context.Context, req CloseRequest) ([]placement.PlacementPeriod, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "placement", "close", telemetry.SpanAttrEntityID, req.EntityID)
	defer span.End()

	at := s.instant(req.At)
	var closed []placement.PlacementPeriod
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		entity, err := repos.EntityRepo().FindByID(ctx, req.EntityID)
		if err != nil {
			return storeErr("load entity", notFoundAs(err, placement.ErrEntityNotFound))
		}
		open, err := repos.PeriodRepo().FindOpenByEntity(ctx, req.EntityID, true)
		if err != nil {
			return storeErr("load open periods", err)
		}
		if len(open) == 0 && entity.CurrentZoneID == nil {
			return ErrNotPlaced
		}
		if precedesHistory(at, open) {
			return ErrDateBeforeHistory
		}
		for i := range open {
			if err := open[i].Close(at); err != nil {
				return err
			}
			if req.Reason != "" && open[i].Metadata.Reason == "" {
				open[i].Metadata.Reason = req.Reason
			}
			if err := repos.PeriodRepo().Save(ctx, &open[i]); err != nil {
				return storeErr("close period", err)
			}
		}
		if err := repos.EntityRepo().UpdateMirror(ctx, req.EntityID, nil, entity.GetVersion()); err != nil {
			return storeErr("write mirror", err)
		}
		closed = open
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.invalidateCache(ctx)
	events := make([]shared.DomainEvent, 0, len(closed))
	for _, p := range closed {
		events = append(events, placement.NewPlacementClosedEvent(req.EntityID, p.ZoneID, p.ID))
	}
	s.publish(ctx, events...)
	return closed, nil
}

// ListPeriods lists ledger periods by entity, zone, and open state
func (s *PlacementService) ListPeriods(ctx context.Context, filter placement.PeriodFilter) (shared.Paginated[placement.PlacementPeriod], error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = shared.DefaultFilter().PageSize
	}
	periods, total, err := s.periods.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[placement.PlacementPeriod]{}, storeErr("list periods", err)
	}
	return shared.NewPaginated(periods, total, filter.Page, filter.PageSize), nil
}

func (s *PlacementService) instant(at *time.Time) time.Time {
	if at != nil && !at.IsZero() {
		return at.UTC().Truncate(time.Second)
	}
	return s.now().UTC().Truncate(time.Second)
}

// precedesHistory reports whether at lies before the start of any period or
// before the end of any closed one
func precedesHistory(at time.Time, periods []placement.PlacementPeriod) bool {
	for _, p := range periods {
		if at.Before(p.StartDate) {
			return true
		}
		if p.EndDate != nil && at.Before(*p.EndDate) {
			return true
		}
	}
	return false
}
