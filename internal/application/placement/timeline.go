package placement

import (
	"context"

	"github.com/farmtrack/backend/internal/domain/placement"
	"github.com/farmtrack/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// Timeline composes the entity's placement history from the ledger and both legacy
// logs, enriched with partners, pregnancy outcomes, and co-located entities.
func (s *PlacementService) Timeline(ctx context.Context, entityID uuid.UUID) (*placement.Timeline, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "placement", "timeline",
		telemetry.SpanAttrEntityID, entityID)
	defer span.End()

	if _, err := s.entities.FindByID(ctx, entityID); err != nil {
		return nil, storeErr("load entity", notFoundAs(err, placement.ErrEntityNotFound))
	}
	ledger, err := s.periods.FindByEntity(ctx, entityID)
	if err != nil {
		return nil, storeErr("load ledger", err)
	}
	movements, err := s.legacy.MovementsByEntity(ctx, entityID)
	if err != nil {
		return nil, storeErr("load movement log", err)
	}
	events, err := s.legacy.EventsByEntity(ctx, entityID)
	if err != nil {
		return nil, storeErr("load event log", err)
	}

	proj := placement.NormalizeLegacy(movements, events)
	items := placement.ComposeItems(ledger, placement.SuppressCovered(proj.Periods, ledger), s.durations)

	if len(items) > 0 {
		if err := s.enrich(ctx, entityID, items); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	telemetry.SetAttributes(span, "items", len(items))
	return &placement.Timeline{
		EntityID:    entityID,
		Items:       items,
		Annotations: proj.Annotations,
	}, nil
}

func (s *PlacementService) enrich(ctx context.Context, entityID uuid.UUID, items []placement.TimelineItem) error {
	earliest := items[len(items)-1].StartDate

	memberships, err := s.enrichment.BreedingMemberships(ctx, entityID, earliest, nil)
	if err != nil {
		return storeErr("load breeding memberships", err)
	}
	checks, err := s.enrichment.PregnancyChecks(ctx, entityID, earliest, nil)
	if err != nil {
		return storeErr("load pregnancy checks", err)
	}
	births, err := s.enrichment.BirthRecords(ctx, entityID)
	if err != nil {
		return storeErr("load birth records", err)
	}

	zoneSet := make(map[uuid.UUID]struct{})
	for i := range items {
		if items[i].ZoneID != nil {
			zoneSet[*items[i].ZoneID] = struct{}{}
		}
	}
	zoneIDs := make([]uuid.UUID, 0, len(zoneSet))
	for id := range zoneSet {
		zoneIDs = append(zoneIDs, id)
	}
	var zonePeriods []placement.PlacementPeriod
	if len(zoneIDs) > 0 {
		zonePeriods, err = s.periods.FindByZones(ctx, zoneIDs)
		if err != nil {
			return storeErr("load zone occupancy", err)
		}
	}

	colocated := make([][]uuid.UUID, len(items))
	tagIDs := make(map[uuid.UUID]struct{})
	for i := range items {
		item := &items[i]
		start, end := item.Window()
		item.Partners = placement.PartnersFor(entityID, item.Metadata(), start, end, memberships)
		item.Outcomes = placement.OutcomesFor(start, end, checks, births, s.opts.StalePolicy)
		if item.ZoneID == nil {
			continue
		}
		colocated[i] = placement.ColocatedIDs(entityID, *item.ZoneID, start, end, zonePeriods)
		for _, id := range colocated[i] {
			tagIDs[id] = struct{}{}
		}
	}

	tags, err := s.tagsOf(ctx, tagIDs)
	if err != nil {
		return err
	}
	for i := range items {
		items[i].ColocatedTotal = len(colocated[i])
		items[i].Colocated = placement.ColocatedPreview(colocated[i], tags, s.opts.ColocatedPreviewLimit)
	}
	return nil
}

func (s *PlacementService) tagsOf(ctx context.Context, set map[uuid.UUID]struct{}) (map[uuid.UUID]string, error) {
	tags := make(map[uuid.UUID]string, len(set))
	if len(set) == 0 {
		return tags, nil
	}
	ids := make([]uuid.UUID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	entities, err := s.entities.FindByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr("load co-located entities", err)
	}
	for _, e := range entities {
		tags[e.ID] = e.Tag
	}
	return tags, nil
}

// EffectiveDuration resolves the "time in function" of one period
func (s *PlacementService) EffectiveDuration(ctx context.Context, periodID uuid.UUID) (*DurationResult, error) {
	period, err := s.periods.FindByID(ctx, periodID)
	if err != nil {
		return nil, storeErr("load period", notFoundAs(err, placement.ErrPeriodNotFound))
	}
	related, err := s.periods.FindByEntity(ctx, period.EntityID)
	if err != nil {
		return nil, storeErr("load ledger", err)
	}
	d := s.durations.Resolve(period, related)
	label := d.ElapsedDays
	if d.SpanDays != nil {
		label = *d.SpanDays
	}
	return &DurationResult{
		PeriodID:          period.ID,
		FunctionType:      period.FunctionType,
		EffectiveDuration: d,
		Label:             placement.FormatDays(label),
	}, nil
}
