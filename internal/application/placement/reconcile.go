package placement

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/farmtrack/backend/internal/domain/placement"
	"github.com/farmtrack/backend/internal/domain/shared"
	"github.com/farmtrack/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// entityOutcome is the result of one per-entity fix
type entityOutcome struct {
	id      uuid.UUID
	outcome string
	reason  string
	err     error
	event   shared.DomainEvent
}

// Reconcile applies the operator's resolution to each listed entity in its own
// transaction. Failures are collected per entity; only a failure to take the
// initial snapshot is returned as an error.
func (s *PlacementService) Reconcile(ctx context.Context, req ReconcileRequest) (*ReconcileResult, error) {
	resolutions := req.Resolutions
	ctx, span := telemetry.StartServiceSpan(ctx, "placement", "reconcile")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrResolutions, len(resolutions))

	rows, err := s.auditSrc.ScanOpenPlacements(ctx, false)
	if err != nil {
		err = storeErr("reconcile snapshot", err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	before := placement.Classify(s.scope(rows))
	snapshots := placement.Snapshots(rows)
	for id, version := range req.ExpectedVersions {
		if snap, ok := snapshots[id]; ok && snap.Version != version {
			// already moved on since the operator's audit; fails the version check below
			snap.Version = version
			snapshots[id] = snap
		}
	}

	ids := make([]uuid.UUID, 0, len(resolutions))
	for id := range resolutions {
		ids = append(ids, id)
	}
	sortUUIDs(ids)

	var (
		mu       sync.Mutex
		outcomes = make([]entityOutcome, 0, len(ids))
	)
	record := func(o entityOutcome) {
		mu.Lock()
		outcomes = append(outcomes, o)
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(s.opts.ReconcileConcurrency)
	for _, id := range ids {
		res := resolutions[id]
		if ctx.Err() != nil {
			record(entityOutcome{id: id, outcome: OutcomeSkipped, reason: SkipCancelled})
			continue
		}
		if res == placement.ResolutionSkip {
			record(entityOutcome{id: id, outcome: OutcomeSkipped, reason: SkipRequested})
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				record(entityOutcome{id: id, outcome: OutcomeSkipped, reason: SkipCancelled})
				return nil
			}
			// started transactions run to completion even if ctx is cancelled meanwhile
			telemetry.WithProfilingLabels(context.WithoutCancel(ctx), map[string]string{
				telemetry.ProfilingLabelOperation:  "reconcile",
				telemetry.ProfilingLabelResolution: res.String(),
			}, func(fixCtx context.Context) {
				record(s.reconcileEntity(fixCtx, id, res, snapshots))
			})
			return nil
		})
	}
	_ = g.Wait()

	result := &ReconcileResult{
		Applied:    make([]uuid.UUID, 0),
		Skipped:    make([]SkippedEntity, 0),
		Failed:     make([]FailedEntity, 0),
		Before:     before.Counts(),
		Reproduced: make([]ReproducedFinding, 0),
	}
	events := make([]shared.DomainEvent, 0)
	for _, o := range outcomes {
		switch o.outcome {
		case OutcomeApplied:
			result.Applied = append(result.Applied, o.id)
			if o.event != nil {
				events = append(events, o.event)
			}
			s.metrics.RecordReconcileOutcome(ctx, OutcomeApplied, "")
		case OutcomeSkipped:
			result.Skipped = append(result.Skipped, SkippedEntity{EntityID: o.id, Reason: o.reason})
			s.metrics.RecordReconcileOutcome(ctx, OutcomeSkipped, o.reason)
		default:
			code := placement.ErrorCode(o.err)
			result.Failed = append(result.Failed, FailedEntity{EntityID: o.id, Code: code, Message: o.err.Error()})
			s.metrics.RecordReconcileOutcome(ctx, OutcomeFailed, code)
			telemetry.AddEvent(span, "fix_failed", telemetry.SpanAttrEntityID, o.id, "error.code", code)
		}
	}
	sortUUIDs(result.Applied)
	sort.Slice(result.Skipped, func(i, j int) bool { return lessUUID(result.Skipped[i].EntityID, result.Skipped[j].EntityID) })
	sort.Slice(result.Failed, func(i, j int) bool { return lessUUID(result.Failed[i].EntityID, result.Failed[j].EntityID) })

	if len(result.Applied) > 0 {
		s.invalidateCache(ctx)
		s.publish(ctx, events...)
	}

	s.reaudit(context.WithoutCancel(ctx), result)

	telemetry.SetAttributes(span,
		"applied", len(result.Applied),
		"skipped", len(result.Skipped),
		"failed", len(result.Failed),
		"reproduced", len(result.Reproduced),
	)
	s.logger.Info("Placement reconciliation completed",
		zap.Int("applied", len(result.Applied)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failed", len(result.Failed)),
		zap.Int("reproduced", len(result.Reproduced)),
	)
	return result, nil
}

// reaudit fills the after counts and surfaces applied fixes whose finding came back
func (s *PlacementService) reaudit(ctx context.Context, result *ReconcileResult) {
	rows, err := s.auditSrc.ScanOpenPlacements(ctx, false)
	if err != nil {
		err = storeErr("reconcile re-audit", err)
		s.logger.Error("Re-audit after reconciliation failed", zap.Error(err))
		result.AfterAuditError = err.Error()
		return
	}
	after := placement.Classify(s.scope(rows))
	counts := after.Counts()
	result.After = &counts

	for _, id := range result.Applied {
		if class, ok := after.ClassOf(id); ok {
			result.Reproduced = append(result.Reproduced, ReproducedFinding{EntityID: id, Class: class})
			s.logger.Warn("Finding reproduced after fix",
				zap.String("entity_id", id.String()),
				zap.String("finding", string(class)),
			)
		}
	}
}

func (s *PlacementService) reconcileEntity(ctx context.Context, id uuid.UUID, res placement.Resolution, snapshots map[uuid.UUID]placement.EntitySnapshot) entityOutcome {
	log := s.logger.With(zap.String("entity_id", id.String()), zap.String("resolution", res.String()))

	snap, ok := snapshots[id]
	if !ok {
		log.Warn("Reconciliation requested for unknown entity")
		return entityOutcome{id: id, outcome: OutcomeFailed, err: placement.ErrEntityNotFound}
	}

	var (
		plan   *placement.FixPlan
		mirror *uuid.UUID
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		entity, err := repos.EntityRepo().FindByID(ctx, id)
		if err != nil {
			return storeErr("load entity", notFoundAs(err, placement.ErrEntityNotFound))
		}
		open, err := repos.PeriodRepo().FindOpenByEntity(ctx, id, true)
		if err != nil {
			return storeErr("load open periods", err)
		}
		if entity.GetVersion() != snap.Version || !snap.Matches(entity.CurrentZoneID, open) {
			return placement.ErrConcurrentMutation
		}

		zones, err := repos.ZoneRepo().FindByIDs(ctx, placement.ReferencedZones(entity, open))
		if err != nil {
			return storeErr("load zones", err)
		}
		existing := make([]uuid.UUID, 0, len(zones))
		for _, z := range zones {
			existing = append(existing, z.ID)
		}

		plan, err = placement.PlanFix(entity, open, placement.NewZoneSet(existing...), res, s.now())
		if err != nil {
			return err
		}

		for _, p := range plan.Close {
			if err := repos.PeriodRepo().Save(ctx, p); err != nil {
				return storeErr("close period", err)
			}
		}
		if plan.Open != nil {
			if err := repos.PeriodRepo().Save(ctx, plan.Open); err != nil {
				return storeErr("open period", err)
			}
		}
		mirror = entity.CurrentZoneID
		if plan.WriteMirror {
			if err := repos.EntityRepo().UpdateMirror(ctx, id, plan.Mirror, entity.GetVersion()); err != nil {
				return storeErr("write mirror", err)
			}
			mirror = plan.Mirror
		}
		return nil
	})

	switch {
	case err == nil:
		log.Info("Placement fix applied")
		return entityOutcome{id: id, outcome: OutcomeApplied, event: placement.NewPlacementReconciledEvent(plan, mirror)}
	case errors.Is(err, placement.ErrAlreadyConsistent):
		return entityOutcome{id: id, outcome: OutcomeSkipped, reason: SkipAlreadyConsistent}
	case errors.Is(err, placement.ErrStoreUnavailable):
		log.Error("Placement fix failed", zap.Error(err))
	default:
		log.Warn("Placement fix rejected", zap.Error(err))
	}
	return entityOutcome{id: id, outcome: OutcomeFailed, err: err}
}

func (s *PlacementService) scope(rows []placement.OpenPlacementRow) []placement.OpenPlacementRow {
	if s.opts.ActiveOnly {
		return placement.ActiveRows(rows)
	}
	return rows
}

func lessUUID(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

func sortUUIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return lessUUID(ids[i], ids[j]) })
}
