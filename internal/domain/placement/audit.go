package placement

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"
)

// FindingClass names the finding set an entity was classified into
type FindingClass string

const (
	FindingDuplicate FindingClass = "duplicate"
	FindingDesync    FindingClass = "desync"
	FindingUnplaced  FindingClass = "unplaced"
)

// DesyncKind classifies a disagreement between mirror and ledger
type DesyncKind string

const (
	DesyncFieldNullLedgerHasZone  DesyncKind = "field_null_ledger_has_zone"
	DesyncFieldHasZoneLedgerEmpty DesyncKind = "field_has_zone_ledger_empty"
	DesyncFieldAndLedgerDisagree  DesyncKind = "field_and_ledger_disagree"
	DesyncReferentialGap          DesyncKind = "referential_gap"
)

// GapSide tells which side of a referential gap points at a missing zone
type GapSide string

const (
	GapMirror GapSide = "mirror"
	GapLedger GapSide = "ledger"
	GapBoth   GapSide = "both"
)

// OpenPlacementRow is one row of the entity LEFT JOIN open-period scan
type OpenPlacementRow struct {
	EntityID         uuid.UUID
	Tag              string
	Status           LifecycleStatus
	EntityVersion    int
	MirrorZoneID     *uuid.UUID
	MirrorZoneExists bool
	PeriodID         *uuid.UUID
	PeriodZoneID     *uuid.UUID
	PeriodZoneExists bool
	PeriodStart      *time.Time
}

// DuplicateFinding is an entity with more than one open period
type DuplicateFinding struct {
	EntityID     uuid.UUID   `json:"entity_id"`
	Tag          string      `json:"tag"`
	Version      int         `json:"version"`
	MirrorZoneID *uuid.UUID  `json:"mirror_zone_id"`
	ZoneIDs      []uuid.UUID `json:"zone_ids"`
	PeriodIDs    []uuid.UUID `json:"period_ids"`
}

// DesyncFinding is an entity whose mirror disagrees with its single open period
type DesyncFinding struct {
	EntityID     uuid.UUID  `json:"entity_id"`
	Tag          string     `json:"tag"`
	Version      int        `json:"version"`
	Kind         DesyncKind `json:"kind"`
	MirrorZoneID *uuid.UUID `json:"mirror_zone_id"`
	LedgerZoneID *uuid.UUID `json:"ledger_zone_id"`
	PeriodID     *uuid.UUID `json:"period_id,omitempty"`
	GapSide      GapSide    `json:"gap_side,omitempty"`
}

// UnplacedFinding is an entity with neither an open period nor a mirror zone
type UnplacedFinding struct {
	EntityID uuid.UUID `json:"entity_id"`
	Tag      string    `json:"tag"`
	Version  int       `json:"version"`
}

// AuditReport holds the three disjoint finding sets
type AuditReport struct {
	Duplicates []DuplicateFinding `json:"duplicates"`
	Desyncs    []DesyncFinding    `json:"desyncs"`
	Unplaced   []UnplacedFinding  `json:"unplaced"`
	Scanned    int                `json:"scanned"`
	InSync     int                `json:"in_sync"`
}

// FindingCounts summarises an AuditReport
type FindingCounts struct {
	Duplicates int `json:"duplicates"`
	Desyncs    int `json:"desyncs"`
	Unplaced   int `json:"unplaced"`
}

// Counts returns the size of each finding set
func (r *AuditReport) Counts() FindingCounts {
	return FindingCounts{
		Duplicates: len(r.Duplicates),
		Desyncs:    len(r.Desyncs),
		Unplaced:   len(r.Unplaced),
	}
}

// ClassOf returns the finding class of an entity, if it has one
func (r *AuditReport) ClassOf(entityID uuid.UUID) (FindingClass, bool) {
	for _, d := range r.Duplicates {
		if d.EntityID == entityID {
			return FindingDuplicate, true
		}
	}
	for _, d := range r.Desyncs {
		if d.EntityID == entityID {
			return FindingDesync, true
		}
	}
	for _, u := range r.Unplaced {
		if u.EntityID == entityID {
			return FindingUnplaced, true
		}
	}
	return "", false
}

// EntitySnapshot is the placement state of one entity as seen by an audit
type EntitySnapshot struct {
	Version       int
	MirrorZoneID  *uuid.UUID
	OpenPeriodIDs []uuid.UUID
}

// Matches reports whether a freshly read state equals the snapshot
func (s EntitySnapshot) Matches(mirror *uuid.UUID, open []PlacementPeriod) bool {
	if !sameZone(s.MirrorZoneID, mirror) {
		return false
	}
	if len(open) != len(s.OpenPeriodIDs) {
		return false
	}
	ids := make([]uuid.UUID, 0, len(open))
	for _, p := range open {
		ids = append(ids, p.ID)
	}
	sortIDs(ids)
	for i := range ids {
		if ids[i] != s.OpenPeriodIDs[i] {
			return false
		}
	}
	return true
}

type entityGroup struct {
	first OpenPlacementRow
	open  []OpenPlacementRow
}

func groupRows(rows []OpenPlacementRow) (map[uuid.UUID]*entityGroup, []uuid.UUID) {
	groups := make(map[uuid.UUID]*entityGroup)
	order := make([]uuid.UUID, 0)
	for _, row := range rows {
		g, ok := groups[row.EntityID]
		if !ok {
			g = &entityGroup{first: row}
			groups[row.EntityID] = g
			order = append(order, row.EntityID)
		}
		if row.PeriodID != nil {
			g.open = append(g.open, row)
		}
	}
	sortIDs(order)
	return groups, order
}

// Snapshots builds the per-entity snapshot used to detect concurrent mutation
func Snapshots(rows []OpenPlacementRow) map[uuid.UUID]EntitySnapshot {
	groups, order := groupRows(rows)
	out := make(map[uuid.UUID]EntitySnapshot, len(order))
	for _, id := range order {
		g := groups[id]
		ids := make([]uuid.UUID, 0, len(g.open))
		for _, r := range g.open {
			ids = append(ids, *r.PeriodID)
		}
		sortIDs(ids)
		out[id] = EntitySnapshot{
			Version:       g.first.EntityVersion,
			MirrorZoneID:  cloneID(g.first.MirrorZoneID),
			OpenPeriodIDs: ids,
		}
	}
	return out
}

// Classify groups scan rows by entity and sorts every entity into exactly one of
// Duplicates, Desyncs, Unplaced, or in-sync. Output order is by entity id.
func Classify(rows []OpenPlacementRow) AuditReport {
	groups, order := groupRows(rows)
	report := AuditReport{
		Duplicates: make([]DuplicateFinding, 0),
		Desyncs:    make([]DesyncFinding, 0),
		Unplaced:   make([]UnplacedFinding, 0),
		Scanned:    len(order),
	}

	for _, id := range order {
		g := groups[id]
		mirror := g.first.MirrorZoneID

		switch {
		case len(g.open) > 1:
			report.Duplicates = append(report.Duplicates, duplicateFinding(g))

		case len(g.open) == 1:
			if f, ok := singleOpenDesync(g); ok {
				report.Desyncs = append(report.Desyncs, f)
			} else {
				report.InSync++
			}

		case mirror != nil:
			f := DesyncFinding{
				EntityID:     id,
				Tag:          g.first.Tag,
				Version:      g.first.EntityVersion,
				Kind:         DesyncFieldHasZoneLedgerEmpty,
				MirrorZoneID: cloneID(mirror),
			}
			if !g.first.MirrorZoneExists {
				f.Kind = DesyncReferentialGap
				f.GapSide = GapMirror
			}
			report.Desyncs = append(report.Desyncs, f)

		default:
			report.Unplaced = append(report.Unplaced, UnplacedFinding{
				EntityID: id,
				Tag:      g.first.Tag,
				Version:  g.first.EntityVersion,
			})
		}
	}
	return report
}

func duplicateFinding(g *entityGroup) DuplicateFinding {
	zoneSet := make(map[uuid.UUID]struct{})
	zones := make([]uuid.UUID, 0, len(g.open))
	periods := make([]uuid.UUID, 0, len(g.open))
	for _, r := range g.open {
		periods = append(periods, *r.PeriodID)
		if _, seen := zoneSet[*r.PeriodZoneID]; !seen {
			zoneSet[*r.PeriodZoneID] = struct{}{}
			zones = append(zones, *r.PeriodZoneID)
		}
	}
	sortIDs(zones)
	sortIDs(periods)
	return DuplicateFinding{
		EntityID:     g.first.EntityID,
		Tag:          g.first.Tag,
		Version:      g.first.EntityVersion,
		MirrorZoneID: cloneID(g.first.MirrorZoneID),
		ZoneIDs:      zones,
		PeriodIDs:    periods,
	}
}

func singleOpenDesync(g *entityGroup) (DesyncFinding, bool) {
	row := g.open[0]
	mirror := g.first.MirrorZoneID
	f := DesyncFinding{
		EntityID:     g.first.EntityID,
		Tag:          g.first.Tag,
		Version:      g.first.EntityVersion,
		MirrorZoneID: cloneID(mirror),
		LedgerZoneID: cloneID(row.PeriodZoneID),
		PeriodID:     cloneID(row.PeriodID),
	}

	mirrorGap := mirror != nil && !g.first.MirrorZoneExists
	ledgerGap := !row.PeriodZoneExists
	switch {
	case mirrorGap && ledgerGap:
		f.Kind, f.GapSide = DesyncReferentialGap, GapBoth
		return f, true
	case mirrorGap:
		f.Kind, f.GapSide = DesyncReferentialGap, GapMirror
		return f, true
	case ledgerGap:
		f.Kind, f.GapSide = DesyncReferentialGap, GapLedger
		return f, true
	case mirror == nil:
		f.Kind = DesyncFieldNullLedgerHasZone
		return f, true
	case *mirror != *row.PeriodZoneID:
		f.Kind = DesyncFieldAndLedgerDisagree
		return f, true
	}
	return DesyncFinding{}, false
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
}
