package placement

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Source identifies where a timeline record came from
type Source string

const (
	SourceLedger      Source = "ledger"
	SourceMovementLog Source = "movement_log"
	SourceEventLog    Source = "event_log"
)

// priority orders sources for tie-breaks; lower sorts first
func (s Source) priority() int {
	switch s {
	case SourceLedger:
		return 0
	case SourceMovementLog:
		return 1
	default:
		return 2
	}
}

// ProvisionalPeriod is a zero-duration, period-shaped projection of a legacy record.
// StartDate and EndDate are equal.
type ProvisionalPeriod struct {
	SourceID       uuid.UUID
	Source         Source
	EntityID       uuid.UUID
	ZoneID         *uuid.UUID
	PreviousZoneID *uuid.UUID
	StartDate      time.Time
	EndDate        time.Time
	Reason         string
	Actor          string
}

// Annotation is a non-placement legacy event kept for display only
type Annotation struct {
	SourceID  uuid.UUID       `json:"source_id"`
	EntityID  uuid.UUID       `json:"entity_id"`
	EventType LegacyEventType `json:"event_type"`
	Date      time.Time       `json:"date"`
	ZoneID    *uuid.UUID      `json:"zone_id,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
}

// LegacyProjection is the normalized view of both legacy logs for one entity
type LegacyProjection struct {
	Periods     []ProvisionalPeriod
	Annotations []Annotation
}

type provisionalKey struct {
	entity uuid.UUID
	at     int64
	zone   uuid.UUID
}

func keyOf(p ProvisionalPeriod) provisionalKey {
	k := provisionalKey{entity: p.EntityID, at: p.StartDate.Unix()}
	if p.ZoneID != nil {
		k.zone = *p.ZoneID
	}
	return k
}

// NormalizeLegacy projects movement and event records into provisional periods and
// point annotations. The inputs are never modified. A movement and a placement event
// describing the same entity, instant, and destination collapse into the movement.
func NormalizeLegacy(movements []LegacyMovement, events []LegacyEvent) LegacyProjection {
	proj := LegacyProjection{
		Periods:     make([]ProvisionalPeriod, 0, len(movements)+len(events)),
		Annotations: make([]Annotation, 0),
	}
	seen := make(map[provisionalKey]struct{})

	add := func(p ProvisionalPeriod) {
		k := keyOf(p)
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		proj.Periods = append(proj.Periods, p)
	}

	for _, m := range movements {
		at := normalizeInstant(m.MovedAt)
		add(ProvisionalPeriod{
			SourceID:       m.ID,
			Source:         SourceMovementLog,
			EntityID:       m.EntityID,
			ZoneID:         cloneID(m.ToZoneID),
			PreviousZoneID: cloneID(m.FromZoneID),
			StartDate:      at,
			EndDate:        at,
			Reason:         m.Reason,
			Actor:          m.Actor,
		})
	}

	for _, e := range events {
		at := normalizeInstant(e.EventDate)
		if !e.EventType.IsPlacement() {
			proj.Annotations = append(proj.Annotations, Annotation{
				SourceID:  e.ID,
				EntityID:  e.EntityID,
				EventType: e.EventType,
				Date:      at,
				ZoneID:    cloneID(e.ZoneID),
				Reason:    e.Reason,
				Metadata:  copyMap(e.Metadata),
			})
			continue
		}
		add(ProvisionalPeriod{
			SourceID:       e.ID,
			Source:         SourceEventLog,
			EntityID:       e.EntityID,
			ZoneID:         cloneID(e.ZoneID),
			PreviousZoneID: cloneID(e.PreviousZoneID),
			StartDate:      at,
			EndDate:        at,
			Reason:         e.Reason,
		})
	}

	sort.SliceStable(proj.Periods, func(i, j int) bool {
		return proj.Periods[i].StartDate.Before(proj.Periods[j].StartDate)
	})
	sort.SliceStable(proj.Annotations, func(i, j int) bool {
		return proj.Annotations[i].Date.After(proj.Annotations[j].Date)
	})
	return proj
}

// SuppressCovered drops provisional periods whose date falls inside [start, end) of any
// ledger period of the same entity. Legacy data only fills gaps the ledger leaves.
func SuppressCovered(provisional []ProvisionalPeriod, ledger []PlacementPeriod) []ProvisionalPeriod {
	out := make([]ProvisionalPeriod, 0, len(provisional))
	for _, p := range provisional {
		covered := false
		for i := range ledger {
			if ledger[i].EntityID == p.EntityID && ledger[i].Contains(p.StartDate) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, p)
		}
	}
	return out
}

func copyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
