package placement

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"
)

// TimelineItem is one row of an entity's placement history, either a ledger period
// or a provisional projection of a legacy record
type TimelineItem struct {
	ID             uuid.UUID         `json:"id"`
	Source         Source            `json:"source"`
	EntityID       uuid.UUID         `json:"entity_id"`
	ZoneID         *uuid.UUID        `json:"zone_id,omitempty"`
	PreviousZoneID *uuid.UUID        `json:"previous_zone_id,omitempty"`
	FunctionType   FunctionType      `json:"function_type,omitempty"`
	StartDate      time.Time         `json:"start_date"`
	EndDate        *time.Time        `json:"end_date,omitempty"`
	IsCurrent      bool              `json:"is_current"`
	Provisional    bool              `json:"provisional"`
	Reason         string            `json:"reason,omitempty"`
	Actor          string            `json:"actor,omitempty"`
	Duration       EffectiveDuration `json:"duration"`
	DurationLabel  string            `json:"duration_label"`
	SubPeriods     []uuid.UUID       `json:"sub_periods,omitempty"`
	Partners       []uuid.UUID       `json:"partners"`
	Outcomes       []Outcome         `json:"outcomes"`
	Colocated      []ColocatedEntity `json:"colocated"`
	ColocatedTotal int               `json:"colocated_total"`

	meta *PeriodMetadata
}

// Window returns the range enrichment is matched against. Provisional items are a
// single instant.
func (i *TimelineItem) Window() (time.Time, *time.Time) {
	if i.Provisional {
		at := i.StartDate
		return at, &at
	}
	return i.StartDate, i.EndDate
}

// Metadata returns the ledger metadata of the item, nil for provisional items
func (i *TimelineItem) Metadata() *PeriodMetadata {
	return i.meta
}

// Timeline is the composed history of one entity
type Timeline struct {
	EntityID    uuid.UUID      `json:"entity_id"`
	Items       []TimelineItem `json:"items"`
	Annotations []Annotation   `json:"annotations"`
}

// ComposeItems builds timeline items from the entity's ledger periods and the
// provisional periods that survived suppression. Sub-periods whose parent is present
// are folded into the parent item. Enrichment fields are left empty.
func ComposeItems(ledger []PlacementPeriod, provisional []ProvisionalPeriod, resolver *DurationResolver) []TimelineItem {
	present := make(map[uuid.UUID]struct{}, len(ledger))
	for i := range ledger {
		present[ledger[i].ID] = struct{}{}
	}
	children := make(map[uuid.UUID][]uuid.UUID)
	for i := range ledger {
		if parent := ledger[i].Metadata.ParentPeriodID; parent != nil {
			if _, ok := present[*parent]; ok {
				children[*parent] = append(children[*parent], ledger[i].ID)
			}
		}
	}

	items := make([]TimelineItem, 0, len(ledger)+len(provisional))
	for i := range ledger {
		p := &ledger[i]
		if parent := p.Metadata.ParentPeriodID; parent != nil {
			if _, ok := present[*parent]; ok {
				continue
			}
		}
		items = append(items, ledgerItem(p, ledger, children[p.ID], resolver))
	}
	for _, p := range provisional {
		items = append(items, provisionalItem(p, resolver))
	}
	SortItems(items)
	return items
}

func ledgerItem(p *PlacementPeriod, all []PlacementPeriod, subs []uuid.UUID, resolver *DurationResolver) TimelineItem {
	zone := p.ZoneID
	meta := p.Metadata
	d := resolver.Resolve(p, all)
	label := d.ElapsedDays
	if d.SpanDays != nil {
		label = *d.SpanDays
	}
	if len(subs) > 0 {
		sortIDs(subs)
	}
	return TimelineItem{
		ID:            p.ID,
		Source:        SourceLedger,
		EntityID:      p.EntityID,
		ZoneID:        &zone,
		FunctionType:  p.FunctionType,
		StartDate:     p.StartDate,
		EndDate:       p.EndDate,
		IsCurrent:     p.IsOpen(),
		Reason:        p.Metadata.Reason,
		Duration:      d,
		DurationLabel: FormatDays(label),
		SubPeriods:    subs,
		Partners:      []uuid.UUID{},
		Outcomes:      []Outcome{},
		Colocated:     []ColocatedEntity{},
		meta:          &meta,
	}
}

func provisionalItem(p ProvisionalPeriod, resolver *DurationResolver) TimelineItem {
	end := p.EndDate
	span := 0
	return TimelineItem{
		ID:             p.SourceID,
		Source:         p.Source,
		EntityID:       p.EntityID,
		ZoneID:         cloneID(p.ZoneID),
		PreviousZoneID: cloneID(p.PreviousZoneID),
		StartDate:      p.StartDate,
		EndDate:        &end,
		Provisional:    true,
		Reason:         p.Reason,
		Actor:          p.Actor,
		Duration: EffectiveDuration{
			StartDate:   p.StartDate,
			ElapsedDays: DaysBetween(p.StartDate, resolver.Now()),
			SpanDays:    &span,
		},
		DurationLabel: FormatDays(0),
		Partners:      []uuid.UUID{},
		Outcomes:      []Outcome{},
		Colocated:     []ColocatedEntity{},
	}
}

// SortItems orders items by start date descending. Ties put ledger rows before
// legacy rows, then fall back to the record id.
func SortItems(items []TimelineItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := &items[i], &items[j]
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.After(b.StartDate)
		}
		if pa, pb := a.Source.priority(), b.Source.priority(); pa != pb {
			return pa < pb
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
}
