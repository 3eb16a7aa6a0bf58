package placement

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// BreedingMembership is a breeding-group association read from the breeding subsystem
type BreedingMembership struct {
	ID         uuid.UUID
	GroupID    uuid.UUID
	EntityID   uuid.UUID
	PartnerIDs []uuid.UUID
	StartDate  time.Time
	EndDate    *time.Time
}

// Overlaps reports whether the membership is active anywhere in the window
func (m BreedingMembership) Overlaps(start time.Time, end *time.Time) bool {
	p := PlacementPeriod{StartDate: m.StartDate, EndDate: m.EndDate}
	return p.Overlaps(start, end)
}

// PregnancyResult is the outcome of a pregnancy check
type PregnancyResult string

const (
	PregnancyPositive     PregnancyResult = "pregnant"
	PregnancyNegative     PregnancyResult = "open"
	PregnancyInconclusive PregnancyResult = "inconclusive"
)

// PregnancyCheck is an outcome record from the pregnancy-check subsystem
type PregnancyCheck struct {
	ID        uuid.UUID
	EntityID  uuid.UUID
	CheckDate time.Time
	Result    PregnancyResult
}

// BirthRecord is a recorded birth of the entity
type BirthRecord struct {
	ID        uuid.UUID
	EntityID  uuid.UUID
	BirthDate time.Time
}

// StalePolicy decides positive pregnancy checks of entities without any birth record
type StalePolicy string

const (
	// StalePolicyExclude drops ambiguous outcomes
	StalePolicyExclude StalePolicy = "exclude"
	// StalePolicyInclude keeps ambiguous outcomes as current
	StalePolicyInclude StalePolicy = "include"
)

// ParseStalePolicy parses a configured policy name
func ParseStalePolicy(s string) (StalePolicy, error) {
	switch StalePolicy(s) {
	case StalePolicyExclude, StalePolicyInclude:
		return StalePolicy(s), nil
	}
	return "", fmt.Errorf("unknown pregnancy stale policy %q", s)
}

// Staleness is the verdict on one pregnancy check
type Staleness int

const (
	NotStale Staleness = iota
	Stale
	Ambiguous
)

// StalenessOf compares a check against the entity's births. A positive check followed
// by a birth on or after the check date is stale; with no births at all it is ambiguous.
func StalenessOf(check PregnancyCheck, births []BirthRecord) Staleness {
	if check.Result != PregnancyPositive {
		return NotStale
	}
	if len(births) == 0 {
		return Ambiguous
	}
	checkDay := midnightUTC(check.CheckDate)
	for _, b := range births {
		if !midnightUTC(b.BirthDate).Before(checkDay) {
			return Stale
		}
	}
	return NotStale
}

// Outcome is a pregnancy check shown on a timeline item
type Outcome struct {
	CheckID   uuid.UUID       `json:"check_id"`
	CheckDate time.Time       `json:"check_date"`
	Result    PregnancyResult `json:"result"`
	Stale     bool            `json:"stale"`
	Ambiguous bool            `json:"ambiguous,omitempty"`
}

// OutcomesFor selects checks dated in the window and applies the stale policy
func OutcomesFor(start time.Time, end *time.Time, checks []PregnancyCheck, births []BirthRecord, policy StalePolicy) []Outcome {
	out := make([]Outcome, 0)
	for _, c := range checks {
		if !inWindow(c.CheckDate, start, end) {
			continue
		}
		o := Outcome{CheckID: c.ID, CheckDate: c.CheckDate, Result: c.Result}
		switch StalenessOf(c, births) {
		case Stale:
			o.Stale = true
		case Ambiguous:
			if policy != StalePolicyInclude {
				continue
			}
			o.Ambiguous = true
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CheckDate.After(out[j].CheckDate) })
	return out
}

// PartnersFor unions metadata partners with partners of overlapping memberships
func PartnersFor(self uuid.UUID, meta *PeriodMetadata, start time.Time, end *time.Time, memberships []BreedingMembership) []uuid.UUID {
	set := make(map[uuid.UUID]struct{})
	if meta != nil {
		for _, id := range meta.PartnerIDs {
			set[id] = struct{}{}
		}
	}
	for _, m := range memberships {
		if !m.Overlaps(start, end) {
			continue
		}
		for _, id := range m.PartnerIDs {
			set[id] = struct{}{}
		}
	}
	delete(set, self)
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sortIDs(out)
	return out
}

// ColocatedEntity is a preview entry of an entity sharing the zone
type ColocatedEntity struct {
	EntityID uuid.UUID `json:"entity_id"`
	Tag      string    `json:"tag"`
}

// ColocatedIDs returns the distinct other entities holding a period in zoneID that
// overlaps the window
func ColocatedIDs(self, zoneID uuid.UUID, start time.Time, end *time.Time, zonePeriods []PlacementPeriod) []uuid.UUID {
	set := make(map[uuid.UUID]struct{})
	for i := range zonePeriods {
		p := &zonePeriods[i]
		if p.ZoneID != zoneID || p.EntityID == self {
			continue
		}
		if p.Overlaps(start, end) {
			set[p.EntityID] = struct{}{}
		}
	}
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sortIDs(out)
	return out
}

// ColocatedPreview orders ids by tag and caps the preview at limit
func ColocatedPreview(ids []uuid.UUID, tags map[uuid.UUID]string, limit int) []ColocatedEntity {
	entries := make([]ColocatedEntity, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, ColocatedEntity{EntityID: id, Tag: tags[id]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Tag != entries[j].Tag {
			return entries[i].Tag < entries[j].Tag
		}
		return bytes.Compare(entries[i].EntityID[:], entries[j].EntityID[:]) < 0
	})
	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func inWindow(t, start time.Time, end *time.Time) bool {
	if end != nil && !end.After(start) {
		return t.Equal(start)
	}
	if t.Before(start) {
		return false
	}
	return end == nil || t.Before(*end)
}
