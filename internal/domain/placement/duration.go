package placement

import (
	"fmt"
	"sync"
	"time"
)

const oneDay = 24 * time.Hour

// StartDateRule resolves the effective start of a period. related holds the other
// ledger periods of the same entity, for rules that consult linked sub-periods.
type StartDateRule func(period *PlacementPeriod, related []PlacementPeriod) time.Time

// EffectiveDuration is the resolved elapsed time of a period
type EffectiveDuration struct {
	StartDate   time.Time `json:"start_date"`
	ElapsedDays int       `json:"elapsed_days"`
	SpanDays    *int      `json:"span_days,omitempty"`
}

// DurationResolver resolves "time in function" through one rule per function type
type DurationResolver struct {
	mu    sync.RWMutex
	rules map[FunctionType]StartDateRule
	now   func() time.Time
}

// NewDurationResolver creates a resolver with the built-in rules registered.
// A nil clock defaults to time.Now.
func NewDurationResolver(now func() time.Time) *DurationResolver {
	if now == nil {
		now = time.Now
	}
	r := &DurationResolver{
		rules: make(map[FunctionType]StartDateRule),
		now:   now,
	}
	r.Register(FunctionBreedingGroup, pairingStart)
	r.Register(FunctionConfirmedPregnant, earliestSubPeriodStart)
	return r
}

// Register installs or replaces the rule for a function type
func (r *DurationResolver) Register(fn FunctionType, rule StartDateRule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[fn] = rule
}

// Now returns the resolver's current instant
func (r *DurationResolver) Now() time.Time {
	return r.now()
}

// EffectiveStart returns the start date elapsed time is counted from
func (r *DurationResolver) EffectiveStart(period *PlacementPeriod, related []PlacementPeriod) time.Time {
	r.mu.RLock()
	rule, ok := r.rules[period.FunctionType]
	r.mu.RUnlock()
	if !ok {
		return period.StartDate
	}
	return rule(period, related)
}

// Resolve computes the effective duration of a period against now
func (r *DurationResolver) Resolve(period *PlacementPeriod, related []PlacementPeriod) EffectiveDuration {
	start := r.EffectiveStart(period, related)
	d := EffectiveDuration{
		StartDate:   start,
		ElapsedDays: DaysBetween(start, r.now()),
	}
	if period.EndDate != nil {
		span := DaysBetween(start, *period.EndDate)
		d.SpanDays = &span
	}
	return d
}

// DaysBetween is the whole-day difference to-from, both truncated to midnight UTC first
func DaysBetween(from, to time.Time) int {
	return int(midnightUTC(to).Sub(midnightUTC(from)) / oneDay)
}

// FormatDays renders a day count for display
func FormatDays(n int) string {
	if n < 0 {
		n = 0
	}
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

func midnightUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// breeding clocks can start before the formal period row exists
func pairingStart(period *PlacementPeriod, _ []PlacementPeriod) time.Time {
	if ps := period.Metadata.PairingStartDate; ps != nil && !ps.IsZero() {
		return *ps
	}
	return period.StartDate
}

// the coarse row may be recorded after the status was actually confirmed
func earliestSubPeriodStart(period *PlacementPeriod, related []PlacementPeriod) time.Time {
	var best *time.Time
	for i := range related {
		sub := &related[i]
		if sub.ID == period.ID || sub.FunctionType != period.FunctionType {
			continue
		}
		parent := sub.Metadata.ParentPeriodID
		if parent == nil || *parent != period.ID {
			continue
		}
		if best == nil || sub.StartDate.Before(*best) {
			s := sub.StartDate
			best = &s
		}
	}
	if best == nil {
		return period.StartDate
	}
	return *best
}
