package placement

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStalenessOf(t *testing.T) {
	check := PregnancyCheck{ID: uuid.New(), CheckDate: day(2024, 2, 1), Result: PregnancyPositive}

	t.Run("birth after the check makes it stale", func(t *testing.T) {
		assert.Equal(t, Stale, StalenessOf(check, []BirthRecord{{BirthDate: day(2024, 6, 1)}}))
	})

	t.Run("birth on the check date makes it stale", func(t *testing.T) {
		assert.Equal(t, Stale, StalenessOf(check, []BirthRecord{{BirthDate: day(2024, 2, 1)}}))
	})

	t.Run("only earlier births keep it current", func(t *testing.T) {
		assert.Equal(t, NotStale, StalenessOf(check, []BirthRecord{{BirthDate: day(2023, 1, 1)}}))
	})

	t.Run("no births at all is ambiguous", func(t *testing.T) {
		assert.Equal(t, Ambiguous, StalenessOf(check, nil))
	})

	t.Run("negative checks are never stale", func(t *testing.T) {
		neg := check
		neg.Result = PregnancyNegative
		assert.Equal(t, NotStale, StalenessOf(neg, nil))
	})
}

func TestOutcomesFor(t *testing.T) {
	entity := uuid.New()
	checks := []PregnancyCheck{
		{ID: uuid.New(), EntityID: entity, CheckDate: day(2024, 1, 15), Result: PregnancyPositive},
		{ID: uuid.New(), EntityID: entity, CheckDate: day(2024, 2, 15), Result: PregnancyNegative},
		{ID: uuid.New(), EntityID: entity, CheckDate: day(2024, 6, 1), Result: PregnancyPositive},
	}
	end := day(2024, 6, 1)

	t.Run("selects checks inside the half-open window", func(t *testing.T) {
		out := OutcomesFor(day(2024, 1, 1), &end, checks, []BirthRecord{{BirthDate: day(2023, 1, 1)}}, StalePolicyExclude)
		require.Len(t, out, 2)
		assert.True(t, out[0].CheckDate.Equal(day(2024, 2, 15)), "newest first")
		assert.False(t, out[1].Stale)
	})

	t.Run("flags stale positives", func(t *testing.T) {
		out := OutcomesFor(day(2024, 1, 1), &end, checks, []BirthRecord{{BirthDate: day(2024, 5, 1)}}, StalePolicyExclude)
		require.Len(t, out, 2)
		assert.True(t, out[1].Stale)
	})

	t.Run("exclude policy drops ambiguous positives", func(t *testing.T) {
		out := OutcomesFor(day(2024, 1, 1), &end, checks, nil, StalePolicyExclude)
		require.Len(t, out, 1)
		assert.Equal(t, PregnancyNegative, out[0].Result)
	})

	t.Run("include policy keeps ambiguous positives", func(t *testing.T) {
		out := OutcomesFor(day(2024, 1, 1), &end, checks, nil, StalePolicyInclude)
		require.Len(t, out, 2)
		assert.True(t, out[1].Ambiguous)
		assert.False(t, out[1].Stale)
	})

	t.Run("point window matches the exact instant", func(t *testing.T) {
		at := day(2024, 2, 15)
		out := OutcomesFor(at, &at, checks, nil, StalePolicyExclude)
		require.Len(t, out, 1)
	})
}

func TestParseStalePolicy(t *testing.T) {
	p, err := ParseStalePolicy("include")
	require.NoError(t, err)
	assert.Equal(t, StalePolicyInclude, p)

	_, err = ParseStalePolicy("maybe")
	assert.Error(t, err)
}

func TestPartnersFor(t *testing.T) {
	self := uuid.New()
	fromMeta, fromGroup, outside := uuid.New(), uuid.New(), uuid.New()
	end := day(2024, 3, 1)
	meta := &PeriodMetadata{PartnerIDs: []uuid.UUID{fromMeta}}
	memberships := []BreedingMembership{
		{ID: uuid.New(), EntityID: self, PartnerIDs: []uuid.UUID{fromGroup, self, fromMeta}, StartDate: day(2024, 2, 1)},
		{ID: uuid.New(), EntityID: self, PartnerIDs: []uuid.UUID{outside}, StartDate: day(2023, 1, 1), EndDate: timePtr(day(2023, 6, 1))},
	}

	partners := PartnersFor(self, meta, day(2024, 1, 1), &end, memberships)
	assert.ElementsMatch(t, []uuid.UUID{fromMeta, fromGroup}, partners)
}

func TestColocated(t *testing.T) {
	self, zone := uuid.New(), uuid.New()
	a, b, c, gone := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	end := day(2024, 6, 1)
	zonePeriods := []PlacementPeriod{
		ledgerPeriod(self, zone, FunctionGeneral, day(2024, 1, 1), &end),
		ledgerPeriod(a, zone, FunctionGeneral, day(2024, 2, 1), nil),
		ledgerPeriod(a, zone, FunctionGeneral, day(2023, 2, 1), timePtr(day(2024, 1, 10))),
		ledgerPeriod(b, zone, FunctionGeneral, day(2023, 2, 1), timePtr(day(2024, 1, 10))),
		ledgerPeriod(c, zone, FunctionGeneral, day(2024, 5, 31), nil),
		ledgerPeriod(gone, zone, FunctionGeneral, day(2023, 1, 1), timePtr(day(2024, 1, 1))),
		ledgerPeriod(uuid.New(), uuid.New(), FunctionGeneral, day(2024, 2, 1), nil),
	}

	ids := ColocatedIDs(self, zone, day(2024, 1, 1), &end, zonePeriods)
	assert.ElementsMatch(t, []uuid.UUID{a, b, c}, ids)

	tags := map[uuid.UUID]string{a: "C-3", b: "A-1", c: "B-2"}
	preview := ColocatedPreview(ids, tags, 2)
	require.Len(t, preview, 2)
	assert.Equal(t, "A-1", preview[0].Tag)
	assert.Equal(t, "B-2", preview[1].Tag)

	assert.Len(t, ColocatedPreview(ids, tags, 10), 3)
	assert.Empty(t, ColocatedPreview(ids, tags, 0))
}
