package placement

import (
	"time"

	"github.com/google/uuid"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func idPtr(id uuid.UUID) *uuid.UUID {
	return &id
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func openRow(entityID uuid.UUID, tag string, mirror *uuid.UUID, zoneID uuid.UUID) OpenPlacementRow {
	start := day(2024, 1, 1)
	return OpenPlacementRow{
		EntityID:         entityID,
		Tag:              tag,
		Status:           LifecycleActive,
		EntityVersion:    1,
		MirrorZoneID:     mirror,
		MirrorZoneExists: mirror != nil,
		PeriodID:         idPtr(uuid.New()),
		PeriodZoneID:     idPtr(zoneID),
		PeriodZoneExists: true,
		PeriodStart:      &start,
	}
}

func bareRow(entityID uuid.UUID, tag string, mirror *uuid.UUID) OpenPlacementRow {
	return OpenPlacementRow{
		EntityID:         entityID,
		Tag:              tag,
		Status:           LifecycleActive,
		EntityVersion:    1,
		MirrorZoneID:     mirror,
		MirrorZoneExists: mirror != nil,
	}
}

func ledgerPeriod(entityID, zoneID uuid.UUID, fn FunctionType, start time.Time, end *time.Time) PlacementPeriod {
	p, err := NewPlacementPeriod(entityID, zoneID, fn, start, PeriodMetadata{})
	if err != nil {
		panic(err)
	}
	p.EndDate = end
	return *p
}
