package placement

import (
	"github.com/farmtrack/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ZoneType is the declared type of a zone
type ZoneType string

const (
	ZoneTypePen        ZoneType = "pen"
	ZoneTypePasture    ZoneType = "pasture"
	ZoneTypeQuarantine ZoneType = "quarantine"
	ZoneTypeMaternity  ZoneType = "maternity"
)

// Zone is a location an entity can occupy
type Zone struct {
	shared.BaseEntity
	Name     string
	Type     ZoneType
	Capacity int
}

// NewZone creates a new zone
func NewZone(name string, zoneType ZoneType, capacity int) (*Zone, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_ZONE", "Zone name cannot be empty")
	}
	if capacity < 0 {
		return nil, shared.NewDomainError("INVALID_ZONE", "Zone capacity cannot be negative")
	}
	return &Zone{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Type:       zoneType,
		Capacity:   capacity,
	}, nil
}

// ZoneSet is a lookup of existing zone ids
type ZoneSet map[uuid.UUID]struct{}

// NewZoneSet builds a ZoneSet from ids
func NewZoneSet(ids ...uuid.UUID) ZoneSet {
	s := make(ZoneSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether the zone exists
func (s ZoneSet) Has(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}
