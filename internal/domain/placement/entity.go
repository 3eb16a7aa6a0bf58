package placement

import (
	"time"

	"github.com/farmtrack/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// LifecycleStatus is the lifecycle state of a tracked entity
type LifecycleStatus string

const (
	LifecycleActive   LifecycleStatus = "active"
	LifecycleSold     LifecycleStatus = "sold"
	LifecycleDeceased LifecycleStatus = "deceased"
	LifecycleArchived LifecycleStatus = "archived"
)

// IsValid returns true if the status is one of the known lifecycle states
func (s LifecycleStatus) IsValid() bool {
	switch s {
	case LifecycleActive, LifecycleSold, LifecycleDeceased, LifecycleArchived:
		return true
	}
	return false
}

// TrackedEntity is the subject whose location is managed (an animal).
// CurrentZoneID is the denormalized mirror of the ledger's open period.
type TrackedEntity struct {
	shared.BaseAggregateRoot
	Tag           string
	Status        LifecycleStatus
	CurrentZoneID *uuid.UUID
}

// NewTrackedEntity creates a new active entity with no placement
func NewTrackedEntity(tag string) (*TrackedEntity, error) {
	if tag == "" {
		return nil, shared.NewDomainError("INVALID_TAG", "Entity tag cannot be empty")
	}
	return &TrackedEntity{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Tag:               tag,
		Status:            LifecycleActive,
	}, nil
}

// IsActive returns true if the entity is in the active lifecycle state
func (e *TrackedEntity) IsActive() bool {
	return e.Status == LifecycleActive
}

// SetMirror overwrites the denormalized current-zone pointer
func (e *TrackedEntity) SetMirror(zoneID *uuid.UUID, at time.Time) {
	e.CurrentZoneID = cloneID(zoneID)
	e.Touch(at)
	e.IncrementVersion()
}

// MirrorEquals reports whether the mirror points at zoneID (nil-aware)
func (e *TrackedEntity) MirrorEquals(zoneID *uuid.UUID) bool {
	return sameZone(e.CurrentZoneID, zoneID)
}

func sameZone(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
