package placement

import (
	"time"

	"github.com/google/uuid"
)

// LegacyEventType classifies records of the deprecated event log
type LegacyEventType string

const (
	LegacyEventPlacement LegacyEventType = "placement"
	LegacyEventMovement  LegacyEventType = "movement"
	LegacyEventHealth    LegacyEventType = "health"
	LegacyEventBreeding  LegacyEventType = "breeding"
	LegacyEventWeighing  LegacyEventType = "weighing"
)

// IsPlacement returns true for event types that carry placement semantics
func (t LegacyEventType) IsPlacement() bool {
	return t == LegacyEventPlacement || t == LegacyEventMovement
}

// LegacyMovement is an immutable row of the deprecated movement log
type LegacyMovement struct {
	ID         uuid.UUID
	EntityID   uuid.UUID
	FromZoneID *uuid.UUID
	ToZoneID   *uuid.UUID
	MovedAt    time.Time
	Reason     string
	Actor      string
}

// LegacyEvent is an immutable row of the deprecated event log
type LegacyEvent struct {
	ID             uuid.UUID
	EntityID       uuid.UUID
	EventType      LegacyEventType
	EventDate      time.Time
	ZoneID         *uuid.UUID
	PreviousZoneID *uuid.UUID
	Reason         string
	Metadata       map[string]any
}
