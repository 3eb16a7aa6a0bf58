package models

import (
	"encoding/json"
	"time"

	"github.com/farmtrack/backend/internal/domain/placement"
	"github.com/google/uuid"
)

// LegacyMovementModel maps the deprecated movement log. The table is never written
// by the placement engine.
type LegacyMovementModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key"`
	EntityID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	FromZoneID *uuid.UUID `gorm:"type:uuid"`
	ToZoneID   *uuid.UUID `gorm:"type:uuid"`
	MovedAt    time.Time  `gorm:"not null"`
	Reason     string     `gorm:"type:text"`
	Actor      string     `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (LegacyMovementModel) TableName() string {
	return "legacy_movements"
}

// ToDomain converts the persistence model to a domain LegacyMovement
func (m *LegacyMovementModel) ToDomain() placement.LegacyMovement {
	return placement.LegacyMovement{
		ID:         m.ID,
		EntityID:   m.EntityID,
		FromZoneID: m.FromZoneID,
		ToZoneID:   m.ToZoneID,
		MovedAt:    m.MovedAt.UTC(),
		Reason:     m.Reason,
		Actor:      m.Actor,
	}
}

// FromDomain populates the persistence model (used by fixtures and imports)
func (m *LegacyMovementModel) FromDomain(mv placement.LegacyMovement) {
	m.ID = mv.ID
	m.EntityID = mv.EntityID
	m.FromZoneID = mv.FromZoneID
	m.ToZoneID = mv.ToZoneID
	m.MovedAt = mv.MovedAt
	m.Reason = mv.Reason
	m.Actor = mv.Actor
}

// LegacyEventModel maps the deprecated event log
type LegacyEventModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key"`
	EntityID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	EventType      string     `gorm:"type:varchar(32);not null"`
	EventDate      time.Time  `gorm:"not null"`
	ZoneID         *uuid.UUID `gorm:"type:uuid"`
	PreviousZoneID *uuid.UUID `gorm:"type:uuid"`
	Reason         string     `gorm:"type:text"`
	Metadata       string     `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (LegacyEventModel) TableName() string {
	return "legacy_events"
}

// ToDomain converts the persistence model to a domain LegacyEvent
func (m *LegacyEventModel) ToDomain() placement.LegacyEvent {
	e := placement.LegacyEvent{
		ID:             m.ID,
		EntityID:       m.EntityID,
		EventType:      placement.LegacyEventType(m.EventType),
		EventDate:      m.EventDate.UTC(),
		ZoneID:         m.ZoneID,
		PreviousZoneID: m.PreviousZoneID,
		Reason:         m.Reason,
	}
	if m.Metadata != "" {
		_ = json.Unmarshal([]byte(m.Metadata), &e.Metadata)
	}
	return e
}

// FromDomain populates the persistence model (used by fixtures and imports)
func (m *LegacyEventModel) FromDomain(e placement.LegacyEvent) {
	m.ID = e.ID
	m.EntityID = e.EntityID
	m.EventType = string(e.EventType)
	m.EventDate = e.EventDate
	m.ZoneID = e.ZoneID
	m.PreviousZoneID = e.PreviousZoneID
	m.Reason = e.Reason
	m.Metadata = "{}"
	if len(e.Metadata) > 0 {
		if jsonBytes, err := json.Marshal(e.Metadata); err == nil {
			m.Metadata = string(jsonBytes)
		}
	}
}
