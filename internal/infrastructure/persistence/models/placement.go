package models

import (
	"encoding/json"
	"time"

	"github.com/farmtrack/backend/internal/domain/placement"
	"github.com/google/uuid"
)

// TrackedEntityModel is the persistence model for the TrackedEntity aggregate root.
// Only current_zone_id and version are written by the placement engine.
type TrackedEntityModel struct {
	AggregateModel
	Tag           string     `gorm:"type:varchar(64);not null;index"`
	Status        string     `gorm:"type:varchar(20);not null;default:'active';index"`
	CurrentZoneID *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (TrackedEntityModel) TableName() string {
	return "tracked_entities"
}

// ToDomain converts the persistence model to a domain TrackedEntity
func (m *TrackedEntityModel) ToDomain() *placement.TrackedEntity {
	return &placement.TrackedEntity{
		BaseAggregateRoot: m.AggregateModel.ToDomainAggregateRoot(),
		Tag:               m.Tag,
		Status:            placement.LifecycleStatus(m.Status),
		CurrentZoneID:     m.CurrentZoneID,
	}
}

// FromDomain populates the persistence model from a domain TrackedEntity
func (m *TrackedEntityModel) FromDomain(e *placement.TrackedEntity) {
	m.FromDomainAggregateRoot(e.BaseAggregateRoot)
	m.Tag = e.Tag
	m.Status = string(e.Status)
	m.CurrentZoneID = e.CurrentZoneID
}

// TrackedEntityModelFromDomain creates a new persistence model from domain TrackedEntity
func TrackedEntityModelFromDomain(e *placement.TrackedEntity) *TrackedEntityModel {
	m := &TrackedEntityModel{}
	m.FromDomain(e)
	return m
}

// ZoneModel is the persistence model for zones
type ZoneModel struct {
	BaseModel
	Name     string `gorm:"type:varchar(100);not null"`
	Type     string `gorm:"type:varchar(20);not null"`
	Capacity int    `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ZoneModel) TableName() string {
	return "zones"
}

// ToDomain converts the persistence model to a domain Zone
func (m *ZoneModel) ToDomain() *placement.Zone {
	return &placement.Zone{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
		Type:       placement.ZoneType(m.Type),
		Capacity:   m.Capacity,
	}
}

// FromDomain populates the persistence model from a domain Zone
func (m *ZoneModel) FromDomain(z *placement.Zone) {
	m.FromDomainBaseEntity(z.BaseEntity)
	m.Name = z.Name
	m.Type = string(z.Type)
	m.Capacity = z.Capacity
}

// ZoneModelFromDomain creates a new persistence model from domain Zone
func ZoneModelFromDomain(z *placement.Zone) *ZoneModel {
	m := &ZoneModel{}
	m.FromDomain(z)
	return m
}

// PlacementPeriodModel is the persistence model for a ledger row
type PlacementPeriodModel struct {
	BaseModel
	EntityID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_period_entity_open,priority:1"`
	ZoneID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	FunctionType string     `gorm:"type:varchar(32);not null;default:'general'"`
	StartDate    time.Time  `gorm:"not null;index"`
	EndDate      *time.Time `gorm:"index:idx_period_entity_open,priority:2"`
	Metadata     string     `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (PlacementPeriodModel) TableName() string {
	return "placement_periods"
}

// ToDomain converts the persistence model to a domain PlacementPeriod.
// Unreadable metadata degrades to the zero value rather than hiding the row.
func (m *PlacementPeriodModel) ToDomain() *placement.PlacementPeriod {
	p := &placement.PlacementPeriod{
		BaseEntity:   m.BaseModel.ToDomain(),
		EntityID:     m.EntityID,
		ZoneID:       m.ZoneID,
		FunctionType: placement.FunctionType(m.FunctionType),
		StartDate:    m.StartDate.UTC(),
		EndDate:      utcPtr(m.EndDate),
	}
	if m.Metadata != "" {
		_ = json.Unmarshal([]byte(m.Metadata), &p.Metadata)
	}
	return p
}

// FromDomain populates the persistence model from a domain PlacementPeriod
func (m *PlacementPeriodModel) FromDomain(p *placement.PlacementPeriod) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.EntityID = p.EntityID
	m.ZoneID = p.ZoneID
	m.FunctionType = string(p.FunctionType)
	m.StartDate = p.StartDate
	m.EndDate = p.EndDate
	m.Metadata = "{}"
	if jsonBytes, err := json.Marshal(p.Metadata); err == nil {
		m.Metadata = string(jsonBytes)
	}
}

// PlacementPeriodModelFromDomain creates a new persistence model from domain PlacementPeriod
func PlacementPeriodModelFromDomain(p *placement.PlacementPeriod) *PlacementPeriodModel {
	m := &PlacementPeriodModel{}
	m.FromDomain(p)
	return m
}

// OpenPlacementScanRow receives one row of the audit LEFT JOIN
type OpenPlacementScanRow struct {
	EntityID         uuid.UUID
	Tag              string
	Status           string
	EntityVersion    int
	MirrorZoneID     *uuid.UUID
	MirrorZoneExists bool
	PeriodID         *uuid.UUID
	PeriodZoneID     *uuid.UUID
	PeriodZoneExists bool
	PeriodStart      *time.Time
}

// ToDomain converts the scan row to a domain OpenPlacementRow
func (r *OpenPlacementScanRow) ToDomain() placement.OpenPlacementRow {
	return placement.OpenPlacementRow{
		EntityID:         r.EntityID,
		Tag:              r.Tag,
		Status:           placement.LifecycleStatus(r.Status),
		EntityVersion:    r.EntityVersion,
		MirrorZoneID:     r.MirrorZoneID,
		MirrorZoneExists: r.MirrorZoneExists,
		PeriodID:         r.PeriodID,
		PeriodZoneID:     r.PeriodZoneID,
		PeriodZoneExists: r.PeriodZoneExists,
		PeriodStart:      utcPtr(r.PeriodStart),
	}
}
