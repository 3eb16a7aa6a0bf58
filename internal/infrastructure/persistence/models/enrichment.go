package models

import (
	"encoding/json"
	"time"

	"github.com/farmtrack/backend/internal/domain/placement"
	"github.com/google/uuid"
)

// BreedingMembershipModel maps a breeding-group membership
type BreedingMembershipModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	GroupID    uuid.UUID `gorm:"type:uuid;not null;index"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index"`
	PartnerIDs string    `gorm:"column:partner_ids;type:jsonb;default:'[]'"`
	StartDate  time.Time `gorm:"not null"`
	EndDate    *time.Time
}

// TableName returns the table name for GORM
func (BreedingMembershipModel) TableName() string {
	return "breeding_memberships"
}

// ToDomain converts the persistence model to a domain BreedingMembership
func (m *BreedingMembershipModel) ToDomain() placement.BreedingMembership {
	b := placement.BreedingMembership{
		ID:        m.ID,
		GroupID:   m.GroupID,
		EntityID:  m.EntityID,
		StartDate: m.StartDate.UTC(),
		EndDate:   utcPtr(m.EndDate),
	}
	if m.PartnerIDs != "" {
		_ = json.Unmarshal([]byte(m.PartnerIDs), &b.PartnerIDs)
	}
	return b
}

// FromDomain populates the persistence model from a domain BreedingMembership
func (m *BreedingMembershipModel) FromDomain(b placement.BreedingMembership) {
	m.ID = b.ID
	m.GroupID = b.GroupID
	m.EntityID = b.EntityID
	m.StartDate = b.StartDate
	m.EndDate = b.EndDate
	m.PartnerIDs = "[]"
	if len(b.PartnerIDs) > 0 {
		if jsonBytes, err := json.Marshal(b.PartnerIDs); err == nil {
			m.PartnerIDs = string(jsonBytes)
		}
	}
}

// PregnancyCheckModel maps a pregnancy-check outcome
type PregnancyCheckModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	EntityID  uuid.UUID `gorm:"type:uuid;not null;index"`
	CheckDate time.Time `gorm:"not null"`
	Result    string    `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (PregnancyCheckModel) TableName() string {
	return "pregnancy_checks"
}

// ToDomain converts the persistence model to a domain PregnancyCheck
func (m *PregnancyCheckModel) ToDomain() placement.PregnancyCheck {
	return placement.PregnancyCheck{
		ID:        m.ID,
		EntityID:  m.EntityID,
		CheckDate: m.CheckDate.UTC(),
		Result:    placement.PregnancyResult(m.Result),
	}
}

// FromDomain populates the persistence model from a domain PregnancyCheck
func (m *PregnancyCheckModel) FromDomain(c placement.PregnancyCheck) {
	m.ID = c.ID
	m.EntityID = c.EntityID
	m.CheckDate = c.CheckDate
	m.Result = string(c.Result)
}

// BirthRecordModel maps a recorded birth
type BirthRecordModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	EntityID  uuid.UUID `gorm:"type:uuid;not null;index"`
	BirthDate time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BirthRecordModel) TableName() string {
	return "birth_records"
}

// ToDomain converts the persistence model to a domain BirthRecord
func (m *BirthRecordModel) ToDomain() placement.BirthRecord {
	return placement.BirthRecord{
		ID:        m.ID,
		EntityID:  m.EntityID,
		BirthDate: m.BirthDate.UTC(),
	}
}

// FromDomain populates the persistence model from a domain BirthRecord
func (m *BirthRecordModel) FromDomain(b placement.BirthRecord) {
	m.ID = b.ID
	m.EntityID = b.EntityID
	m.BirthDate = b.BirthDate
}
