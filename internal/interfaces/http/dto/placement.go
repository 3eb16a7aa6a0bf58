package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/farmtrack/backend/internal/domain/placement"
)

// AuditQuery are the query parameters of the audit endpoint
type AuditQuery struct {
	ActiveOnly *bool `form:"active_only"`
	Refresh    bool  `form:"refresh"`
}

// ReconcileRequest maps entity ids to the resolution chosen for each.
// Entities absent from the map are not touched. ExpectedVersions optionally
// carries the finding versions of the audit the resolutions were chosen from.
type ReconcileRequest struct {
	Resolutions      map[string]string `json:"resolutions" binding:"required,min=1,dive,keys,uuid,endkeys,required"`
	ExpectedVersions map[string]int    `json:"expected_versions" binding:"omitempty,dive,keys,uuid,endkeys,min=1"`
}

// MoveRequest places an entity into a zone
type MoveRequest struct {
	ZoneID           string     `json:"zone_id" binding:"required,uuid"`
	FunctionType     string     `json:"function_type" binding:"omitempty,oneof=general breeding-group confirmed-pregnant quarantine nursing"`
	At               *time.Time `json:"at"`
	PairingStartDate *time.Time `json:"pairing_start_date"`
	PartnerIDs       []string   `json:"partner_ids" binding:"omitempty,max=50,dive,uuid"`
	Notes            string     `json:"notes" binding:"max=500"`
}

// CloseRequest closes the entity's open periods without opening a new one
type CloseRequest struct {
	At     *time.Time `json:"at"`
	Reason string     `json:"reason" binding:"max=200"`
}

// PeriodListQuery filters the period ledger listing
type PeriodListQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=start_date end_date created_at"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	EntityID string `form:"entity_id" binding:"omitempty,uuid"`
	ZoneID   string `form:"zone_id" binding:"omitempty,uuid"`
	Open     *bool  `form:"open"`
}

// PeriodResponse is the wire form of a ledger period
type PeriodResponse struct {
	ID           uuid.UUID                `json:"id"`
	EntityID     uuid.UUID                `json:"entity_id"`
	ZoneID       uuid.UUID                `json:"zone_id"`
	FunctionType placement.FunctionType   `json:"function_type"`
	StartDate    time.Time                `json:"start_date"`
	EndDate      *time.Time               `json:"end_date,omitempty"`
	Open         bool                     `json:"open"`
	Metadata     placement.PeriodMetadata `json:"metadata"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

// NewPeriodResponse converts a domain period
func NewPeriodResponse(p placement.PlacementPeriod) PeriodResponse {
	return PeriodResponse{
		ID:           p.ID,
		EntityID:     p.EntityID,
		ZoneID:       p.ZoneID,
		FunctionType: p.FunctionType,
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
		Open:         p.EndDate == nil,
		Metadata:     p.Metadata,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// NewPeriodResponses converts a slice of domain periods
func NewPeriodResponses(periods []placement.PlacementPeriod) []PeriodResponse {
	out := make([]PeriodResponse, len(periods))
	for i, p := range periods {
		out[i] = NewPeriodResponse(p)
	}
	return out
}
