package placement

import (
	"time"

	"github.com/farmtrack/backend/internal/domain/placement"
	"github.com/google/uuid"
)

// Reconcile outcome names, also used as metric attributes
const (
	OutcomeApplied = "applied"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Skip reasons
const (
	SkipRequested         = "skip"
	SkipAlreadyConsistent = "already_consistent"
	SkipCancelled         = "cancelled"
)

// AuditRequest selects the audited population. A nil ActiveOnly uses the configured default.
type AuditRequest struct {
	ActiveOnly *bool
	Refresh    bool
}

// ReconcileRequest carries the operator's resolutions. ExpectedVersions is
// optional; an entry pins the entity version shown in the audit the operator
// decided on, and a fix whose entity has moved past it is abandoned.
type ReconcileRequest struct {
	Resolutions      map[uuid.UUID]placement.Resolution
	ExpectedVersions map[uuid.UUID]int
}

// SkippedEntity is a resolution that was not applied and is not an error
type SkippedEntity struct {
	EntityID uuid.UUID `json:"entity_id"`
	Reason   string    `json:"reason"`
}

// FailedEntity is a resolution whose fix was abandoned
type FailedEntity struct {
	EntityID uuid.UUID `json:"entity_id"`
	Code     string    `json:"code"`
	Message  string    `json:"message"`
}

// ReproducedFinding is an applied fix whose entity still shows a finding afterwards
type ReproducedFinding struct {
	EntityID uuid.UUID              `json:"entity_id"`
	Class    placement.FindingClass `json:"class"`
}

// ReconcileResult aggregates per-entity outcomes of one reconcile call
type ReconcileResult struct {
	Applied         []uuid.UUID              `json:"applied"`
	Skipped         []SkippedEntity          `json:"skipped"`
	Failed          []FailedEntity           `json:"failed"`
	Before          placement.FindingCounts  `json:"before"`
	After           *placement.FindingCounts `json:"after,omitempty"`
	Reproduced      []ReproducedFinding      `json:"reproduced"`
	AfterAuditError string                   `json:"after_audit_error,omitempty"`
}

// DurationResult is the resolved duration of one period
type DurationResult struct {
	PeriodID     uuid.UUID              `json:"period_id"`
	FunctionType placement.FunctionType `json:"function_type"`
	placement.EffectiveDuration
	Label string `json:"label"`
}

// MoveRequest moves an entity into a zone through the ledger
type MoveRequest struct {
	EntityID     uuid.UUID
	ZoneID       uuid.UUID
	FunctionType placement.FunctionType
	At           *time.Time
	Metadata     placement.PeriodMetadata
}

// CloseRequest ends an entity's placement without a successor
type CloseRequest struct {
	EntityID uuid.UUID
	At       *time.Time
	Reason   string
}
