package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity holds the identity and bookkeeping timestamps every record shares.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Touch bumps UpdatedAt to the given instant
func (e *BaseEntity) Touch(at time.Time) {
	e.UpdatedAt = at.UTC()
}

// NewBaseEntity creates a new base entity with generated ID.
// Timestamps are UTC, truncated to the second, so that stored values compare
// consistently across postgres and sqlite.
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC().Truncate(time.Second)
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
