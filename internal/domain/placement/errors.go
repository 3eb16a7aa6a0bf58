package placement

import (
	"errors"
	"fmt"

	"github.com/farmtrack/backend/internal/domain/shared"
)

// Error taxonomy of the placement engine
var (
	// ErrStoreUnavailable marks transient read/write failures against any store
	ErrStoreUnavailable = shared.NewDomainError("STORE_UNAVAILABLE", "Placement store is unavailable")
	// ErrReferentialGap marks a zone reference that no longer resolves
	ErrReferentialGap = shared.NewDomainError("REFERENTIAL_GAP", "Referenced zone does not exist")
	// ErrNoSourceOfTruth is returned for resolutions requested on unplaced entities
	ErrNoSourceOfTruth = shared.NewDomainError("NO_SOURCE_OF_TRUTH", "Entity has neither an open period nor a mirror zone")
	// ErrConcurrentMutation is returned when open-period state changed since the audit
	ErrConcurrentMutation = shared.NewDomainError("CONCURRENT_MUTATION", "Placement state changed since audit")
	// ErrAmbiguousLedger is returned for keep_ledger on an entity with several open periods
	ErrAmbiguousLedger = shared.NewDomainError("AMBIGUOUS_LEDGER", "Entity has more than one open period")
	// ErrUnknownResolution is returned for resolution values outside the closed set
	ErrUnknownResolution = shared.NewDomainError("UNKNOWN_RESOLUTION", "Unknown resolution")
	// ErrEntityNotFound is returned when the entity directory has no such entity
	ErrEntityNotFound = shared.NewDomainError("ENTITY_NOT_FOUND", "Entity not found")
	// ErrPeriodNotFound is returned when the ledger has no such period
	ErrPeriodNotFound = shared.NewDomainError("PERIOD_NOT_FOUND", "Placement period not found")
	// ErrZoneNotFound is returned when the zone directory has no such zone
	ErrZoneNotFound = shared.NewDomainError("ZONE_NOT_FOUND", "Zone not found")
)

// Unavailable wraps an infrastructure failure so that errors.Is(err, ErrStoreUnavailable) holds
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// ErrorCode extracts the domain error code of err, or "" when err carries none
func ErrorCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
