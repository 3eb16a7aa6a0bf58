package dto

import "net/http"

// Transport-level error codes. Domain errors keep their own codes.
const (
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeTimeout         = "REQUEST_TIMEOUT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeTimeout:         http.StatusGatewayTimeout,

	// store
	"STORE_UNAVAILABLE": http.StatusServiceUnavailable,

	// lookups
	"ENTITY_NOT_FOUND": http.StatusNotFound,
	"PERIOD_NOT_FOUND": http.StatusNotFound,
	"ZONE_NOT_FOUND":   http.StatusNotFound,

	// request shape
	"UNKNOWN_RESOLUTION": http.StatusBadRequest,
	"INVALID_INPUT":      http.StatusBadRequest,
	"INVALID_PERIOD":     http.StatusBadRequest,
	"INVALID_ZONE":       http.StatusBadRequest,
	"INVALID_TAG":        http.StatusBadRequest,

	// ledger races
	"CONCURRENT_MUTATION":  http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"ALREADY_EXISTS":       http.StatusConflict,

	// business rules
	"REFERENTIAL_GAP":        http.StatusUnprocessableEntity,
	"NO_SOURCE_OF_TRUTH":     http.StatusUnprocessableEntity,
	"AMBIGUOUS_LEDGER":       http.StatusUnprocessableEntity,
	"ALREADY_CONSISTENT":     http.StatusUnprocessableEntity,
	"INVALID_STATE":          http.StatusUnprocessableEntity,
	"INVALID_PLACEMENT_DATE": http.StatusUnprocessableEntity,
	"NOT_PLACED":             http.StatusUnprocessableEntity,
	"PERIOD_CLOSED":          http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status for an error code.
// Unknown codes are treated as business rule violations.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if code == "" {
		return http.StatusInternalServerError
	}
	return http.StatusUnprocessableEntity
}
