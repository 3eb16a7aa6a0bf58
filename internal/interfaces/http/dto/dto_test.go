package dto

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmtrack/backend/internal/domain/placement"
	"github.com/farmtrack/backend/internal/domain/shared"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInternal, http.StatusInternalServerError},
		{"STORE_UNAVAILABLE", http.StatusServiceUnavailable},
		{"CONCURRENT_MUTATION", http.StatusConflict},
		{"PERIOD_NOT_FOUND", http.StatusNotFound},
		{"UNKNOWN_RESOLUTION", http.StatusBadRequest},
		{"AMBIGUOUS_LEDGER", http.StatusUnprocessableEntity},
		{"SOMETHING_NEW", http.StatusUnprocessableEntity},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestPlacementErrorsAreMapped(t *testing.T) {
	for _, err := range []*shared.DomainError{
		placement.ErrStoreUnavailable,
		placement.ErrReferentialGap,
		placement.ErrNoSourceOfTruth,
		placement.ErrConcurrentMutation,
		placement.ErrAmbiguousLedger,
		placement.ErrUnknownResolution,
		placement.ErrEntityNotFound,
		placement.ErrPeriodNotFound,
		placement.ErrZoneNotFound,
	} {
		_, ok := ErrorCodeHTTPStatus[err.Code]
		assert.True(t, ok, "no status for %s", err.Code)
	}
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2}, 41, 2, 20)
	require.NotNil(t, resp.Meta)
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	resp = NewSuccessResponseWithMeta(nil, 5, 1, 0)
	assert.Equal(t, 0, resp.Meta.TotalPages)
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("bad", "req-1", []ValidationDetail{{Field: "zone_id", Message: "required"}})

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 1)
}

func TestNewPeriodResponse(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 10)
	p := placement.PlacementPeriod{
		BaseEntity:   shared.BaseEntity{ID: uuid.New()},
		EntityID:     uuid.New(),
		ZoneID:       uuid.New(),
		FunctionType: placement.FunctionQuarantine,
		StartDate:    start,
	}

	open := NewPeriodResponse(p)
	assert.True(t, open.Open)
	assert.Equal(t, p.ID, open.ID)

	p.EndDate = &end
	closed := NewPeriodResponses([]placement.PlacementPeriod{p})
	require.Len(t, closed, 1)
	assert.False(t, closed[0].Open)
	assert.Equal(t, end, *closed[0].EndDate)
}
