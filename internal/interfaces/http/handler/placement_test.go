package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	placementapp "github.com/farmtrack/backend/internal/application/placement"
	"github.com/farmtrack/backend/internal/domain/placement"
	"github.com/farmtrack/backend/internal/domain/shared"
	"github.com/farmtrack/backend/internal/interfaces/http/dto"
	"github.com/farmtrack/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type mockPlacementService struct {
	mock.Mock
}

func (m *mockPlacementService) Audit(ctx context.Context, req placementapp.AuditRequest) (*placement.AuditReport, error) {
	args := m.Called(ctx, req)
	report, _ := args.Get(0).(*placement.AuditReport)
	return report, args.Error(1)
}

func (m *mockPlacementService) Reconcile(ctx context.Context, req placementapp.ReconcileRequest) (*placementapp.ReconcileResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*placementapp.ReconcileResult)
	return result, args.Error(1)
}

func (m *mockPlacementService) Timeline(ctx context.Context, entityID uuid.UUID) (*placement.Timeline, error) {
	args := m.Called(ctx, entityID)
	tl, _ := args.Get(0).(*placement.Timeline)
	return tl, args.Error(1)
}

func (m *mockPlacementService) EffectiveDuration(ctx context.Context, periodID uuid.UUID) (*placementapp.DurationResult, error) {
	args := m.Called(ctx, periodID)
	d, _ := args.Get(0).(*placementapp.DurationResult)
	return d, args.Error(1)
}

func (m *mockPlacementService) Move(ctx context.Context, req placementapp.MoveRequest) (*placement.PlacementPeriod, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(*placement.PlacementPeriod)
	return p, args.Error(1)
}

func (m *mockPlacementService) Close(ctx context.Context, req placementapp.CloseRequest) ([]placement.PlacementPeriod, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).([]placement.PlacementPeriod)
	return p, args.Error(1)
}

func (m *mockPlacementService) ListPeriods(ctx context.Context, filter placement.PeriodFilter) (shared.Paginated[placement.PlacementPeriod], error) {
	args := m.Called(ctx, filter)
	page, _ := args.Get(0).(shared.Paginated[placement.PlacementPeriod])
	return page, args.Error(1)
}

func setupPlacement(t *testing.T) (*gin.Engine, *mockPlacementService) {
	t.Helper()
	svc := new(mockPlacementService)
	t.Cleanup(func() { svc.AssertExpectations(t) })

	r := gin.New()
	r.Use(middleware.RequestID())
	NewPlacementHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r, svc
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestPlacementHandler_Audit(t *testing.T) {
	t.Run("passes query flags", func(t *testing.T) {
		r, svc := setupPlacement(t)
		activeOnly := false
		svc.On("Audit", mock.Anything, placementapp.AuditRequest{ActiveOnly: &activeOnly, Refresh: true}).
			Return(&placement.AuditReport{Scanned: 3, InSync: 3}, nil)

		w := do(r, http.MethodGet, "/api/v1/placement/audit?active_only=false&refresh=true", nil)

		require.Equal(t, http.StatusOK, w.Code)
		env := decode(t, w)
		assert.True(t, env.Success)
		assert.JSONEq(t, `{"duplicates":null,"desyncs":null,"unplaced":null,"scanned":3,"in_sync":3}`, string(env.Data))
	})

	t.Run("store outage is 503", func(t *testing.T) {
		r, svc := setupPlacement(t)
		svc.On("Audit", mock.Anything, placementapp.AuditRequest{}).
			Return(nil, placement.Unavailable("scan", errors.New("dial tcp: refused")))

		w := do(r, http.MethodGet, "/api/v1/placement/audit", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		env := decode(t, w)
		assert.Equal(t, "STORE_UNAVAILABLE", env.Error.Code)
		assert.NotContains(t, env.Error.Message, "dial tcp")
		assert.NotEmpty(t, env.Error.RequestID)
	})
}

func TestPlacementHandler_Reconcile(t *testing.T) {
	cow, ewe := uuid.New(), uuid.New()

	t.Run("parses resolutions", func(t *testing.T) {
		r, svc := setupPlacement(t)
		want := placementapp.ReconcileRequest{Resolutions: map[uuid.UUID]placement.Resolution{
			cow: placement.ResolutionKeepLedger,
			ewe: placement.ResolutionSkip,
		}}
		svc.On("Reconcile", mock.Anything, want).Return(&placementapp.ReconcileResult{
			Applied: []uuid.UUID{cow},
			Skipped: []placementapp.SkippedEntity{{EntityID: ewe, Reason: placementapp.SkipRequested}},
		}, nil)

		w := do(r, http.MethodPost, "/api/v1/placement/reconcile", map[string]any{
			"resolutions": map[string]string{cow.String(): "keep_ledger", ewe.String(): "skip"},
		})

		require.Equal(t, http.StatusOK, w.Code)
		var result placementapp.ReconcileResult
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &result))
		assert.Equal(t, []uuid.UUID{cow}, result.Applied)
		require.Len(t, result.Skipped, 1)
		assert.Equal(t, "skip", result.Skipped[0].Reason)
	})

	t.Run("passes expected versions through", func(t *testing.T) {
		r, svc := setupPlacement(t)
		want := placementapp.ReconcileRequest{
			Resolutions:      map[uuid.UUID]placement.Resolution{cow: placement.ResolutionKeepMirror},
			ExpectedVersions: map[uuid.UUID]int{cow: 3},
		}
		svc.On("Reconcile", mock.Anything, want).Return(&placementapp.ReconcileResult{Applied: []uuid.UUID{cow}}, nil)

		w := do(r, http.MethodPost, "/api/v1/placement/reconcile", map[string]any{
			"resolutions":       map[string]string{cow.String(): "keep_mirror"},
			"expected_versions": map[string]int{cow.String(): 3},
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("two spellings of one entity id are rejected", func(t *testing.T) {
		r, _ := setupPlacement(t)
		w := do(r, http.MethodPost, "/api/v1/placement/reconcile", map[string]any{
			"resolutions": map[string]string{
				cow.String():                  "keep_ledger",
				strings.ToUpper(cow.String()): "keep_mirror",
			},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown resolution rejects the request", func(t *testing.T) {
		r, _ := setupPlacement(t)
		w := do(r, http.MethodPost, "/api/v1/placement/reconcile", map[string]any{
			"resolutions": map[string]string{cow.String(): "keep_both"},
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "UNKNOWN_RESOLUTION", decode(t, w).Error.Code)
	})

	t.Run("empty map is a validation error", func(t *testing.T) {
		r, _ := setupPlacement(t)
		w := do(r, http.MethodPost, "/api/v1/placement/reconcile", map[string]any{"resolutions": map[string]string{}})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decode(t, w)
		assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
		assert.NotEmpty(t, env.Error.Details)
	})

	t.Run("malformed json", func(t *testing.T) {
		r, _ := setupPlacement(t)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/placement/reconcile", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, decode(t, w).Error.Code)
	})

	t.Run("before audit failure surfaces", func(t *testing.T) {
		r, svc := setupPlacement(t)
		svc.On("Reconcile", mock.Anything, mock.Anything).
			Return(nil, placement.Unavailable("before audit", errors.New("timeout")))

		w := do(r, http.MethodPost, "/api/v1/placement/reconcile", map[string]any{
			"resolutions": map[string]string{cow.String(): "keep_mirror"},
		})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestParseEntityKey(t *testing.T) {
	id := uuid.New()
	seen := map[uuid.UUID]placement.Resolution{id: placement.ResolutionSkip}

	tests := []struct {
		name string
		key  string
		ok   bool
	}{
		{"new id", uuid.NewString(), true},
		{"same id", id.String(), false},
		{"same id upper case", strings.ToUpper(id.String()), false},
		{"same id urn form", "urn:uuid:" + id.String(), false},
		{"same id in braces", "{" + id.String() + "}", false},
		{"not an id", "cow-7", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			_, ok := parseEntityKey(&BaseHandler{}, c, tt.key, seen)

			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		})
	}
}

func TestPlacementHandler_Timeline(t *testing.T) {
	t.Run("returns timeline", func(t *testing.T) {
		r, svc := setupPlacement(t)
		id := uuid.New()
		svc.On("Timeline", mock.Anything, id).Return(&placement.Timeline{EntityID: id}, nil)

		w := do(r, http.MethodGet, "/api/v1/placement/entities/"+id.String()+"/timeline", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var tl placement.Timeline
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &tl))
		assert.Equal(t, id, tl.EntityID)
	})

	t.Run("bad id", func(t *testing.T) {
		r, _ := setupPlacement(t)
		w := do(r, http.MethodGet, "/api/v1/placement/entities/cow-7/timeline", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, decode(t, w).Error.Code)
	})

	t.Run("unknown entity", func(t *testing.T) {
		r, svc := setupPlacement(t)
		id := uuid.New()
		svc.On("Timeline", mock.Anything, id).Return(nil, placement.ErrEntityNotFound)

		w := do(r, http.MethodGet, "/api/v1/placement/entities/"+id.String()+"/timeline", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "ENTITY_NOT_FOUND", decode(t, w).Error.Code)
	})
}

func TestPlacementHandler_Duration(t *testing.T) {
	r, svc := setupPlacement(t)
	id := uuid.New()
	svc.On("EffectiveDuration", mock.Anything, id).Return(&placementapp.DurationResult{
		PeriodID:     id,
		FunctionType: placement.FunctionNursing,
		Label:        "Nursing",
	}, nil)

	w := do(r, http.MethodGet, "/api/v1/placement/periods/"+id.String()+"/duration", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var got placementapp.DurationResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &got))
	assert.Equal(t, id, got.PeriodID)
	assert.Equal(t, placement.FunctionNursing, got.FunctionType)
}

func TestPlacementHandler_Move(t *testing.T) {
	entity, zone, partner := uuid.New(), uuid.New(), uuid.New()
	at := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

	t.Run("opens a period", func(t *testing.T) {
		r, svc := setupPlacement(t)
		svc.On("Move", mock.Anything, mock.MatchedBy(func(req placementapp.MoveRequest) bool {
			return req.EntityID == entity && req.ZoneID == zone &&
				req.FunctionType == placement.FunctionBreedingGroup &&
				req.At != nil && req.At.Equal(at) &&
				len(req.Metadata.PartnerIDs) == 1 && req.Metadata.PartnerIDs[0] == partner
		})).Return(&placement.PlacementPeriod{
			BaseEntity:   shared.BaseEntity{ID: uuid.New()},
			EntityID:     entity,
			ZoneID:       zone,
			FunctionType: placement.FunctionBreedingGroup,
			StartDate:    at,
		}, nil)

		w := do(r, http.MethodPost, "/api/v1/placement/entities/"+entity.String()+"/move", map[string]any{
			"zone_id":       zone.String(),
			"function_type": "breeding-group",
			"at":            at,
			"partner_ids":   []string{partner.String()},
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var got dto.PeriodResponse
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &got))
		assert.True(t, got.Open)
		assert.Equal(t, zone, got.ZoneID)
	})

	t.Run("requires zone", func(t *testing.T) {
		r, _ := setupPlacement(t)
		w := do(r, http.MethodPost, "/api/v1/placement/entities/"+entity.String()+"/move", map[string]any{})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decode(t, w)
		require.NotEmpty(t, env.Error.Details)
		assert.Equal(t, "zone_id", env.Error.Details[0].Field)
	})

	t.Run("concurrent mutation is 409", func(t *testing.T) {
		r, svc := setupPlacement(t)
		svc.On("Move", mock.Anything, mock.Anything).Return(nil, placement.ErrConcurrentMutation)

		w := do(r, http.MethodPost, "/api/v1/placement/entities/"+entity.String()+"/move", map[string]any{
			"zone_id": zone.String(),
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestPlacementHandler_Close(t *testing.T) {
	entity := uuid.New()
	end := time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC)

	t.Run("without body", func(t *testing.T) {
		r, svc := setupPlacement(t)
		svc.On("Close", mock.Anything, placementapp.CloseRequest{EntityID: entity}).
			Return([]placement.PlacementPeriod{{EntityID: entity, EndDate: &end}}, nil)

		w := do(r, http.MethodPost, "/api/v1/placement/entities/"+entity.String()+"/close", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var got []dto.PeriodResponse
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &got))
		require.Len(t, got, 1)
		assert.False(t, got[0].Open)
	})

	t.Run("with reason", func(t *testing.T) {
		r, svc := setupPlacement(t)
		svc.On("Close", mock.Anything, mock.MatchedBy(func(req placementapp.CloseRequest) bool {
			return req.EntityID == entity && req.Reason == "sold"
		})).Return([]placement.PlacementPeriod{}, nil)

		w := do(r, http.MethodPost, "/api/v1/placement/entities/"+entity.String()+"/close", map[string]any{"reason": "sold"})
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestPlacementHandler_ListPeriods(t *testing.T) {
	t.Run("builds filter and meta", func(t *testing.T) {
		r, svc := setupPlacement(t)
		entity := uuid.New()
		open := true
		svc.On("ListPeriods", mock.Anything, placement.PeriodFilter{
			Filter:   shared.Filter{Page: 2, PageSize: 10},
			EntityID: &entity,
			Open:     &open,
		}).Return(shared.NewPaginated([]placement.PlacementPeriod{{EntityID: entity}}, 11, 2, 10), nil)

		w := do(r, http.MethodGet, "/api/v1/placement/periods?page=2&page_size=10&open=true&entity_id="+entity.String(), nil)

		require.Equal(t, http.StatusOK, w.Code)
		env := decode(t, w)
		require.NotNil(t, env.Meta)
		assert.Equal(t, int64(11), env.Meta.Total)
		assert.Equal(t, 2, env.Meta.TotalPages)
	})

	t.Run("rejects bad filter", func(t *testing.T) {
		r, _ := setupPlacement(t)
		w := do(r, http.MethodGet, "/api/v1/placement/periods?zone_id=pen-4", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleError_Unexpected(t *testing.T) {
	r := gin.New()
	h := &BaseHandler{}
	r.GET("/", func(c *gin.Context) { h.HandleError(c, errors.New("boom")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	env := decode(t, w)
	assert.Equal(t, dto.ErrCodeInternal, env.Error.Code)
	assert.NotContains(t, env.Error.Message, "boom")
}
