package handler

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	placementapp "github.com/farmtrack/backend/internal/application/placement"
	"github.com/farmtrack/backend/internal/domain/placement"
	"github.com/farmtrack/backend/internal/domain/shared"
	"github.com/farmtrack/backend/internal/interfaces/http/dto"
)

// PlacementService is the slice of the application service the handler drives
type PlacementService interface {
	Audit(ctx context.Context, req placementapp.AuditRequest) (*placement.AuditReport, error)
	Reconcile(ctx context.Context, req placementapp.ReconcileRequest) (*placementapp.ReconcileResult, error)
	Timeline(ctx context.Context, entityID uuid.UUID) (*placement.Timeline, error)
	EffectiveDuration(ctx context.Context, periodID uuid.UUID) (*placementapp.DurationResult, error)
	Move(ctx context.Context, req placementapp.MoveRequest) (*placement.PlacementPeriod, error)
	Close(ctx context.Context, req placementapp.CloseRequest) ([]placement.PlacementPeriod, error)
	ListPeriods(ctx context.Context, filter placement.PeriodFilter) (shared.Paginated[placement.PlacementPeriod], error)
}

var _ PlacementService = (*placementapp.PlacementService)(nil)

// PlacementHandler exposes audit, reconciliation, timelines and the ledger write path
type PlacementHandler struct {
	BaseHandler
	service PlacementService
}

// NewPlacementHandler creates a new PlacementHandler
func NewPlacementHandler(service PlacementService) *PlacementHandler {
	return &PlacementHandler{service: service}
}

// Audit godoc
// @ID           auditPlacement
// @Summary      Audit placement consistency
// @Description  Classifies every tracked entity as duplicate, desync, unplaced or in sync
// @Tags         placement
// @Produce      json
// @Param        active_only  query     bool  false  "Override the configured lifecycle scope"
// @Param        refresh      query     bool  false  "Bypass the cached report"
// @Success      200  {object}  dto.Response{data=placement.AuditReport}
// @Failure      400  {object}  dto.Response
// @Failure      503  {object}  dto.Response
// @Router       /placement/audit [get]
func (h *PlacementHandler) Audit(c *gin.Context) {
	var q dto.AuditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	report, err := h.service.Audit(c.Request.Context(), placementapp.AuditRequest{
		ActiveOnly: q.ActiveOnly,
		Refresh:    q.Refresh,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// Reconcile applies one resolution per listed entity. The whole request is
// rejected when any resolution name is unknown or two keys name the same entity.
//
// @ID           reconcilePlacement
// @Summary      Apply resolutions
// @Tags         placement
// @Accept       json
// @Produce      json
// @Param        request  body      dto.ReconcileRequest  true  "Entity id to resolution"
// @Success      200      {object}  dto.Response{data=placementapp.ReconcileResult}
// @Failure      400      {object}  dto.Response
// @Failure      503      {object}  dto.Response
// @Router       /placement/reconcile [post]
func (h *PlacementHandler) Reconcile(c *gin.Context) {
	var req dto.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resolutions := make(map[uuid.UUID]placement.Resolution, len(req.Resolutions))
	for key, value := range req.Resolutions {
		id, ok := parseEntityKey(&h.BaseHandler, c, key, resolutions)
		if !ok {
			return
		}
		res, err := placement.ParseResolution(value)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		resolutions[id] = res
	}

	var expected map[uuid.UUID]int
	if len(req.ExpectedVersions) > 0 {
		expected = make(map[uuid.UUID]int, len(req.ExpectedVersions))
		for key, version := range req.ExpectedVersions {
			id, ok := parseEntityKey(&h.BaseHandler, c, key, expected)
			if !ok {
				return
			}
			expected[id] = version
		}
	}

	result, err := h.service.Reconcile(c.Request.Context(), placementapp.ReconcileRequest{
		Resolutions:      resolutions,
		ExpectedVersions: expected,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// parseEntityKey parses a request map key as an entity id. uuid.Parse accepts
// several spellings of one id, so a key whose id is already in seen is a 400.
func parseEntityKey[V any](h *BaseHandler, c *gin.Context, key string, seen map[uuid.UUID]V) (uuid.UUID, bool) {
	id, err := uuid.Parse(key)
	if err != nil {
		h.BadRequest(c, fmt.Sprintf("Invalid entity id %q", key))
		return uuid.Nil, false
	}
	if _, dup := seen[id]; dup {
		h.BadRequest(c, fmt.Sprintf("Entity %s is listed more than once", id))
		return uuid.Nil, false
	}
	return id, true
}

// Timeline godoc
// @ID           getPlacementTimeline
// @Summary      Placement timeline
// @Description  Reconstructed history from the ledger and the legacy logs, newest first
// @Tags         placement
// @Produce      json
// @Param        id   path      string  true  "Entity ID"  format(uuid)
// @Success      200  {object}  dto.Response{data=placement.Timeline}
// @Failure      400  {object}  dto.Response
// @Failure      404  {object}  dto.Response
// @Router       /placement/entities/{id}/timeline [get]
func (h *PlacementHandler) Timeline(c *gin.Context) {
	entityID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	timeline, err := h.service.Timeline(c.Request.Context(), entityID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, timeline)
}

// Duration returns the effective duration of a ledger period.
//
// @ID           getPeriodDuration
// @Summary      Effective period duration
// @Tags         placement
// @Produce      json
// @Param        id   path      string  true  "Period ID"  format(uuid)
// @Success      200  {object}  dto.Response{data=placementapp.DurationResult}
// @Failure      404  {object}  dto.Response
// @Router       /placement/periods/{id}/duration [get]
func (h *PlacementHandler) Duration(c *gin.Context) {
	periodID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.service.EffectiveDuration(c.Request.Context(), periodID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Move godoc
// @ID           movePlacement
// @Summary      Move an entity
// @Description  Closes every open period, opens one in the target zone and updates the current zone
// @Tags         placement
// @Accept       json
// @Produce      json
// @Param        id       path      string           true  "Entity ID"  format(uuid)
// @Param        request  body      dto.MoveRequest  true  "Target zone"
// @Success      201      {object}  dto.Response{data=dto.PeriodResponse}
// @Failure      400      {object}  dto.Response
// @Failure      404      {object}  dto.Response
// @Failure      409      {object}  dto.Response
// @Failure      422      {object}  dto.Response
// @Router       /placement/entities/{id}/move [post]
func (h *PlacementHandler) Move(c *gin.Context) {
	entityID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	// both validated by binding
	zoneID := uuid.MustParse(req.ZoneID)
	partners := make([]uuid.UUID, 0, len(req.PartnerIDs))
	for _, p := range req.PartnerIDs {
		partners = append(partners, uuid.MustParse(p))
	}

	period, err := h.service.Move(c.Request.Context(), placementapp.MoveRequest{
		EntityID:     entityID,
		ZoneID:       zoneID,
		FunctionType: placement.FunctionType(req.FunctionType),
		At:           req.At,
		Metadata: placement.PeriodMetadata{
			PairingStartDate: req.PairingStartDate,
			PartnerIDs:       partners,
			Notes:            req.Notes,
		},
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.NewPeriodResponse(*period))
}

// Close ends the entity's open periods and clears its mirror. The body is optional.
//
// @ID           closePlacement
// @Summary      Close an entity's placement
// @Tags         placement
// @Accept       json
// @Produce      json
// @Param        id       path      string            true   "Entity ID"  format(uuid)
// @Param        request  body      dto.CloseRequest  false  "Close time and reason"
// @Success      200      {object}  dto.Response{data=[]dto.PeriodResponse}
// @Failure      404      {object}  dto.Response
// @Failure      422      {object}  dto.Response
// @Router       /placement/entities/{id}/close [post]
func (h *PlacementHandler) Close(c *gin.Context) {
	entityID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.CloseRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	closed, err := h.service.Close(c.Request.Context(), placementapp.CloseRequest{
		EntityID: entityID,
		At:       req.At,
		Reason:   req.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewPeriodResponses(closed))
}

// ListPeriods godoc
// @ID           listPlacementPeriods
// @Summary      List ledger periods
// @Tags         placement
// @Produce      json
// @Param        entity_id  query     string  false  "Entity ID"  format(uuid)
// @Param        zone_id    query     string  false  "Zone ID"    format(uuid)
// @Param        open       query     bool    false  "Only open or only closed periods"
// @Param        page       query     int     false  "Page number"  minimum(1)
// @Param        page_size  query     int     false  "Page size"    minimum(1)  maximum(100)
// @Param        order_by   query     string  false  "Sort field"   Enums(start_date, end_date, created_at)
// @Param        order_dir  query     string  false  "Sort order"   Enums(asc, desc)
// @Success      200        {object}  dto.Response{data=[]dto.PeriodResponse}
// @Failure      400        {object}  dto.Response
// @Router       /placement/periods [get]
func (h *PlacementHandler) ListPeriods(c *gin.Context) {
	var q dto.PeriodListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	entityID, err := parseOptionalUUID(q.EntityID)
	if err != nil {
		h.BadRequest(c, "Invalid entity_id")
		return
	}
	zoneID, err := parseOptionalUUID(q.ZoneID)
	if err != nil {
		h.BadRequest(c, "Invalid zone_id")
		return
	}

	page, err := h.service.ListPeriods(c.Request.Context(), placement.PeriodFilter{
		Filter: shared.Filter{
			Page:     q.Page,
			PageSize: q.PageSize,
			OrderBy:  q.OrderBy,
			OrderDir: q.OrderDir,
		},
		EntityID: entityID,
		ZoneID:   zoneID,
		Open:     q.Open,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, dto.NewPeriodResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// RegisterRoutes mounts the handler under /placement
func (h *PlacementHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/placement")
	g.GET("/audit", h.Audit)
	g.POST("/reconcile", h.Reconcile)
	g.GET("/entities/:id/timeline", h.Timeline)
	g.POST("/entities/:id/move", h.Move)
	g.POST("/entities/:id/close", h.Close)
	g.GET("/periods", h.ListPeriods)
	g.GET("/periods/:id/duration", h.Duration)
}
