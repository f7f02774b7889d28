package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"medtransport-dispatch/internal/dispatch"
	"medtransport-dispatch/internal/model"
	"medtransport-dispatch/internal/parse"
	"medtransport-dispatch/internal/store"
)

const unitNotFound = "Unit not found"

// ListUnits handles GET /api/units?organization_id=&status=.
func (h *Handler) ListUnits(c *gin.Context) {
	var filter store.UnitFilter
	if v := c.Query("organization_id"); v != "" {
		org, err := uuid.Parse(v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid organization ID"})
			return
		}
		filter.OrganizationID = org
	}
	if v := c.Query("status"); v != "" {
		st, err := parse.UnitStatus(v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Status = st
	}

	units, err := h.store.ListUnits(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "")
		return
	}
	out := make([]unitResponse, 0, len(units))
	for _, u := range units {
		out = append(out, newUnitResponse(u))
	}
	c.JSON(http.StatusOK, out)
}

type putUnitRequest struct {
	ID                   uuid.UUID       `json:"id" binding:"required"`
	OrganizationID       uuid.UUID       `json:"organization_id" binding:"required"`
	DisplayID            string          `json:"display_id" binding:"required,max=64"`
	Status               string          `json:"status"`
	Capabilities         json.RawMessage `json:"capabilities"`
	Latitude             *float64        `json:"latitude" binding:"omitempty,latitude"`
	Longitude            *float64        `json:"longitude" binding:"omitempty,longitude"`
	FatigueLevel         string          `json:"fatigue_level"`
	OnTimeArrivalPct     *float64        `json:"on_time_arrival_pct" binding:"omitempty,gte=0,lte=100"`
	AvgResponseMinutes   *float64        `json:"avg_response_minutes" binding:"omitempty,gte=0"`
	ComplianceAuditScore *float64        `json:"compliance_audit_score" binding:"omitempty,gte=0,lte=100"`
	CrewIDs              []string        `json:"crew_ids"`
}

// PutUnit handles PUT /api/units. Status is only used when the unit is new; existing
// units change status through PatchUnitStatus or assignment.
func (h *Handler) PutUnit(c *gin.Context) {
	var req putUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status := dispatch.UnitOffDuty
	if req.Status != "" {
		st, err := parse.UnitStatus(req.Status)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		status = st
	}

	m := model.Unit{
		ID:                   req.ID,
		OrganizationID:       req.OrganizationID,
		DisplayID:            req.DisplayID,
		Status:               string(status),
		Capabilities:         string(req.Capabilities),
		Latitude:             req.Latitude,
		Longitude:            req.Longitude,
		FatigueLevel:         string(parse.FatigueLevel(req.FatigueLevel)),
		OnTimeArrivalPct:     req.OnTimeArrivalPct,
		AvgResponseMinutes:   req.AvgResponseMinutes,
		ComplianceAuditScore: req.ComplianceAuditScore,
		CrewIDs:              req.CrewIDs,
	}
	if req.Latitude != nil && req.Longitude != nil {
		now := time.Now().UTC()
		m.LocationUpdatedAt = &now
	}
	if err := h.store.UpsertUnits(c.Request.Context(), []model.Unit{m}); err != nil {
		respondError(c, err, "")
		return
	}

	u, err := h.store.GetUnit(c.Request.Context(), req.ID)
	if err != nil {
		respondError(c, err, unitNotFound)
		return
	}
	c.JSON(http.StatusOK, newUnitResponse(u))
}

type patchUnitStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// PatchUnitStatus handles PATCH /api/units/:id/status.
func (h *Handler) PatchUnitStatus(c *gin.Context) {
	id, ok := pathID(c, "id", "unit")
	if !ok {
		return
	}
	var req patchUnitStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := parse.UnitStatus(req.Status)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if status == dispatch.UnitEnRoute {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "EN_ROUTE is set by assigning the unit to an incident"})
		return
	}

	u, err := h.store.UpdateUnitStatus(c.Request.Context(), id, status)
	if err != nil {
		respondError(c, err, unitNotFound)
		return
	}
	c.JSON(http.StatusOK, newUnitResponse(u))
}
