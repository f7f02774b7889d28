package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"medtransport-dispatch/internal/dispatch"
	"medtransport-dispatch/internal/logging"
	"medtransport-dispatch/internal/model"
	"medtransport-dispatch/internal/parse"
	"medtransport-dispatch/internal/store"
)

const incidentNotFound = "Incident not found"

// GetRecommendations handles GET /api/incidents/:id/recommendations.
func (h *Handler) GetRecommendations(c *gin.Context) {
	id, ok := pathID(c, "id", "incident")
	if !ok {
		return
	}

	limit := h.scoring.DefaultLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	inc, err := h.store.GetIncident(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, incidentNotFound)
		return
	}
	units, err := h.store.ListUnits(c.Request.Context(), store.UnitFilter{
		OrganizationID: inc.OrganizationID,
		Status:         dispatch.UnitAvailable,
	})
	if err != nil {
		respondError(c, err, "")
		return
	}

	rec := h.ranker(inc.OrganizationID).Rank(inc, units, limit)
	c.JSON(http.StatusOK, newRecommendationResponse(rec))
}

type assignRequest struct {
	UnitID     uuid.UUID `json:"unit_id" binding:"required"`
	AssignedBy uuid.UUID `json:"assigned_by"`
}

// PostAssignment handles POST /api/incidents/:id/assignments.
func (h *Handler) PostAssignment(c *gin.Context) {
	id, ok := pathID(c, "id", "incident")
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.assigner.Assign(c.Request.Context(), dispatch.AssignRequest{
		IncidentID: id,
		UnitID:     req.UnitID,
		AssignedBy: req.AssignedBy,
	})
	if err != nil {
		respondError(c, err, incidentNotFound)
		return
	}

	logging.Logger.WithFields(logrus.Fields{
		"incident": id,
		"unit":     result.Unit.DisplayID,
	}).Info("unit assigned")
	c.JSON(http.StatusOK, assignmentResponse{
		Incident: newIncidentResponse(result.Incident),
		Unit:     newUnitResponse(result.Unit),
		Events:   newTimelineResponse(result.Events),
	})
}

type createIncidentRequest struct {
	ID               *uuid.UUID      `json:"id"`
	OrganizationID   uuid.UUID       `json:"organization_id" binding:"required"`
	TransportType    string          `json:"transport_type" binding:"required"`
	AcuityLevel      string          `json:"acuity_level"`
	CrewRequirements json.RawMessage `json:"crew_requirements"`
	OriginFacility   string          `json:"origin_facility" binding:"max=256"`
	OriginLatitude   *float64        `json:"origin_latitude" binding:"omitempty,latitude"`
	OriginLongitude  *float64        `json:"origin_longitude" binding:"omitempty,longitude"`
}

// CreateIncident handles POST /api/incidents.
func (h *Handler) CreateIncident(c *gin.Context) {
	var req createIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	transport, err := parse.TransportType(req.TransportType)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	acuity, err := parse.Acuity(req.AcuityLevel)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m := model.Incident{
		ID:               uuid.New(),
		OrganizationID:   req.OrganizationID,
		TransportType:    string(transport),
		AcuityLevel:      string(acuity),
		CrewRequirements: string(req.CrewRequirements),
		OriginFacility:   req.OriginFacility,
		OriginLatitude:   req.OriginLatitude,
		OriginLongitude:  req.OriginLongitude,
		Status:           string(dispatch.IncidentPending),
	}
	if req.ID != nil && *req.ID != uuid.Nil {
		m.ID = *req.ID
	}
	if err := h.store.CreateIncident(c.Request.Context(), &m); err != nil {
		respondError(c, err, "")
		return
	}

	inc, err := h.store.GetIncident(c.Request.Context(), m.ID)
	if err != nil {
		respondError(c, err, incidentNotFound)
		return
	}
	c.JSON(http.StatusCreated, newIncidentResponse(inc))
}

// GetIncident handles GET /api/incidents/:id.
func (h *Handler) GetIncident(c *gin.Context) {
	id, ok := pathID(c, "id", "incident")
	if !ok {
		return
	}
	inc, err := h.store.GetIncident(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, incidentNotFound)
		return
	}
	c.JSON(http.StatusOK, newIncidentResponse(inc))
}

type lockRequest struct {
	LockedBy uuid.UUID `json:"locked_by"`
}

// LockIncident handles POST /api/incidents/:id/lock. The body is optional.
func (h *Handler) LockIncident(c *gin.Context) {
	id, ok := pathID(c, "id", "incident")
	if !ok {
		return
	}
	var req lockRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	inc, err := h.store.LockIncident(c.Request.Context(), id, req.LockedBy)
	if err != nil {
		respondError(c, err, incidentNotFound)
		return
	}
	c.JSON(http.StatusOK, newIncidentResponse(inc))
}

type incidentStatusRequest struct {
	Status    string    `json:"status" binding:"required"`
	ChangedBy uuid.UUID `json:"changed_by"`
}

// PatchIncidentStatus handles PATCH /api/incidents/:id/status.
func (h *Handler) PatchIncidentStatus(c *gin.Context) {
	id, ok := pathID(c, "id", "incident")
	if !ok {
		return
	}
	var req incidentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := parse.IncidentStatus(req.Status)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if status == dispatch.IncidentAssigned {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "ASSIGNED is set by assigning a unit to the incident"})
		return
	}

	change, err := h.assigner.Transition(c.Request.Context(), dispatch.StatusRequest{
		IncidentID: id,
		Status:     status,
		ChangedBy:  req.ChangedBy,
	})
	if err != nil {
		respondError(c, err, incidentNotFound)
		return
	}

	logging.Logger.WithFields(logrus.Fields{
		"incident": id,
		"status":   status,
	}).Info("incident status changed")
	c.JSON(http.StatusOK, newIncidentResponse(change.Incident))
}

// GetTimeline handles GET /api/incidents/:id/timeline.
func (h *Handler) GetTimeline(c *gin.Context) {
	id, ok := pathID(c, "id", "incident")
	if !ok {
		return
	}
	if _, err := h.store.GetIncident(c.Request.Context(), id); err != nil {
		respondError(c, err, incidentNotFound)
		return
	}
	events, err := h.store.ListTimeline(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, newTimelineResponse(events))
}
