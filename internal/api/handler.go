package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"medtransport-dispatch/config"
	"medtransport-dispatch/internal/dispatch"
	"medtransport-dispatch/internal/logging"
	"medtransport-dispatch/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	assigner  *dispatch.Assigner
	scoring   *config.ScoringConfig
	estimator dispatch.DistanceEstimator
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, scoring *config.ScoringConfig) *Handler {
	return &Handler{
		store:     s,
		assigner:  dispatch.NewAssigner(s),
		scoring:   scoring,
		estimator: dispatch.NewHaversineEstimator(scoring.FallbackDistanceMiles),
	}
}

// ranker builds a ranker with the organization's weights.
func (h *Handler) ranker(org uuid.UUID) *dispatch.Ranker {
	calc := dispatch.NewCalculator(h.scoring.WeightsFor(org), h.estimator)
	return dispatch.NewRanker(calc, h.scoring.Parallelism)
}

func pathID(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid " + label + " ID"})
		return uuid.Nil, false
	}
	return id, true
}

// respondError translates domain and store errors into HTTP responses. notFound is
// the message used for store.ErrNotFound.
func respondError(c *gin.Context, err error, notFound string) {
	var de *dispatch.Error
	switch {
	case errors.As(err, &de):
		status := http.StatusInternalServerError
		switch {
		case errors.Is(de, dispatch.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(de, dispatch.ErrForbidden):
			status = http.StatusForbidden
		case errors.Is(de, dispatch.ErrConflict):
			status = http.StatusConflict
		}
		body := gin.H{"error": de.Message}
		if de.UnitStatus != "" {
			body["current_status"] = de.UnitStatus
		}
		c.AbortWithStatusJSON(status, body)
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": notFound})
	default:
		logging.Logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
