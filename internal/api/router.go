package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"medtransport-dispatch/config"
	"medtransport-dispatch/internal/mw"
	"medtransport-dispatch/internal/store"
)

// NewRouter creates and configures a new Gin router. responses backs the
// recommendation cache; anything else that changes units should flush it too.
func NewRouter(s store.Store, cfg *config.Config, responses *cache.Cache) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	handler := NewHandler(s, &cfg.Scoring)

	rateLimiter := mw.RateLimiter(
		rate.Limit(cfg.Server.RateLimitPerSec),
		cfg.Server.RateLimitBurst,
		mw.ClientKey(cfg.Server.RequestIPHeader),
	)

	ttl := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	caching := mw.Cache(responses, ttl)

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter, mw.Invalidate(responses))
	{
		api.POST("/incidents", handler.CreateIncident)
		api.GET("/incidents/:id", handler.GetIncident)
		api.GET("/incidents/:id/recommendations", caching, handler.GetRecommendations)
		api.POST("/incidents/:id/assignments", handler.PostAssignment)
		api.POST("/incidents/:id/lock", handler.LockIncident)
		api.PATCH("/incidents/:id/status", handler.PatchIncidentStatus)
		api.GET("/incidents/:id/timeline", handler.GetTimeline)

		api.GET("/units", handler.ListUnits)
		api.PUT("/units", handler.PutUnit)
		api.PATCH("/units/:id/status", handler.PatchUnitStatus)
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })
	return r
}
