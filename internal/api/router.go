package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"lab-status-backend/config"
	"lab-status-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg config.ServerConfig, h *Handler) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/status", caching, h.GetStatus)
		api.GET("/stations", caching, h.GetStations)

		api.GET("/queues/:type", h.GetQueue)
		api.POST("/queues/:type", h.JoinQueue)
		api.DELETE("/queues/:type/entries/:identity", h.LeaveQueue)
		api.POST("/queues/:type/entries/:identity/reorder", h.ReorderQueueEntry)
		api.PUT("/queues/:type/entries/:identity/position", h.RepositionQueueEntry)

		api.GET("/claims/:token", h.GetClaim)
		api.POST("/claims/:token/confirm", h.ConfirmClaim)

		api.PUT("/admin/stations/:id/override", h.PutOverride)
		api.DELETE("/admin/stations/:id/override", h.DeleteOverride)
		api.PUT("/admin/state", h.PutGlobalOverride)
		api.DELETE("/admin/state", h.DeleteGlobalOverride)

		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
