package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/consent-core/api/handler"
	"github.com/use-agent/consent-core/api/middleware"
	"github.com/use-agent/consent-core/cache"
	"github.com/use-agent/consent-core/config"
	"github.com/use-agent/consent-core/models"
	"github.com/use-agent/consent-core/orchestrator"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(scanner *orchestrator.Scanner, resultCache *cache.TTLCache[models.ScanResult], cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	// Health — no auth required.
	r.GET("/health", handler.Health(resultCache, cfg.Cache.MaxEntries, startTime))

	api := r.Group("/api")

	// Protected group — auth + rate limit.
	protected := api.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/scan", handler.Scan(scanner))
	protected.GET("/cache/stats", handler.CacheStats(resultCache))

	return r
}
