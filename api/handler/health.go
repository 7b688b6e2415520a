package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/consent-core/cache"
	"github.com/use-agent/consent-core/models"
)

// HealthResponse reports liveness and cache utilisation.
type HealthResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Version   string `json:"version"`
	CacheSize int    `json:"cacheSize"`
}

// Health returns a handler for GET /health.
//
// Reports result-cache size and degrades status when the cache is near its
// configured capacity.
func Health(resultCache *cache.TTLCache[models.ScanResult], maxEntries int, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		size, _ := resultCache.Stats(0)

		status := "healthy"
		if maxEntries > 0 && size > int(float64(maxEntries)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, HealthResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			Version:   "0.1.0",
			CacheSize: size,
		})
	}
}
