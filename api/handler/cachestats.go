package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/consent-core/cache"
	"github.com/use-agent/consent-core/models"
)

// CacheStatsResponse reports the result cache's current occupancy.
type CacheStatsResponse struct {
	Size int      `json:"size"`
	Keys []string `json:"keys,omitempty"`
}

// CacheStats returns a handler for GET /api/cache/stats.
func CacheStats(resultCache *cache.TTLCache[models.ScanResult]) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 20
		if raw := c.Query("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil {
				limit = parsed
			}
		}

		size, keys := resultCache.Stats(limit)
		c.JSON(http.StatusOK, CacheStatsResponse{Size: size, Keys: keys})
	}
}
