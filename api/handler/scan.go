package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/consent-core/models"
	"github.com/use-agent/consent-core/orchestrator"
)

// Scan returns a handler for POST /api/scan.
func Scan(scanner *orchestrator.Scanner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{Code: models.ErrInvalidInput, Message: err.Error()},
			})
			return
		}

		result, err := scanner.Scan(c.Request.Context(), req)
		if err != nil {
			var scanErr *models.ScanError
			if errors.As(err, &scanErr) {
				status := http.StatusUnprocessableEntity
				if !scanErr.Recoverable {
					status = http.StatusInternalServerError
				}
				c.JSON(status, gin.H{"error": scanErr.ToDetail()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": models.ErrorDetail{Code: models.ErrInternal, Message: err.Error()},
			})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
