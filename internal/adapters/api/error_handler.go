package api

import (
	"errors"
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"
	errorspkg "weatherdash.app/pkg/errors"
)

// ErrorResponse represents an error message structure for API responses
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleError handles different types of application errors
func (s *HTTPServerAdapter) handleError(c *gin.Context, err error) {
	var appErr *errorspkg.AppError
	var statusCode int
	var message string

	if !errors.As(err, &appErr) {
		statusCode = http.StatusInternalServerError
		message = "Internal server error"
		c.JSON(statusCode, ErrorResponse{Error: message})
		return
	}

	switch appErr.Type {
	case errorspkg.ValidationError:
		statusCode = http.StatusBadRequest
		message = appErr.Message
	case errorspkg.MissingLocationError:
		statusCode = http.StatusUnprocessableEntity
		message = appErr.Message
	case errorspkg.NotFoundError:
		statusCode = http.StatusNotFound
		message = appErr.Message
	case errorspkg.RateLimitError:
		statusCode = http.StatusTooManyRequests
		message = appErr.Message
	case errorspkg.ExternalAPIError, errorspkg.MalformedDataError:
		statusCode = http.StatusBadGateway
		message = "External service unavailable"
	case errorspkg.NetworkError:
		statusCode = http.StatusServiceUnavailable
		message = "External service unavailable"
	case errorspkg.StorageError, errorspkg.ConfigurationError:
		statusCode = http.StatusInternalServerError
		message = "Internal server error"
	default:
		statusCode = http.StatusInternalServerError
		message = "Internal server error"
	}

	c.JSON(statusCode, ErrorResponse{Error: message})
}

// getMetrics handles GET /api/metrics requests
func (s *HTTPServerAdapter) getMetrics(c *gin.Context) {
	slog.Debug("Metrics endpoint called")

	response := gin.H{"metrics": s.metrics.GetStats()}
	if s.cacheMetrics != nil {
		response["cache"] = s.cacheMetrics.GetStats()
	}

	c.JSON(http.StatusOK, response)
}

// getHealth handles GET /api/health requests
func (s *HTTPServerAdapter) getHealth(c *gin.Context) {
	components := s.health.CheckAll(c.Request.Context())

	status := "healthy"
	statusCode := http.StatusOK
	for _, component := range components {
		if component.Status != "healthy" {
			status = "unhealthy"
			statusCode = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(statusCode, gin.H{"status": status, "components": components})
}
