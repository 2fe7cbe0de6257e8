package dashboard

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pagepulse/pagepulse/internal/cache"
	"github.com/pagepulse/pagepulse/internal/catalog"
	httperr "github.com/pagepulse/pagepulse/internal/core/errors"
)

const (
	defaultWindowDays = 7
	maxWindowDays     = 365

	defaultRelatedLimit = 5
	maxRelatedLimit     = 50

	defaultAggregateLimit = 10
	maxAggregateLimit     = 100
)

// RegisterRoutes registers the dashboard read routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/dashboard/snapshot", s.HandleSnapshot)
	r.GET("/v1/stats/:operation", s.HandleAggregate)
	r.GET("/v1/content/:id/related", s.HandleRelatedContent)
}

// HandleSnapshot handles GET /v1/dashboard/snapshot?window=7.
func (s *Service) HandleSnapshot(c *gin.Context) {
	windowDays, ok := intQuery(c, "window", defaultWindowDays, 1, maxWindowDays)
	if !ok {
		return
	}

	snapshot, err := s.GetDashboardSnapshot(c.Request.Context(), windowDays)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to assemble dashboard snapshot",
		})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// HandleAggregate handles GET /v1/stats/:operation?window=7&limit=10.
// The operation path segment is one of the refresh plan operation names.
func (s *Service) HandleAggregate(c *gin.Context) {
	operation := c.Param("operation")
	if !cache.ValidOperation(operation) {
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpNotFoundError,
			Message:   "Unknown aggregate operation",
			Details:   gin.H{"operation": operation},
		})
		return
	}

	windowDays, ok := intQuery(c, "window", defaultWindowDays, 1, maxWindowDays)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", defaultAggregateLimit, 0, maxAggregateLimit)
	if !ok {
		return
	}

	value, err := s.Aggregate(c.Request.Context(), operation, windowDays, limit)
	if err != nil {
		slog.Error("Aggregate endpoint failed", "operation", operation, "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to compute aggregate",
		})
		return
	}

	c.Data(http.StatusOK, "application/json", value)
}

// HandleRelatedContent handles GET /v1/content/:id/related?limit=5.
func (s *Service) HandleRelatedContent(c *gin.Context) {
	contentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidInputError,
			Message:   "Invalid content id",
		})
		return
	}

	limit, ok := intQuery(c, "limit", defaultRelatedLimit, 1, maxRelatedLimit)
	if !ok {
		return
	}

	value, err := s.RelatedContent(c.Request.Context(), contentID, limit)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, httperr.ErrorResponse{
				ErrorType: httperr.HttpNotFoundError,
				Message:   "Content not found",
				Details:   gin.H{"content_id": contentID},
			})
			return
		}
		slog.Error("Related content endpoint failed", "content_id", contentID, "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to compute related content",
		})
		return
	}
	c.Data(http.StatusOK, "application/json", value)
}

// intQuery parses a bounded integer query parameter, writing the error
// response itself on bad input.
func intQuery(c *gin.Context, name string, fallback, min, max int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < min || value > max {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidInputError,
			Message:   "Invalid query parameter",
			Details:   gin.H{"parameter": name, "min": min, "max": max},
		})
		return 0, false
	}
	return value, true
}
