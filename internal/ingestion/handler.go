package ingestion

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pagepulse/pagepulse/internal/analytics"
	v1 "github.com/pagepulse/pagepulse/internal/api/v1"
	httperr "github.com/pagepulse/pagepulse/internal/core/errors"
	"github.com/pagepulse/pagepulse/internal/core/storage"
)

const (
	msgInvalidJSON   = "Invalid JSON body"
	msgInvalidID     = "Invalid id"
	msgPersistFailed = "Failed to record event"
)

// RegisterRoutes registers the ingestion routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/views", s.HandleRecordPageView)
	r.PATCH("/v1/views/:id/engagement", s.HandleUpdateEngagement)
	r.GET("/v1/views/:id", s.HandleGetPageView)

	r.POST("/v1/searches", s.HandleRecordSearchQuery)
	r.POST("/v1/searches/:id/clicks", s.HandleRecordClickthrough)
	r.GET("/v1/searches/:id", s.HandleGetSearchQuery)
}

// HandleRecordPageView handles POST /v1/views.
// Returns 202 on success; a stale content_ref is reported as a warning
// field, not an error.
func (s *Service) HandleRecordPageView(c *gin.Context) {
	var input v1.PageViewInput
	if !s.bindJSON(c, &input) {
		return
	}

	id, warning, err := s.RecordPageView(c.Request.Context(), input)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	resp := gin.H{"status": "accepted", "id": id}
	if warning != "" {
		resp["warning"] = warning
	}
	c.JSON(http.StatusAccepted, resp)
}

// HandleUpdateEngagement handles PATCH /v1/views/:id/engagement.
// Idempotent: client beacons retry, last write wins.
func (s *Service) HandleUpdateEngagement(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	var update v1.EngagementUpdate
	if !s.bindJSON(c, &update) {
		return
	}

	if err := s.UpdateEngagement(c.Request.Context(), id, update); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// HandleGetPageView handles GET /v1/views/:id, attaching the computed
// engagement score.
func (s *Service) HandleGetPageView(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	view, err := s.GetPageView(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"view":             view,
		"engagement_score": analytics.PageEngagementScore(view.TimeOnPage, view.ScrollDepth),
	})
}

// HandleRecordSearchQuery handles POST /v1/searches.
func (s *Service) HandleRecordSearchQuery(c *gin.Context) {
	var input v1.SearchQueryInput
	if !s.bindJSON(c, &input) {
		return
	}

	id, err := s.RecordSearchQuery(c.Request.Context(), input)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	slog.Info("Recorded search query", "search_query_id", id, "results_count", input.ResultsCount)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "id": id})
}

// HandleRecordClickthrough handles POST /v1/searches/:id/clicks.
func (s *Service) HandleRecordClickthrough(c *gin.Context) {
	queryID, ok := bindID(c)
	if !ok {
		return
	}

	var input v1.ClickthroughInput
	if !s.bindJSON(c, &input) {
		return
	}

	id, err := s.RecordClickthrough(c.Request.Context(), queryID, input)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "id": id})
}

// HandleGetSearchQuery handles GET /v1/searches/:id, attaching the computed
// effectiveness score.
func (s *Service) HandleGetSearchQuery(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	query, err := s.GetSearchQuery(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"query":               query,
		"effectiveness_score": analytics.SearchEffectivenessScore(query.ResultsCount, query.ClickedPosition),
	})
}

// bindJSON reads a size-limited body and binds it. Writes the error
// response itself and reports success.
func (s *Service) bindJSON(c *gin.Context, target interface{}) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(s.maxBodySizeBytes))

	if err := c.ShouldBindJSON(target); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidJsonError,
				Message:   "Request body exceeds maximum allowed size",
				Details:   gin.H{"max_size_bytes": s.maxBodySizeBytes},
			})
			return false
		}
		if err == io.EOF {
			slog.Warn("Empty request body")
		}
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   msgInvalidJSON,
		})
		return false
	}
	return true
}

func bindID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidInputError,
			Message:   msgInvalidID,
		})
		return uuid.Nil, false
	}
	return id, true
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidInputError,
			Message:   err.Error(),
		})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpNotFoundError,
			Message:   "Record not found",
		})
	default:
		slog.Error("Ingestion request failed", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   msgPersistFailed,
		})
	}
}
