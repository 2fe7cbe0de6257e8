package export

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	httperr "github.com/pagepulse/pagepulse/internal/core/errors"
)

const maxExportWindowDays = 365

// RegisterRoutes registers the export routes.
func (e *Exporter) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/export/:kind", e.HandleExport)
}

// HandleExport handles GET /v1/export/:kind?window=30&cursor=0&page_size=500.
//
// Records stream as NDJSON, one event per line. The continuation cursor and
// the has-more flag travel in response headers so the body stays pure data:
//
//	X-Export-Next-Cursor: 1042
//	X-Export-Has-More: true
func (e *Exporter) HandleExport(c *gin.Context) {
	kind := Kind(c.Param("kind"))
	if !ValidKind(kind) {
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpNotFoundError,
			Message:   "Unknown export kind",
			Details:   gin.H{"kind": string(kind)},
		})
		return
	}

	windowDays, ok := intQuery(c, "window", 30, 1, maxExportWindowDays)
	if !ok {
		return
	}
	pageSize, ok := intQuery(c, "page_size", DefaultPageSize, 1, MaxPageSize)
	if !ok {
		return
	}

	cursor := int64(0)
	if raw := c.Query("cursor"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidInputError,
				Message:   "Invalid cursor",
			})
			return
		}
		cursor = parsed
	}

	page, err := e.ExportPage(c.Request.Context(), kind, windowDays, cursor, pageSize)
	if err != nil {
		slog.Error("Export failed", "kind", kind, "cursor", cursor, "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Export failed",
		})
		return
	}

	c.Header("X-Export-Next-Cursor", strconv.FormatInt(page.NextCursor, 10))
	c.Header("X-Export-Has-More", strconv.FormatBool(page.HasMore))
	c.Header("Content-Type", "application/x-ndjson")
	c.Status(http.StatusOK)

	writer := c.Writer
	for _, record := range page.Records {
		if _, err := writer.Write(record); err != nil {
			slog.Warn("Export stream interrupted", "kind", kind, "error", err)
			return
		}
		if _, err := writer.Write([]byte("\n")); err != nil {
			slog.Warn("Export stream interrupted", "kind", kind, "error", err)
			return
		}
	}
}

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
