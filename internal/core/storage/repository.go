package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	v1 "github.com/pagepulse/pagepulse/internal/api/v1"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateClick is returned when the same session clicks the same
// result for the same query a second time. Callers treat it as idempotent
// success.
var ErrDuplicateClick = errors.New("clickthrough already recorded")

// EventStore is the append-only record of page views and search activity.
//
// Writes are single independent records; the only conditional write is
// SetPrimaryClick, which must be an atomic compare-and-swap (never
// read-then-write) because concurrent clicks race for the primary slot.
type EventStore interface {
	// SavePageView appends a page view and populates its IngestSeq.
	SavePageView(ctx context.Context, view *v1.PageView) error

	// UpdateEngagement fills in the beacon fields on an existing view.
	// Last write wins; beacons retry. Returns ErrNotFound for unknown ids.
	UpdateEngagement(ctx context.Context, id uuid.UUID, timeOnPage, scrollDepth *int) error

	GetPageView(ctx context.Context, id uuid.UUID) (*v1.PageView, error)

	// SaveSearchQuery appends a search query and populates its IngestSeq.
	SaveSearchQuery(ctx context.Context, query *v1.SearchQuery) error

	GetSearchQuery(ctx context.Context, id uuid.UUID) (*v1.SearchQuery, error)

	// SaveClickthrough appends a click row. Returns ErrDuplicateClick when
	// (search_query_id, content_ref, session_key) was already recorded.
	SaveClickthrough(ctx context.Context, click *v1.SearchClickthrough) error

	// SetPrimaryClick conditionally records the query's primary click:
	// applied only while clicked_content_ref is still null (first click
	// wins). Reports whether this call won the slot.
	SetPrimaryClick(ctx context.Context, queryID uuid.UUID, contentRef int64, position int) (bool, error)

	// PageViewsInWindow returns all views with created_at in [start, end),
	// ordered by ingest_seq ASC.
	PageViewsInWindow(ctx context.Context, start, end time.Time) ([]*v1.PageView, error)

	// SearchQueriesInWindow returns all queries with created_at in
	// [start, end), ordered by ingest_seq ASC.
	SearchQueriesInWindow(ctx context.Context, start, end time.Time) ([]*v1.SearchQuery, error)

	// PageViewsAfterCursor pages through views in [start, end) with
	// ingest_seq > cursor, in strict total order. cursor=0 means "from the
	// beginning". Export read path.
	PageViewsAfterCursor(ctx context.Context, start, end time.Time, cursor int64, limit int) ([]*v1.PageView, error)

	// SearchQueriesAfterCursor is the search-side export cursor.
	SearchQueriesAfterCursor(ctx context.Context, start, end time.Time, cursor int64, limit int) ([]*v1.SearchQuery, error)
}
