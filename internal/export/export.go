// Package export streams raw events out of the store as NDJSON. Exports
// page through the ingest sequence so a consumer can resume exactly where a
// previous request stopped, and a window snapshot taken mid-export stays
// consistent because the sequence is append-only.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pagepulse/pagepulse/internal/analytics"
	v1 "github.com/pagepulse/pagepulse/internal/api/v1"
	"github.com/pagepulse/pagepulse/internal/core/storage"
)

const (
	// DefaultPageSize is used when the caller does not specify one.
	DefaultPageSize = 500
	// MaxPageSize caps a single export page.
	MaxPageSize = 5000
)

// Kind selects which event stream to export.
type Kind string

const (
	KindPageViews     Kind = "page_views"
	KindSearchQueries Kind = "search_queries"
)

// ValidKind reports whether k names an exportable stream.
func ValidKind(k Kind) bool {
	return k == KindPageViews || k == KindSearchQueries
}

// Page is one batch of an export. NextCursor is the ingest sequence of the
// last record; pass it back to continue. HasMore is false when the window
// is exhausted.
type Page struct {
	Kind       Kind              `json:"kind"`
	Window     string            `json:"window"`
	Records    []json.RawMessage `json:"records"`
	NextCursor int64             `json:"next_cursor"`
	HasMore    bool              `json:"has_more"`
}

// Exporter reads event pages from the store.
type Exporter struct {
	store storage.EventStore
	nowFn func() time.Time
}

// NewExporter creates an exporter over the given store.
func NewExporter(store storage.EventStore) *Exporter {
	if store == nil {
		panic("export: store must not be nil")
	}
	return &Exporter{
		store: store,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// ExportPage returns one page of events of the given kind inside a trailing
// window, starting strictly after cursor (cursor 0 starts from the oldest).
func (e *Exporter) ExportPage(ctx context.Context, kind Kind, windowDays int, cursor int64, pageSize int) (*Page, error) {
	if !ValidKind(kind) {
		return nil, fmt.Errorf("unknown export kind %q", kind)
	}
	if cursor < 0 {
		return nil, fmt.Errorf("cursor must be >= 0, got %d", cursor)
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	window, err := analytics.NewWindow(windowDays, e.nowFn())
	if err != nil {
		return nil, err
	}
	start, end := window.Bounds()

	page := &Page{
		Kind:       kind,
		Window:     window.Label(),
		NextCursor: cursor,
	}

	// Fetch one extra record to learn whether more remain without a second
	// round trip.
	switch kind {
	case KindPageViews:
		views, err := e.store.PageViewsAfterCursor(ctx, start, end, cursor, pageSize+1)
		if err != nil {
			return nil, fmt.Errorf("export page views: %w", err)
		}
		page.HasMore = len(views) > pageSize
		views = truncateViews(views, pageSize)
		for _, view := range views {
			record, err := marshalPageView(view)
			if err != nil {
				return nil, err
			}
			page.Records = append(page.Records, record)
			page.NextCursor = view.IngestSeq
		}
	case KindSearchQueries:
		queries, err := e.store.SearchQueriesAfterCursor(ctx, start, end, cursor, pageSize+1)
		if err != nil {
			return nil, fmt.Errorf("export search queries: %w", err)
		}
		page.HasMore = len(queries) > pageSize
		queries = truncateQueries(queries, pageSize)
		for _, query := range queries {
			record, err := marshalSearchQuery(query)
			if err != nil {
				return nil, err
			}
			page.Records = append(page.Records, record)
			page.NextCursor = query.IngestSeq
		}
	}

	if page.Records == nil {
		page.Records = []json.RawMessage{}
	}
	return page, nil
}

// exportedPageView is the export wire shape: the API struct plus the ingest
// sequence, which internal endpoints hide but exports need for resumption.
type exportedPageView struct {
	*v1.PageView
	IngestSeq int64 `json:"ingest_seq"`
}

type exportedSearchQuery struct {
	*v1.SearchQuery
	IngestSeq int64 `json:"ingest_seq"`
}

func marshalPageView(view *v1.PageView) (json.RawMessage, error) {
	record, err := json.Marshal(exportedPageView{PageView: view, IngestSeq: view.IngestSeq})
	if err != nil {
		return nil, fmt.Errorf("serialize page view %s: %w", view.ID, err)
	}
	return record, nil
}

func marshalSearchQuery(query *v1.SearchQuery) (json.RawMessage, error) {
	record, err := json.Marshal(exportedSearchQuery{SearchQuery: query, IngestSeq: query.IngestSeq})
	if err != nil {
		return nil, fmt.Errorf("serialize search query %s: %w", query.ID, err)
	}
	return record, nil
}

func truncateViews(views []*v1.PageView, limit int) []*v1.PageView {
	if len(views) > limit {
		return views[:limit]
	}
	return views
}

func truncateQueries(queries []*v1.SearchQuery, limit int) []*v1.SearchQuery {
	if len(queries) > limit {
		return queries[:limit]
	}
	return queries
}
