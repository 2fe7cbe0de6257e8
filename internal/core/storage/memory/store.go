// Package memory provides an in-memory EventStore.
// Useful for testing and development; mirrors the postgres adapter's
// semantics (CAS, clickthrough uniqueness, ingest_seq ordering) under a
// single mutex.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	v1 "github.com/pagepulse/pagepulse/internal/api/v1"
	"github.com/pagepulse/pagepulse/internal/core/storage"
)

type clickKey struct {
	queryID    uuid.UUID
	contentRef int64
	sessionKey string
}

// Store is an in-memory implementation of storage.EventStore.
type Store struct {
	mu        sync.RWMutex
	views     map[uuid.UUID]*v1.PageView
	queries   map[uuid.UUID]*v1.SearchQuery
	clicks    map[clickKey]*v1.SearchClickthrough
	ingestSeq int64
}

// NewStore creates an empty in-memory event store.
func NewStore() *Store {
	return &Store{
		views:   make(map[uuid.UUID]*v1.PageView),
		queries: make(map[uuid.UUID]*v1.SearchQuery),
		clicks:  make(map[clickKey]*v1.SearchClickthrough),
	}
}

func (s *Store) SavePageView(ctx context.Context, view *v1.PageView) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ingestSeq++
	view.IngestSeq = s.ingestSeq

	copy := *view
	s.views[view.ID] = &copy
	return nil
}

func (s *Store) UpdateEngagement(ctx context.Context, id uuid.UUID, timeOnPage, scrollDepth *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	view, exists := s.views[id]
	if !exists {
		return storage.ErrNotFound
	}

	if timeOnPage != nil {
		t := *timeOnPage
		view.TimeOnPage = &t
	}
	if scrollDepth != nil {
		d := *scrollDepth
		view.ScrollDepth = &d
	}
	return nil
}

func (s *Store) GetPageView(ctx context.Context, id uuid.UUID) (*v1.PageView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view, exists := s.views[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	copy := *view
	return &copy, nil
}

func (s *Store) SaveSearchQuery(ctx context.Context, query *v1.SearchQuery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ingestSeq++
	query.IngestSeq = s.ingestSeq

	copy := *query
	s.queries[query.ID] = &copy
	return nil
}

func (s *Store) GetSearchQuery(ctx context.Context, id uuid.UUID) (*v1.SearchQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query, exists := s.queries[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	copy := *query
	return &copy, nil
}

func (s *Store) SaveClickthrough(ctx context.Context, click *v1.SearchClickthrough) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.queries[click.SearchQueryID]; !exists {
		return storage.ErrNotFound
	}

	key := clickKey{click.SearchQueryID, click.ContentRef, click.SessionKey}
	if _, exists := s.clicks[key]; exists {
		return storage.ErrDuplicateClick
	}

	copy := *click
	s.clicks[key] = &copy
	return nil
}

// SetPrimaryClick is the CAS: the check and the write happen under one lock
// acquisition, so concurrent callers cannot both win.
func (s *Store) SetPrimaryClick(ctx context.Context, queryID uuid.UUID, contentRef int64, position int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query, exists := s.queries[queryID]
	if !exists {
		return false, storage.ErrNotFound
	}
	if query.ClickedContentRef != nil {
		return false, nil
	}

	ref := contentRef
	pos := position
	query.ClickedContentRef = &ref
	query.ClickedPosition = &pos
	return true, nil
}

func (s *Store) PageViewsInWindow(ctx context.Context, start, end time.Time) ([]*v1.PageView, error) {
	return s.PageViewsAfterCursor(ctx, start, end, 0, 0)
}

func (s *Store) SearchQueriesInWindow(ctx context.Context, start, end time.Time) ([]*v1.SearchQuery, error) {
	return s.SearchQueriesAfterCursor(ctx, start, end, 0, 0)
}

// PageViewsAfterCursor returns views in [start, end) with ingest_seq >
// cursor, ordered by ingest_seq ASC. limit <= 0 means no limit.
func (s *Store) PageViewsAfterCursor(ctx context.Context, start, end time.Time, cursor int64, limit int) ([]*v1.PageView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*v1.PageView
	for _, view := range s.views {
		if view.IngestSeq <= cursor {
			continue
		}
		if view.CreatedAt.Before(start) || !view.CreatedAt.Before(end) {
			continue
		}
		copy := *view
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].IngestSeq < result[j].IngestSeq
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// SearchQueriesAfterCursor is the search-side cursor read.
func (s *Store) SearchQueriesAfterCursor(ctx context.Context, start, end time.Time, cursor int64, limit int) ([]*v1.SearchQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*v1.SearchQuery
	for _, query := range s.queries {
		if query.IngestSeq <= cursor {
			continue
		}
		if query.CreatedAt.Before(start) || !query.CreatedAt.Before(end) {
			continue
		}
		copy := *query
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].IngestSeq < result[j].IngestSeq
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
