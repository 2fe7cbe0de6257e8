package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	v1 "github.com/pagepulse/pagepulse/internal/api/v1"
	"github.com/pagepulse/pagepulse/internal/catalog"
	"github.com/pagepulse/pagepulse/internal/core/storage"
)

// ErrInvalidInput marks validation failures rejected synchronously at the
// ingestion boundary; nothing is partially recorded.
var ErrInvalidInput = errors.New("invalid ingestion input")

// WarnStaleContentRef is surfaced to callers when a page view referenced
// content that no longer resolves. The view is still recorded with a null
// reference: analytics must survive content deletion.
const WarnStaleContentRef = "content_ref does not resolve; recorded without it"

// Service is the write side of the engine. Each call is a single
// independent record; callers do not block on aggregation or cache refresh.
type Service struct {
	store            storage.EventStore
	catalog          catalog.ContentCatalog
	maxBodySizeBytes int
	nowFn            func() time.Time
}

// NewService creates the ingestion service.
func NewService(store storage.EventStore, contentCatalog catalog.ContentCatalog, maxBodySizeMB int) *Service {
	if store == nil {
		panic("ingestion: store must not be nil")
	}
	if contentCatalog == nil {
		panic("ingestion: catalog must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		store:            store,
		catalog:          contentCatalog,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
		nowFn:            func() time.Time { return time.Now().UTC() },
	}
}

// RecordPageView validates and appends one page view. A content_ref that no
// longer resolves is nulled out and reported as a warning, never an error.
// The external view counter increment is delegated to the catalog and its
// failure is logged and dropped, not rolled back.
func (s *Service) RecordPageView(ctx context.Context, input v1.PageViewInput) (uuid.UUID, string, error) {
	if err := input.Validate(); err != nil {
		return uuid.Nil, "", fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	warning := ""
	contentRef := input.ContentRef
	if contentRef != nil {
		if _, err := s.catalog.GetContentMeta(ctx, *contentRef); err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				slog.Warn("Stale content reference on page view",
					"content_ref", *contentRef,
					"path", input.Path)
				contentRef = nil
				warning = WarnStaleContentRef
			} else {
				// Catalog unavailable is not the caller's problem; keep the
				// reference and let the counter increment take its chances.
				slog.Error("Content catalog lookup failed", "content_ref", *contentRef, "error", err)
			}
		}
	}

	view := &v1.PageView{
		ID:         uuid.New(),
		Path:       strings.TrimSpace(input.Path),
		ContentRef: contentRef,
		ActorRef:   input.ActorRef,
		SessionKey: input.SessionKey,
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
		Referrer:   input.Referrer,
		Device:     orUnknown(input.Device),
		Browser:    orUnknown(input.Browser),
		OS:         orUnknown(input.OS),
		CreatedAt:  s.nowFn(),
	}

	if err := s.store.SavePageView(ctx, view); err != nil {
		return uuid.Nil, "", fmt.Errorf("save page view: %w", err)
	}

	if view.ContentRef != nil {
		// Atomic increment on the collaborator. The only cross-boundary
		// write; allowed to fail independently of the page-view record.
		if err := s.catalog.IncrementViewCount(ctx, *view.ContentRef); err != nil {
			slog.Error("View counter increment failed",
				"content_ref", *view.ContentRef,
				"view_id", view.ID,
				"error", err)
		}
	}

	return view.ID, warning, nil
}

// RecordSearchQuery validates and appends one executed search.
func (s *Service) RecordSearchQuery(ctx context.Context, input v1.SearchQueryInput) (uuid.UUID, error) {
	if err := input.Validate(); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	query := &v1.SearchQuery{
		ID:           uuid.New(),
		Query:        strings.TrimSpace(input.Query),
		ResultsCount: input.ResultsCount,
		ActorRef:     input.ActorRef,
		SessionKey:   input.SessionKey,
		IPAddress:    input.IPAddress,
		CreatedAt:    s.nowFn(),
	}

	if err := s.store.SaveSearchQuery(ctx, query); err != nil {
		return uuid.Nil, fmt.Errorf("save search query: %w", err)
	}
	return query.ID, nil
}

// RecordClickthrough appends a click row and then tries to claim the parent
// query's primary-click slot. The slot write is a compare-and-swap: when two
// clicks race, exactly one becomes primary, but both rows are recorded. A
// repeat click from the same session is idempotent success.
func (s *Service) RecordClickthrough(ctx context.Context, searchQueryID uuid.UUID, input v1.ClickthroughInput) (uuid.UUID, error) {
	if err := input.Validate(); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	click := &v1.SearchClickthrough{
		ID:            uuid.New(),
		SearchQueryID: searchQueryID,
		ContentRef:    input.ContentRef,
		Position:      input.Position,
		ActorRef:      input.ActorRef,
		SessionKey:    input.SessionKey,
		CreatedAt:     s.nowFn(),
	}

	if err := s.store.SaveClickthrough(ctx, click); err != nil {
		if errors.Is(err, storage.ErrDuplicateClick) {
			slog.Info("Duplicate clickthrough ignored",
				"search_query_id", searchQueryID,
				"content_ref", input.ContentRef,
				"session_key", input.SessionKey)
			return click.ID, nil
		}
		return uuid.Nil, fmt.Errorf("save clickthrough: %w", err)
	}

	applied, err := s.store.SetPrimaryClick(ctx, searchQueryID, input.ContentRef, input.Position)
	if err != nil {
		// The click row is already durable; losing the primary slot update
		// is logged, not surfaced.
		slog.Error("Primary click update failed", "search_query_id", searchQueryID, "error", err)
	} else if applied {
		slog.Debug("Primary click recorded",
			"search_query_id", searchQueryID,
			"content_ref", input.ContentRef,
			"position", input.Position)
	}

	return click.ID, nil
}

// UpdateEngagement fills in the beacon fields on an existing page view.
// Beacons retry, so repeat calls are accepted with last-write-wins.
func (s *Service) UpdateEngagement(ctx context.Context, pageViewID uuid.UUID, update v1.EngagementUpdate) error {
	if err := update.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	return s.store.UpdateEngagement(ctx, pageViewID, update.TimeOnPage, update.ScrollDepth)
}

// GetSearchQuery fetches one recorded search for inspection.
func (s *Service) GetSearchQuery(ctx context.Context, id uuid.UUID) (*v1.SearchQuery, error) {
	return s.store.GetSearchQuery(ctx, id)
}

// GetPageView fetches one recorded view for inspection.
func (s *Service) GetPageView(ctx context.Context, id uuid.UUID) (*v1.PageView, error) {
	return s.store.GetPageView(ctx, id)
}

func orUnknown(v string) string {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		return v1.DeviceUnknown
	}
	return v
}
