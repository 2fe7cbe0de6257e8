package ingestion

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/pagepulse/pagepulse/internal/api/v1"
	"github.com/pagepulse/pagepulse/internal/catalog"
	"github.com/pagepulse/pagepulse/internal/core/storage/memory"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func newTestService(t *testing.T) (*Service, *memory.Store, *catalog.MemoryCatalog) {
	t.Helper()
	store := memory.NewStore()
	contentCatalog := catalog.NewMemoryCatalog()
	contentCatalog.Put(catalog.ContentMeta{ID: 1, Title: "Known", Status: catalog.StatusPublished})
	return NewService(store, contentCatalog, 1), store, contentCatalog
}

func validView() v1.PageViewInput {
	return v1.PageViewInput{
		Path:       "/posts/known",
		SessionKey: "sess-1",
		IPAddress:  "10.0.0.1",
		UserAgent:  "agent",
	}
}

func TestRecordPageViewIncrementsCatalogCounter(t *testing.T) {
	svc, store, contentCatalog := newTestService(t)

	input := validView()
	input.ContentRef = int64Ptr(1)

	id, warning, err := svc.RecordPageView(context.Background(), input)
	require.NoError(t, err)
	assert.Empty(t, warning)

	view, err := store.GetPageView(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, view.ContentRef)
	assert.Equal(t, int64(1), *view.ContentRef)
	assert.Equal(t, v1.DeviceUnknown, view.Device)

	assert.Equal(t, int64(1), contentCatalog.ViewCount(1))
}

func TestRecordPageViewStaleContentRef(t *testing.T) {
	svc, store, contentCatalog := newTestService(t)

	input := validView()
	input.ContentRef = int64Ptr(999) // deleted content

	id, warning, err := svc.RecordPageView(context.Background(), input)
	require.NoError(t, err, "a stale reference must not fail ingestion")
	assert.Equal(t, WarnStaleContentRef, warning)

	view, err := store.GetPageView(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, view.ContentRef, "stale reference recorded as null")
	assert.Equal(t, int64(0), contentCatalog.ViewCount(999))
}

func TestRecordPageViewValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	tests := []struct {
		name   string
		mutate func(*v1.PageViewInput)
	}{
		{"missing path", func(in *v1.PageViewInput) { in.Path = "  " }},
		{"missing session key", func(in *v1.PageViewInput) { in.SessionKey = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validView()
			tt.mutate(&input)
			_, _, err := svc.RecordPageView(context.Background(), input)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRecordSearchQueryTrimsText(t *testing.T) {
	svc, store, _ := newTestService(t)

	id, err := svc.RecordSearchQuery(context.Background(), v1.SearchQueryInput{
		Query:        "  golang  ",
		ResultsCount: 3,
		SessionKey:   "sess-1",
	})
	require.NoError(t, err)

	query, err := store.GetSearchQuery(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "golang", query.Query)
}

func TestRecordSearchQueryValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.RecordSearchQuery(context.Background(), v1.SearchQueryInput{Query: " ", SessionKey: "s"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.RecordSearchQuery(context.Background(), v1.SearchQueryInput{Query: "x", ResultsCount: -1, SessionKey: "s"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRecordClickthroughSetsPrimaryClick(t *testing.T) {
	svc, store, _ := newTestService(t)

	queryID, err := svc.RecordSearchQuery(context.Background(), v1.SearchQueryInput{
		Query: "golang", ResultsCount: 5, SessionKey: "sess-1",
	})
	require.NoError(t, err)

	_, err = svc.RecordClickthrough(context.Background(), queryID, v1.ClickthroughInput{
		ContentRef: 1, Position: 2, SessionKey: "sess-1",
	})
	require.NoError(t, err)

	query, err := store.GetSearchQuery(context.Background(), queryID)
	require.NoError(t, err)
	require.NotNil(t, query.ClickedContentRef)
	assert.Equal(t, int64(1), *query.ClickedContentRef)
	require.NotNil(t, query.ClickedPosition)
	assert.Equal(t, 2, *query.ClickedPosition)
}

func TestRecordClickthroughFirstClickWins(t *testing.T) {
	svc, store, _ := newTestService(t)

	queryID, err := svc.RecordSearchQuery(context.Background(), v1.SearchQueryInput{
		Query: "golang", ResultsCount: 5, SessionKey: "sess-1",
	})
	require.NoError(t, err)

	_, err = svc.RecordClickthrough(context.Background(), queryID, v1.ClickthroughInput{
		ContentRef: 1, Position: 1, SessionKey: "sess-1",
	})
	require.NoError(t, err)

	// Second click from a different session records a row but does not
	// overwrite the primary slot.
	_, err = svc.RecordClickthrough(context.Background(), queryID, v1.ClickthroughInput{
		ContentRef: 2, Position: 3, SessionKey: "sess-2",
	})
	require.NoError(t, err)

	query, err := store.GetSearchQuery(context.Background(), queryID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), *query.ClickedContentRef)
	assert.Equal(t, 1, *query.ClickedPosition)
}

func TestRecordClickthroughDuplicateIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t)

	queryID, err := svc.RecordSearchQuery(context.Background(), v1.SearchQueryInput{
		Query: "golang", ResultsCount: 5, SessionKey: "sess-1",
	})
	require.NoError(t, err)

	input := v1.ClickthroughInput{ContentRef: 1, Position: 1, SessionKey: "sess-1"}
	_, err = svc.RecordClickthrough(context.Background(), queryID, input)
	require.NoError(t, err)

	// Same session, same result: accepted without error.
	_, err = svc.RecordClickthrough(context.Background(), queryID, input)
	assert.NoError(t, err)
}

func TestRecordClickthroughConcurrentRace(t *testing.T) {
	svc, store, _ := newTestService(t)

	queryID, err := svc.RecordSearchQuery(context.Background(), v1.SearchQueryInput{
		Query: "golang", ResultsCount: 10, SessionKey: "sess-0",
	})
	require.NoError(t, err)

	const racers = 16
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.RecordClickthrough(context.Background(), queryID, v1.ClickthroughInput{
				ContentRef: int64(i + 1),
				Position:   i + 1,
				SessionKey: "sess-0",
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	query, err := store.GetSearchQuery(context.Background(), queryID)
	require.NoError(t, err)
	require.NotNil(t, query.ClickedContentRef)
	require.NotNil(t, query.ClickedPosition)
	// The primary slot holds one consistent winning pair.
	assert.Equal(t, int64(*query.ClickedPosition), *query.ClickedContentRef)
}

func TestUpdateEngagementValidation(t *testing.T) {
	svc, store, _ := newTestService(t)

	id, _, err := svc.RecordPageView(context.Background(), validView())
	require.NoError(t, err)

	// Empty beacon rejected.
	err = svc.UpdateEngagement(context.Background(), id, v1.EngagementUpdate{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Out-of-range scroll depth rejected.
	err = svc.UpdateEngagement(context.Background(), id, v1.EngagementUpdate{ScrollDepth: intPtr(120)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Valid beacon lands.
	err = svc.UpdateEngagement(context.Background(), id, v1.EngagementUpdate{TimeOnPage: intPtr(45), ScrollDepth: intPtr(70)})
	require.NoError(t, err)

	view, err := store.GetPageView(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 45, *view.TimeOnPage)
	assert.Equal(t, 70, *view.ScrollDepth)
}

func TestUpdateEngagementUnknownView(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.UpdateEngagement(context.Background(), uuid.New(), v1.EngagementUpdate{TimeOnPage: intPtr(10)})
	assert.Error(t, err)
}
