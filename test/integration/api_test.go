// Package integration exercises the full HTTP API over the in-memory event
// store: ingest, beacon, dashboard, recommendations, export.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepulse/pagepulse/internal/analytics"
	"github.com/pagepulse/pagepulse/internal/cache"
	"github.com/pagepulse/pagepulse/internal/catalog"
	"github.com/pagepulse/pagepulse/internal/core/storage/memory"
	"github.com/pagepulse/pagepulse/internal/dashboard"
	"github.com/pagepulse/pagepulse/internal/export"
	"github.com/pagepulse/pagepulse/internal/ingestion"
	"github.com/pagepulse/pagepulse/internal/recommend"
	"github.com/pagepulse/pagepulse/internal/server"
)

func int64Ptr(v int64) *int64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()

	contentCatalog := catalog.NewMemoryCatalog()
	contentCatalog.Put(catalog.ContentMeta{
		ID: 1, Title: "Getting Started", URL: "/posts/getting-started",
		Status: catalog.StatusPublished, CategoryID: int64Ptr(10), TagIDs: []int64{100},
		PublishedAt: timePtr(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)),
	})
	contentCatalog.Put(catalog.ContentMeta{
		ID: 2, Title: "Advanced Guide", URL: "/posts/advanced-guide",
		Status: catalog.StatusPublished, CategoryID: int64Ptr(10), TagIDs: []int64{100, 101},
		PublishedAt: timePtr(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)),
	})

	aggregator := analytics.NewAggregator(store)
	ranker := recommend.NewRanker(contentCatalog)
	aggCache := cache.New()

	ingestionSvc := ingestion.NewService(store, contentCatalog, 1)
	dashboardSvc := dashboard.NewService(aggCache, aggregator, ranker, time.Minute)
	exporter := export.NewExporter(store)

	srv := server.New("127.0.0.1:0", nil, "release")
	ingestionSvc.RegisterRoutes(srv.Engine)
	dashboardSvc.RegisterRoutes(srv.Engine)
	exporter.RegisterRoutes(srv.Engine)
	return srv.Engine
}

func post(t *testing.T, r *gin.Engine, path string, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestServer(t)
	w := get(t, r, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestIngestToDashboardFlow(t *testing.T) {
	r := newTestServer(t)

	// A handful of views on content 1, from two sessions.
	for i := 0; i < 3; i++ {
		w := post(t, r, "/v1/views", map[string]interface{}{
			"path":        "/posts/getting-started",
			"content_ref": 1,
			"session_key": fmt.Sprintf("sess-%d", i%2),
			"referrer":    "https://search.example",
		})
		require.Equal(t, http.StatusAccepted, w.Code)
	}

	// A search with a click, and one failed search.
	created := post(t, r, "/v1/searches", map[string]interface{}{
		"query":         "getting started",
		"results_count": 2,
		"session_key":   "sess-0",
	})
	require.Equal(t, http.StatusAccepted, created.Code)
	var searchResp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &searchResp))

	clicked := post(t, r, "/v1/searches/"+searchResp.ID+"/clicks", map[string]interface{}{
		"content_ref": 1,
		"position":    1,
		"session_key": "sess-0",
	})
	require.Equal(t, http.StatusAccepted, clicked.Code)

	failed := post(t, r, "/v1/searches", map[string]interface{}{
		"query":         "nonexistent thing",
		"results_count": 0,
		"session_key":   "sess-1",
	})
	require.Equal(t, http.StatusAccepted, failed.Code)

	// Dashboard reflects all of it.
	w := get(t, r, "/v1/dashboard/snapshot?window=7")
	require.Equal(t, http.StatusOK, w.Code)

	var snapshot struct {
		Window         string          `json:"window"`
		PopularContent json.RawMessage `json:"popular_content"`
		FailedQueries  json.RawMessage `json:"failed_queries"`
		SearchStats    json.RawMessage `json:"search_stats"`
		Degraded       []string        `json:"degraded"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Equal(t, "7d", snapshot.Window)
	assert.Empty(t, snapshot.Degraded)

	var popular []analytics.ContentCount
	require.NoError(t, json.Unmarshal(snapshot.PopularContent, &popular))
	require.Len(t, popular, 1)
	assert.Equal(t, 3, popular[0].Count)

	var failedQueries []analytics.QueryStat
	require.NoError(t, json.Unmarshal(snapshot.FailedQueries, &failedQueries))
	require.Len(t, failedQueries, 1)
	assert.Equal(t, "nonexistent thing", failedQueries[0].Query)

	var stats analytics.SearchStats
	require.NoError(t, json.Unmarshal(snapshot.SearchStats, &stats))
	assert.Equal(t, 2, stats.TotalSearches)
	assert.Equal(t, 1, stats.SearchesWithClicks)
}

func TestPerAggregateEndpoint(t *testing.T) {
	r := newTestServer(t)

	post(t, r, "/v1/views", map[string]interface{}{
		"path": "/posts/getting-started", "content_ref": 1, "session_key": "s",
	})

	w := get(t, r, "/v1/stats/popular_content?window=7&limit=5")
	require.Equal(t, http.StatusOK, w.Code)

	var popular []analytics.ContentCount
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &popular))
	require.Len(t, popular, 1)

	w = get(t, r, "/v1/stats/not_a_thing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRelatedContentEndpoint(t *testing.T) {
	r := newTestServer(t)

	w := get(t, r, "/v1/content/1/related?limit=5")
	require.Equal(t, http.StatusOK, w.Code)

	var related []catalog.ContentMeta
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &related))
	require.Len(t, related, 1)
	assert.Equal(t, int64(2), related[0].ID)

	w = get(t, r, "/v1/content/999/related")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportEndToEnd(t *testing.T) {
	r := newTestServer(t)

	for i := 0; i < 5; i++ {
		post(t, r, "/v1/views", map[string]interface{}{
			"path": "/posts/getting-started", "session_key": "s",
		})
	}

	w := get(t, r, "/v1/export/page_views?window=30&page_size=3")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get("X-Export-Has-More"))
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Len(t, lines, 3)

	cursor := w.Header().Get("X-Export-Next-Cursor")
	w = get(t, r, "/v1/export/page_views?window=30&page_size=3&cursor="+cursor)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "false", w.Header().Get("X-Export-Has-More"))
	lines = strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Len(t, lines, 2)
}

func TestDuplicateClickIsIdempotentOverHTTP(t *testing.T) {
	r := newTestServer(t)

	created := post(t, r, "/v1/searches", map[string]interface{}{
		"query": "golang", "results_count": 4, "session_key": "sess",
	})
	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &resp))

	click := map[string]interface{}{"content_ref": 1, "position": 1, "session_key": "sess"}
	first := post(t, r, "/v1/searches/"+resp.ID+"/clicks", click)
	second := post(t, r, "/v1/searches/"+resp.ID+"/clicks", click)

	assert.Equal(t, http.StatusAccepted, first.Code)
	assert.Equal(t, http.StatusAccepted, second.Code)
}
