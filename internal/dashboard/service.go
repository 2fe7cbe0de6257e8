// Package dashboard composes the aggregator, ranker, and cache layer into
// the fixed response shapes a dashboard needs. Pure composition, no new
// algorithms: every number comes from the analytics package, every read
// goes through the cache.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pagepulse/pagepulse/internal/analytics"
	"github.com/pagepulse/pagepulse/internal/cache"
	"github.com/pagepulse/pagepulse/internal/catalog"
	"github.com/pagepulse/pagepulse/internal/recommend"
)

// overviewWindows are the fixed trailing spans on the snapshot header.
var overviewWindows = []int{1, 7, 30}

// emptyList is the documented fallback for a failed list aggregate.
var emptyList = json.RawMessage("[]")

// Service is the dashboard query façade.
type Service struct {
	cache      *cache.Cache
	aggregator *analytics.Aggregator
	ranker     *recommend.Ranker
	defaultTTL time.Duration
	nowFn      func() time.Time
}

// NewService creates the façade. defaultTTL bounds staleness of ad-hoc
// reads; the scheduled refresher overwrites standing keys sooner.
func NewService(c *cache.Cache, agg *analytics.Aggregator, ranker *recommend.Ranker, defaultTTL time.Duration) *Service {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &Service{
		cache:      c,
		aggregator: agg,
		ranker:     ranker,
		defaultTTL: defaultTTL,
		nowFn:      func() time.Time { return time.Now().UTC() },
	}
}

// Overview is one window's headline counters.
type Overview struct {
	Window           string              `json:"window"`
	Views            int                 `json:"views"`
	DistinctSessions int                 `json:"distinct_sessions"`
	Searches         analytics.SearchStats `json:"searches"`
}

// Snapshot is the full dashboard payload. Sections that failed to compute
// carry their documented zero value and are listed in Degraded; the
// response as a whole never fails because one aggregate did.
type Snapshot struct {
	Window         string          `json:"window"`
	GeneratedAt    time.Time       `json:"generated_at"`
	Overview       []Overview      `json:"overview"`
	PopularContent json.RawMessage `json:"popular_content"`
	PopularQueries json.RawMessage `json:"popular_queries"`
	FailedQueries  json.RawMessage `json:"failed_queries"`
	TrafficSources json.RawMessage `json:"traffic_sources"`
	DailySeries    json.RawMessage `json:"daily_series"`
	Engagement     json.RawMessage `json:"engagement"`
	SearchStats    json.RawMessage `json:"search_stats"`
	Degraded       []string        `json:"degraded,omitempty"`
}

// topListLimit is the fixed top-N size for snapshot sections.
const topListLimit = 10

// GetDashboardSnapshot assembles the dashboard for a trailing window.
func (s *Service) GetDashboardSnapshot(ctx context.Context, windowDays int) (*Snapshot, error) {
	window, err := analytics.NewWindow(windowDays, s.nowFn())
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{
		Window:      window.Label(),
		GeneratedAt: s.nowFn(),
	}

	sections := []struct {
		name     string
		op       string
		limit    int
		fallback json.RawMessage
		target   *json.RawMessage
	}{
		{"popular_content", cache.OpPopularContent, topListLimit, emptyList, &snapshot.PopularContent},
		{"popular_queries", cache.OpPopularQueries, topListLimit, emptyList, &snapshot.PopularQueries},
		{"failed_queries", cache.OpFailedQueries, topListLimit, emptyList, &snapshot.FailedQueries},
		{"traffic_sources", cache.OpTrafficReferrers, topListLimit, emptyList, &snapshot.TrafficSources},
		{"daily_series", cache.OpDailySeries, 0, emptyList, &snapshot.DailySeries},
		{"engagement", cache.OpEngagementSummary, 0, zeroValue(analytics.EngagementSummary{}), &snapshot.Engagement},
		{"search_stats", cache.OpSearchStats, 0, zeroValue(analytics.SearchStats{}), &snapshot.SearchStats},
	}

	for _, section := range sections {
		value, ok := s.section(ctx, section.op, window, section.limit)
		if !ok {
			value = section.fallback
			snapshot.Degraded = append(snapshot.Degraded, section.name)
		}
		*section.target = value
	}

	snapshot.Overview = s.overview(ctx)
	return snapshot, nil
}

// overview computes the fixed 24h/7d/30d headline counters. A window whose
// aggregates fail contributes zero counters rather than failing the set.
func (s *Service) overview(ctx context.Context) []Overview {
	result := make([]Overview, 0, len(overviewWindows))
	for _, days := range overviewWindows {
		window, err := analytics.NewWindow(days, s.nowFn())
		if err != nil {
			continue
		}

		row := Overview{Window: window.Label()}

		if raw, ok := s.section(ctx, cache.OpEngagementSummary, window, 0); ok {
			var summary analytics.EngagementSummary
			if err := json.Unmarshal(raw, &summary); err == nil {
				row.Views = summary.Views
				row.DistinctSessions = summary.DistinctSessions
			}
		}
		if raw, ok := s.section(ctx, cache.OpSearchStats, window, 0); ok {
			var stats analytics.SearchStats
			if err := json.Unmarshal(raw, &stats); err == nil {
				row.Searches = stats
			}
		}

		result = append(result, row)
	}
	return result
}

// Aggregate serves one named aggregate through the cache. Exposed for the
// per-aggregate endpoints.
func (s *Service) Aggregate(ctx context.Context, operation string, windowDays, limit int) (json.RawMessage, error) {
	if !cache.ValidOperation(operation) {
		return nil, fmt.Errorf("unknown aggregate operation %q", operation)
	}
	window, err := analytics.NewWindow(windowDays, s.nowFn())
	if err != nil {
		return nil, err
	}

	key := cache.Key(operation, window, limitParam(limit))
	return s.cache.GetOrCompute(ctx, key, s.defaultTTL, s.computeFn(operation, window, limit))
}

// RelatedContent serves the ranker through the cache. Recommendation keys
// are windowless: they depend only on catalog state, not on event history.
func (s *Service) RelatedContent(ctx context.Context, sourceID int64, limit int) (json.RawMessage, error) {
	key := fmt.Sprintf("related_content|%d|%s", sourceID, limitParam(limit))
	return s.cache.GetOrCompute(ctx, key, s.defaultTTL, func(ctx context.Context) (interface{}, error) {
		related, err := s.ranker.RelatedContent(ctx, sourceID, limit)
		if err != nil {
			return nil, err
		}
		if related == nil {
			related = []catalog.ContentMeta{}
		}
		return related, nil
	})
}

// ComputeEntry implements cache.Computer: the refresher calls it for each
// plan entry, overwriting the standing key.
func (s *Service) ComputeEntry(ctx context.Context, entry cache.PlanEntry) error {
	window, err := analytics.NewWindow(entry.WindowDays, s.nowFn())
	if err != nil {
		return err
	}

	key := cache.Key(entry.Operation, window, limitParam(entry.Limit))
	return s.cache.Refresh(ctx, key, entry.TTL, s.computeFn(entry.Operation, window, entry.Limit))
}

// section reads one aggregate through the cache, reporting failure instead
// of propagating it. ComputeFailure degrades, never errors out.
func (s *Service) section(ctx context.Context, operation string, window analytics.Window, limit int) (json.RawMessage, bool) {
	key := cache.Key(operation, window, limitParam(limit))
	value, err := s.cache.GetOrCompute(ctx, key, s.defaultTTL, s.computeFn(operation, window, limit))
	if err != nil {
		slog.Error("Dashboard aggregate failed, serving default",
			"operation", operation,
			"window", window.Label(),
			"error", err)
		return nil, false
	}
	return value, true
}

// computeFn dispatches an operation name to the aggregator.
func (s *Service) computeFn(operation string, window analytics.Window, limit int) cache.ComputeFn {
	return func(ctx context.Context) (interface{}, error) {
		switch operation {
		case cache.OpPopularContent:
			return s.aggregator.PopularContent(ctx, window, limit)
		case cache.OpPopularQueries:
			return s.aggregator.PopularQueries(ctx, window, limit)
		case cache.OpFailedQueries:
			return s.aggregator.FailedQueries(ctx, window, limit)
		case cache.OpTrafficReferrers:
			return s.aggregator.TrafficByReferrer(ctx, window, limit)
		case cache.OpDailySeries:
			return s.aggregator.DailySeries(ctx, window)
		case cache.OpEngagementSummary:
			return s.aggregator.EngagementSummary(ctx, window)
		case cache.OpSearchStats:
			return s.aggregator.SearchStats(ctx, window)
		default:
			return nil, fmt.Errorf("unknown aggregate operation %q", operation)
		}
	}
}

func limitParam(limit int) string {
	return fmt.Sprintf("limit=%d", limit)
}

func zeroValue(v interface{}) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return raw
}
