package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	v1 "github.com/pagepulse/pagepulse/internal/api/v1"
	"github.com/pagepulse/pagepulse/internal/core/storage"
)

// ratioScale fixes the decimal places of every rate/average the aggregator
// emits. A fixed scale keeps repeated computations over the same event
// snapshot byte-identical, which the cache layer depends on.
const ratioScale = 2

// Aggregator computes windowed statistics over the event store. It holds no
// mutable state: every method is a pure function of (store snapshot, window),
// so identical inputs always produce identical ordered output.
type Aggregator struct {
	store storage.EventStore
}

// NewAggregator creates an aggregator reading from store.
func NewAggregator(store storage.EventStore) *Aggregator {
	if store == nil {
		panic("analytics: store must not be nil")
	}
	return &Aggregator{store: store}
}

// PopularContent groups page views by content item and ranks them by view
// count descending, ties broken by content id ascending.
func (a *Aggregator) PopularContent(ctx context.Context, window Window, limit int) ([]ContentCount, error) {
	views, err := a.pageViews(ctx, window)
	if err != nil {
		return nil, err
	}

	counts := make(map[int64]int)
	for _, view := range views {
		if view.ContentRef == nil {
			continue
		}
		counts[*view.ContentRef]++
	}

	ranked := make([]ContentCount, 0, len(counts))
	for ref, count := range counts {
		ranked = append(ranked, ContentCount{ContentRef: ref, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].ContentRef < ranked[j].ContentRef
	})

	return truncate(ranked, limit), nil
}

// PopularQueries groups searches by trimmed (case-preserved) query text and
// reports run count and average results per run.
func (a *Aggregator) PopularQueries(ctx context.Context, window Window, limit int) ([]QueryStat, error) {
	grouped, err := a.groupQueries(ctx, window)
	if err != nil {
		return nil, err
	}

	ranked := make([]QueryStat, 0, len(grouped))
	for text, group := range grouped {
		ranked = append(ranked, QueryStat{
			Query:      text,
			Count:      group.count,
			AvgResults: safeDiv(decimal.NewFromInt(int64(group.totalResults)), int64(group.count)),
		})
	}
	sortQueryStats(ranked)

	return truncate(ranked, limit), nil
}

// FailedQueries is the subset of grouped queries where every occurrence
// returned zero results.
func (a *Aggregator) FailedQueries(ctx context.Context, window Window, limit int) ([]QueryStat, error) {
	grouped, err := a.groupQueries(ctx, window)
	if err != nil {
		return nil, err
	}

	ranked := make([]QueryStat, 0)
	for text, group := range grouped {
		if group.totalResults > 0 {
			continue
		}
		ranked = append(ranked, QueryStat{Query: text, Count: group.count, AvgResults: decimal.Zero})
	}
	sortQueryStats(ranked)

	return truncate(ranked, limit), nil
}

// SearchStats summarizes search behaviour over the window. All rates use
// safe division: zero searches yields zero rates, never a fault.
func (a *Aggregator) SearchStats(ctx context.Context, window Window) (SearchStats, error) {
	start, end := window.Bounds()
	queries, err := a.store.SearchQueriesInWindow(ctx, start, end)
	if err != nil {
		return SearchStats{}, fmt.Errorf("search stats: %w", err)
	}

	stats := SearchStats{
		ClickThroughRate:    decimal.Zero,
		AvgResultsPerSearch: decimal.Zero,
	}
	totalResults := 0
	for _, q := range queries {
		stats.TotalSearches++
		totalResults += q.ResultsCount
		if q.ResultsCount == 0 {
			stats.FailedSearches++
		}
		if q.ClickedContentRef != nil {
			stats.SearchesWithClicks++
		}
	}

	stats.ClickThroughRate = safeDiv(
		decimal.NewFromInt(int64(stats.SearchesWithClicks)*100),
		int64(stats.TotalSearches),
	)
	stats.AvgResultsPerSearch = safeDiv(
		decimal.NewFromInt(int64(totalResults)),
		int64(stats.TotalSearches),
	)
	return stats, nil
}

// TrafficByReferrer groups page views by non-empty referrer and counts
// distinct sessions per referrer, descending.
func (a *Aggregator) TrafficByReferrer(ctx context.Context, window Window, limit int) ([]ReferrerCount, error) {
	views, err := a.pageViews(ctx, window)
	if err != nil {
		return nil, err
	}

	sessions := make(map[string]map[string]bool)
	for _, view := range views {
		if view.Referrer == nil || *view.Referrer == "" {
			continue
		}
		ref := *view.Referrer
		if sessions[ref] == nil {
			sessions[ref] = make(map[string]bool)
		}
		sessions[ref][view.SessionKey] = true
	}

	ranked := make([]ReferrerCount, 0, len(sessions))
	for ref, keys := range sessions {
		ranked = append(ranked, ReferrerCount{Referrer: ref, Count: len(keys)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Referrer < ranked[j].Referrer
	})

	return truncate(ranked, limit), nil
}

// DailySeries emits one bucket per calendar day intersecting the window,
// including empty days, with view count and distinct-actor count.
func (a *Aggregator) DailySeries(ctx context.Context, window Window) ([]DailyBucket, error) {
	views, err := a.pageViews(ctx, window)
	if err != nil {
		return nil, err
	}

	type dayAgg struct {
		views  int
		actors map[string]bool
	}
	days := make(map[time.Time]*dayAgg)
	for _, view := range views {
		day := DayBucket(view.CreatedAt)
		agg := days[day]
		if agg == nil {
			agg = &dayAgg{actors: make(map[string]bool)}
			days[day] = agg
		}
		agg.views++
		if view.ActorRef != nil {
			agg.actors[*view.ActorRef] = true
		}
	}

	start, end := window.Bounds()
	var series []DailyBucket
	for day := DayBucket(start); day.Before(end); day = day.AddDate(0, 0, 1) {
		bucket := DailyBucket{Day: day}
		if agg, ok := days[day]; ok {
			bucket.Views = agg.views
			bucket.Actors = len(agg.actors)
		}
		series = append(series, bucket)
	}
	return series, nil
}

// EngagementSummary aggregates dwell time, scroll depth, and engagement
// score over the window. Averages only cover views whose beacon reported
// the respective field.
func (a *Aggregator) EngagementSummary(ctx context.Context, window Window) (EngagementSummary, error) {
	views, err := a.pageViews(ctx, window)
	if err != nil {
		return EngagementSummary{}, err
	}

	summary := EngagementSummary{
		AvgTimeOnPage:  decimal.Zero,
		AvgScrollDepth: decimal.Zero,
		AvgEngagement:  decimal.Zero,
	}
	sessions := make(map[string]bool)
	var timeSum, timeN, scrollSum, scrollN, scoreSum, scoreN int

	for _, view := range views {
		summary.Views++
		sessions[view.SessionKey] = true

		enriched := false
		if view.TimeOnPage != nil {
			timeSum += *view.TimeOnPage
			timeN++
			enriched = true
		}
		if view.ScrollDepth != nil {
			scrollSum += *view.ScrollDepth
			scrollN++
			enriched = true
		}
		if enriched {
			summary.EnrichedViews++
			scoreSum += PageEngagementScore(view.TimeOnPage, view.ScrollDepth)
			scoreN++
		}
	}

	summary.DistinctSessions = len(sessions)
	summary.AvgTimeOnPage = safeDiv(decimal.NewFromInt(int64(timeSum)), int64(timeN))
	summary.AvgScrollDepth = safeDiv(decimal.NewFromInt(int64(scrollSum)), int64(scrollN))
	summary.AvgEngagement = safeDiv(decimal.NewFromInt(int64(scoreSum)), int64(scoreN))
	return summary, nil
}

type queryGroup struct {
	count        int
	totalResults int
}

func (a *Aggregator) groupQueries(ctx context.Context, window Window) (map[string]*queryGroup, error) {
	start, end := window.Bounds()
	queries, err := a.store.SearchQueriesInWindow(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("group queries: %w", err)
	}

	grouped := make(map[string]*queryGroup)
	for _, q := range queries {
		text := strings.TrimSpace(q.Query)
		if text == "" {
			continue
		}
		group := grouped[text]
		if group == nil {
			group = &queryGroup{}
			grouped[text] = group
		}
		group.count++
		group.totalResults += q.ResultsCount
	}
	return grouped, nil
}

func (a *Aggregator) pageViews(ctx context.Context, window Window) ([]*v1.PageView, error) {
	start, end := window.Bounds()
	views, err := a.store.PageViewsInWindow(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("window page views: %w", err)
	}
	return views, nil
}

func sortQueryStats(stats []QueryStat) {
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Query < stats[j].Query
	})
}

// safeDiv divides with a fixed scale; a zero denominator yields zero rather
// than a divide fault.
func safeDiv(numerator decimal.Decimal, denominator int64) decimal.Decimal {
	if denominator == 0 {
		return decimal.Zero
	}
	return numerator.DivRound(decimal.NewFromInt(denominator), ratioScale)
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
