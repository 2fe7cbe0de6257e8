package analytics

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContentCount is one row of a popular-content ranking.
type ContentCount struct {
	ContentRef int64 `json:"content_ref"`
	Count      int   `json:"count"`
}

// QueryStat is one row of a query ranking: how often a normalized query ran
// and how many results it returned on average.
type QueryStat struct {
	Query      string          `json:"query"`
	Count      int             `json:"count"`
	AvgResults decimal.Decimal `json:"avg_results"`
}

// ReferrerCount is one row of a traffic-source ranking. Count is distinct
// sessions that arrived through the referrer.
type ReferrerCount struct {
	Referrer string `json:"referrer"`
	Count    int    `json:"count"`
}

// DailyBucket is one calendar day of the traffic series.
type DailyBucket struct {
	Day    time.Time `json:"day"`
	Views  int       `json:"views"`
	Actors int       `json:"actors"` // distinct non-anonymous actors
}

// EngagementSummary aggregates dwell/scroll behaviour over a window.
// Averages cover only views whose beacon reported the field.
type EngagementSummary struct {
	Views            int             `json:"views"`
	DistinctSessions int             `json:"distinct_sessions"`
	EnrichedViews    int             `json:"enriched_views"`
	AvgTimeOnPage    decimal.Decimal `json:"avg_time_on_page"`
	AvgScrollDepth   decimal.Decimal `json:"avg_scroll_depth"`
	AvgEngagement    decimal.Decimal `json:"avg_engagement"`
}

// SearchStats aggregates search behaviour over a window.
type SearchStats struct {
	TotalSearches       int             `json:"total_searches"`
	FailedSearches      int             `json:"failed_searches"`
	SearchesWithClicks  int             `json:"searches_with_clicks"`
	ClickThroughRate    decimal.Decimal `json:"click_through_rate"` // percent
	AvgResultsPerSearch decimal.Decimal `json:"avg_results_per_search"`
}
