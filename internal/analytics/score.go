package analytics

// SearchEffectivenessScore rates one search query 0-100 from result recall
// and click position.
//
// Recall contributes up to 50 points (2 per result, capped at 25 results).
// A click contributes up to 50 more: position 1 is worth 50, decaying 5
// points per rank with a floor of 0. A query with zero results always
// scores 0, click or not.
func SearchEffectivenessScore(resultsCount int, clickedPosition *int) int {
	if resultsCount <= 0 {
		return 0
	}

	base := resultsCount * 2
	if base > 50 {
		base = 50
	}

	score := base
	if clickedPosition != nil {
		bonus := 50 - (*clickedPosition-1)*5
		if bonus < 0 {
			bonus = 0
		}
		score += bonus
	}

	if score > 100 {
		score = 100
	}
	return score
}

// PageEngagementScore rates one page view 0-100 from dwell time and scroll
// depth. Each component is capped at 50 before summing, so the total never
// needs an extra clamp. Nil components contribute 0.
func PageEngagementScore(timeOnPageSeconds, scrollDepthPercent *int) int {
	score := 0

	if timeOnPageSeconds != nil && *timeOnPageSeconds > 0 {
		tc := *timeOnPageSeconds / 6
		if tc > 50 {
			tc = 50
		}
		score += tc
	}

	if scrollDepthPercent != nil && *scrollDepthPercent > 0 {
		sc := *scrollDepthPercent / 2
		if sc > 50 {
			sc = 50
		}
		score += sc
	}

	return score
}
