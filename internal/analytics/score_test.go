package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestSearchEffectivenessScore(t *testing.T) {
	tests := []struct {
		name     string
		results  int
		clicked  *int
		expected int
	}{
		{"zero results no click", 0, nil, 0},
		{"zero results with click still zero", 0, intPtr(1), 0},
		{"negative results", -3, nil, 0},
		{"one result no click", 1, nil, 2},
		{"recall caps at 25 results", 25, nil, 50},
		{"recall stays capped beyond 25", 500, nil, 50},
		{"click on first position", 10, intPtr(1), 70},
		{"click on third position", 10, intPtr(3), 60},
		{"click bonus floors at zero", 10, intPtr(11), 20},
		{"deep click worth nothing extra", 10, intPtr(40), 20},
		{"perfect score", 25, intPtr(1), 100},
		{"total capped at 100", 100, intPtr(1), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SearchEffectivenessScore(tt.results, tt.clicked))
		})
	}
}

func TestPageEngagementScore(t *testing.T) {
	tests := []struct {
		name     string
		time     *int
		scroll   *int
		expected int
	}{
		{"nothing reported", nil, nil, 0},
		{"zero values", intPtr(0), intPtr(0), 0},
		{"time only", intPtr(60), nil, 10},
		{"time caps at 50", intPtr(3600), nil, 50},
		{"scroll only", intPtr(0), intPtr(80), 40},
		{"scroll caps at 50", nil, intPtr(100), 50},
		{"both components", intPtr(120), intPtr(50), 45},
		{"maximum", intPtr(300), intPtr(100), 100},
		{"negative values contribute nothing", intPtr(-10), intPtr(-5), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PageEngagementScore(tt.time, tt.scroll))
		})
	}
}

func TestPageEngagementScoreNeverExceedsBounds(t *testing.T) {
	for timeOn := 0; timeOn <= 1000; timeOn += 37 {
		for scroll := 0; scroll <= 100; scroll += 9 {
			score := PageEngagementScore(intPtr(timeOn), intPtr(scroll))
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 100)
		}
	}
}
