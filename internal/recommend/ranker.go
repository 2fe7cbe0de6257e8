// Package recommend ranks related content for a source item using
// tag/category overlap, padding with recently published items when overlap
// alone cannot fill the requested list. The fallback is a deliberate UX
// requirement: the method returns content whenever any exists.
package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pagepulse/pagepulse/internal/catalog"
)

const (
	tagWeight      = 10 // per shared tag, uncapped
	categoryWeight = 5
)

// Ranker computes related-content lists from the external catalog.
type Ranker struct {
	catalog catalog.ContentCatalog
}

// NewRanker creates a ranker over the given catalog.
func NewRanker(c catalog.ContentCatalog) *Ranker {
	if c == nil {
		panic("recommend: catalog must not be nil")
	}
	return &Ranker{catalog: c}
}

type scored struct {
	meta  catalog.ContentMeta
	score int
}

// RelatedContent returns up to limit published items related to sourceID.
//
// Phase one scores every published candidate by overlap: tagWeight per tag
// shared with the source, categoryWeight when both resolve to the same
// category root. Phase two pads with the most recently published remaining
// items until limit is reached or candidates run out. The source item and
// non-published items are excluded at every stage, and the ordering is a
// total order (score desc, published_at desc, id asc) so results are
// reproducible.
func (r *Ranker) RelatedContent(ctx context.Context, sourceID int64, limit int) ([]catalog.ContentMeta, error) {
	if limit <= 0 {
		return nil, nil
	}

	source, err := r.catalog.GetContentMeta(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("resolve source content %d: %w", sourceID, err)
	}

	all, err := r.catalog.ListContent(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}

	sourceTags := make(map[int64]bool, len(source.TagIDs))
	for _, tag := range source.TagIDs {
		sourceTags[tag] = true
	}
	var sourceRoot int64
	if source.CategoryID != nil {
		sourceRoot = catalog.CategoryRoot(ctx, r.catalog, *source.CategoryID)
	}

	candidates := make([]scored, 0, len(all))
	for _, meta := range all {
		if meta.ID == sourceID || !meta.Published() {
			continue
		}

		score := 0
		for _, tag := range meta.TagIDs {
			if sourceTags[tag] {
				score += tagWeight
			}
		}
		if source.CategoryID != nil && meta.CategoryID != nil {
			if catalog.CategoryRoot(ctx, r.catalog, *meta.CategoryID) == sourceRoot {
				score += categoryWeight
			}
		}
		candidates = append(candidates, scored{meta: meta, score: score})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return moreRecent(candidates[i].meta, candidates[j].meta)
	})

	result := make([]catalog.ContentMeta, 0, limit)
	var padding []scored
	for _, c := range candidates {
		if c.score > 0 && len(result) < limit {
			result = append(result, c.meta)
			continue
		}
		padding = append(padding, c)
	}

	if len(result) < limit {
		// Recency fallback: same tie-break, overlap score ignored.
		sort.Slice(padding, func(i, j int) bool {
			return moreRecent(padding[i].meta, padding[j].meta)
		})
		for _, c := range padding {
			if len(result) == limit {
				break
			}
			result = append(result, c.meta)
		}
	}

	return result, nil
}

// moreRecent orders by published_at descending with nil timestamps last,
// then id ascending for a stable total order.
func moreRecent(a, b catalog.ContentMeta) bool {
	at := publishedOrZero(a)
	bt := publishedOrZero(b)
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return a.ID < b.ID
}

func publishedOrZero(m catalog.ContentMeta) time.Time {
	if m.PublishedAt == nil {
		return time.Time{}
	}
	return *m.PublishedAt
}
