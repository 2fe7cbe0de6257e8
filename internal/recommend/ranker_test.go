package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepulse/pagepulse/internal/catalog"
)

func int64Ptr(v int64) *int64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func publishedAt(day int) *time.Time {
	return timePtr(time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC))
}

func seedCatalog(items ...catalog.ContentMeta) *catalog.MemoryCatalog {
	c := catalog.NewMemoryCatalog()
	for _, item := range items {
		c.Put(item)
	}
	return c
}

func ids(metas []catalog.ContentMeta) []int64 {
	result := make([]int64, len(metas))
	for i, m := range metas {
		result[i] = m.ID
	}
	return result
}

func TestRelatedContentRanksByOverlap(t *testing.T) {
	c := seedCatalog(
		catalog.ContentMeta{ID: 1, Status: catalog.StatusPublished, TagIDs: []int64{10, 11}, CategoryID: int64Ptr(100), PublishedAt: publishedAt(1)},
		// Two shared tags + same category: 25.
		catalog.ContentMeta{ID: 2, Status: catalog.StatusPublished, TagIDs: []int64{10, 11}, CategoryID: int64Ptr(100), PublishedAt: publishedAt(2)},
		// One shared tag: 10.
		catalog.ContentMeta{ID: 3, Status: catalog.StatusPublished, TagIDs: []int64{10}, PublishedAt: publishedAt(3)},
		// Category only: 5.
		catalog.ContentMeta{ID: 4, Status: catalog.StatusPublished, TagIDs: []int64{99}, CategoryID: int64Ptr(100), PublishedAt: publishedAt(4)},
	)

	ranker := NewRanker(c)
	related, err := ranker.RelatedContent(context.Background(), 1, 10)
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 3, 4}, ids(related))
}

func TestRelatedContentNeverIncludesSourceOrDrafts(t *testing.T) {
	c := seedCatalog(
		catalog.ContentMeta{ID: 1, Status: catalog.StatusPublished, TagIDs: []int64{10}, PublishedAt: publishedAt(1)},
		catalog.ContentMeta{ID: 2, Status: catalog.StatusDraft, TagIDs: []int64{10}, PublishedAt: publishedAt(2)},
		catalog.ContentMeta{ID: 3, Status: catalog.StatusPublished, TagIDs: []int64{10}, PublishedAt: publishedAt(3)},
	)

	ranker := NewRanker(c)
	related, err := ranker.RelatedContent(context.Background(), 1, 10)
	require.NoError(t, err)

	assert.Equal(t, []int64{3}, ids(related))
}

func TestRelatedContentPadsWithRecencyFallback(t *testing.T) {
	c := seedCatalog(
		catalog.ContentMeta{ID: 1, Status: catalog.StatusPublished, TagIDs: []int64{10}, PublishedAt: publishedAt(1)},
		catalog.ContentMeta{ID: 2, Status: catalog.StatusPublished, TagIDs: []int64{10}, PublishedAt: publishedAt(2)},
		// No overlap at all; padded in recency order.
		catalog.ContentMeta{ID: 3, Status: catalog.StatusPublished, TagIDs: []int64{99}, PublishedAt: publishedAt(20)},
		catalog.ContentMeta{ID: 4, Status: catalog.StatusPublished, TagIDs: []int64{98}, PublishedAt: publishedAt(10)},
	)

	ranker := NewRanker(c)
	related, err := ranker.RelatedContent(context.Background(), 1, 3)
	require.NoError(t, err)

	// Overlapping item first, then newest-first padding.
	assert.Equal(t, []int64{2, 3, 4}, ids(related))
}

func TestRelatedContentPureRecencyWhenNoOverlap(t *testing.T) {
	c := seedCatalog(
		catalog.ContentMeta{ID: 1, Status: catalog.StatusPublished, PublishedAt: publishedAt(1)},
		catalog.ContentMeta{ID: 2, Status: catalog.StatusPublished, TagIDs: []int64{50}, PublishedAt: publishedAt(5)},
		catalog.ContentMeta{ID: 3, Status: catalog.StatusPublished, TagIDs: []int64{51}, PublishedAt: publishedAt(15)},
	)

	ranker := NewRanker(c)
	related, err := ranker.RelatedContent(context.Background(), 1, 10)
	require.NoError(t, err)

	assert.Equal(t, []int64{3, 2}, ids(related))
}

func TestRelatedContentCategoryMatchesViaSharedRoot(t *testing.T) {
	c := seedCatalog(
		catalog.ContentMeta{ID: 1, Status: catalog.StatusPublished, CategoryID: int64Ptr(110), PublishedAt: publishedAt(1)},
		catalog.ContentMeta{ID: 2, Status: catalog.StatusPublished, CategoryID: int64Ptr(120), PublishedAt: publishedAt(2)},
		catalog.ContentMeta{ID: 3, Status: catalog.StatusPublished, CategoryID: int64Ptr(999), PublishedAt: publishedAt(30)},
	)
	// 110 and 120 are siblings under root 100; 999 is its own root.
	c.SetCategoryParent(110, int64Ptr(100))
	c.SetCategoryParent(120, int64Ptr(100))

	ranker := NewRanker(c)
	related, err := ranker.RelatedContent(context.Background(), 1, 10)
	require.NoError(t, err)

	// Sibling category beats the newer unrelated item.
	assert.Equal(t, []int64{2, 3}, ids(related))
}

func TestRelatedContentUnknownSource(t *testing.T) {
	ranker := NewRanker(seedCatalog())
	_, err := ranker.RelatedContent(context.Background(), 42, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestRelatedContentZeroLimit(t *testing.T) {
	ranker := NewRanker(seedCatalog(
		catalog.ContentMeta{ID: 1, Status: catalog.StatusPublished},
	))
	related, err := ranker.RelatedContent(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Empty(t, related)
}

func TestRelatedContentDeterministicOrder(t *testing.T) {
	// Identical scores and timestamps resolve by id ascending.
	shared := publishedAt(5)
	c := seedCatalog(
		catalog.ContentMeta{ID: 1, Status: catalog.StatusPublished, TagIDs: []int64{10}, PublishedAt: publishedAt(1)},
		catalog.ContentMeta{ID: 7, Status: catalog.StatusPublished, TagIDs: []int64{10}, PublishedAt: shared},
		catalog.ContentMeta{ID: 3, Status: catalog.StatusPublished, TagIDs: []int64{10}, PublishedAt: shared},
		catalog.ContentMeta{ID: 5, Status: catalog.StatusPublished, TagIDs: []int64{10}, PublishedAt: shared},
	)

	ranker := NewRanker(c)
	for i := 0; i < 5; i++ {
		related, err := ranker.RelatedContent(context.Background(), 1, 10)
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 5, 7}, ids(related))
	}
}
