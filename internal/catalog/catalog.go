// Package catalog defines the engine's view of the external content
// catalog. The engine only reads IDs, titles, and relationships from it;
// the catalog itself (posts, categories, tags) is owned elsewhere.
package catalog

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a content id does not resolve. Ingestion
// treats this as a stale reference, not a failure: content may have been
// deleted after the view was rendered.
var ErrNotFound = errors.New("content not found")

// Content publication states. The engine only ever recommends or counts
// published items.
const (
	StatusPublished = "published"
	StatusDraft     = "draft"
)

// ContentMeta is the read-only projection of one content item.
type ContentMeta struct {
	ID          int64
	Title       string
	URL         string
	Status      string
	CategoryID  *int64
	TagIDs      []int64
	PublishedAt *time.Time
}

// Published reports whether the item is visible to readers.
func (m *ContentMeta) Published() bool {
	return m.Status == StatusPublished
}

// ContentCatalog is the collaborator contract.
//
// IncrementViewCount must be an atomic increment, never read-modify-write:
// ingestion calls it concurrently from many request handlers.
type ContentCatalog interface {
	GetContentMeta(ctx context.Context, id int64) (*ContentMeta, error)

	// IncrementViewCount bumps the item's external view counter by one.
	// Allowed to fail independently of the page-view write.
	IncrementViewCount(ctx context.Context, id int64) error

	// ListContent returns all known items. Candidate source for the
	// recommendation ranker.
	ListContent(ctx context.Context) ([]ContentMeta, error)

	// CategoryParent resolves one step of the category tree. Returns
	// (nil, nil) for a root category.
	CategoryParent(ctx context.Context, categoryID int64) (*int64, error)
}

// maxCategoryDepth bounds category ancestor walks. The catalog boundary is
// supposed to reject cycles, but the engine never trusts that: a corrupt
// parent chain must not recurse unboundedly.
const maxCategoryDepth = 32

// CategoryRoot walks the parent chain of a category to its root. Cyclic or
// over-deep chains resolve to the starting category itself so callers can
// degrade instead of failing.
func CategoryRoot(ctx context.Context, c ContentCatalog, categoryID int64) int64 {
	seen := map[int64]bool{categoryID: true}
	current := categoryID

	for depth := 0; depth < maxCategoryDepth; depth++ {
		parent, err := c.CategoryParent(ctx, current)
		if err != nil || parent == nil {
			return current
		}
		if seen[*parent] {
			// Cycle. Treat the entry point as the root.
			return categoryID
		}
		seen[*parent] = true
		current = *parent
	}
	return categoryID
}
