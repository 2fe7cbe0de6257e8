package catalog

import (
	"context"
	"sync"
)

// MemoryCatalog is an in-memory ContentCatalog.
// Useful for testing and development.
type MemoryCatalog struct {
	mu         sync.RWMutex
	items      map[int64]ContentMeta
	parents    map[int64]*int64
	viewCounts map[int64]int64
}

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		items:      make(map[int64]ContentMeta),
		parents:    make(map[int64]*int64),
		viewCounts: make(map[int64]int64),
	}
}

// Put adds or replaces a content item.
func (c *MemoryCatalog) Put(meta ContentMeta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[meta.ID] = meta
}

// SetCategoryParent records one edge of the category tree.
func (c *MemoryCatalog) SetCategoryParent(categoryID int64, parent *int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parents[categoryID] = parent
}

func (c *MemoryCatalog) GetContentMeta(ctx context.Context, id int64) (*ContentMeta, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	meta, exists := c.items[id]
	if !exists {
		return nil, ErrNotFound
	}

	// Return a copy to prevent external modification.
	copy := meta
	return &copy, nil
}

// IncrementViewCount bumps the counter under the write lock, so concurrent
// increments never lose updates.
func (c *MemoryCatalog) IncrementViewCount(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[id]; !exists {
		return ErrNotFound
	}
	c.viewCounts[id]++
	return nil
}

// ViewCount reads back a counter. Test helper.
func (c *MemoryCatalog) ViewCount(id int64) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewCounts[id]
}

func (c *MemoryCatalog) ListContent(ctx context.Context) ([]ContentMeta, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]ContentMeta, 0, len(c.items))
	for _, meta := range c.items {
		result = append(result, meta)
	}
	return result, nil
}

func (c *MemoryCatalog) CategoryParent(ctx context.Context, categoryID int64) (*int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	parent, exists := c.parents[categoryID]
	if !exists {
		return nil, nil
	}
	return parent, nil
}
