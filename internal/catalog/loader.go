package catalog

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk YAML shape for a catalog snapshot.
type seedFile struct {
	Content    []seedContent  `yaml:"content"`
	Categories []seedCategory `yaml:"categories"`
}

type seedContent struct {
	ID          int64   `yaml:"id"`
	Title       string  `yaml:"title"`
	URL         string  `yaml:"url"`
	Status      string  `yaml:"status"`
	CategoryID  *int64  `yaml:"category_id"`
	TagIDs      []int64 `yaml:"tag_ids"`
	PublishedAt string  `yaml:"published_at"` // RFC 3339, empty for unpublished
}

type seedCategory struct {
	ID       int64  `yaml:"id"`
	ParentID *int64 `yaml:"parent_id"`
}

// LoadSeed builds a MemoryCatalog from a YAML snapshot file. A missing file
// yields an empty catalog: the engine still ingests, every content_ref just
// records as stale.
func LoadSeed(path string) (*MemoryCatalog, error) {
	c := NewMemoryCatalog()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading catalog seed %s: %w", path, err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing catalog seed %s: %w", path, err)
	}

	for _, item := range seed.Content {
		if item.ID <= 0 {
			return nil, fmt.Errorf("catalog seed %s: content id must be positive, got %d", path, item.ID)
		}

		meta := ContentMeta{
			ID:         item.ID,
			Title:      item.Title,
			URL:        item.URL,
			Status:     item.Status,
			CategoryID: item.CategoryID,
			TagIDs:     item.TagIDs,
		}
		if meta.Status == "" {
			meta.Status = StatusDraft
		}
		if item.PublishedAt != "" {
			published, err := time.Parse(time.RFC3339, item.PublishedAt)
			if err != nil {
				return nil, fmt.Errorf("catalog seed %s: content %d: invalid published_at %q", path, item.ID, item.PublishedAt)
			}
			meta.PublishedAt = &published
		}
		c.Put(meta)
	}

	for _, category := range seed.Categories {
		c.SetCategoryParent(category.ID, category.ParentID)
	}

	return c, nil
}
