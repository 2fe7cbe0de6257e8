package cache

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Refresh operation names. Each maps to one dashboard aggregate.
const (
	OpPopularContent    = "popular_content"
	OpPopularQueries    = "popular_queries"
	OpFailedQueries     = "failed_queries"
	OpTrafficReferrers  = "traffic_referrers"
	OpDailySeries       = "daily_series"
	OpEngagementSummary = "engagement_summary"
	OpSearchStats       = "search_stats"
)

var validOperations = map[string]bool{
	OpPopularContent:    true,
	OpPopularQueries:    true,
	OpFailedQueries:     true,
	OpTrafficReferrers:  true,
	OpDailySeries:       true,
	OpEngagementSummary: true,
	OpSearchStats:       true,
}

// ValidOperation reports whether name is a refreshable operation.
func ValidOperation(name string) bool {
	return validOperations[name]
}

// PlanEntry is one standing dashboard aggregate the refresher keeps warm.
// Entries are loaded at startup from YAML files and fingerprinted for
// staleness detection.
type PlanEntry struct {
	Name        string        `yaml:"name"`
	Operation   string        `yaml:"operation"`
	WindowDays  int           `yaml:"window_days"`
	Limit       int           `yaml:"limit"`
	TTL         time.Duration // parsed from the raw "ttl" string
	Fingerprint string        // SHA-256 of the raw YAML file; computed at load time
}

// rawPlanEntry is the on-disk YAML shape.
type rawPlanEntry struct {
	Name       string `yaml:"name"`
	Operation  string `yaml:"operation"`
	WindowDays int    `yaml:"window_days"`
	Limit      int    `yaml:"limit"`
	TTL        string `yaml:"ttl"`
}

// FileSystemPlanRepository loads refresh plan entries from *.yaml files in
// a directory. Each file contains exactly one entry at the top level.
// Entries are loaded once at startup and cached in memory.
type FileSystemPlanRepository struct {
	dir     string
	entries map[string]PlanEntry // keyed by Name
}

// NewFileSystemPlanRepository creates a repository and eagerly loads all
// entries from dir. Returns an error if any entry file is malformed.
func NewFileSystemPlanRepository(dir string) (*FileSystemPlanRepository, error) {
	repo := &FileSystemPlanRepository{
		dir:     dir,
		entries: make(map[string]PlanEntry),
	}
	if err := repo.load(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *FileSystemPlanRepository) load() error {
	info, err := os.Stat(r.dir)
	if os.IsNotExist(err) {
		return nil // no plan directory is valid (refresher idles)
	}
	if err != nil {
		return fmt.Errorf("refresh plan dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("refresh plan path %q is not a directory", r.dir)
	}

	files, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading refresh plan dir: %w", err)
	}

	for _, f := range files {
		if f.IsDir() || (!strings.HasSuffix(f.Name(), ".yaml") && !strings.HasSuffix(f.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(r.dir, f.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading plan file %s: %w", path, err)
		}

		entry, err := parsePlanEntry(data)
		if err != nil {
			return fmt.Errorf("plan file %s: %w", path, err)
		}
		if entry == nil {
			continue // skip empty / comment-only files
		}

		if _, exists := r.entries[entry.Name]; exists {
			return fmt.Errorf("plan entry %q: duplicate name (check multiple YAML files)", entry.Name)
		}
		r.entries[entry.Name] = *entry
	}
	return nil
}

func parsePlanEntry(data []byte) (*PlanEntry, error) {
	var raw rawPlanEntry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	if raw.Name == "" {
		return nil, nil
	}

	if !ValidOperation(raw.Operation) {
		return nil, fmt.Errorf("entry %q: unsupported operation %q", raw.Name, raw.Operation)
	}
	if raw.WindowDays <= 0 {
		return nil, fmt.Errorf("entry %q: window_days must be positive", raw.Name)
	}
	if raw.Limit < 0 {
		return nil, fmt.Errorf("entry %q: limit must be >= 0", raw.Name)
	}

	ttl := 5 * time.Minute
	if raw.TTL != "" {
		parsed, err := time.ParseDuration(raw.TTL)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("entry %q: invalid ttl %q", raw.Name, raw.TTL)
		}
		ttl = parsed
	}

	return &PlanEntry{
		Name:        raw.Name,
		Operation:   raw.Operation,
		WindowDays:  raw.WindowDays,
		Limit:       raw.Limit,
		TTL:         ttl,
		Fingerprint: fmt.Sprintf("%x", sha256.Sum256(data)),
	}, nil
}

// Entries returns all loaded plan entries as a slice.
func (r *FileSystemPlanRepository) Entries() []PlanEntry {
	entries := make([]PlanEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	return entries
}
