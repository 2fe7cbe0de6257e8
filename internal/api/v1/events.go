package v1

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Device/browser/OS classifications. Unknown is the zero value for
// anything the collaborator could not resolve from the user agent.
const (
	DeviceUnknown = "unknown"
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
)

// PageView is one recorded page render.
// CreatedAt is set once at ingestion and never mutated. TimeOnPage and
// ScrollDepth start nil and are filled in later by an engagement beacon
// referencing the same ID (last write wins, beacons retry).
type PageView struct {
	ID         uuid.UUID `json:"id"`
	Path       string    `json:"path"`
	ContentRef *int64    `json:"content_ref,omitempty"`
	ActorRef   *string   `json:"actor_ref,omitempty"`
	SessionKey string    `json:"session_key"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	Referrer   *string   `json:"referrer,omitempty"`
	Device     string    `json:"device"`
	Browser    string    `json:"browser"`
	OS         string    `json:"os"`

	TimeOnPage  *int `json:"time_on_page,omitempty"` // seconds
	ScrollDepth *int `json:"scroll_depth,omitempty"` // 0-100

	CreatedAt time.Time `json:"created_at"`

	// IngestSeq is a monotonic sequence assigned on ingestion (BIGSERIAL).
	// Used for cursor pagination in exports; not exposed in the public API.
	IngestSeq int64 `json:"-"`
}

// SearchQuery is one executed search.
// ClickedContentRef and ClickedPosition are either both nil or both set.
// They are set at most once: the first observed click wins, later clicks
// are recorded as separate SearchClickthrough rows.
type SearchQuery struct {
	ID           uuid.UUID `json:"id"`
	Query        string    `json:"query"`
	ResultsCount int       `json:"results_count"`
	ActorRef     *string   `json:"actor_ref,omitempty"`
	SessionKey   string    `json:"session_key"`
	IPAddress    string    `json:"ip_address"`

	ClickedContentRef *int64 `json:"clicked_content_ref,omitempty"`
	ClickedPosition   *int   `json:"clicked_position,omitempty"` // 1-based

	CreatedAt time.Time `json:"created_at"`
	IngestSeq int64     `json:"-"`
}

// SearchClickthrough is one click on a search result.
// Unique on (search_query_id, content_ref, session_key): the same session
// clicking the same result for the same query is recorded once.
type SearchClickthrough struct {
	ID            uuid.UUID `json:"id"`
	SearchQueryID uuid.UUID `json:"search_query_id"`
	ContentRef    int64     `json:"content_ref"`
	Position      int       `json:"position"`
	ActorRef      *string   `json:"actor_ref,omitempty"`
	SessionKey    string    `json:"session_key"`
	CreatedAt     time.Time `json:"created_at"`
}

// PageViewInput is the ingestion payload for a page render.
type PageViewInput struct {
	Path       string  `json:"path"`
	ContentRef *int64  `json:"content_ref,omitempty"`
	ActorRef   *string `json:"actor_ref,omitempty"`
	SessionKey string  `json:"session_key"`
	IPAddress  string  `json:"ip_address"`
	UserAgent  string  `json:"user_agent"`
	Referrer   *string `json:"referrer,omitempty"`
	Device     string  `json:"device,omitempty"`
	Browser    string  `json:"browser,omitempty"`
	OS         string  `json:"os,omitempty"`
}

// Validate checks the envelope fields that must be present on every view.
func (in *PageViewInput) Validate() error {
	if strings.TrimSpace(in.Path) == "" {
		return fmt.Errorf("path is required")
	}
	if strings.TrimSpace(in.SessionKey) == "" {
		return fmt.Errorf("session_key is required")
	}
	return nil
}

// SearchQueryInput is the ingestion payload for an executed search.
type SearchQueryInput struct {
	Query        string  `json:"query"`
	ResultsCount int     `json:"results_count"`
	ActorRef     *string `json:"actor_ref,omitempty"`
	SessionKey   string  `json:"session_key"`
	IPAddress    string  `json:"ip_address"`
}

// Validate rejects empty query text (after trimming) and negative counts.
func (in *SearchQueryInput) Validate() error {
	if strings.TrimSpace(in.Query) == "" {
		return fmt.Errorf("query must not be empty")
	}
	if in.ResultsCount < 0 {
		return fmt.Errorf("results_count must be >= 0")
	}
	if strings.TrimSpace(in.SessionKey) == "" {
		return fmt.Errorf("session_key is required")
	}
	return nil
}

// ClickthroughInput is the ingestion payload for a search result click.
type ClickthroughInput struct {
	ContentRef int64   `json:"content_ref"`
	Position   int     `json:"position"`
	ActorRef   *string `json:"actor_ref,omitempty"`
	SessionKey string  `json:"session_key"`
}

// Validate enforces the 1-based position invariant.
func (in *ClickthroughInput) Validate() error {
	if in.ContentRef <= 0 {
		return fmt.Errorf("content_ref is required")
	}
	if in.Position < 1 {
		return fmt.Errorf("position must be >= 1")
	}
	if strings.TrimSpace(in.SessionKey) == "" {
		return fmt.Errorf("session_key is required")
	}
	return nil
}

// EngagementUpdate is the beacon payload enriching an existing page view.
type EngagementUpdate struct {
	TimeOnPage  *int `json:"time_on_page,omitempty"`
	ScrollDepth *int `json:"scroll_depth,omitempty"`
}

// Validate bounds the optional fields; a beacon with neither set is a no-op
// and rejected so clients notice broken instrumentation.
func (in *EngagementUpdate) Validate() error {
	if in.TimeOnPage == nil && in.ScrollDepth == nil {
		return fmt.Errorf("at least one of time_on_page, scroll_depth is required")
	}
	if in.TimeOnPage != nil && *in.TimeOnPage < 0 {
		return fmt.Errorf("time_on_page must be >= 0")
	}
	if in.ScrollDepth != nil && (*in.ScrollDepth < 0 || *in.ScrollDepth > 100) {
		return fmt.Errorf("scroll_depth must be between 0 and 100")
	}
	return nil
}
