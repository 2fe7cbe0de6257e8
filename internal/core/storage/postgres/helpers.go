package postgres

import (
	"database/sql"
	"fmt"

	v1 "github.com/pagepulse/pagepulse/internal/api/v1"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanPageViewRow scans a page_views row.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanPageViewRow(row scanner) (*v1.PageView, error) {
	var view v1.PageView
	var contentRef sql.NullInt64
	var actorRef, referrer sql.NullString
	var timeOnPage, scrollDepth sql.NullInt64

	err := row.Scan(
		&view.ID,
		&view.Path,
		&contentRef,
		&actorRef,
		&view.SessionKey,
		&view.IPAddress,
		&view.UserAgent,
		&referrer,
		&view.Device,
		&view.Browser,
		&view.OS,
		&timeOnPage,
		&scrollDepth,
		&view.CreatedAt,
		&view.IngestSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan page view row: %w", err)
	}

	if contentRef.Valid {
		view.ContentRef = &contentRef.Int64
	}
	if actorRef.Valid {
		view.ActorRef = &actorRef.String
	}
	if referrer.Valid {
		view.Referrer = &referrer.String
	}
	if timeOnPage.Valid {
		t := int(timeOnPage.Int64)
		view.TimeOnPage = &t
	}
	if scrollDepth.Valid {
		d := int(scrollDepth.Int64)
		view.ScrollDepth = &d
	}

	return &view, nil
}

// scanSearchQueryRow scans a search_queries row.
func scanSearchQueryRow(row scanner) (*v1.SearchQuery, error) {
	var query v1.SearchQuery
	var actorRef sql.NullString
	var clickedRef, clickedPos sql.NullInt64

	err := row.Scan(
		&query.ID,
		&query.Query,
		&query.ResultsCount,
		&actorRef,
		&query.SessionKey,
		&query.IPAddress,
		&clickedRef,
		&clickedPos,
		&query.CreatedAt,
		&query.IngestSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan search query row: %w", err)
	}

	if actorRef.Valid {
		query.ActorRef = &actorRef.String
	}
	if clickedRef.Valid {
		query.ClickedContentRef = &clickedRef.Int64
	}
	if clickedPos.Valid {
		p := int(clickedPos.Int64)
		query.ClickedPosition = &p
	}

	return &query, nil
}

// nullableInt converts an optional int to its SQL argument form.
func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// nullableInt64 converts an optional int64 to its SQL argument form.
func nullableInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// nullableString converts an optional string to its SQL argument form.
func nullableString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
