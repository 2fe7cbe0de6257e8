package postgres

// SQL for the analytics event tables. Writes are the hot path and are
// prepared at startup; windowed reads run ad hoc.

const (
	querySavePageView = `
		INSERT INTO page_views (
			id, path, content_ref, actor_ref, session_key, ip_address,
			user_agent, referrer, device, browser, os, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ingest_seq
	`

	// queryUpdateEngagement uses COALESCE so a beacon carrying only one of
	// the two fields does not null out the other. Last write wins.
	queryUpdateEngagement = `
		UPDATE page_views
		SET time_on_page = COALESCE($2, time_on_page),
		    scroll_depth = COALESCE($3, scroll_depth)
		WHERE id = $1
	`

	querySaveSearchQuery = `
		INSERT INTO search_queries (
			id, query, results_count, actor_ref, session_key, ip_address, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ingest_seq
	`

	// querySaveClickthrough relies on the unique index over
	// (search_query_id, content_ref, session_key). ON CONFLICT DO NOTHING
	// returns no rows for a repeat click.
	querySaveClickthrough = `
		INSERT INTO search_clickthroughs (
			id, search_query_id, content_ref, position, actor_ref, session_key, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (search_query_id, content_ref, session_key) DO NOTHING
		RETURNING id
	`

	// querySetPrimaryClick is the first-click-wins CAS: the WHERE clause
	// only matches while the primary slot is still null, so concurrent
	// clicks cannot both apply.
	querySetPrimaryClick = `
		UPDATE search_queries
		SET clicked_content_ref = $2, clicked_position = $3
		WHERE id = $1 AND clicked_content_ref IS NULL
	`

	pageViewColumns = `
		id, path, content_ref, actor_ref, session_key, ip_address,
		user_agent, referrer, device, browser, os,
		time_on_page, scroll_depth, created_at, ingest_seq
	`

	queryGetPageView = `
		SELECT ` + pageViewColumns + `
		FROM page_views
		WHERE id = $1
	`

	queryPageViewsWindow = `
		SELECT ` + pageViewColumns + `
		FROM page_views
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY ingest_seq ASC
	`

	queryPageViewsCursor = `
		SELECT ` + pageViewColumns + `
		FROM page_views
		WHERE created_at >= $1 AND created_at < $2 AND ingest_seq > $3
		ORDER BY ingest_seq ASC
		LIMIT $4
	`

	searchQueryColumns = `
		id, query, results_count, actor_ref, session_key, ip_address,
		clicked_content_ref, clicked_position, created_at, ingest_seq
	`

	queryGetSearchQuery = `
		SELECT ` + searchQueryColumns + `
		FROM search_queries
		WHERE id = $1
	`

	querySearchQueriesWindow = `
		SELECT ` + searchQueryColumns + `
		FROM search_queries
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY ingest_seq ASC
	`

	querySearchQueriesCursor = `
		SELECT ` + searchQueryColumns + `
		FROM search_queries
		WHERE created_at >= $1 AND created_at < $2 AND ingest_seq > $3
		ORDER BY ingest_seq ASC
		LIMIT $4
	`
)
