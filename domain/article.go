package domain

import "time"

// Article is a deduplicated content item keyed by its source URL.
// An article may be associated with multiple feeds when aggregators
// surface the same canonical URL.
type Article struct {
	ID          int64
	UUID        string
	Slug        string
	URL         string
	Title       string
	Description string
	Date        time.Time
	ImageURL    *string
	Content     *string
	// Summary is the AI-generated summary. It is computed lazily on first
	// request and then persisted permanently.
	Summary *string
}

// List is a consistent page of query results: total and items are read
// within a single snapshot, so they never reflect different points in time.
type List[T any] struct {
	Total int64 `json:"total"`
	Items []T   `json:"items"`
}
