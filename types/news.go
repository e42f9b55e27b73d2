package types

import "time"

// NewsSource identifies where an aggregated article came from.
type NewsSource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Article is a normalized news item from any of the aggregated feeds.
type Article struct {
	// ID is a stable identifier prefixed with the source ("devto-", "hn-", "curated-").
	ID string `json:"id"`

	Title string `json:"title"`
	URL   string `json:"url"`

	// PublishedAt is the original publish time reported by the source.
	PublishedAt time.Time `json:"publishedAt"`

	Excerpt string     `json:"excerpt"`
	Source  NewsSource `json:"source"`
	Author  string     `json:"author,omitempty"`
	Tags    []string   `json:"tags"`
}
