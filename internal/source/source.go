// Package source discovers candidate articles from syndication feeds
// and XML sitemaps.
package source

import "context"

// Candidate is one discovered article, before extraction and enrichment.
// PublishedAt is kept as received: feed and sitemap dates are free-form
// and often unparseable, so they are stored verbatim.
type Candidate struct {
	URL         string
	Title       string
	Summary     string
	PublishedAt string
	SourceName  string
	SourceType  string // "rss", "sitemap" or "gdelt"
}

// Source yields candidate articles from one configured origin.
type Source interface {
	Name() string
	Discover(ctx context.Context) ([]Candidate, error)
}
