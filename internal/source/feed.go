package source

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"github.com/deusflow/newsriver/internal/fetch"
	"github.com/deusflow/newsriver/internal/logger"
)

// FeedSource parses one RSS or Atom feed. Some sites serve empty or
// malformed documents to unknown clients; when the first parse yields
// nothing, the feed is refetched once with an explicit User-Agent and
// parsed again.
type FeedSource struct {
	url    string
	client *fetch.Client
	parser *gofeed.Parser
}

func NewFeedSource(url string, client *fetch.Client) *FeedSource {
	parser := gofeed.NewParser()
	parser.UserAgent = client.UserAgent()
	parser.Client = client.HTTPClient()
	return &FeedSource{url: url, client: client, parser: parser}
}

func (f *FeedSource) Name() string {
	return f.url
}

func (f *FeedSource) Discover(ctx context.Context) ([]Candidate, error) {
	feed, err := f.parser.ParseURLWithContext(f.url, ctx)
	if err != nil || len(feed.Items) == 0 {
		if err != nil {
			logger.Warn("feed parse failed, retrying via direct fetch", "url", f.url, "error", err)
		} else {
			logger.Warn("feed yielded zero entries, retrying via direct fetch", "url", f.url)
		}
		feed, err = f.refetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("parse feed %s: %w", f.url, err)
		}
	}

	sourceName := feed.Title
	if sourceName == "" {
		sourceName = f.url
	}

	candidates := make([]Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		published := item.Published
		if published == "" {
			published = item.Updated
		}
		candidates = append(candidates, Candidate{
			URL:         item.Link,
			Title:       item.Title,
			Summary:     item.Description,
			PublishedAt: published,
			SourceName:  sourceName,
			SourceType:  "rss",
		})
	}
	return candidates, nil
}

func (f *FeedSource) refetch(ctx context.Context) (*gofeed.Feed, error) {
	body, err := f.client.Get(ctx, f.url, f.url)
	if err != nil {
		return nil, err
	}
	return f.parser.Parse(bytes.NewReader(body))
}
