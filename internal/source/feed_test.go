package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example News</title>
    <item>
      <title>First story</title>
      <link>https://example.com/news/first</link>
      <description>Something happened.</description>
      <pubDate>Mon, 17 Jun 2024 09:00:00 GMT</pubDate>
    </item>
    <item>
      <title>No link story</title>
      <description>Dropped for lacking a link.</description>
    </item>
  </channel>
</rss>`

func TestFeedDiscover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssBody)
	}))
	defer srv.Close()

	f := NewFeedSource(srv.URL, testClient())
	candidates, err := f.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1 (linkless item dropped)", len(candidates))
	}
	c := candidates[0]
	if c.URL != "https://example.com/news/first" {
		t.Errorf("URL = %q", c.URL)
	}
	if c.SourceName != "Example News" {
		t.Errorf("SourceName = %q, want feed title", c.SourceName)
	}
	if c.SourceType != "rss" {
		t.Errorf("SourceType = %q", c.SourceType)
	}
	if c.PublishedAt == "" {
		t.Error("PublishedAt should carry the item pubDate")
	}
}

func TestFeedDiscoverRefetchOnGarbage(t *testing.T) {
	// First response is unparseable; the direct refetch gets real RSS.
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, "<html>not a feed</html>")
			return
		}
		fmt.Fprint(w, rssBody)
	}))
	defer srv.Close()

	f := NewFeedSource(srv.URL, testClient())
	candidates, err := f.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if calls < 2 {
		t.Errorf("expected a refetch, server saw %d calls", calls)
	}
	if len(candidates) != 1 {
		t.Errorf("got %d candidates after refetch, want 1", len(candidates))
	}
}
