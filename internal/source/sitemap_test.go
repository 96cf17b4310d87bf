package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deusflow/newsriver/internal/config"
	"github.com/deusflow/newsriver/internal/fetch"
	"github.com/deusflow/newsriver/internal/retry"
)

func testClient() *fetch.Client {
	return fetch.New(5*time.Second, "test-agent", retry.RetryConfig{MaxAttempts: 1})
}

func TestIsArticleURL(t *testing.T) {
	tests := []struct {
		url           string
		keepUnmatched bool
		want          bool
	}{
		{"https://example.com/news/economy-slows", false, true},
		{"https://example.com/actualite/politique-vote", false, true},
		{"https://example.com/2024/06/15/markets-rally", false, true},
		{"https://example.com/2024-06-15/story", false, true},
		{"https://example.com/tag/economy", false, false},
		{"https://example.com/author/jane", false, false},
		{"https://example.com/assets/logo.png", false, false},
		{"https://example.com/some-random-page", false, false},
		{"https://example.com/some-random-page", true, true},
		// positive indicators win before negatives are consulted
		{"https://example.com/news/tag/economy", false, true},
	}
	for _, tt := range tests {
		if got := IsArticleURL(tt.url, tt.keepUnmatched); got != tt.want {
			t.Errorf("IsArticleURL(%q, %v) = %v, want %v", tt.url, tt.keepUnmatched, got, tt.want)
		}
	}
}

func TestParseWhenLayouts(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"2024-06-15T10:30:00Z", true},
		{"2024-06-15T10:30:00+02:00", true},
		{"2024-06-15T10:30:00", true},
		{"2024-06-15 10:30:00", true},
		{"2024-06-15", true},
		{"15/06/2024", false},
		{"", false},
	}
	for _, tt := range tests {
		if _, ok := parseWhen(tt.in); ok != tt.ok {
			t.Errorf("parseWhen(%q) ok = %v, want %v", tt.in, ok, tt.ok)
		}
	}
}

func TestBestDatePrefersNewsPublication(t *testing.T) {
	var e sitemapEntry
	e.LastMod = "2024-01-01"
	e.News.PublicationDate = "2024-06-15"
	if got := e.bestDate(); got != "2024-06-15" {
		t.Errorf("bestDate() = %q, want news publication date", got)
	}

	e.News.PublicationDate = ""
	if got := e.bestDate(); got != "2024-01-01" {
		t.Errorf("bestDate() = %q, want lastmod fallback", got)
	}
}

func TestRootElement(t *testing.T) {
	index := []byte(`<?xml version="1.0"?><sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"></sitemapindex>`)
	if got := rootElement(index); got != "sitemapindex" {
		t.Errorf("rootElement(index) = %q", got)
	}
	urlset := []byte(`<?xml version="1.0"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"></urlset>`)
	if got := rootElement(urlset); got != "urlset" {
		t.Errorf("rootElement(urlset) = %q", got)
	}
	if got := rootElement([]byte("not xml")); got != "" {
		t.Errorf("rootElement(garbage) = %q, want empty", got)
	}
}

func TestSitemapDiscoverRecencyFailOpen(t *testing.T) {
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -40).Format("2006-01-02")
	fresh := now.AddDate(0, 0, -10).Format("2006-01-02")

	body := fmt.Sprintf(`<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/news/old-story</loc><lastmod>%s</lastmod></url>
  <url><loc>https://example.com/news/fresh-story</loc><lastmod>%s</lastmod></url>
  <url><loc>https://example.com/news/undated-story</loc></url>
</urlset>`, old, fresh)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	s := &SitemapSource{
		cfg:    config.SitemapConfig{URL: srv.URL, Domain: "example.com", MaxAgeDays: 30},
		client: testClient(),
		now:    func() time.Time { return now },
	}

	candidates, err := s.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	got := make(map[string]bool)
	for _, c := range candidates {
		got[c.URL] = true
	}
	if got["https://example.com/news/old-story"] {
		t.Error("40-day-old entry should be excluded")
	}
	if !got["https://example.com/news/fresh-story"] {
		t.Error("10-day-old entry should be included")
	}
	if !got["https://example.com/news/undated-story"] {
		t.Error("undated entry should be kept (fail-open)")
	}
}

func TestSitemapDiscoverIndexRecursionCap(t *testing.T) {
	var mux http.ServeMux
	srv := httptest.NewServer(&mux)
	defer srv.Close()

	childHits := 0
	mux.HandleFunc("/child", func(w http.ResponseWriter, r *http.Request) {
		childHits++
		fmt.Fprintf(w, `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/news/story-%d</loc></url>
</urlset>`, childHits)
	})
	mux.HandleFunc("/index", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?><sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
		for i := 0; i < 8; i++ {
			fmt.Fprintf(w, `<sitemap><loc>%s/child?n=%d</loc></sitemap>`, srv.URL, i)
		}
		fmt.Fprint(w, `</sitemapindex>`)
	})

	s := &SitemapSource{
		cfg:    config.SitemapConfig{URL: srv.URL + "/index", Domain: "example.com"},
		client: testClient(),
		now:    time.Now,
	}

	candidates, err := s.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if childHits != maxChildSitemaps {
		t.Errorf("fetched %d child sitemaps, want %d", childHits, maxChildSitemaps)
	}
	if len(candidates) != maxChildSitemaps {
		t.Errorf("got %d candidates, want %d", len(candidates), maxChildSitemaps)
	}
}
