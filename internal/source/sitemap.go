package source

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/deusflow/newsriver/internal/config"
	"github.com/deusflow/newsriver/internal/fetch"
	"github.com/deusflow/newsriver/internal/logger"
)

// maxChildSitemaps bounds recursion into a sitemap-of-sitemaps.
const maxChildSitemaps = 5

// SitemapSource walks a news sitemap tree and yields article URLs.
type SitemapSource struct {
	cfg           config.SitemapConfig
	client        *fetch.Client
	keepUnmatched bool
	now           func() time.Time
}

func NewSitemapSource(cfg config.SitemapConfig, client *fetch.Client, keepUnmatched bool) *SitemapSource {
	client.SetDelay("sitemap-"+cfg.Domain, cfg.Politeness())
	return &SitemapSource{
		cfg:           cfg,
		client:        client,
		keepUnmatched: keepUnmatched,
		now:           time.Now,
	}
}

func (s *SitemapSource) Name() string {
	return "sitemap-" + s.cfg.Domain
}

func (s *SitemapSource) Discover(ctx context.Context) ([]Candidate, error) {
	body, err := s.client.Get(ctx, s.Name(), s.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap %s: %w", s.cfg.URL, err)
	}

	var entries []sitemapEntry
	switch rootElement(body) {
	case "sitemapindex":
		children, err := parseSitemapIndex(body)
		if err != nil {
			return nil, fmt.Errorf("parse sitemap index %s: %w", s.cfg.URL, err)
		}
		if len(children) > maxChildSitemaps {
			children = children[:maxChildSitemaps]
		}
		logger.Info("sitemap index detected", "domain", s.cfg.Domain, "children", len(children))
		for _, child := range children {
			childBody, err := s.client.Get(ctx, s.Name(), child)
			if err != nil {
				logger.Warn("skipping child sitemap", "url", child, "error", err)
				continue
			}
			childEntries, err := parseURLSet(childBody)
			if err != nil {
				logger.Warn("skipping malformed child sitemap", "url", child, "error", err)
				continue
			}
			entries = append(entries, childEntries...)
		}
	case "urlset":
		entries, err = parseURLSet(body)
		if err != nil {
			return nil, fmt.Errorf("parse sitemap %s: %w", s.cfg.URL, err)
		}
	default:
		return nil, fmt.Errorf("sitemap %s: unrecognized root element", s.cfg.URL)
	}

	var cutoff time.Time
	if s.cfg.MaxAgeDays > 0 {
		cutoff = s.now().UTC().AddDate(0, 0, -s.cfg.MaxAgeDays)
	}

	var candidates []Candidate
	for _, e := range entries {
		if e.Loc == "" {
			continue
		}
		best := e.bestDate()
		if !cutoff.IsZero() && best != "" {
			// Entries with no parseable date are kept: a missing signal
			// must not exclude a potentially fresh article.
			if when, ok := parseWhen(best); ok && when.Before(cutoff) {
				continue
			}
		}
		if !IsArticleURL(e.Loc, s.keepUnmatched) {
			continue
		}
		candidates = append(candidates, Candidate{
			URL:         e.Loc,
			PublishedAt: best,
			SourceName:  s.Name(),
			SourceType:  "sitemap",
		})
	}
	logger.Info("sitemap walked", "domain", s.cfg.Domain, "entries", len(entries), "articles", len(candidates))
	return candidates, nil
}

// --- XML shapes ---

type sitemapEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
	News    struct {
		PublicationDate string `xml:"publication_date"`
	} `xml:"news"`
}

// bestDate prefers the news-extension publication date over the generic
// last-modified stamp.
func (e sitemapEntry) bestDate() string {
	if d := strings.TrimSpace(e.News.PublicationDate); d != "" {
		return d
	}
	return strings.TrimSpace(e.LastMod)
}

type sitemapIndexDoc struct {
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

type urlSetDoc struct {
	URLs []sitemapEntry `xml:"url"`
}

// rootElement returns the local name of the document's root element.
func rootElement(data []byte) string {
	d := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := d.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local
		}
	}
}

func parseSitemapIndex(data []byte) ([]string, error) {
	var doc sitemapIndexDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	var locs []string
	for _, sm := range doc.Sitemaps {
		if loc := strings.TrimSpace(sm.Loc); loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs, nil
}

func parseURLSet(data []byte) ([]sitemapEntry, error) {
	var doc urlSetDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	for i := range doc.URLs {
		doc.URLs[i].Loc = strings.TrimSpace(doc.URLs[i].Loc)
	}
	return doc.URLs, nil
}

// --- date parsing ---

// sitemapDateLayouts are tried in order; the first success wins and
// exhaustion yields an absent date rather than an error.
var sitemapDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseWhen(s string) (time.Time, bool) {
	for _, layout := range sitemapDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// --- URL shape classifier ---

var articlePathIndicators = []string{
	"/news/", "/article/", "/articles/", "/actualite/", "/actualites/",
	"/politique/", "/economie/", "/international/", "/monde/",
	"/business/", "/finance/", "/tech/", "/technology/",
	"/sport/", "/culture/", "/societe/",
}

var articleDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`/\d{4}/\d{2}/\d{2}/`),
	regexp.MustCompile(`/\d{4}-\d{2}-\d{2}/`),
	regexp.MustCompile(`/\d{4}/\d{2}/`),
}

var nonArticlePatterns = []string{
	"/tag/", "/tags/", "/category/", "/author/", "/page/",
	".pdf", ".jpg", ".png", ".gif", ".css", ".js",
	"/search", "/contact", "/about", "/legal",
}

// IsArticleURL reports whether a URL looks like a news article. URLs
// matching neither the positive nor the negative indicators follow the
// keepUnmatched policy; the conservative default is to reject them.
func IsArticleURL(url string, keepUnmatched bool) bool {
	lower := strings.ToLower(url)

	for _, indicator := range articlePathIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	for _, pattern := range articleDatePatterns {
		if pattern.MatchString(url) {
			return true
		}
	}
	for _, exclusion := range nonArticlePatterns {
		if strings.Contains(lower, exclusion) {
			return false
		}
	}
	return keepUnmatched
}
