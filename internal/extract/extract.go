// Package extract resolves full article text from a URL. A
// boilerplate-removal pass (readability) is tried first; when it comes
// back empty the raw HTML is scraped generically. Both stages failing is
// not an error for the pipeline: the article is persisted without
// content and stays eligible for extraction on a later pass.
package extract

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/deusflow/newsriver/internal/fetch"
	"github.com/deusflow/newsriver/internal/logger"
)

// Meta is page metadata scraped from the document head. Sitemap
// candidates arrive with no title or summary; these fields fill them.
type Meta struct {
	Title       string
	Description string
	Published   string
}

// Result is the outcome of one extraction attempt.
type Result struct {
	Text string // empty when both stages failed
	Meta Meta
}

type Extractor struct {
	client *fetch.Client
}

func New(client *fetch.Client) *Extractor {
	return &Extractor{client: client}
}

// Extract fetches the page once and feeds the same document to the
// text-extraction chain and the metadata scrape.
func (e *Extractor) Extract(ctx context.Context, sourceName, pageURL string) (Result, error) {
	body, err := e.client.Get(ctx, sourceName, pageURL)
	if err != nil {
		return Result{}, err
	}
	return e.FromHTML(body, pageURL), nil
}

// FromHTML runs the extraction chain over already-fetched HTML.
func (e *Extractor) FromHTML(body []byte, pageURL string) Result {
	var res Result

	doc, docErr := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if docErr == nil {
		res.Meta = scrapeMeta(doc)
	}

	if text := readableText(body, pageURL); text != "" {
		res.Text = text
		return res
	}

	if docErr != nil {
		logger.Warn("html parse failed", "url", pageURL, "error", docErr)
		return res
	}
	res.Text = scrapeParagraphs(doc)
	return res
}

// readableText is the primary stage: readability's DOM distillation.
func readableText(body []byte, pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(article.TextContent)
}

// scrapeParagraphs is the generic fallback: strip non-content elements
// and join what remains paragraph by paragraph.
func scrapeParagraphs(doc *goquery.Document) string {
	doc.Find("script, style, nav, header, footer, aside, form, iframe, figure, noscript").Remove()

	var paragraphs []string
	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}

func scrapeMeta(doc *goquery.Document) Meta {
	var m Meta
	m.Title = strings.TrimSpace(doc.Find("title").First().Text())

	for _, sel := range []string{
		`meta[property="og:description"]`,
		`meta[name="twitter:description"]`,
		`meta[name="description"]`,
	} {
		if content, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(content) != "" {
			m.Description = strings.TrimSpace(content)
			break
		}
	}

	if content, ok := doc.Find(`meta[property="article:published_time"]`).First().Attr("content"); ok {
		m.Published = strings.TrimSpace(content)
	}
	return m
}
