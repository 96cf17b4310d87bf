// Package gdelt queries the GDELT DOC 2.0 article index. The API caps
// every call at a fixed number of records, so wide date ranges are
// covered by splitting them into sub-ranges (see orchestrator.go).
package gdelt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/deusflow/newsriver/internal/fetch"
)

// Record is one row returned by the index. Endpoints differ in which
// columns they populate; every field defaults to empty when absent.
type Record struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	Description   string `json:"description"`
	Snippet       string `json:"snippet"`
	Domain        string `json:"domain"`
	Language      string `json:"language"`
	SeenDate      string `json:"seendate"`
	PublishDate   string `json:"publishdate"`
	SourceCountry string `json:"sourcecountry"`
}

// Query describes one index search.
type Query struct {
	Start      time.Time
	End        time.Time
	MaxRecords int
	Language   string
	Domains    []string
}

type response struct {
	Articles []Record `json:"articles"`
}

// Client talks to the index over HTTP.
type Client struct {
	baseURL string
	http    *fetch.Client
}

func NewClient(baseURL string, http *fetch.Client) *Client {
	return &Client{baseURL: baseURL, http: http}
}

// Search runs a single record-capped query.
func (c *Client) Search(ctx context.Context, q Query) ([]Record, error) {
	body, err := c.http.Get(ctx, "gdelt", c.buildURL(q))
	if err != nil {
		return nil, fmt.Errorf("gdelt query: %w", err)
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("gdelt decode: %w", err)
	}
	return resp.Articles, nil
}

func (c *Client) buildURL(q Query) string {
	var terms []string
	if len(q.Domains) > 0 {
		parts := make([]string, 0, len(q.Domains))
		for _, d := range q.Domains {
			parts = append(parts, "domain:"+d)
		}
		term := strings.Join(parts, " OR ")
		if len(parts) > 1 {
			term = "(" + term + ")"
		}
		terms = append(terms, term)
	}
	if q.Language != "" {
		terms = append(terms, "sourcelang:"+strings.ToLower(q.Language))
	}

	values := url.Values{}
	values.Set("query", strings.Join(terms, " "))
	values.Set("mode", "artlist")
	values.Set("format", "json")
	values.Set("maxrecords", fmt.Sprintf("%d", q.MaxRecords))
	values.Set("startdatetime", q.Start.UTC().Format("20060102150405"))
	values.Set("enddatetime", q.End.UTC().Format("20060102150405"))
	return c.baseURL + "?" + values.Encode()
}
