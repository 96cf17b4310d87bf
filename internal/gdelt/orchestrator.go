package gdelt

import (
	"context"
	"time"

	"github.com/deusflow/newsriver/internal/logger"
	"github.com/deusflow/newsriver/internal/source"
)

// BatchSource drives a record-capped index query across date sub-ranges
// and merges the partial results.
type BatchSource struct {
	client  *Client
	query   Query
	batches int
	delay   time.Duration
	sleep   func(time.Duration)
}

func NewBatchSource(client *Client, query Query, batches int, delay time.Duration) *BatchSource {
	if batches < 1 {
		batches = 1
	}
	return &BatchSource{
		client:  client,
		query:   query,
		batches: batches,
		delay:   delay,
		sleep:   time.Sleep,
	}
}

func (b *BatchSource) Name() string {
	return "gdelt"
}

// Discover queries each sub-range independently. A failing sub-range is
// logged and skipped; the union of the others is still returned,
// deduplicated by URL with the first occurrence winning.
func (b *BatchSource) Discover(ctx context.Context) ([]source.Candidate, error) {
	var merged []Record
	for i, sub := range splitRange(b.query.Start, b.query.End, b.batches) {
		if i > 0 && b.delay > 0 {
			b.sleep(b.delay)
		}

		q := b.query
		q.Start, q.End = sub.start, sub.end
		records, err := b.client.Search(ctx, q)
		if err != nil {
			logger.Warn("index sub-range failed", "batch", i+1, "start", sub.start, "end", sub.end, "error", err)
			continue
		}
		logger.Info("index sub-range done", "batch", i+1, "records", len(records))
		merged = append(merged, records...)
	}

	seen := make(map[string]struct{}, len(merged))
	var candidates []source.Candidate
	for _, r := range merged {
		if r.URL == "" {
			continue
		}
		if _, dup := seen[r.URL]; dup {
			continue
		}
		seen[r.URL] = struct{}{}
		candidates = append(candidates, recordToCandidate(r))
	}
	return candidates, nil
}

type dateRange struct {
	start, end time.Time
}

// splitRange cuts [start, end) into n contiguous, equal-width sub-ranges;
// the final one absorbs any remainder.
func splitRange(start, end time.Time, n int) []dateRange {
	total := end.Sub(start)
	if total <= 0 || n < 1 {
		return []dateRange{{start, end}}
	}
	width := total / time.Duration(n)

	ranges := make([]dateRange, 0, n)
	cur := start
	for i := 0; i < n; i++ {
		next := cur.Add(width)
		if i == n-1 {
			next = end
		}
		ranges = append(ranges, dateRange{cur, next})
		cur = next
	}
	return ranges
}

func recordToCandidate(r Record) source.Candidate {
	summary := r.Description
	if summary == "" {
		summary = r.Snippet
	}
	// The index reports both when it first saw a URL and when the
	// article claims to have been published; the publish date wins.
	published := r.PublishDate
	if published == "" {
		published = r.SeenDate
	}
	name := "gdelt"
	if r.Domain != "" {
		name = "gdelt-" + r.Domain
	}
	return source.Candidate{
		URL:         r.URL,
		Title:       r.Title,
		Summary:     summary,
		PublishedAt: published,
		SourceName:  name,
		SourceType:  "gdelt",
	}
}
