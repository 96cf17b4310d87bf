// Package store persists articles keyed by canonical URL, with
// append-only child facts for entities and topic assignments. Two
// backends share the same schema: an embedded sqlite file and a
// networked PostgreSQL database.
package store

import (
	"context"
	"encoding/json"
	"time"
)

// Sentiment is the four-part polarity score plus its label.
type Sentiment struct {
	Compound float64
	Pos      float64
	Neu      float64
	Neg      float64
	Label    string
}

// Article is one row of the articles table. Pointer fields distinguish
// "not computed this pass" (nil, keeps the stored value) from a real
// value; empty strings in the plain fields behave the same way on
// update. Entity buckets are nil when enrichment did not run.
type Article struct {
	Source     string
	SourceType string
	Title      string
	Date       string // published date as received, often unparseable
	Link       string
	Summary    string
	FetchedAt  string

	Lang             *string
	PublisherDomain  string
	PublisherCountry string

	Content *string

	People     []string
	Countries  []string
	Cities     []string
	Events     []string
	Presidents []string

	Sentiment *Sentiment
}

// EntityFact is one extracted entity occurrence, unique per full tuple.
type EntityFact struct {
	Text  string
	Label string
	Start int
	End   int
}

// TopicFact is one topic assignment with its provenance.
type TopicFact struct {
	Topic  string
	Score  float64
	Source string
}

// Store is the persistence capability the pipeline runs against.
type Store interface {
	// Lookup probes the dedup state of a URL.
	Lookup(ctx context.Context, link string) (id int64, hasContent bool, found bool, err error)
	// UpsertArticle inserts or merges an article and returns its id.
	UpsertArticle(ctx context.Context, a Article) (int64, error)
	// AddEntities inserts entity facts, ignoring duplicates.
	AddEntities(ctx context.Context, articleID int64, facts []EntityFact) error
	// AddTopics inserts topic assignments, ignoring duplicates.
	AddTopics(ctx context.Context, articleID int64, facts []TopicFact) error
	Close() error
}

// marshalList serializes an entity bucket as a JSON array, or NULL when
// the bucket was not computed this pass.
func marshalList(list []string) any {
	if list == nil {
		return nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func nowUTC() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// upsertArgs flattens an Article into the argument list shared by both
// backends. Column order: source, source_type, title, date, link,
// summary, fetched_at, lang, publisher_domain, publisher_country,
// content, content_len, content_fetched_at, people, countries, cities,
// events, presidents, sentiment_compound, sentiment_pos, sentiment_neu,
// sentiment_neg, sentiment_label.
func upsertArgs(a Article) []any {
	fetchedAt := a.FetchedAt
	if fetchedAt == "" {
		fetchedAt = nowUTC()
	}

	var lang any
	if a.Lang != nil {
		lang = *a.Lang
	}

	var content, contentLen, contentFetchedAt any
	if a.Content != nil {
		content = *a.Content
		contentLen = len(*a.Content)
		contentFetchedAt = nowUTC()
	}

	var compound, pos, neu, neg, label any
	if a.Sentiment != nil {
		compound = a.Sentiment.Compound
		pos = a.Sentiment.Pos
		neu = a.Sentiment.Neu
		neg = a.Sentiment.Neg
		label = a.Sentiment.Label
	}

	return []any{
		a.Source, a.SourceType, a.Title, a.Date, a.Link, a.Summary, fetchedAt,
		lang, a.PublisherDomain, a.PublisherCountry,
		content, contentLen, contentFetchedAt,
		marshalList(a.People), marshalList(a.Countries), marshalList(a.Cities),
		marshalList(a.Events), marshalList(a.Presidents),
		compound, pos, neu, neg, label,
	}
}
