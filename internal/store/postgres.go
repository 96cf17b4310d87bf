package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/deusflow/newsriver/internal/logger"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS articles (
	id BIGSERIAL PRIMARY KEY,
	source TEXT,
	source_type TEXT DEFAULT 'rss',
	title TEXT,
	date TEXT,
	link TEXT UNIQUE NOT NULL,
	summary TEXT,
	fetched_at TEXT,
	lang TEXT,
	publisher_domain TEXT,
	publisher_country TEXT,
	content TEXT,
	content_len INTEGER,
	content_fetched_at TEXT,
	people TEXT,
	countries TEXT,
	cities TEXT,
	events TEXT,
	presidents TEXT,
	sentiment_compound DOUBLE PRECISION,
	sentiment_pos DOUBLE PRECISION,
	sentiment_neu DOUBLE PRECISION,
	sentiment_neg DOUBLE PRECISION,
	sentiment_label TEXT
);

CREATE INDEX IF NOT EXISTS idx_articles_date_source ON articles(date, source);

CREATE TABLE IF NOT EXISTS entities (
	id BIGSERIAL PRIMARY KEY,
	article_id BIGINT NOT NULL REFERENCES articles(id),
	text TEXT,
	label TEXT,
	start INTEGER,
	"end" INTEGER,
	UNIQUE(article_id, text, label, start, "end")
);

CREATE INDEX IF NOT EXISTS idx_entities_article ON entities(article_id);

CREATE TABLE IF NOT EXISTS article_topics (
	id BIGSERIAL PRIMARY KEY,
	article_id BIGINT NOT NULL REFERENCES articles(id),
	topic TEXT,
	score DOUBLE PRECISION,
	source TEXT,
	UNIQUE(article_id, topic)
);
`

const postgresUpsert = `
INSERT INTO articles (
	source, source_type, title, date, link, summary, fetched_at,
	lang, publisher_domain, publisher_country,
	content, content_len, content_fetched_at,
	people, countries, cities, events, presidents,
	sentiment_compound, sentiment_pos, sentiment_neu, sentiment_neg, sentiment_label
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
ON CONFLICT (link) DO UPDATE SET
	source = COALESCE(NULLIF(excluded.source, ''), articles.source),
	source_type = COALESCE(NULLIF(excluded.source_type, ''), articles.source_type),
	title = COALESCE(NULLIF(excluded.title, ''), articles.title),
	date = COALESCE(NULLIF(excluded.date, ''), articles.date),
	summary = COALESCE(NULLIF(excluded.summary, ''), articles.summary),
	fetched_at = excluded.fetched_at,
	lang = COALESCE(excluded.lang, articles.lang),
	publisher_domain = excluded.publisher_domain,
	publisher_country = excluded.publisher_country,
	content = COALESCE(excluded.content, articles.content),
	content_len = COALESCE(excluded.content_len, articles.content_len),
	content_fetched_at = COALESCE(excluded.content_fetched_at, articles.content_fetched_at),
	people = COALESCE(excluded.people, articles.people),
	countries = COALESCE(excluded.countries, articles.countries),
	cities = COALESCE(excluded.cities, articles.cities),
	events = COALESCE(excluded.events, articles.events),
	presidents = COALESCE(excluded.presidents, articles.presidents),
	sentiment_compound = COALESCE(excluded.sentiment_compound, articles.sentiment_compound),
	sentiment_pos = COALESCE(excluded.sentiment_pos, articles.sentiment_pos),
	sentiment_neu = COALESCE(excluded.sentiment_neu, articles.sentiment_neu),
	sentiment_neg = COALESCE(excluded.sentiment_neg, articles.sentiment_neg),
	sentiment_label = COALESCE(excluded.sentiment_label, articles.sentiment_label)
RETURNING id
`

// PostgresStore is the networked store backend.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("init postgres schema: %w", err)
	}
	logger.Info("postgres store ready")
	return s, nil
}

func (s *PostgresStore) initSchema() error {
	_, err := s.db.Exec(postgresSchema)
	return err
}

func (s *PostgresStore) Lookup(ctx context.Context, link string) (int64, bool, bool, error) {
	var id int64
	var hasContent bool
	err := s.db.QueryRowContext(ctx,
		`SELECT id, content IS NOT NULL AND content != '' FROM articles WHERE link = $1`,
		link).Scan(&id, &hasContent)
	if err == sql.ErrNoRows {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, err
	}
	return id, hasContent, true, nil
}

func (s *PostgresStore) UpsertArticle(ctx context.Context, a Article) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, postgresUpsert, upsertArgs(a)...).Scan(&id)
	if err != nil {
		logger.Warn("upsert failed, recreating schema", "error", err)
		if herr := s.initSchema(); herr != nil {
			return 0, fmt.Errorf("upsert %s: %w (schema recreate: %v)", a.Link, err, herr)
		}
		err = s.db.QueryRowContext(ctx, postgresUpsert, upsertArgs(a)...).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("upsert %s: %w", a.Link, err)
		}
	}
	return id, nil
}

func (s *PostgresStore) AddEntities(ctx context.Context, articleID int64, facts []EntityFact) error {
	for _, f := range facts {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO entities (article_id, text, label, start, "end") VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT DO NOTHING`,
			articleID, f.Text, f.Label, f.Start, f.End)
		if err != nil {
			return fmt.Errorf("add entity %q: %w", f.Text, err)
		}
	}
	return nil
}

func (s *PostgresStore) AddTopics(ctx context.Context, articleID int64, facts []TopicFact) error {
	for _, f := range facts {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO article_topics (article_id, topic, score, source) VALUES ($1, $2, $3, $4)
			 ON CONFLICT DO NOTHING`,
			articleID, f.Topic, f.Score, f.Source)
		if err != nil {
			return fmt.Errorf("add topic %q: %w", f.Topic, err)
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
