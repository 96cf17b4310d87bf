package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/deusflow/newsriver/internal/logger"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS articles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
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
	sentiment_compound REAL,
	sentiment_pos REAL,
	sentiment_neu REAL,
	sentiment_neg REAL,
	sentiment_label TEXT
);

CREATE INDEX IF NOT EXISTS idx_articles_date_source ON articles(date, source);

CREATE TABLE IF NOT EXISTS entities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	article_id INTEGER NOT NULL,
	text TEXT,
	label TEXT,
	start INTEGER,
	"end" INTEGER,
	FOREIGN KEY(article_id) REFERENCES articles(id)
);

CREATE INDEX IF NOT EXISTS idx_entities_article ON entities(article_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_entities_unique
	ON entities(article_id, text, label, start, "end");

CREATE TABLE IF NOT EXISTS article_topics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	article_id INTEGER NOT NULL,
	topic TEXT,
	score REAL,
	source TEXT,
	UNIQUE(article_id, topic),
	FOREIGN KEY(article_id) REFERENCES articles(id)
);
`

const sqliteUpsert = `
INSERT INTO articles (
	source, source_type, title, date, link, summary, fetched_at,
	lang, publisher_domain, publisher_country,
	content, content_len, content_fetched_at,
	people, countries, cities, events, presidents,
	sentiment_compound, sentiment_pos, sentiment_neu, sentiment_neg, sentiment_label
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(link) DO UPDATE SET
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

// SQLiteStore is the embedded, file-backed store.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single writer avoids SQLITE_BUSY on concurrent upserts.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	logger.Info("sqlite store ready", "path", path)
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(sqliteSchema)
	return err
}

func (s *SQLiteStore) Lookup(ctx context.Context, link string) (int64, bool, bool, error) {
	var id int64
	var hasContent bool
	err := s.db.QueryRowContext(ctx,
		`SELECT id, content IS NOT NULL AND content != '' FROM articles WHERE link = ?`,
		link).Scan(&id, &hasContent)
	if err == sql.ErrNoRows {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, err
	}
	return id, hasContent, true, nil
}

func (s *SQLiteStore) UpsertArticle(ctx context.Context, a Article) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, sqliteUpsert, upsertArgs(a)...).Scan(&id)
	if err != nil {
		// One self-healing schema pass; anything after that is fatal
		// for the run.
		logger.Warn("upsert failed, recreating schema", "error", err)
		if herr := s.initSchema(); herr != nil {
			return 0, fmt.Errorf("upsert %s: %w (schema recreate: %v)", a.Link, err, herr)
		}
		err = s.db.QueryRowContext(ctx, sqliteUpsert, upsertArgs(a)...).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("upsert %s: %w", a.Link, err)
		}
	}
	return id, nil
}

func (s *SQLiteStore) AddEntities(ctx context.Context, articleID int64, facts []EntityFact) error {
	for _, f := range facts {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO entities (article_id, text, label, start, "end") VALUES (?, ?, ?, ?, ?)`,
			articleID, f.Text, f.Label, f.Start, f.End)
		if err != nil {
			return fmt.Errorf("add entity %q: %w", f.Text, err)
		}
	}
	return nil
}

func (s *SQLiteStore) AddTopics(ctx context.Context, articleID int64, facts []TopicFact) error {
	for _, f := range facts {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO article_topics (article_id, topic, score, source) VALUES (?, ?, ?, ?)`,
			articleID, f.Topic, f.Score, f.Source)
		if err != nil {
			return fmt.Errorf("add topic %q: %w", f.Topic, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
