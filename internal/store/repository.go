package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/seenimoa/smartreviewer/pkg/models"
)

// ErrNotFound is returned when no document has the requested id.
var ErrNotFound = errors.New("analyzed article not found")

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Document is an analyzed article as stored by the Repository.
// Extra holds any keys the client sent beyond the article fields.
type Document struct {
	ID        string
	Article   models.AnalyzedArticle
	CreatedAt time.Time
	Extra     map[string]json.RawMessage
}

// MarshalJSON renders the document the way the store resource serves
// it: "_id", the article fields, "created_at" and any extra keys.
func (d Document) MarshalJSON() ([]byte, error) {
	article := d.Article
	article.ID = ""
	base, err := json.Marshal(article)
	if err != nil {
		return nil, err
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(base, &out); err != nil {
		return nil, err
	}
	for k, v := range d.Extra {
		if _, known := out[k]; !known {
			out[k] = v
		}
	}
	if out["_id"], err = json.Marshal(d.ID); err != nil {
		return nil, err
	}
	if out["created_at"], err = json.Marshal(d.CreatedAt); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// Repository stores documents in SQLite or PostgreSQL.
type Repository struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS analyzed_articles (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	image TEXT NOT NULL DEFAULT '',
	published_at TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	sentiment TEXT NOT NULL DEFAULT '',
	sentiment_score INTEGER NOT NULL DEFAULT 0,
	analyzed_at BIGINT NOT NULL,
	created_at BIGINT NOT NULL,
	extra TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_analyzed_articles_analyzed_at ON analyzed_articles (analyzed_at);
`

// Open connects to the database, creates the schema if needed and
// returns a Repository.
func Open(ctx context.Context, driver, dsn string) (*Repository, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if driver == DriverSQLite {
		// A single connection keeps ":memory:" databases alive and
		// serialises writers.
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range strings.Split(createTableSQL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: create schema: %w", err)
		}
	}

	return &Repository{db: db, driver: driver, now: time.Now}, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Insert stores an article under a fresh id. Timestamps are kept at
// millisecond precision.
func (r *Repository) Insert(ctx context.Context, article models.AnalyzedArticle, extra map[string]json.RawMessage) (*Document, error) {
	doc := &Document{
		ID:        uuid.NewString(),
		Article:   article,
		CreatedAt: r.now().UTC().Truncate(time.Millisecond),
		Extra:     extra,
	}
	doc.Article.ID = ""
	doc.Article.AnalyzedAt = article.AnalyzedAt.UTC().Truncate(time.Millisecond)

	extraJSON := []byte("{}")
	if len(extra) > 0 {
		var err error
		if extraJSON, err = json.Marshal(extra); err != nil {
			return nil, fmt.Errorf("store: encode extra fields: %w", err)
		}
	}

	a := doc.Article
	_, err := r.db.ExecContext(ctx, r.rebind(`
		INSERT INTO analyzed_articles
			(id, title, description, url, image, published_at, source, summary,
			 sentiment, sentiment_score, analyzed_at, created_at, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		doc.ID, a.Title, a.Description, a.URL, a.Image, a.PublishedAt, a.Source, a.Summary,
		string(a.Sentiment), a.SentimentScore, a.AnalyzedAt.UnixMilli(), doc.CreatedAt.UnixMilli(),
		string(extraJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("store: insert article: %w", err)
	}
	return doc, nil
}

// List returns every document, most recently analyzed first.
func (r *Repository) List(ctx context.Context) ([]Document, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, url, image, published_at, source, summary,
		       sentiment, sentiment_score, analyzed_at, created_at, extra
		FROM analyzed_articles
		ORDER BY analyzed_at DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list articles: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var (
			d                     Document
			sentiment, extra      string
			analyzedAt, createdAt int64
		)
		a := &d.Article
		if err := rows.Scan(&d.ID, &a.Title, &a.Description, &a.URL, &a.Image, &a.PublishedAt,
			&a.Source, &a.Summary, &sentiment, &a.SentimentScore, &analyzedAt, &createdAt, &extra); err != nil {
			return nil, fmt.Errorf("store: scan article: %w", err)
		}
		a.Sentiment = models.Sentiment(sentiment)
		a.AnalyzedAt = time.UnixMilli(analyzedAt).UTC()
		d.CreatedAt = time.UnixMilli(createdAt).UTC()
		if extra != "" && extra != "{}" {
			if err := json.Unmarshal([]byte(extra), &d.Extra); err != nil {
				return nil, fmt.Errorf("store: decode extra fields of %s: %w", d.ID, err)
			}
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Delete removes the document with the given id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM analyzed_articles WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("store: delete article: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete article: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// rebind rewrites ? placeholders to $N for PostgreSQL.
func (r *Repository) rebind(query string) string {
	if r.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
