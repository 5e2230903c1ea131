package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/seenimoa/smartreviewer/pkg/models"
)

func sampleArticle() models.AnalyzedArticle {
	return models.AnalyzedArticle{
		ID:             "should-not-be-sent",
		Title:          "Test Article",
		Description:    "desc",
		URL:            "https://example.com/a",
		Image:          "https://example.com/a.jpg",
		PublishedAt:    "2024-03-01T10:00:00Z",
		Source:         "Example",
		Summary:        "Summary here",
		Sentiment:      models.SentimentPositive,
		SentimentScore: 70,
		AnalyzedAt:     time.Date(2024, 3, 2, 8, 30, 0, 0, time.UTC),
	}
}

// ════════════════════════════════════════════════════════════════════
// Client
// ════════════════════════════════════════════════════════════════════

func TestClientCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/analyzed-articles" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Error("missing JSON content type")
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["id"]; ok {
			t.Error("id must not be sent")
		}
		if body["title"] != "Test Article" || body["sentiment"] != "positive" || body["sentiment_score"] != 70.0 {
			t.Errorf("unexpected body: %v", body)
		}
		if body["analyzed_at"] != "2024-03-02T08:30:00Z" || body["published_at"] != "2024-03-01T10:00:00Z" {
			t.Errorf("unexpected timestamps: %v", body)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL+"/api/").Create(context.Background(), sampleArticle()); err != nil {
		t.Fatal(err)
	}
}

func TestClientList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/analyzed-articles" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`[{"_id":"1","title":"A","content":"B","summary":"C","tags":["x"]}]`))
	}))
	defer srv.Close()

	records, err := NewClient(srv.URL + "/api").List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}
	rec := records[0]
	if rec.ID != "1" || rec.Title != "A" || rec.Summary != "C" {
		t.Fatalf("unexpected typed view: %+v", rec.AnalyzedArticle)
	}

	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	json.Unmarshal(out, &got)
	want := map[string]any{"id": "1", "_id": "1", "title": "A", "content": "B", "summary": "C"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
	if tags, ok := got["tags"].([]any); !ok || len(tags) != 1 || tags[0] != "x" {
		t.Errorf("tags not preserved: %v", got["tags"])
	}
	if len(got) != 6 {
		t.Errorf("unexpected keys: %v", got)
	}
}

func TestClientListEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	records, err := NewClient(srv.URL).List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if records == nil || len(records) != 0 {
		t.Fatalf("got %#v", records)
	}
}

func TestClientDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/analyzed-articles/abc123" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	if err := NewClient(srv.URL+"/api").Delete(context.Background(), "abc123"); err != nil {
		t.Fatal(err)
	}
}

func TestClientNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	}))
	defer srv.Close()
	c := NewClient(srv.URL)
	ctx := context.Background()

	err := c.Create(ctx, sampleArticle())
	if !errors.Is(err, ErrStorePersist) {
		t.Fatalf("Create: got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != 500 || se.Body != `{"error":"boom"}` {
		t.Fatalf("expected StatusError, got %v", err)
	}

	if _, err := c.List(ctx); !errors.Is(err, ErrStoreFetch) {
		t.Fatalf("List: got %v", err)
	}
	if err := c.Delete(ctx, "1"); !errors.Is(err, ErrStoreDelete) {
		t.Fatalf("Delete: got %v", err)
	}
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := NewClient(base, WithHTTPClient(&http.Client{Timeout: time.Second}))
	ctx := context.Background()
	if err := c.Create(ctx, sampleArticle()); !errors.Is(err, ErrStorePersist) {
		t.Fatalf("Create: got %v", err)
	}
	if _, err := c.List(ctx); !errors.Is(err, ErrStoreFetch) {
		t.Fatalf("List: got %v", err)
	}
	if err := c.Delete(ctx, "1"); !errors.Is(err, ErrStoreDelete) {
		t.Fatalf("Delete: got %v", err)
	}
}

func TestClientListMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"}`))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).List(context.Background()); !errors.Is(err, ErrStoreFetch) {
		t.Fatalf("got %v", err)
	}
}

func TestRecordLenientFields(t *testing.T) {
	var rec Record
	data := `{"_id":{"$oid":"65f"},"sentiment_score":"high","analyzed_at":"2024-03-02T08:30:00.123Z","title":"T"}`
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.ID != `{"$oid":"65f"}` {
		t.Fatalf("ID = %q", rec.ID)
	}
	if rec.Title != "T" || rec.SentimentScore != 0 {
		t.Fatalf("typed view: %+v", rec.AnalyzedArticle)
	}
	if !rec.AnalyzedAt.Equal(time.Date(2024, 3, 2, 8, 30, 0, 123e6, time.UTC)) {
		t.Fatalf("AnalyzedAt = %v", rec.AnalyzedAt)
	}
}

// ════════════════════════════════════════════════════════════════════
// Repository
// ════════════════════════════════════════════════════════════════════

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepositoryInsertList(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	older := sampleArticle()
	older.Title = "older"
	newer := sampleArticle()
	newer.Title = "newer"
	newer.AnalyzedAt = older.AnalyzedAt.Add(time.Hour)

	d1, err := repo.Insert(ctx, older, nil)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := repo.Insert(ctx, newer, map[string]json.RawMessage{"tags": json.RawMessage(`["x"]`)})
	if err != nil {
		t.Fatal(err)
	}
	if d1.ID == "" || d1.ID == d2.ID {
		t.Fatalf("ids: %q %q", d1.ID, d2.ID)
	}
	if d1.Article.ID != "" {
		t.Fatal("article id should not be stored")
	}

	docs, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || docs[0].Article.Title != "newer" || docs[1].Article.Title != "older" {
		t.Fatalf("expected newest first, got %+v", docs)
	}
	got := docs[1]
	want := older
	want.ID = ""
	if !got.Article.AnalyzedAt.Equal(want.AnalyzedAt) {
		t.Fatalf("analyzed_at %v != %v", got.Article.AnalyzedAt, want.AnalyzedAt)
	}
	got.Article.AnalyzedAt, want.AnalyzedAt = time.Time{}, time.Time{}
	if got.Article != want {
		t.Fatalf("round trip:\n got %+v\nwant %+v", got.Article, want)
	}
	if !got.CreatedAt.Equal(d1.CreatedAt) {
		t.Fatalf("created_at %v != %v", got.CreatedAt, d1.CreatedAt)
	}
	if string(docs[0].Extra["tags"]) != `["x"]` {
		t.Fatalf("extra not kept: %v", docs[0].Extra)
	}
}

func TestRepositoryListEmpty(t *testing.T) {
	docs, err := openTestRepo(t).List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if docs == nil || len(docs) != 0 {
		t.Fatalf("got %#v", docs)
	}
}

func TestRepositoryDelete(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	doc, _ := repo.Insert(ctx, sampleArticle(), nil)

	if err := repo.Delete(ctx, doc.ID); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
	docs, _ := repo.List(ctx)
	if len(docs) != 0 {
		t.Fatalf("expected empty store, got %d", len(docs))
	}
}

func TestRepositoryInMemory(t *testing.T) {
	repo, err := Open(context.Background(), DriverSQLite, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Insert(context.Background(), sampleArticle(), nil); err != nil {
		t.Fatal(err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "x"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	pg := &Repository{driver: DriverPostgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("postgres: %q", got)
	}
	lite := &Repository{driver: DriverSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite: %q", got)
	}
}

func TestDocumentJSON(t *testing.T) {
	doc := Document{
		ID:        "doc-1",
		Article:   sampleArticle(),
		CreatedAt: time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
		Extra: map[string]json.RawMessage{
			"tags":  json.RawMessage(`["x"]`),
			"title": json.RawMessage(`"ignored"`),
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	json.Unmarshal(data, &got)
	if got["_id"] != "doc-1" || got["title"] != "Test Article" || got["created_at"] != "2024-03-03T00:00:00Z" {
		t.Fatalf("unexpected document: %s", data)
	}
	if _, ok := got["id"]; ok {
		t.Fatalf("document should not carry id: %s", data)
	}
	if _, ok := got["tags"]; !ok {
		t.Fatalf("extra field dropped: %s", data)
	}

	// The client reads the same shape back.
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatal(err)
	}
	if rec.ID != "doc-1" || rec.SentimentScore != 70 || !rec.AnalyzedAt.Equal(doc.Article.AnalyzedAt) {
		t.Fatalf("record: %+v", rec.AnalyzedArticle)
	}
}

