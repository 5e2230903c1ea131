package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/seenimoa/smartreviewer/internal/llm"
	"github.com/seenimoa/smartreviewer/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

// stubProvider returns a canned reply or error and records the last request.
type stubProvider struct {
	content  string
	err      error
	messages []llm.Message
	opts     *llm.ChatOptions
	calls    int
}

func (s *stubProvider) Name() string                 { return "stub" }
func (s *stubProvider) Ping(ctx context.Context) error { return nil }

func (s *stubProvider) Chat(ctx context.Context, messages []llm.Message, opts *llm.ChatOptions) (*llm.Response, error) {
	s.calls++
	s.messages = messages
	s.opts = opts
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Content: s.content}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// openAIServer serves a chat completion whose first choice has content.
func openAIServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			t.Error("missing bearer credential")
		}
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"boom"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// ════════════════════════════════════════════════════════════════════
// Summarizer
// ════════════════════════════════════════════════════════════════════

func TestSummarizeTrimsWhitespace(t *testing.T) {
	p := &stubProvider{content: "  This is a summary.  "}
	s := NewSummarizer(p, "gpt-3.5-turbo")

	got, err := s.Summarize(context.Background(), "Test article content")
	if err != nil {
		t.Fatal(err)
	}
	if got != "This is a summary." {
		t.Fatalf("got %q, want %q", got, "This is a summary.")
	}
}

func TestSummarizeKeepsInnerText(t *testing.T) {
	p := &stubProvider{content: "\n Line one.\n\nLine  two. \t"}
	got, err := NewSummarizer(p, "").Summarize(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Line one.\n\nLine  two." {
		t.Fatalf("got %q", got)
	}
}

func TestSummarizeRequestShape(t *testing.T) {
	p := &stubProvider{content: "ok"}
	if _, err := NewSummarizer(p, "gpt-3.5-turbo").Summarize(context.Background(), "Body text"); err != nil {
		t.Fatal(err)
	}

	if p.opts.MaxTokens != 150 || p.opts.Temperature != 0.3 || p.opts.Model != "gpt-3.5-turbo" {
		t.Fatalf("unexpected options: %+v", p.opts)
	}
	if len(p.messages) != 2 || p.messages[0].Role != llm.RoleSystem || p.messages[1].Role != llm.RoleUser {
		t.Fatalf("unexpected messages: %+v", p.messages)
	}
	if p.messages[1].Content != "Please summarize this article: Body text" {
		t.Fatalf("unexpected user prompt: %q", p.messages[1].Content)
	}
}

func TestSummarizeError(t *testing.T) {
	p := &stubProvider{err: llm.ErrProviderDown}
	_, err := NewSummarizer(p, "").Summarize(context.Background(), "Bad input")
	if !errors.Is(err, ErrSummaryGeneration) {
		t.Fatalf("expected ErrSummaryGeneration, got %v", err)
	}
	if !errors.Is(err, llm.ErrProviderDown) {
		t.Fatalf("cause should be wrapped, got %v", err)
	}
}

func TestSummarizeNoProvider(t *testing.T) {
	_, err := NewSummarizer(nil, "").Summarize(context.Background(), "x")
	if !errors.Is(err, ErrSummaryGeneration) || !errors.Is(err, llm.ErrNoAPIKey) {
		t.Fatalf("got %v", err)
	}
}

func TestSummarizeOverHTTP(t *testing.T) {
	srv := openAIServer(t, http.StatusOK, "  This is a summary.  ")
	p, _ := llm.NewChatClient("sk-test", llm.WithBaseURL(srv.URL))

	got, err := NewSummarizer(p, "").Summarize(context.Background(), "content")
	if err != nil {
		t.Fatal(err)
	}
	if got != "This is a summary." {
		t.Fatalf("got %q", got)
	}
}

func TestSummarizeOverHTTPNon2xx(t *testing.T) {
	srv := openAIServer(t, http.StatusInternalServerError, "")
	p, _ := llm.NewChatClient("sk-test", llm.WithBaseURL(srv.URL))

	if _, err := NewSummarizer(p, "").Summarize(context.Background(), "content"); !errors.Is(err, ErrSummaryGeneration) {
		t.Fatalf("expected ErrSummaryGeneration, got %v", err)
	}
}

func TestSummarizeMalformedReplyShape(t *testing.T) {
	bodies := map[string]string{
		"choice without message": `{"choices":[{}]}`,
		"null content":           `{"choices":[{"message":{"content":null}}]}`,
		"no choices":             `{"choices":[]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer srv.Close()
			p, _ := llm.NewChatClient("sk-test", llm.WithBaseURL(srv.URL))

			got, err := NewSummarizer(p, "").Summarize(context.Background(), "content")
			if !errors.Is(err, ErrSummaryGeneration) || !errors.Is(err, llm.ErrEmptyResponse) {
				t.Fatalf("expected ErrSummaryGeneration wrapping ErrEmptyResponse, got summary=%q err=%v", got, err)
			}
		})
	}
}

// ════════════════════════════════════════════════════════════════════
// SentimentResolver
// ════════════════════════════════════════════════════════════════════

func TestResolveReturnsRemoteVerbatim(t *testing.T) {
	p := &stubProvider{content: `{"sentiment":"positive","score":85}`}
	r := NewSentimentResolver(p, "", quietLogger())

	got := r.Resolve(context.Background(), "Great news for the company!")
	want := models.SentimentResult{Sentiment: models.SentimentPositive, Score: 85}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if p.opts.MaxTokens != 50 || p.opts.Temperature != 0.1 {
		t.Fatalf("unexpected options: %+v", p.opts)
	}
	if !strings.Contains(p.messages[0].Content, "ONLY a JSON object") {
		t.Fatalf("system prompt should demand JSON: %q", p.messages[0].Content)
	}
}

func TestResolveDoesNotValidateRemoteValues(t *testing.T) {
	// Out-of-range score and unknown label pass through untouched, even
	// though the text would classify as negative locally.
	p := &stubProvider{content: "  {\"sentiment\":\"mixed\",\"score\":140}\n"}
	got := NewSentimentResolver(p, "", quietLogger()).Resolve(context.Background(), "terrible crisis")
	if got.Sentiment != "mixed" || got.Score != 140 {
		t.Fatalf("got %+v", got)
	}
}

func TestResolveStripsCodeFence(t *testing.T) {
	p := &stubProvider{content: "```json\n{\"sentiment\":\"negative\",\"score\":12}\n```"}
	got := NewSentimentResolver(p, "", quietLogger()).Resolve(context.Background(), "x")
	if got.Sentiment != models.SentimentNegative || got.Score != 12 {
		t.Fatalf("got %+v", got)
	}
}

func TestResolveRoundsFractionalScore(t *testing.T) {
	p := &stubProvider{content: `{"sentiment":"neutral","score":49.6}`}
	got := NewSentimentResolver(p, "", quietLogger()).Resolve(context.Background(), "x")
	if got.Score != 50 {
		t.Fatalf("got %+v", got)
	}
}

func TestResolveFallback(t *testing.T) {
	tests := []struct {
		name string
		text string
		want models.SentimentResult
	}{
		{"positive", "This is a great success and a breakthrough!", models.SentimentResult{Sentiment: models.SentimentPositive, Score: 70}},
		{"negative", "This is a terrible crisis and a problem!", models.SentimentResult{Sentiment: models.SentimentNegative, Score: 30}},
		{"neutral", "The article discusses weather patterns and temperature.", models.SentimentResult{Sentiment: models.SentimentNeutral, Score: 50}},
	}

	failures := map[string]*stubProvider{
		"transport error": {err: llm.ErrProviderDown},
		"malformed json":  {content: "I think it is positive"},
		"missing score":   {content: `{"sentiment":"positive"}`},
		"empty sentiment": {content: `{"sentiment":"","score":90}`},
		"non-numeric":     {content: `{"sentiment":"positive","score":"high"}`},
	}

	for fname, p := range failures {
		for _, tt := range tests {
			t.Run(fname+"/"+tt.name, func(t *testing.T) {
				got := NewSentimentResolver(p, "", quietLogger()).Resolve(context.Background(), tt.text)
				if got != tt.want {
					t.Fatalf("got %+v, want %+v", got, tt.want)
				}
			})
		}
	}
}

func TestResolveNoProviderUsesHeuristic(t *testing.T) {
	got := NewSentimentResolver(nil, "", quietLogger()).Resolve(context.Background(), "a good win")
	if got.Sentiment != models.SentimentPositive || got.Score != 70 {
		t.Fatalf("got %+v", got)
	}
}

func TestResolveOverHTTPFailure(t *testing.T) {
	srv := openAIServer(t, http.StatusServiceUnavailable, "")
	p, _ := llm.NewChatClient("sk-test", llm.WithBaseURL(srv.URL))

	got := NewSentimentResolver(p, "", quietLogger()).Resolve(context.Background(), "This is a terrible crisis and a problem!")
	if got.Sentiment != models.SentimentNegative || got.Score != 30 {
		t.Fatalf("got %+v", got)
	}
}

func TestResolveMalformedReplyShapeFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{}]}`))
	}))
	defer srv.Close()
	p, _ := llm.NewChatClient("sk-test", llm.WithBaseURL(srv.URL))

	got := NewSentimentResolver(p, "", quietLogger()).Resolve(context.Background(), "This is a great success and a breakthrough!")
	if got.Sentiment != models.SentimentPositive || got.Score != 70 {
		t.Fatalf("got %+v", got)
	}
}

func TestResolveOverHTTPSuccess(t *testing.T) {
	srv := openAIServer(t, http.StatusOK, `{"sentiment":"positive","score":85}`)
	p, _ := llm.NewChatClient("sk-test", llm.WithBaseURL(srv.URL))

	got := NewSentimentResolver(p, "", quietLogger()).Resolve(context.Background(), "The article discusses weather.")
	if got.Sentiment != models.SentimentPositive || got.Score != 85 {
		t.Fatalf("got %+v", got)
	}
}
