package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/seenimoa/smartreviewer/internal/infra"
	"github.com/seenimoa/smartreviewer/pkg/models"
)

// GNews searches the GNews v4 API.
type GNews struct {
	apiKey  string
	baseURL string
	lang    string
	country string
	client  *http.Client
	limiter *infra.RateLimiter
}

// GNewsOption configures the GNews source.
type GNewsOption func(*GNews)

// WithGNewsBaseURL overrides the API root (default https://gnews.io/api/v4).
func WithGNewsBaseURL(u string) GNewsOption {
	return func(g *GNews) { g.baseURL = strings.TrimRight(u, "/") }
}

// WithGNewsLocale sets the lang and country parameters.
func WithGNewsLocale(lang, country string) GNewsOption {
	return func(g *GNews) {
		g.lang = lang
		g.country = country
	}
}

// WithGNewsHTTPClient sets a custom HTTP client.
func WithGNewsHTTPClient(c *http.Client) GNewsOption {
	return func(g *GNews) { g.client = c }
}

// WithGNewsRateLimit caps outgoing requests to perSec per second.
// Zero or less disables limiting.
func WithGNewsRateLimit(perSec int) GNewsOption {
	return func(g *GNews) {
		if perSec <= 0 {
			g.limiter = nil
			return
		}
		g.limiter = infra.NewRateLimiter(perSec, time.Second)
	}
}

// NewGNews creates a GNews source. An empty key is sent as-is; the
// provider rejects it with a non-2xx status.
func NewGNews(apiKey string, opts ...GNewsOption) *GNews {
	g := &GNews{
		apiKey:  apiKey,
		baseURL: "https://gnews.io/api/v4",
		lang:    "en",
		country: "us",
		client:  HTTPClient,
		limiter: infra.NewRateLimiter(1, time.Second),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the data source name.
func (g *GNews) Name() string { return "GNews" }

// Search implements Searcher.
func (g *GNews) Search(ctx context.Context, query string, limit int) ([]models.SearchResultArticle, error) {
	params := g.params(normalizeLimit(limit))
	params.Set("q", query)
	return g.fetch(ctx, "/search", params)
}

// Trending implements Searcher.
func (g *GNews) Trending(ctx context.Context) ([]models.SearchResultArticle, error) {
	return g.fetch(ctx, "/top-headlines", g.params(DefaultLimit))
}

// --- Internal helpers ---

type gnewsResponse struct {
	TotalArticles int            `json:"totalArticles"`
	Articles      []gnewsArticle `json:"articles"`
}

type gnewsArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	Image       string `json:"image"`
	PublishedAt string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"source"`
}

func (g *GNews) params(limit int) url.Values {
	p := url.Values{}
	p.Set("token", g.apiKey)
	p.Set("lang", g.lang)
	p.Set("country", g.country)
	p.Set("max", strconv.Itoa(limit))
	return p
}

func (g *GNews) fetch(ctx context.Context, path string, params url.Values) ([]models.SearchResultArticle, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNewsFetch, err)
		}
	}

	body, err := doGet(ctx, g.client, g.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNewsFetch, err)
	}
	defer body.Close()

	var resp gnewsResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrNewsFetch, err)
	}

	articles := make([]models.SearchResultArticle, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		articles = append(articles, models.SearchResultArticle{
			Title:       a.Title,
			Description: a.Description,
			Content:     a.Content,
			URL:         a.URL,
			Image:       a.Image,
			PublishedAt: a.PublishedAt,
			Source:      models.Source{Name: a.Source.Name, URL: a.Source.URL},
		})
	}
	return articles, nil
}
