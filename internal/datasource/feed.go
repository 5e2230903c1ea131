package datasource

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/smartreviewer/internal/infra"
	"github.com/seenimoa/smartreviewer/pkg/models"
)

// Feed reads headlines from RSS/Atom feeds. It needs no API key.
type Feed struct {
	urls    []string
	client  *http.Client
	limiter *infra.RateLimiter
}

// NewFeed creates a feed source over the given feed URLs.
func NewFeed(urls []string) *Feed {
	return &Feed{
		urls:    urls,
		client:  HTTPClient,
		limiter: infra.NewRateLimiter(2, time.Second), // conservative: 2 req/s
	}
}

// WithHTTPClient sets a custom HTTP client and returns the source.
func (f *Feed) WithHTTPClient(c *http.Client) *Feed {
	f.client = c
	return f
}

// Name returns the data source name.
func (f *Feed) Name() string { return "RSS" }

// Search returns items whose title or description contains query,
// case-insensitively, in feed order.
func (f *Feed) Search(ctx context.Context, query string, limit int) ([]models.SearchResultArticle, error) {
	all, err := f.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	var matched []models.SearchResultArticle
	for _, a := range all {
		if strings.Contains(strings.ToLower(a.Title+" "+a.Description), q) {
			matched = append(matched, a)
		}
	}
	return truncate(matched, normalizeLimit(limit)), nil
}

// Trending returns the first items across all feeds, in feed order.
func (f *Feed) Trending(ctx context.Context) ([]models.SearchResultArticle, error) {
	all, err := f.fetchAll(ctx)
	if err != nil {
		return nil, err
	}
	return truncate(all, DefaultLimit), nil
}

// --- Internal helpers ---

// fetchAll concatenates every feed in configured order, keeping each
// feed's item order and skipping the feeds that fail. It errors only
// when no feed could be read.
func (f *Feed) fetchAll(ctx context.Context) ([]models.SearchResultArticle, error) {
	var (
		all     []models.SearchResultArticle
		lastErr error
		ok      int
	)
	for _, u := range f.urls {
		articles, err := f.fetchRSS(ctx, u)
		if err != nil {
			lastErr = err
			continue
		}
		ok++
		all = append(all, articles...)
	}
	if ok == 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("no feeds configured")
		}
		return nil, fmt.Errorf("%w: %w", ErrNewsFetch, lastErr)
	}

	return all, nil
}

// fetchRSS parses one feed and returns its items.
func (f *Feed) fetchRSS(ctx context.Context, url string) ([]models.SearchResultArticle, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := doGet(ctx, f.client, url, nil)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	feed, err := gofeed.NewParser().Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", url, err)
	}

	src := models.Source{Name: feed.Title, URL: feed.Link}
	articles := make([]models.SearchResultArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		a := models.SearchResultArticle{
			Title:       strings.TrimSpace(item.Title),
			Description: cleanHTML(item.Description),
			Content:     cleanHTML(item.Content),
			URL:         item.Link,
			Source:      src,
			PublishedAt: item.Published,
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = item.PublishedParsed.UTC().Format(time.RFC3339)
		}
		if item.Image != nil {
			a.Image = item.Image.URL
		} else {
			for _, enc := range item.Enclosures {
				if strings.HasPrefix(enc.Type, "image/") {
					a.Image = enc.URL
					break
				}
			}
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

func truncate(articles []models.SearchResultArticle, limit int) []models.SearchResultArticle {
	if len(articles) > limit {
		return articles[:limit]
	}
	if articles == nil {
		return []models.SearchResultArticle{}
	}
	return articles
}
