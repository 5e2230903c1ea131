// Package datasource provides news search from external providers.
// It defines a common Searcher interface and implements concrete sources
// for the GNews API and RSS/Atom feeds, plus a caching decorator.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seenimoa/smartreviewer/pkg/models"
)

// Searcher defines the interface all news sources implement.
type Searcher interface {
	// Name returns the human-readable name of this source.
	Name() string

	// Search returns up to limit articles matching query. A limit of
	// zero or less selects DefaultLimit.
	Search(ctx context.Context, query string, limit int) ([]models.SearchResultArticle, error)

	// Trending returns the current top headlines.
	Trending(ctx context.Context) ([]models.SearchResultArticle, error)
}

// DefaultLimit is the number of articles requested when the caller
// does not choose one.
const DefaultLimit = 10

// --- Sentinel errors ---

// ErrNewsFetch is returned when a provider cannot be reached, answers
// with a non-2xx status or returns an unreadable body.
var ErrNewsFetch = errors.New("failed to fetch news articles")

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// --- Shared HTTP client helpers ---

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "smartreviewer/1.0 (+https://github.com/seenimoa/smartreviewer)"

// HTTPClient is a pre-configured HTTP client with reasonable timeouts.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

// doGet performs a GET request with the given URL and headers, returning the response body.
// Any status outside 2xx is reported as *ErrHTTP.
// The caller is responsible for closing the returned ReadCloser.
func doGet(ctx context.Context, client *http.Client, url string, headers map[string]string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json, application/rss+xml, */*")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s%s: %w", req.URL.Host, req.URL.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return resp.Body, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
