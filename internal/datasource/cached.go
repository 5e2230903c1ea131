package datasource

import (
	"context"
	"log/slog"
	"time"

	"github.com/seenimoa/smartreviewer/internal/infra"
	"github.com/seenimoa/smartreviewer/pkg/models"
)

// Cached wraps a Searcher and keeps its trending headlines in a cache.
// Search results are always fetched fresh.
type Cached struct {
	next   Searcher
	cache  infra.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps next. A ttl of zero or less disables caching.
func NewCached(next Searcher, cache infra.Cache, ttl time.Duration, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{next: next, cache: cache, ttl: ttl, logger: logger}
}

// Name returns the wrapped source name.
func (c *Cached) Name() string { return c.next.Name() }

// Search implements Searcher.
func (c *Cached) Search(ctx context.Context, query string, limit int) ([]models.SearchResultArticle, error) {
	return c.next.Search(ctx, query, limit)
}

// Trending implements Searcher. Cache errors are logged and treated as misses.
func (c *Cached) Trending(ctx context.Context) ([]models.SearchResultArticle, error) {
	if c.ttl <= 0 || c.cache == nil {
		return c.next.Trending(ctx)
	}

	key := "news:trending:" + c.next.Name()
	var cached []models.SearchResultArticle
	hit, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		c.logger.Warn("trending cache read failed", "key", key, "error", err)
	}
	if hit {
		return cached, nil
	}

	articles, err := c.next.Trending(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, articles, c.ttl); err != nil {
		c.logger.Warn("trending cache write failed", "key", key, "error", err)
	}
	return articles, nil
}
