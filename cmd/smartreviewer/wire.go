package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/seenimoa/smartreviewer/internal/ai"
	"github.com/seenimoa/smartreviewer/internal/config"
	"github.com/seenimoa/smartreviewer/internal/datasource"
	"github.com/seenimoa/smartreviewer/internal/infra"
	"github.com/seenimoa/smartreviewer/internal/llm"
	"github.com/seenimoa/smartreviewer/internal/store"
)

// newLogger builds the process logger from the logging section.
func newLogger(lc config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		return nil, fmt.Errorf("invalid logging.level %q: %w", lc.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(lc.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid logging.format %q", lc.Format)
	}
}

// newLLMProvider returns the completion client, or nil when no key is
// configured.
func newLLMProvider(cfg *config.Config) llm.LLMProvider {
	p, err := llm.NewChatClient(cfg.LLM.OpenAIKey,
		llm.WithBaseURL(cfg.LLM.BaseURL),
		llm.WithModel(cfg.LLM.Model),
		llm.WithTimeout(cfg.LLMTimeout()),
	)
	if err != nil {
		return nil
	}
	return p
}

// newAI builds the summarizer and sentiment resolver. Without an API
// key summaries fail and sentiment uses the keyword heuristic.
func newAI(cfg *config.Config, logger *slog.Logger) (*ai.Summarizer, *ai.SentimentResolver) {
	provider := newLLMProvider(cfg)
	if provider == nil {
		logger.Warn("no OpenAI API key configured; summaries are unavailable and sentiment uses keyword scoring")
	}
	return ai.NewSummarizer(provider, cfg.LLM.Model), ai.NewSentimentResolver(provider, cfg.LLM.Model, logger)
}

const cacheCleanupInterval = time.Minute

// newCache returns the trending cache for the configured backend and a
// function releasing it.
func newCache(cfg *config.Config) (infra.Cache, func()) {
	if cfg.Cache.Backend == "redis" {
		c := infra.NewRedisCache(cfg.Cache.RedisAddr, "smartreviewer:")
		return c, func() { c.Close() }
	}
	c := infra.NewMemoryCache()
	return c, c.StartCleanup(cacheCleanupInterval)
}

// newNewsSource returns the configured news source wrapped in the
// trending cache.
func newNewsSource(cfg *config.Config, logger *slog.Logger) (datasource.Searcher, func(), error) {
	var src datasource.Searcher
	switch cfg.News.Provider {
	case "gnews":
		src = datasource.NewGNews(cfg.News.GNewsKey,
			datasource.WithGNewsBaseURL(cfg.News.BaseURL),
			datasource.WithGNewsLocale(cfg.News.Lang, cfg.News.Country),
			datasource.WithGNewsRateLimit(cfg.News.RatePerSec),
		)
	case "rss":
		src = datasource.NewFeed(cfg.News.Feeds)
	default:
		return nil, nil, fmt.Errorf("unknown news provider %q", cfg.News.Provider)
	}

	cache, closeCache := newCache(cfg)
	return datasource.NewCached(src, cache, cfg.TrendingTTL(), logger), closeCache, nil
}

// check is one connectivity probe reported by the status command.
type check struct {
	Name string
	Err  error
}

// runChecks probes the LLM endpoint, the store and, for Redis, the cache.
func runChecks(ctx context.Context, cfg *config.Config) []check {
	var checks []check

	if p := newLLMProvider(cfg); p != nil {
		checks = append(checks, check{"LLM endpoint", p.Ping(ctx)})
	} else {
		checks = append(checks, check{"LLM endpoint", llm.ErrNoAPIKey})
	}

	_, err := store.NewClient(cfg.Store.BaseURL).List(ctx)
	checks = append(checks, check{"Store API", err})

	if cfg.Cache.Backend == "redis" {
		c := infra.NewRedisCache(cfg.Cache.RedisAddr, "smartreviewer:")
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		checks = append(checks, check{"Redis cache", c.Ping(pingCtx)})
		cancel()
		c.Close()
	}
	return checks
}
