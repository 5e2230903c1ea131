// Package analyzer turns a search result into a persisted analyzed
// article: it summarizes and classifies the article concurrently, then
// stores the merged record.
package analyzer

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/smartreviewer/pkg/models"
)

// Summarizer produces a short summary of article text.
type Summarizer interface {
	Summarize(ctx context.Context, content string) (string, error)
}

// SentimentResolver classifies text. It never fails.
type SentimentResolver interface {
	Resolve(ctx context.Context, text string) models.SentimentResult
}

// Store persists analyzed articles.
type Store interface {
	Create(ctx context.Context, article models.AnalyzedArticle) error
}

// Analyzer composes summary, sentiment and persistence.
type Analyzer struct {
	summarizer Summarizer
	resolver   SentimentResolver
	store      Store
	logger     *slog.Logger
	now        func() time.Time
}

// New creates an Analyzer. A nil store skips persistence.
func New(summarizer Summarizer, resolver SentimentResolver, store Store, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		summarizer: summarizer,
		resolver:   resolver,
		store:      store,
		logger:     logger,
		now:        time.Now,
	}
}

// Analyze summarizes and classifies article in parallel, waits for
// both, builds the record and stores it. A summary failure aborts the
// analysis and nothing is stored.
func (a *Analyzer) Analyze(ctx context.Context, article models.SearchResultArticle) (*models.AnalyzedArticle, error) {
	var (
		summary string
		result  models.SentimentResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = a.summarizer.Summarize(gctx, article.AnalysisText())
		return err
	})
	g.Go(func() error {
		result = a.resolver.Resolve(gctx, article.SentimentText())
		return nil
	})
	if err := g.Wait(); err != nil {
		a.logger.Error("analysis failed", "url", article.URL, "error", err)
		return nil, err
	}

	record := models.NewAnalyzedArticle(article, summary, result, a.now().UTC())

	if a.store != nil {
		if err := a.store.Create(ctx, record); err != nil {
			a.logger.Error("persisting analyzed article failed", "url", article.URL, "error", err)
			return nil, err
		}
	}

	a.logger.Info("article analyzed",
		"url", article.URL,
		"sentiment", result.Sentiment,
		"score", result.Score,
	)
	return &record, nil
}
