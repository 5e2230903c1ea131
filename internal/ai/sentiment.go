package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/seenimoa/smartreviewer/internal/analysis/sentiment"
	"github.com/seenimoa/smartreviewer/internal/llm"
	"github.com/seenimoa/smartreviewer/pkg/models"
)

var errUnusableSentiment = errors.New("sentiment reply lacks sentiment or score")

// SentimentResolver classifies text. It asks the completion endpoint
// first and computes the keyword heuristic locally whenever that
// attempt fails, so Resolve never returns an error.
type SentimentResolver struct {
	provider llm.LLMProvider
	model    string
	logger   *slog.Logger
}

// NewSentimentResolver creates a resolver. A nil provider means every
// call uses the local heuristic.
func NewSentimentResolver(provider llm.LLMProvider, model string, logger *slog.Logger) *SentimentResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SentimentResolver{provider: provider, model: model, logger: logger}
}

// Resolve returns the remote classification verbatim when it parses,
// otherwise the deterministic fallback.
func (r *SentimentResolver) Resolve(ctx context.Context, text string) models.SentimentResult {
	result, err := r.classifyRemote(ctx, text)
	if err == nil {
		if !result.Sentiment.IsValid() {
			r.logger.Debug("sentiment: unrecognised label kept as returned", "sentiment", result.Sentiment)
		}
		return result
	}
	r.logger.Warn("sentiment: falling back to keyword heuristic", "error", err)
	return sentiment.Classify(text)
}

func (r *SentimentResolver) classifyRemote(ctx context.Context, text string) (models.SentimentResult, error) {
	if r.provider == nil {
		return models.SentimentResult{}, llm.ErrNoAPIKey
	}

	resp, err := r.provider.Chat(ctx, []llm.Message{
		llm.SystemMessage(sentimentSystemPrompt),
		llm.UserMessage(sentimentUserPrompt + text),
	}, &llm.ChatOptions{
		Model:       r.model,
		MaxTokens:   sentimentMaxTokens,
		Temperature: sentimentTemperature,
	})
	if err != nil {
		return models.SentimentResult{}, err
	}

	return parseSentimentReply(resp.Content)
}

type sentimentReply struct {
	Sentiment *string      `json:"sentiment"`
	Score     *json.Number `json:"score"`
}

// parseSentimentReply decodes {"sentiment": ..., "score": ...}. Values
// are taken as given: no range clamping and no label check. A
// non-integral score is rounded.
func parseSentimentReply(content string) (models.SentimentResult, error) {
	var reply sentimentReply
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &reply); err != nil {
		return models.SentimentResult{}, fmt.Errorf("parse sentiment JSON: %w", err)
	}
	if reply.Sentiment == nil || *reply.Sentiment == "" || reply.Score == nil {
		return models.SentimentResult{}, errUnusableSentiment
	}

	score, err := reply.Score.Int64()
	if err != nil {
		f, ferr := reply.Score.Float64()
		if ferr != nil {
			return models.SentimentResult{}, fmt.Errorf("parse sentiment score: %w", ferr)
		}
		score = int64(math.Round(f))
	}

	return models.SentimentResult{
		Sentiment: models.Sentiment(*reply.Sentiment),
		Score:     int(score),
	}, nil
}

var codeFenceRegex = regexp.MustCompile("(?s)^```(?:json)?\\s*(.+?)\\s*```$")

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRegex.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}
