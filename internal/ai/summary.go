package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/seenimoa/smartreviewer/internal/llm"
)

// ErrSummaryGeneration is returned when the completion endpoint could
// not produce a summary. The underlying cause is wrapped.
var ErrSummaryGeneration = errors.New("failed to generate summary")

// Summarizer requests short abstractive summaries.
type Summarizer struct {
	provider llm.LLMProvider
	model    string
}

// NewSummarizer creates a summarizer. A nil provider makes every call
// fail with ErrSummaryGeneration. An empty model uses the provider default.
func NewSummarizer(provider llm.LLMProvider, model string) *Summarizer {
	return &Summarizer{provider: provider, model: model}
}

// Summarize returns the model's summary of content with leading and
// trailing whitespace removed. Content is sent as-is.
func (s *Summarizer) Summarize(ctx context.Context, content string) (string, error) {
	if s.provider == nil {
		return "", fmt.Errorf("%w: %w", ErrSummaryGeneration, llm.ErrNoAPIKey)
	}

	resp, err := s.provider.Chat(ctx, []llm.Message{
		llm.SystemMessage(summarySystemPrompt),
		llm.UserMessage(summaryUserPrompt + content),
	}, &llm.ChatOptions{
		Model:       s.model,
		MaxTokens:   summaryMaxTokens,
		Temperature: summaryTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSummaryGeneration, err)
	}

	return strings.TrimSpace(resp.Content), nil
}
