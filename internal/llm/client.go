package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-3.5-turbo"
	defaultTimeout = 60 * time.Second

	// maxErrorBody bounds how much of a failed response is kept for the error.
	maxErrorBody = 4096
)

// ChatClient talks to a chat-completions endpoint with bearer auth.
type ChatClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// ChatOption configures a ChatClient.
type ChatOption func(*ChatClient)

// WithBaseURL points the client at another OpenAI-compatible endpoint.
func WithBaseURL(url string) ChatOption {
	return func(c *ChatClient) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithModel sets the model used when a request does not name one.
func WithModel(model string) ChatOption {
	return func(c *ChatClient) { c.model = model }
}

func WithHTTPClient(client *http.Client) ChatOption {
	return func(c *ChatClient) { c.client = client }
}

// WithTimeout replaces the HTTP client with one using timeout d. Zero
// means no timeout.
func WithTimeout(d time.Duration) ChatOption {
	return func(c *ChatClient) { c.client = &http.Client{Timeout: d} }
}

// NewChatClient returns ErrNoAPIKey when apiKey is empty.
func NewChatClient(apiKey string, opts ...ChatOption) (*ChatClient, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	c := &ChatClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *ChatClient) Name() string { return ProviderOpenAI }

// Ping lists models, which fails fast on a bad key.
func (c *ChatClient) Ping(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: invalid API key", ErrNoAPIKey)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: status %d", ErrProviderDown, resp.StatusCode)
	}
	return nil
}

// Chat posts one completion request and returns the first choice. Any
// 2xx status is accepted. The call is made once. A reply without
// choices, or whose first choice lacks message content, fails with
// ErrEmptyResponse.
func (c *ChatClient) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()

	body, err := json.Marshal(c.newRequest(messages, opts))
	if err != nil {
		return nil, fmt.Errorf("llm: encode completion request: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, "/chat/completions", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp)
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("llm: decode completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrEmptyResponse)
	}

	first := out.Choices[0]
	if first.Message == nil || first.Message.Content == nil {
		return nil, fmt.Errorf("%w: first choice has no message content", ErrEmptyResponse)
	}
	return &Response{
		Content:      *first.Message.Content,
		FinishReason: mapFinishReason(first.FinishReason),
		Model:        out.Model,
		Provider:     ProviderOpenAI,
		Latency:      time.Since(start),
		Usage:        Usage(out.Usage),
	}, nil
}

// send performs an authenticated request. Transport failures wrap
// ErrProviderDown.
func (c *ChatClient) send(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	return resp, nil
}

func (c *ChatClient) newRequest(messages []Message, opts *ChatOptions) completionRequest {
	req := completionRequest{
		Model:    c.model,
		Messages: toWireMessages(messages),
	}
	if opts == nil {
		return req
	}
	if opts.Model != "" {
		req.Model = opts.Model
	}
	if opts.Temperature > 0 {
		t := opts.Temperature
		req.Temperature = &t
	}
	if opts.MaxTokens > 0 {
		n := opts.MaxTokens
		req.MaxTokens = &n
	}
	req.Stop = opts.Stop
	return req
}

// statusError maps a non-2xx completion response onto the package sentinels
// when the body carries a recognizable API error.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body apiErrorBody
	if json.Unmarshal(raw, &body) != nil || body.Error.Message == "" {
		return fmt.Errorf("llm: HTTP %d: %s", resp.StatusCode, string(raw))
	}

	msg := body.Error.Message
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrNoAPIKey, msg)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimit, msg)
	case resp.StatusCode == http.StatusBadRequest && strings.Contains(body.Error.Code, "context_length"):
		return fmt.Errorf("%w: %s", ErrContextLength, msg)
	case resp.StatusCode == http.StatusBadRequest && strings.Contains(body.Error.Code, "model_not_found"):
		return fmt.Errorf("%w: %s", ErrInvalidModel, msg)
	}
	return fmt.Errorf("llm: completion failed (%d): %s", resp.StatusCode, msg)
}

// Wire format.

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []completionChoice `json:"choices"`
	Usage   wireUsage          `json:"usage"`
}

type completionChoice struct {
	Index        int            `json:"index"`
	Message      *choiceMessage `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

// choiceMessage keeps content nullable so a missing or null content is
// distinguishable from an empty string.
type choiceMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func toWireMessages(messages []Message) []wireMessage {
	out := make([]wireMessage, len(messages))
	for i, m := range messages {
		out[i] = wireMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

func mapFinishReason(reason string) FinishReason {
	switch reason {
	case "stop":
		return FinishStop
	case "length":
		return FinishLength
	default:
		return FinishReason(reason)
	}
}
