// Package store persists analyzed articles. Client talks to the
// analyzed-articles HTTP resource; Repository is the SQL backend that
// serves it.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/seenimoa/smartreviewer/pkg/models"
)

// --- Sentinel errors ---

var (
	// ErrStorePersist is returned when an article could not be saved.
	ErrStorePersist = errors.New("failed to save analyzed article")
	// ErrStoreFetch is returned when the article list could not be loaded.
	ErrStoreFetch = errors.New("failed to fetch analyzed articles")
	// ErrStoreDelete is returned when an article could not be deleted.
	ErrStoreDelete = errors.New("failed to delete analyzed article")
)

// Client is an HTTP client for the analyzed-articles resource.
type Client struct {
	baseURL string
	client  *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.client = c }
}

// NewClient creates a client rooted at baseURL, e.g. http://localhost:3001/api.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create saves an article. The body carries every field except id,
// which the store assigns.
func (c *Client) Create(ctx context.Context, article models.AnalyzedArticle) error {
	article.ID = ""
	data, err := json.Marshal(article)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorePersist, err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.collectionURL(), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorePersist, err)
	}
	resp.Body.Close()
	return nil
}

// List returns every stored record in the order the store sends them.
func (c *Client) List(ctx context.Context) ([]Record, error) {
	resp, err := c.do(ctx, http.MethodGet, c.collectionURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFetch, err)
	}
	defer resp.Body.Close()

	var records []Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrStoreFetch, err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// Delete removes the record with the given id.
func (c *Client) Delete(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, c.collectionURL()+"/"+url.PathEscape(id), nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreDelete, err)
	}
	resp.Body.Close()
	return nil
}

func (c *Client) collectionURL() string {
	return c.baseURL + "/analyzed-articles"
}

// do sends a request and returns the response when the status is 2xx.
func (c *Client) do(ctx context.Context, method, u string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	return resp, nil
}

// StatusError reports a non-2xx answer from the store.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("store responded %d", e.StatusCode)
	}
	return fmt.Sprintf("store responded %d: %s", e.StatusCode, e.Body)
}
