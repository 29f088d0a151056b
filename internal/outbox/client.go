package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/motoclube/roleplanner/internal/domain"
)

// BatchRequest is the body of POST {base}/sync/batch.
type BatchRequest struct {
	Operations []domain.SyncOperation `json:"operations"`
}

// BatchResponse is the receiver's reply to an accepted batch.
type BatchResponse struct {
	Accepted int `json:"accepted"`
}

// Client pushes batches to the remote sync receiver.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// NewClient returns a Client for baseURL. A nil httpClient uses
// http.DefaultClient; callers bound each push with a context deadline.
func NewClient(baseURL string, tokens TokenSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: httpClient,
	}
}

// BaseURL returns the receiver's base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Push submits batch as one request. Any transport error or non-2xx response
// is returned wrapped in domain.ErrSyncFailure.
func (c *Client) Push(ctx context.Context, batch []domain.SyncOperation) (BatchResponse, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return BatchResponse{}, fmt.Errorf("outbox.Client.Push: %w: %v", domain.ErrSyncFailure, err)
	}

	body, err := json.Marshal(BatchRequest{Operations: batch})
	if err != nil {
		return BatchResponse{}, fmt.Errorf("outbox.Client.Push: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sync/batch", bytes.NewReader(body))
	if err != nil {
		return BatchResponse{}, fmt.Errorf("outbox.Client.Push: %w: %v", domain.ErrSyncFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return BatchResponse{}, fmt.Errorf("outbox.Client.Push: %w: %v", domain.ErrSyncFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return BatchResponse{}, fmt.Errorf("outbox.Client.Push: %w: status %d: %s",
			domain.ErrSyncFailure, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out BatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return BatchResponse{}, fmt.Errorf("outbox.Client.Push: %w: decode: %v", domain.ErrSyncFailure, err)
	}
	return out, nil
}

// Ping reports whether the receiver's health endpoint answers 2xx.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health check: status %d", resp.StatusCode)
	}
	return nil
}
