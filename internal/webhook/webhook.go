// Package webhook forwards authenticated share payloads to the downstream
// processor that owns bookmark persistence and dedup.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rvilla/marks-front/internal/log"
)

// ErrUnreachable means the downstream call failed at the transport level
// or answered with something other than success. Terminal, user-visible,
// no retry.
var ErrUnreachable = errors.New("downstream processor unreachable")

// Request is the single POST body the processor accepts
type Request struct {
	UserID string `json:"user_id"`
	URL    string `json:"url"`
	Title  string `json:"title"`
	Text   string `json:"text"`
}

// Result carries the processor's dedup signal. Success false means the
// bookmark already existed; that is a normal terminal outcome, not an
// error.
type Result struct {
	Success bool `json:"success"`
}

// Client issues the forward-once call. It carries no retry and no
// idempotency key of its own; idempotency is entirely the processor's
// dedup logic.
type Client struct {
	url        string
	httpClient *http.Client
}

// New creates a webhook client for the given processor URL
func New(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{url: url, httpClient: httpClient}
}

// Forward posts the payload exactly once and interprets the response.
// Non-2xx status or malformed JSON is ErrUnreachable.
func (c *Client) Forward(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding webhook payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building webhook request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUnreachable, err)
	}

	log.LogDebugWithFields("webhook", "Forwarded share payload", map[string]any{
		"user_id": req.UserID,
		"success": result.Success,
	})
	return &result, nil
}
