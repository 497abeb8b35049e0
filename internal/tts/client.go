// Package tts is the client for the optional remote speech-synthesis
// capability. A null audioUrl in the response is a normal outcome and
// means the browser should fall back to local synthesis.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client for the capability at baseURL. A non-positive
// timeout falls back to the default; requests are never unbounded.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a remote capability is configured at all.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

type Request struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice,omitempty"`
	Speed float64 `json:"speed,omitempty"`
}

type Response struct {
	AudioURL *string `json:"audioUrl"`
}

// Synthesize posts the text to the remote capability. The returned
// AudioURL is nil when the capability declines, which callers pass
// through to the browser unchanged.
func (c *Client) Synthesize(ctx context.Context, req Request) (*Response, error) {
	if !c.Enabled() {
		return &Response{}, nil
	}
	if req.Text == "" {
		return nil, fmt.Errorf("synthesis text is required")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode synthesis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/tts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build synthesis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("synthesis request failed with status %d", resp.StatusCode)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode synthesis response: %w", err)
	}
	return &out, nil
}
