// Package apiclient is a client for the DittoBox admin HTTP API.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is the admin API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the API at baseURL, e.g. http://localhost:8080.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// do performs a request and decodes the envelope's data into result.
func (c *Client) do(ctx context.Context, method, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		if decodeErr == nil && env.Error != "" {
			apiErr.Message = env.Error
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, path, result)
}

func (c *Client) delete(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodDelete, path, result)
}
