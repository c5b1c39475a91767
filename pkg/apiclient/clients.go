package apiclient

import (
	"context"
	"net/url"
	"time"

	"github.com/marmos91/dittobox/internal/cli/health"
)

// ClientInfo is a registry record returned by the API.
type ClientInfo struct {
	Identity    string    `json:"identity" yaml:"identity"`
	FirstSeen   time.Time `json:"first_seen" yaml:"first_seen"`
	LastSeen    time.Time `json:"last_seen" yaml:"last_seen"`
	LastAddress string    `json:"last_address" yaml:"last_address"`
	Sessions    int64     `json:"sessions" yaml:"sessions"`
}

// SessionInfo is a live session returned by the API.
type SessionInfo struct {
	ID         string    `json:"id" yaml:"id"`
	RemoteAddr string    `json:"remote_addr" yaml:"remote_addr"`
	Identity   string    `json:"identity,omitempty" yaml:"identity,omitempty"`
	State      string    `json:"state" yaml:"state"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	Commands   int64     `json:"commands" yaml:"commands"`
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*health.Response, error) {
	var resp health.Response
	if err := c.get(ctx, "/health", &resp.Data); err != nil {
		return nil, err
	}
	// Liveness only ever answers 200 when healthy.
	resp.Status = "healthy"
	return &resp, nil
}

// Ready calls GET /health/ready and returns nil once the server accepts
// connections.
func (c *Client) Ready(ctx context.Context) error {
	return c.get(ctx, "/health/ready", nil)
}

// ListClients returns every identity the server has seen.
func (c *Client) ListClients(ctx context.Context) ([]ClientInfo, error) {
	var clients []ClientInfo
	if err := c.get(ctx, "/api/v1/clients", &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// GetClient returns one registry record.
func (c *Client) GetClient(ctx context.Context, identity string) (*ClientInfo, error) {
	var client ClientInfo
	if err := c.get(ctx, "/api/v1/clients/"+url.PathEscape(identity), &client); err != nil {
		return nil, err
	}
	return &client, nil
}

// ListSessions returns the live sessions.
func (c *Client) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	var sessions []SessionInfo
	if err := c.get(ctx, "/api/v1/sessions", &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// CloseSession disconnects one session.
func (c *Client) CloseSession(ctx context.Context, id string) error {
	return c.delete(ctx, "/api/v1/sessions/"+url.PathEscape(id), nil)
}
