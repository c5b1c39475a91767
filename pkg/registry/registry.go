// Package registry remembers the client identities that have connected to
// the server: when they were first and last seen, from where, and how many
// sessions they opened. It backs the admin API's client listing.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/marmos91/dittobox/pkg/metrics"
)

// ErrClientNotFound is returned by Get for identities never seen.
var ErrClientNotFound = errors.New("client not found")

// Client is what the registry knows about one identity.
type Client struct {
	Identity    string    `json:"identity" yaml:"identity"`
	FirstSeen   time.Time `json:"first_seen" yaml:"first_seen"`
	LastSeen    time.Time `json:"last_seen" yaml:"last_seen"`
	LastAddress string    `json:"last_address" yaml:"last_address"`
	Sessions    int64     `json:"sessions" yaml:"sessions"`
}

// Store persists Client records.
//
// Implementations must be safe for concurrent use: every session calls
// Touch from its own goroutine.
type Store interface {
	// Touch records a session start for identity, creating the record on
	// first contact, and returns the updated record.
	Touch(ctx context.Context, identity, remoteAddr string, at time.Time) (*Client, error)

	// Get returns the record for identity or ErrClientNotFound.
	Get(ctx context.Context, identity string) (*Client, error)

	// List returns every record sorted by identity.
	List(ctx context.Context) ([]*Client, error)

	// Close releases resources held by the store.
	Close() error
}

// Store types accepted by New.
const (
	TypeMemory   = "memory"
	TypeBadger   = "badger"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Config selects and configures a Store.
type Config struct {
	// Type is "memory", "badger", "sqlite" or "postgres".
	Type string `mapstructure:"type" validate:"omitempty,oneof=memory badger sqlite postgres" yaml:"type"`

	// Path is the badger data directory or the SQLite database file.
	Path string `mapstructure:"path" yaml:"path,omitempty"`

	// Postgres is used when Type is "postgres".
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres,omitempty"`
}

// New opens the store described by cfg. m may be nil.
func New(cfg Config, m metrics.RegistryMetrics) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(cfg.Type) {
	case "", TypeMemory:
		s = NewMemoryStore()
		cfg.Type = TypeMemory
	case TypeBadger:
		s, err = OpenBadgerStore(cfg.Path)
	case TypeSQLite:
		s, err = OpenSQLiteStore(cfg.Path)
	case TypePostgres:
		s, err = OpenPostgresStore(cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown registry type %q (valid: memory, badger, sqlite, postgres)", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	if m == nil {
		return s, nil
	}
	return &instrumented{Store: s, name: strings.ToLower(cfg.Type), metrics: m}, nil
}

// touchClient applies one Touch to an existing record, or creates it.
func touchClient(c *Client, identity, remoteAddr string, at time.Time) *Client {
	if c == nil {
		c = &Client{Identity: identity, FirstSeen: at}
	}
	c.LastSeen = at
	c.LastAddress = remoteAddr
	c.Sessions++
	return c
}

func sortClients(clients []*Client) {
	sort.Slice(clients, func(i, j int) bool { return clients[i].Identity < clients[j].Identity })
}

// instrumented reports operation latency and errors to RegistryMetrics.
type instrumented struct {
	Store
	name    string
	metrics metrics.RegistryMetrics
}

func (s *instrumented) Touch(ctx context.Context, identity, remoteAddr string, at time.Time) (*Client, error) {
	start := time.Now()
	c, err := s.Store.Touch(ctx, identity, remoteAddr, at)
	s.metrics.RecordRegistryOperation(s.name, "touch", time.Since(start), err)
	if err == nil && c.Sessions == 1 {
		if all, lerr := s.Store.List(ctx); lerr == nil {
			s.metrics.SetKnownClients(s.name, len(all))
		}
	}
	return c, err
}

func (s *instrumented) Get(ctx context.Context, identity string) (*Client, error) {
	start := time.Now()
	c, err := s.Store.Get(ctx, identity)
	var opErr error
	if err != nil && !errors.Is(err, ErrClientNotFound) {
		opErr = err
	}
	s.metrics.RecordRegistryOperation(s.name, "get", time.Since(start), opErr)
	return c, err
}

func (s *instrumented) List(ctx context.Context) ([]*Client, error) {
	start := time.Now()
	all, err := s.Store.List(ctx)
	s.metrics.RecordRegistryOperation(s.name, "list", time.Since(start), err)
	if err == nil {
		s.metrics.SetKnownClients(s.name, len(all))
	}
	return all, err
}
