package registry

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in a map. Contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{clients: make(map[string]*Client)}
}

func (s *MemoryStore) Touch(ctx context.Context, identity, remoteAddr string, at time.Time) (*Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := touchClient(s.clients[identity], identity, remoteAddr, at)
	s.clients[identity] = c
	out := *c
	return &out, nil
}

func (s *MemoryStore) Get(ctx context.Context, identity string) (*Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[identity]
	if !ok {
		return nil, ErrClientNotFound
	}
	out := *c
	return &out, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		cp := *c
		out = append(out, &cp)
	}
	s.mu.RUnlock()

	sortClients(out)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
