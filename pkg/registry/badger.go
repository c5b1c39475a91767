package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
)

// Key layout: client:{identity} -> JSON(Client)
const prefixClient = "client:"

// BadgerStore persists records in BadgerDB so they survive restarts.
//
// Touch runs inside db.Update; badger's optimistic concurrency rejects a
// conflicting concurrent update with ErrConflict, in which case the
// transaction is retried.
type BadgerStore struct {
	db *badgerdb.DB
}

// OpenBadgerStore opens (or creates) a store at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	if path == "" {
		return nil, errors.New("badger registry requires a path")
	}
	return openBadger(badgerdb.DefaultOptions(path))
}

// OpenInMemoryBadgerStore opens a store with no on-disk footprint.
func OpenInMemoryBadgerStore() (*BadgerStore, error) {
	return openBadger(badgerdb.DefaultOptions("").WithInMemory(true))
}

func openBadger(opts badgerdb.Options) (*BadgerStore, error) {
	db, err := badgerdb.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger registry: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func clientKey(identity string) []byte {
	return []byte(prefixClient + identity)
}

const maxTouchRetries = 5

func (s *BadgerStore) Touch(ctx context.Context, identity, remoteAddr string, at time.Time) (*Client, error) {
	var result *Client
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		err := s.db.Update(func(txn *badgerdb.Txn) error {
			existing, err := getClientTx(txn, identity)
			if err != nil && !errors.Is(err, ErrClientNotFound) {
				return err
			}

			c := touchClient(existing, identity, remoteAddr, at)
			data, err := json.Marshal(c)
			if err != nil {
				return fmt.Errorf("failed to marshal client: %w", err)
			}
			if err := txn.Set(clientKey(identity), data); err != nil {
				return err
			}
			result = c
			return nil
		})
		if errors.Is(err, badgerdb.ErrConflict) && attempt < maxTouchRetries {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}

func getClientTx(txn *badgerdb.Txn, identity string) (*Client, error) {
	item, err := txn.Get(clientKey(identity))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}

	c := &Client{}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, c)
	}); err != nil {
		return nil, fmt.Errorf("failed to decode client %q: %w", identity, err)
	}
	return c, nil
}

func (s *BadgerStore) Get(ctx context.Context, identity string) (*Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var c *Client
	err := s.db.View(func(txn *badgerdb.Txn) error {
		var err error
		c, err = getClientTx(txn, identity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *BadgerStore) List(ctx context.Context) ([]*Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result []*Client
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(prefixClient)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				c := &Client{}
				if err := json.Unmarshal(val, c); err != nil {
					return err
				}
				result = append(result, c)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortClients(result)
	return result, nil
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
