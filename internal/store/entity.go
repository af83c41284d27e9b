package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Entity provides keyed JSON storage for one value type under a key prefix.
type Entity[T any] struct {
	store  *Store
	prefix string
	ttl    time.Duration
}

// NewEntity creates an Entity for type T.
func NewEntity[T any](s *Store, prefix string) *Entity[T] {
	return &Entity[T]{store: s, prefix: prefix}
}

// WithTTL makes every write expire after ttl.
func (e *Entity[T]) WithTTL(ttl time.Duration) *Entity[T] {
	e.ttl = ttl
	return e
}

func (e *Entity[T]) key(id string) []byte {
	return []byte(e.prefix + id)
}

func (e *Entity[T]) entry(id string, data []byte) *badger.Entry {
	entry := badger.NewEntry(e.key(id), data)
	if e.ttl > 0 {
		entry = entry.WithTTL(e.ttl)
	}
	return entry
}

// Create stores a new value. Returns ErrAlreadyExists if the id is taken.
func (e *Entity[T]) Create(ctx context.Context, id string, v *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Marshal the entity
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	// Write to database
	return e.store.db.Update(func(txn *badger.Txn) error {
		// Check if key already exists
		_, err := txn.Get(e.key(id))
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check existing key: %w", err)
		}
		// Set the primary key
		return txn.SetEntry(e.entry(id, data))
	})
}

// Put stores a value, replacing any previous one.
func (e *Entity[T]) Put(ctx context.Context, id string, v *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(e.entry(id, data))
	})
}

// Get retrieves a value by id. Returns ErrNotFound if absent or expired.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var v T
	err := e.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(e.key(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get key: %w", err)
		}

		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &v); err != nil {
				return fmt.Errorf("failed to unmarshal entity: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Delete removes a value.
// This operation is idempotent - it does not return an error if the value does not exist.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(e.key(id))
	})
}

// List returns an iterator over all stored values.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(e.prefix)

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Rewind(); it.Valid(); it.Next() {
				// Check context cancellation
				if ctx.Err() != nil {
					yield(nil, ctx.Err())
					return ctx.Err()
				}

				var v T
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &v)
				})
				if err != nil {
					yield(nil, err)
					return err
				}

				if !yield(&v, nil) {
					return nil // Consumer stopped early
				}
			}
			return nil
		})
	}
}
