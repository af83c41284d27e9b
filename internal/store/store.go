// Package store is the BadgerDB-backed cache of the server: the last good
// catalog snapshot and image probes keyed by URL.
package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/katalogpart/katalog-server/internal/domain"
)

const (
	snapshotKey = "catalog:snapshot"
	probePrefix = "probe:"

	// Probes are refreshed eventually so replaced images pick up new sizes.
	probeTTL = 7 * 24 * time.Hour
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	Probes *Entity[domain.ImageProbe]
}

// New opens the database at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	return open(opts, logger)
}

// NewInMemory opens a throwaway in-memory database.
func NewInMemory(logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	return open(opts, logger)
}

func open(opts badger.Options, logger *slog.Logger) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{db: db, logger: logger}

	// Initialize generic entities
	s.Probes = NewEntity[domain.ImageProbe](s, probePrefix).WithTTL(probeTTL)

	if logger != nil {
		logger.Info("cache opened", "path", opts.Dir, "in_memory", opts.InMemory)
	}
	return s, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("closing cache")
	}
	return s.db.Close()
}

// SaveSnapshot replaces the stored catalog snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, c *domain.Catalog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.set([]byte(snapshotKey), c); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the stored catalog snapshot, or ErrNotFound.
func (s *Store) LoadSnapshot(ctx context.Context) (*domain.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var c domain.Catalog
	err := s.get([]byte(snapshotKey), &c)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if c.Parts == nil {
		c.Parts = domain.PartMap{}
	}
	return &c, nil
}

// RunGC runs value log garbage collection until nothing is rewritten or ctx ends.
func (s *Store) RunGC(ctx context.Context) {
	for ctx.Err() == nil {
		if err := s.db.RunValueLogGC(0.5); err != nil {
			return
		}
	}
}

func (s *Store) get(key []byte, dest any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
}

func (s *Store) set(key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}
