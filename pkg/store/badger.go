package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/arc20-me/realm-stack/pkg/logging"
)

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
	}
	return path
}

// maxRetries is the number of times to retry a transaction on conflict
const maxRetries = 10

// BadgerConfig holds Badger-specific configuration
type BadgerConfig struct {
	Path     string `mapstructure:"path"`      // Path to database directory
	InMemory bool   `mapstructure:"in_memory"` // Use in-memory storage
}

// BadgerStore implements Store using BadgerDB
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
}

// update wraps db.Update with retry logic for transaction conflicts.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	for i := 0; i < maxRetries; i++ {
		err := s.db.Update(fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return err
	}
	return badger.ErrConflict
}

// NewBadgerStore opens a BadgerDB-backed Store from config.
func NewBadgerStore(cfg *BadgerConfig, logger *slog.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	path := ExpandPath(cfg.Path)

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if path == "" {
			return nil, fmt.Errorf("path required for disk-based storage")
		}
		opts = badger.DefaultOptions(path)
	}

	opts = opts.WithLogger(&logging.BadgerLogger{Logger: logger})

	logger.Info("opening BadgerDB", "path", path, "inMemory", cfg.InMemory)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	return &BadgerStore{
		db:     db,
		logger: logger,
	}, nil
}

func (s *BadgerStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *BadgerStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = bytes.Clone(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	return value, err
}

func (s *BadgerStore) Has(ctx context.Context, key []byte) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *BadgerStore) Set(ctx context.Context, key, value []byte, ttl time.Duration) error {
	return s.update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key, value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

func (s *BadgerStore) Del(ctx context.Context, key []byte) error {
	return s.update(func(txn *badger.Txn) error {
		err := txn.Delete(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}
