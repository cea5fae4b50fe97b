package store

import (
	"bytes"
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore implements Store in process memory.
// Keys are lost on restart; it suits the short-lived response cache.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore creates an in-memory store that sweeps expired keys every cleanup interval.
func NewMemoryStore(cleanup time.Duration) *MemoryStore {
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &MemoryStore{cache: cache.New(cache.NoExpiration, cleanup)}
}

func (s *MemoryStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	v, ok := s.cache.Get(string(key))
	if !ok {
		return nil, ErrKeyNotFound
	}
	return bytes.Clone(v.([]byte)), nil
}

func (s *MemoryStore) Has(ctx context.Context, key []byte) (bool, error) {
	_, ok := s.cache.Get(string(key))
	return ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value []byte, ttl time.Duration) error {
	d := cache.NoExpiration
	if ttl > 0 {
		d = ttl
	}
	s.cache.Set(string(key), bytes.Clone(value), d)
	return nil
}

func (s *MemoryStore) Del(ctx context.Context, key []byte) error {
	s.cache.Delete(string(key))
	return nil
}

func (s *MemoryStore) Close() error {
	s.cache.Flush()
	return nil
}
