package store

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned when a key doesn't exist or has expired
var ErrKeyNotFound = errors.New("key not found")

// Store is a byte-oriented key/value store with optional per-key expiry.
// It backs the response cache, the proxy cache, and the embedded blob and record providers.
type Store interface {
	// Get returns ErrKeyNotFound for missing or expired keys.
	Get(ctx context.Context, key []byte) ([]byte, error)
	// Has reports whether key exists without reading its value.
	Has(ctx context.Context, key []byte) (bool, error)
	// Set stores value under key. A ttl of 0 never expires.
	Set(ctx context.Context, key, value []byte, ttl time.Duration) error
	// Del removes key. Deleting a missing key is not an error.
	Del(ctx context.Context, key []byte) error

	Close() error
}

// Prefixed namespaces every key of an underlying store.
type Prefixed struct {
	Store
	prefix []byte
}

// WithPrefix returns a view of s whose keys are all prefixed.
func WithPrefix(s Store, prefix string) *Prefixed {
	return &Prefixed{Store: s, prefix: []byte(prefix)}
}

func (p *Prefixed) key(k []byte) []byte {
	buf := make([]byte, len(p.prefix)+len(k))
	copy(buf, p.prefix)
	copy(buf[len(p.prefix):], k)
	return buf
}

func (p *Prefixed) Get(ctx context.Context, key []byte) ([]byte, error) {
	return p.Store.Get(ctx, p.key(key))
}

func (p *Prefixed) Has(ctx context.Context, key []byte) (bool, error) {
	return p.Store.Has(ctx, p.key(key))
}

func (p *Prefixed) Set(ctx context.Context, key, value []byte, ttl time.Duration) error {
	return p.Store.Set(ctx, p.key(key), value, ttl)
}

func (p *Prefixed) Del(ctx context.Context, key []byte) error {
	return p.Store.Del(ctx, p.key(key))
}
