package blob

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/arc20-me/realm-stack/pkg/store"
)

// EmbeddedStorage keeps objects in a key/value store.
// Each value is the uvarint length of the content type, the content type, then the data.
type EmbeddedStorage struct {
	kv store.Store
}

// NewEmbeddedStorage creates object storage on top of kv.
func NewEmbeddedStorage(kv store.Store) *EmbeddedStorage {
	return &EmbeddedStorage{kv: kv}
}

func (s *EmbeddedStorage) Exists(ctx context.Context, key string) (bool, error) {
	return s.kv.Has(ctx, []byte(key))
}

func (s *EmbeddedStorage) Put(ctx context.Context, key string, obj *Object) error {
	buf := binary.AppendUvarint(nil, uint64(len(obj.ContentType)))
	buf = append(buf, obj.ContentType...)
	buf = append(buf, obj.Data...)
	return s.kv.Set(ctx, []byte(key), buf, 0)
}

func (s *EmbeddedStorage) Get(ctx context.Context, key string) (*Object, error) {
	raw, err := s.kv.Get(ctx, []byte(key))
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	n, size := binary.Uvarint(raw)
	if size <= 0 || uint64(len(raw)-size) < n {
		return nil, fmt.Errorf("corrupt object %s", key)
	}
	ctEnd := size + int(n)
	return &Object{
		ContentType: string(raw[size:ctEnd]),
		Data:        raw[ctEnd:],
	}, nil
}

// Close closes the underlying store.
func (s *EmbeddedStorage) Close() error {
	return s.kv.Close()
}
