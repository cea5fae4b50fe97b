// Package blob stores content-addressed media objects.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// Object is a stored media payload.
type Object struct {
	ContentType string
	Data        []byte
}

// Storage is content-addressed object storage. Keys are full object paths such as images/{id}.
// Writing the same key twice with the same content is harmless.
type Storage interface {
	Exists(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string, obj *Object) error
	Get(ctx context.Context, key string) (*Object, error)
}
