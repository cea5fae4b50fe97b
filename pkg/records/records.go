// Package records persists resolved realm documents keyed by realm name.
package records

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned when no record exists for a realm.
var ErrNotFound = errors.New("realm record not found")

// Record is the persisted aggregate for one realm.
type Record struct {
	RealmName     string          `json:"name"`
	RealmID       string          `json:"id,omitempty"`
	RealmNumber   *int64          `json:"number,omitempty"`
	MinterAddress string          `json:"minter,omitempty"`
	OwnerAddress  string          `json:"owner,omitempty"`
	AvatarURL     string          `json:"avatar,omitempty"`
	BannerURL     string          `json:"banner,omitempty"`
	Meta          json.RawMessage `json:"meta"`
	Profile       json.RawMessage `json:"profile"`
}

// Repository is the durable realm store.
type Repository interface {
	Get(ctx context.Context, realm string) (*Record, error)
	Exists(ctx context.Context, realm string) (bool, error)
	// Create inserts rec unless a record with the same name exists.
	// It reports whether a row was written.
	Create(ctx context.Context, rec *Record) (bool, error)
	// Update rewrites the owner, media URLs and serialized documents of an existing record.
	Update(ctx context.Context, rec *Record) error
}
