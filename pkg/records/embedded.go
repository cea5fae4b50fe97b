package records

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/arc20-me/realm-stack/pkg/store"
)

const keyPrefix = "realm:"

var nullJSON = json.RawMessage("null")

// EmbeddedRepository stores records as JSON in a key/value store.
// Writes are serialized in-process so Create keeps insert-if-absent semantics.
type EmbeddedRepository struct {
	kv store.Store
	mu sync.Mutex
}

func NewEmbeddedRepository(kv store.Store) *EmbeddedRepository {
	return &EmbeddedRepository{kv: kv}
}

func recordKey(realm string) []byte {
	return []byte(keyPrefix + realm)
}

func (r *EmbeddedRepository) Get(ctx context.Context, realm string) (*Record, error) {
	raw, err := r.kv.Get(ctx, recordKey(realm))
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *EmbeddedRepository) Exists(ctx context.Context, realm string) (bool, error) {
	return r.kv.Has(ctx, recordKey(realm))
}

func (r *EmbeddedRepository) Create(ctx context.Context, rec *Record) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.kv.Has(ctx, recordKey(rec.RealmName))
	if err != nil || exists {
		return false, err
	}
	if err := r.put(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}

func (r *EmbeddedRepository) Update(ctx context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.Get(ctx, rec.RealmName)
	if err != nil {
		return err
	}
	current.OwnerAddress = rec.OwnerAddress
	current.AvatarURL = rec.AvatarURL
	current.BannerURL = rec.BannerURL
	current.Meta = rec.Meta
	current.Profile = rec.Profile
	return r.put(ctx, current)
}

func (r *EmbeddedRepository) put(ctx context.Context, rec *Record) error {
	stored := *rec
	if len(stored.Meta) == 0 {
		stored.Meta = nullJSON
	}
	if len(stored.Profile) == 0 {
		stored.Profile = nullJSON
	}
	raw, err := json.Marshal(&stored)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, recordKey(rec.RealmName), raw, 0)
}

// Close closes the underlying store.
func (r *EmbeddedRepository) Close() error {
	return r.kv.Close()
}
