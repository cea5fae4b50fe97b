// Package assets re-hosts resolved media in content-addressed blob storage.
//
// On-chain references are stored under images/{id}. External URLs are stored under
// images/{blake3(url)}; the key is derived from the URL string, so the same bytes served
// from two URLs are stored twice. URLs already on the public media domain pass through.
package assets

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/arc20-me/realm-stack/pkg/blob"
	"github.com/arc20-me/realm-stack/pkg/media"
	"github.com/arc20-me/realm-stack/pkg/urn"
	"github.com/arc20-me/realm-stack/pkg/worker"
)

// KeyPrefix is the object key prefix for stored media.
const KeyPrefix = "images/"

// Asset is a materialized media reference.
type Asset struct {
	URL  string // Public URL, or the original URL when it could not be re-hosted
	Data string // data: URI of freshly resolved on-chain media, when inlining is enabled
	Hash string // URL hash, set only for re-hosted external URLs
}

// Resolver produces media payloads.
type Resolver interface {
	Resolve(ctx context.Context, ref urn.URN) (*media.Resolved, error)
	Fetch(ctx context.Context, url string) (*media.Resolved, error)
}

// Options configures a Materializer.
type Options struct {
	PublicBase string
	Inline     bool
}

// Materializer turns media references into public URLs.
type Materializer struct {
	storage    blob.Storage
	resolver   Resolver
	pool       *worker.Pool
	publicBase string
	publicHost string
	inline     bool
	logger     *slog.Logger
}

// NewMaterializer creates a materializer. Writes are scheduled on pool; a nil pool writes inline.
func NewMaterializer(storage blob.Storage, resolver Resolver, pool *worker.Pool, opts Options, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PublicBase == "" {
		opts.PublicBase = media.DefaultPublicBase
	}
	host := ""
	if u, err := url.Parse(opts.PublicBase); err == nil {
		host = strings.ToLower(u.Hostname())
	}
	return &Materializer{
		storage:    storage,
		resolver:   resolver,
		pool:       pool,
		publicBase: opts.PublicBase,
		publicHost: host,
		inline:     opts.Inline,
		logger:     logger,
	}
}

// ObjectKey returns the storage key for a content id.
func ObjectKey(id string) string {
	return KeyPrefix + id
}

// URLHash returns the hex BLAKE3 digest of a URL string.
func URLHash(rawURL string) string {
	sum := blake3.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// DataURI encodes an object as a base64 data: URI.
func DataURI(obj *blob.Object) string {
	return "data:" + obj.ContentType + ";base64," + base64.StdEncoding.EncodeToString(obj.Data)
}

// PublicURL returns the public URL for a content id.
func (m *Materializer) PublicURL(id string) string {
	return m.publicBase + id
}

// Materialize resolves ref into an asset. It returns nil when ref is empty,
// is not a recognized reference, or resolves to nothing.
func (m *Materializer) Materialize(ctx context.Context, ref string) *Asset {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}

	if u, ok := httpURL(ref); ok {
		if m.publicHost != "" && strings.ToLower(u.Hostname()) == m.publicHost {
			return &Asset{URL: ref}
		}
		return m.external(ctx, ref)
	}

	parsed := urn.Parse(ref)
	if !parsed.Valid() || parsed.ID == "" {
		m.logger.Debug("unrecognized media reference", "ref", ref)
		return nil
	}
	return m.onChain(ctx, parsed)
}

func (m *Materializer) onChain(ctx context.Context, ref urn.URN) *Asset {
	key := ObjectKey(ref.ID)
	if m.exists(ctx, key) {
		return &Asset{URL: m.PublicURL(ref.ID)}
	}

	res, err := m.resolver.Resolve(ctx, ref)
	if err != nil {
		if errors.Is(err, media.ErrUnsupported) || errors.Is(err, media.ErrNotFound) {
			m.logger.Debug("media not resolved", "ref", ref.String(), "error", err)
		} else {
			m.logger.Warn("media resolution failed", "ref", ref.String(), "error", err)
		}
		return nil
	}
	obj, err := objectOf(res)
	if err != nil {
		m.logger.Warn("invalid media payload", "ref", ref.String(), "error", err)
		return nil
	}

	m.put(ctx, key, obj)

	a := &Asset{URL: m.PublicURL(ref.ID)}
	if m.inline {
		a.Data = DataURI(obj)
	}
	return a
}

func (m *Materializer) external(ctx context.Context, rawURL string) *Asset {
	hash := URLHash(rawURL)
	key := ObjectKey(hash)
	if m.exists(ctx, key) {
		return &Asset{URL: m.PublicURL(hash), Hash: hash}
	}

	res, err := m.resolver.Fetch(ctx, rawURL)
	if err != nil {
		m.logger.Debug("external media not fetched", "url", rawURL, "error", err)
		return &Asset{URL: rawURL}
	}
	obj, err := objectOf(res)
	if err != nil {
		return &Asset{URL: rawURL}
	}

	m.put(ctx, key, obj)
	return &Asset{URL: m.PublicURL(hash), Hash: hash}
}

func (m *Materializer) exists(ctx context.Context, key string) bool {
	ok, err := m.storage.Exists(ctx, key)
	if err != nil {
		m.logger.Warn("blob existence check failed", "key", key, "error", err)
		return false
	}
	return ok
}

// put stores obj in the background. When the pool refuses the task the write runs inline.
func (m *Materializer) put(ctx context.Context, key string, obj *blob.Object) {
	write := func(ctx context.Context) error {
		return m.storage.Put(ctx, key, obj)
	}
	if m.pool != nil && m.pool.Go("blob:"+key, write) {
		return
	}
	if err := write(context.WithoutCancel(ctx)); err != nil {
		m.logger.Warn("blob write failed", "key", key, "error", err)
	}
}

func objectOf(res *media.Resolved) (*blob.Object, error) {
	data, err := res.Data()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, media.ErrNotFound
	}
	return &blob.Object{ContentType: res.MIME(), Data: data}, nil
}

func httpURL(s string) (*url.URL, bool) {
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return nil, false
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return nil, false
	}
	return u, true
}
