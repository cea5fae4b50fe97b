// Package media resolves on-chain media references into bytes.
//
// Atomicals references are read from the indexer's mint data, falling back to decoding the
// reveal transaction's witness when the indexer cannot serve the object. Ordinals references
// are fetched from a content endpoint, falling back to the inscription envelope in the reveal
// witness.
package media

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/ipld/go-ipld-prime/datamodel"

	"github.com/arc20-me/realm-stack/pkg/document"
	"github.com/arc20-me/realm-stack/pkg/electrumx"
	"github.com/arc20-me/realm-stack/pkg/urn"
)

var (
	// ErrUnsupported is returned for reference kinds no strategy handles (eth, solana, unknown).
	ErrUnsupported = errors.New("unsupported media reference")
	// ErrNotFound is returned when a strategy ran but found no payload.
	ErrNotFound = errors.New("media not found")
	// ErrTooLarge is returned when a payload exceeds the configured size limit.
	ErrTooLarge = errors.New("media exceeds size limit")
)

// Resolved is a media payload. Exactly one of Bytes or Hex is set.
type Resolved struct {
	Extension   string
	ContentType string
	Bytes       []byte
	Hex         string
}

// Data returns the payload bytes, decoding Hex when needed.
func (r *Resolved) Data() ([]byte, error) {
	if r == nil {
		return nil, ErrNotFound
	}
	if r.Bytes != nil {
		return r.Bytes, nil
	}
	b, err := hex.DecodeString(r.Hex)
	if err != nil {
		return nil, fmt.Errorf("decode hex payload: %w", err)
	}
	return b, nil
}

// MIME returns the payload's content type, derived from the extension when unset.
func (r *Resolved) MIME() string {
	if r.ContentType != "" {
		return r.ContentType
	}
	ext := r.Extension
	if ext == "" {
		ext = document.DefaultExtension
	}
	if t := mime.TypeByExtension("." + ext); t != "" {
		return t
	}
	return "image/" + ext
}

// Querier issues indexer method calls.
type Querier interface {
	Query(ctx context.Context, method string, params []any, opts ...electrumx.Option) (datamodel.Node, error)
}

// Resolver dispatches media references to a resolution strategy.
type Resolver struct {
	indexer  Querier
	methods  electrumx.Methods
	txMirror int
	http     *http.Client
	ordBase  string
	maxBytes int64
	logger   *slog.Logger
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	Methods    electrumx.Methods
	TxMirror   int
	HTTPClient *http.Client
	OrdBase    string
	MaxBytes   int64
}

// NewResolver creates a resolver backed by the given indexer.
func NewResolver(indexer Querier, opts ResolverOptions, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OrdBase == "" {
		opts.OrdBase = DefaultOrdBase
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	return &Resolver{
		indexer:  indexer,
		methods:  opts.Methods.WithDefaults(),
		txMirror: opts.TxMirror,
		http:     opts.HTTPClient,
		ordBase:  opts.OrdBase,
		maxBytes: opts.MaxBytes,
		logger:   logger,
	}
}

// Resolve produces the payload a reference points at.
func (r *Resolver) Resolve(ctx context.Context, ref urn.URN) (*Resolved, error) {
	if ref.ID == "" {
		return nil, ErrNotFound
	}

	switch ref.Kind() {
	case urn.KindBtcAtom:
		return r.resolveAtom(ctx, ref.ID)
	case urn.KindBtcOrd:
		return r.resolveOrd(ctx, ref.ID)
	case urn.KindEth, urn.KindSolana:
		r.logger.Debug("media protocol not implemented", "protocol", ref.Protocol, "id", ref.ID)
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ref.Kind())
	default:
		r.logger.Debug("unknown media reference", "prefix", ref.Prefix, "protocol", ref.Protocol, "type", ref.Type)
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ref.Kind())
	}
}

// resolveAtom reads the first hex blob from the object's mint data. An unreachable indexer,
// a malformed body or an explicit failure flag switches to the witness path.
func (r *Resolver) resolveAtom(ctx context.Context, id string) (*Resolved, error) {
	n, err := r.indexer.Query(ctx, r.methods.Get, []any{id})
	if err == nil && !electrumx.Succeeded(n) {
		err = errors.New("indexer reported failure")
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Warn("atom data lookup failed, trying witness", "id", id, "error", err)
		res, werr := r.resolveAtomWitness(ctx, id)
		if werr != nil {
			r.logger.Warn("atom witness fallback failed", "id", id, "error", werr)
			return nil, werr
		}
		return res, nil
	}

	blob := document.FindHex(document.Lookup(electrumx.Result(n), "mint_data"))
	if blob == nil {
		return nil, ErrNotFound
	}
	return &Resolved{Extension: blob.Extension, Hex: blob.Hex}, nil
}

// resolveOrd fetches inscription content, falling back to the reveal witness envelope.
func (r *Resolver) resolveOrd(ctx context.Context, id string) (*Resolved, error) {
	res, err := r.Fetch(ctx, r.ordBase+id)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	r.logger.Warn("ord content fetch failed, trying witness", "id", id, "error", err)

	res, werr := r.resolveOrdWitness(ctx, id)
	if werr != nil {
		r.logger.Warn("ord witness fallback failed", "id", id, "error", werr)
		return nil, werr
	}
	return res, nil
}
