package realm

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ipld/go-ipld-prime/datamodel"
	"golang.org/x/sync/errgroup"

	"github.com/arc20-me/realm-stack/pkg/address"
	"github.com/arc20-me/realm-stack/pkg/assets"
	"github.com/arc20-me/realm-stack/pkg/document"
	"github.com/arc20-me/realm-stack/pkg/electrumx"
	"github.com/arc20-me/realm-stack/pkg/media"
	"github.com/arc20-me/realm-stack/pkg/worker"
)

// Materializer turns media references into public URLs.
type Materializer interface {
	Materialize(ctx context.Context, ref string) *assets.Asset
}

// Notifier is told about every resolved profile.
type Notifier interface {
	SendProfile(ctx context.Context, profileID string, doc json.RawMessage) error
}

// PipelineDeps holds dependencies for the pipeline
type PipelineDeps struct {
	Indexer  media.Querier
	Methods  electrumx.Methods
	Assets   Materializer
	Notifier Notifier     // optional
	Pool     *worker.Pool // optional, side effects run inline without it
	Logger   *slog.Logger
}

// Pipeline runs realm resolution against the indexer.
type Pipeline struct {
	indexer  media.Querier
	methods  electrumx.Methods
	assets   Materializer
	notifier Notifier
	pool     *worker.Pool
	logger   *slog.Logger
}

// NewPipeline creates a new pipeline
func NewPipeline(deps *PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		indexer:  deps.Indexer,
		methods:  deps.Methods.WithDefaults(),
		assets:   deps.Assets,
		notifier: deps.Notifier,
		pool:     deps.Pool,
		logger:   logger,
	}
}

// provenance is what the state query reveals about a realm.
type provenance struct {
	pid    string
	number *int64
	mint   string
	owner  string
}

// Resolve runs the pipeline for an already normalized realm name.
// It never fails; the returned stage tells how far resolution got.
func (p *Pipeline) Resolve(ctx context.Context, name string) (*Response, Stage) {
	resp := &Response{}

	id, cid := p.realmID(ctx, name)
	if id == "" && cid == "" {
		p.logger.Debug("realm not found", "realm", name)
		return resp, StageStart
	}
	resp.Meta.ID = ptr(id)
	resp.Meta.CID = ptr(cid)

	target := id
	if target == "" {
		target = cid
	}
	prov := p.provenance(ctx, target)
	resp.Meta.Number = prov.number
	resp.Meta.Mint = prov.mint
	resp.Meta.Owner = prov.owner
	if prov.pid == "" {
		return resp, StageIDResolved
	}
	resp.Meta.PID = ptr(prov.pid)

	profile, po := p.profile(ctx, prov.pid)
	if profile == nil {
		return resp, StageProfileIDResolved
	}
	resp.Meta.PO = ptr(po)
	if v, ok := document.Scalar(document.Lookup(profile, "v")); ok {
		resp.Meta.V = ptr(v)
	}

	doc, err := document.EncodeJSON(profile)
	if err != nil {
		p.logger.Warn("profile not encodable", "pid", prov.pid, "error", err)
		return resp, StageProfileIDResolved
	}
	resp.Profile = doc

	if p.notifier != nil {
		pid := prov.pid
		spawn(ctx, p.pool, p.logger, "notify:"+pid, func(ctx context.Context) error {
			return p.notifier.SendProfile(ctx, pid, doc)
		})
	}

	p.materialize(ctx, profile, &resp.Meta)
	return resp, StageDone
}

func (p *Pipeline) query(ctx context.Context, method string, params ...any) datamodel.Node {
	n, err := p.indexer.Query(ctx, method, params)
	if err != nil {
		p.logger.Warn("indexer query failed", "method", method, "error", err)
		return nil
	}
	return electrumx.Result(n)
}

func (p *Pipeline) realmID(ctx context.Context, name string) (id, cid string) {
	result := p.query(ctx, p.methods.RealmInfo, name)
	id, _ = document.String(document.Lookup(result, "atomical_id"))
	cid, _ = document.String(document.Lookup(result, "candidates", 0, "atomical_id"))
	return id, cid
}

func (p *Pipeline) provenance(ctx context.Context, id string) provenance {
	result := p.query(ctx, p.methods.State, id)

	var prov provenance
	prov.pid, _ = document.String(document.Lookup(result, "state", "latest", "d"))
	if n, ok := document.Int(document.Lookup(result, "atomical_number")); ok {
		prov.number = &n
	}
	if s, ok := document.String(document.Lookup(result, "mint_info", "reveal_location_script")); ok {
		prov.mint, _ = address.FromScriptHex(s)
	}
	if s, ok := document.String(document.Lookup(result, "location_info", 0, "script")); ok {
		prov.owner, _ = address.FromScriptHex(s)
	}
	return prov
}

// profile returns the first map under mint_data.fields carrying a v key, and the
// address that revealed it.
func (p *Pipeline) profile(ctx context.Context, pid string) (datamodel.Node, string) {
	result := p.query(ctx, p.methods.Get, pid)
	profile := document.FindWithKey(document.Lookup(result, "mint_data", "fields"), "v")
	if profile == nil {
		return nil, ""
	}
	var po string
	if s, ok := document.String(document.Lookup(result, "mint_info", "reveal_location_script")); ok {
		po, _ = address.FromScriptHex(s)
	}
	return profile, po
}

// materialize resolves avatar, banner and background concurrently.
func (p *Pipeline) materialize(ctx context.Context, profile datamodel.Node, meta *Meta) {
	if p.assets == nil {
		return
	}

	refs := [3]string{
		firstString(profile, "image", "i"),
		firstString(profile, "banner", "b"),
		firstString(profile, "background"),
	}
	var found [3]*assets.Asset

	var g errgroup.Group
	for i, ref := range refs {
		if ref == "" {
			continue
		}
		g.Go(func() error {
			found[i] = p.assets.Materialize(ctx, ref)
			return nil
		})
	}
	g.Wait()

	if a := found[0]; a != nil {
		meta.Image, meta.ImageData, meta.ImageHash = ptr(a.URL), a.Data, a.Hash
	}
	if a := found[1]; a != nil {
		meta.Banner, meta.BannerData, meta.BannerHash = ptr(a.URL), a.Data, a.Hash
	}
	if a := found[2]; a != nil {
		meta.Background, meta.BackgroundData, meta.BackgroundHash = ptr(a.URL), a.Data, a.Hash
	}
}

func firstString(n datamodel.Node, keys ...string) string {
	for _, k := range keys {
		if s, ok := document.String(document.Lookup(n, k)); ok {
			return s
		}
	}
	return ""
}

// spawn runs task on pool, or inline when the pool is missing or closed.
func spawn(ctx context.Context, pool *worker.Pool, logger *slog.Logger, name string, task worker.Task) {
	if pool != nil && pool.Go(name, task) {
		return
	}
	if err := task(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("side effect failed", "task", name, "error", err)
	}
}
