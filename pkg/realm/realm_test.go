package realm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ipld/go-ipld-prime/datamodel"

	"github.com/arc20-me/realm-stack/pkg/assets"
	"github.com/arc20-me/realm-stack/pkg/blob"
	"github.com/arc20-me/realm-stack/pkg/document"
	"github.com/arc20-me/realm-stack/pkg/electrumx"
	"github.com/arc20-me/realm-stack/pkg/media"
	"github.com/arc20-me/realm-stack/pkg/records"
	"github.com/arc20-me/realm-stack/pkg/store"
	"github.com/arc20-me/realm-stack/pkg/urn"
	"github.com/arc20-me/realm-stack/pkg/worker"
)

const (
	testBase   = "https://static.example.com/images/"
	realmID    = "6f2b1e0c0b5b8b6b8a2f1b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f7i0"
	profileID  = "1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7f80i0"
	p2wpkh     = "0014751e76e8199196d454941c45d1b3a323f1433bd6"
	p2wpkhAddr = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"
	p2pkh      = "76a914000000000000000000000000000000000000000088ac"
	p2pkhAddr  = "1111111111111111111114oLvT2"
)

type fakeIndexer struct {
	mu        sync.Mutex
	responses map[string]string
	calls     int
}

func (f *fakeIndexer) set(method, param, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[method+" "+param] = body
}

func (f *fakeIndexer) unset(method, param string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.responses, method+" "+param)
}

func (f *fakeIndexer) Query(ctx context.Context, method string, params []any, opts ...electrumx.Option) (datamodel.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	body, ok := f.responses[method+" "+fmt.Sprint(params...)]
	if !ok {
		return nil, electrumx.ErrUnavailable
	}
	return document.DecodeJSON([]byte(body))
}

func (f *fakeIndexer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func ok(result string) string {
	return `{"success":true,"response":{"result":` + result + `}}`
}

func realmInfo(id string) string {
	return ok(`{"atomical_id":"` + id + `","candidates":[{"atomical_id":"` + id + `"}]}`)
}

func state(pid, ownerScript string) string {
	return ok(`{"atomical_number":42,` +
		`"mint_info":{"reveal_location_script":"` + p2wpkh + `"},` +
		`"location_info":[{"script":"` + ownerScript + `"}],` +
		`"state":{"latest":{"d":"` + pid + `"}}}`)
}

func profile(fields string) string {
	return ok(`{"mint_info":{"reveal_location_script":"` + p2wpkh + `"},"mint_data":{"fields":` + fields + `}}`)
}

func newIndexer() *fakeIndexer {
	f := &fakeIndexer{responses: map[string]string{}}
	m := electrumx.Methods{}.WithDefaults()
	f.set(m.RealmInfo, "satoshi", realmInfo(realmID))
	f.set(m.State, realmID, state(profileID, p2wpkh))
	f.set(m.Get, profileID, profile(`{"d":{"v":"1.0","name":"Satoshi","image":"atom:btc:dat:img1/avatar.png","b":"https://cdn.example.org/banner.jpg"}}`))
	return f
}

type fakeMedia struct{}

func (fakeMedia) Resolve(ctx context.Context, ref urn.URN) (*media.Resolved, error) {
	if ref.ID == "img1" {
		return &media.Resolved{Extension: "png", Hex: "89504e47"}, nil
	}
	return nil, media.ErrNotFound
}

func (fakeMedia) Fetch(ctx context.Context, url string) (*media.Resolved, error) {
	return nil, errors.New("offline")
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent map[string]json.RawMessage
}

func (f *fakeNotifier) SendProfile(ctx context.Context, pid string, doc json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[pid] = doc
	return nil
}

type fixture struct {
	indexer  *fakeIndexer
	notifier *fakeNotifier
	cache    *store.MemoryStore
	records  *records.EmbeddedRepository
	pipeline *Pipeline
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cache := store.NewMemoryStore(time.Minute)
	kv := store.NewMemoryStore(time.Minute)
	t.Cleanup(func() {
		cache.Close()
		kv.Close()
	})

	f := &fixture{
		indexer:  newIndexer(),
		notifier: &fakeNotifier{sent: map[string]json.RawMessage{}},
		cache:    cache,
		records:  records.NewEmbeddedRepository(store.WithPrefix(kv, "records:")),
	}
	materializer := assets.NewMaterializer(blob.NewEmbeddedStorage(kv), fakeMedia{}, nil,
		assets.Options{PublicBase: testBase, Inline: true}, nil)
	f.pipeline = NewPipeline(&PipelineDeps{
		Indexer:  f.indexer,
		Assets:   materializer,
		Notifier: f.notifier,
	})
	f.service = NewService(&ServiceDeps{
		Pipeline: f.pipeline,
		Cache:    cache,
		CacheTTL: time.Minute,
		Records:  f.records,
	})
	return f
}

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("invalid json %s: %v", body, err)
	}
	return out
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"satoshi", "satoshi", false},
		{"%20SaToShi%20", "satoshi", false},
		{"  Hello  ", "hello", false},
		{"b%C3%BCcher", "xn--bcher-kva", false},
		{"", "", true},
		{"%20", "", true},
		{"%zz", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidName) {
					t.Errorf("expected ErrInvalidName, got %q, %v", got, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("Normalize(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestLookupNotFound(t *testing.T) {
	f := newFixture(t)
	body, err := f.service.Lookup(context.Background(), "nobody", "")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	want := `{"meta":{"v":null,"id":null,"cid":null,"pid":null,"po":null,"image":null,"banner":null,"background":null},"profile":null}`
	if string(body) != want {
		t.Errorf("unexpected body\n got: %s\nwant: %s", body, want)
	}
	if ok, _ := f.cache.Has(context.Background(), []byte(CacheKeyPrefix+"nobody")); ok {
		t.Error("not-found responses should not be cached")
	}
	if ok, _ := f.records.Exists(context.Background(), "nobody"); ok {
		t.Error("not-found responses should not be persisted")
	}
}

func TestPipelineStages(t *testing.T) {
	m := electrumx.Methods{}.WithDefaults()

	t.Run("id only", func(t *testing.T) {
		f := newFixture(t)
		f.indexer.set(m.RealmInfo, "lonely", realmInfo("abc"+"i0"))
		resp, stage := f.pipeline.Resolve(context.Background(), "lonely")
		if stage != StageIDResolved {
			t.Errorf("expected %s, got %s", StageIDResolved, stage)
		}
		if deref(resp.Meta.ID) != "abci0" || resp.Meta.PID != nil || resp.Profile != nil {
			t.Errorf("unexpected meta %+v", resp.Meta)
		}
	})

	t.Run("candidate only", func(t *testing.T) {
		f := newFixture(t)
		f.indexer.set(m.RealmInfo, "pending", ok(`{"atomical_id":null,"candidates":[{"atomical_id":"cand"}]}`))
		f.indexer.set(m.State, "cand", state("pid9", p2wpkh))
		resp, stage := f.pipeline.Resolve(context.Background(), "pending")
		if stage != StageProfileIDResolved {
			t.Errorf("expected %s, got %s", StageProfileIDResolved, stage)
		}
		if resp.Meta.ID != nil || deref(resp.Meta.CID) != "cand" || deref(resp.Meta.PID) != "pid9" {
			t.Errorf("unexpected meta %+v", resp.Meta)
		}
		if resp.Meta.Owner != p2wpkhAddr || resp.Meta.Mint != p2wpkhAddr {
			t.Errorf("unexpected addresses %q %q", resp.Meta.Owner, resp.Meta.Mint)
		}
	})

	t.Run("profile without v", func(t *testing.T) {
		f := newFixture(t)
		f.indexer.set(m.Get, profileID, profile(`{"d":{"name":"x"}}`))
		_, stage := f.pipeline.Resolve(context.Background(), "satoshi")
		if stage != StageProfileIDResolved {
			t.Errorf("expected %s, got %s", StageProfileIDResolved, stage)
		}
	})
}

func TestPipelineResolvesProfileAndMedia(t *testing.T) {
	f := newFixture(t)
	resp, stage := f.pipeline.Resolve(context.Background(), "satoshi")
	if stage != StageDone {
		t.Fatalf("expected done, got %s", stage)
	}

	meta := resp.Meta
	if deref(meta.ID) != realmID || deref(meta.PID) != profileID {
		t.Errorf("unexpected ids %+v", meta)
	}
	if deref(meta.V) != "1.0" {
		t.Errorf("unexpected v %q", deref(meta.V))
	}
	if deref(meta.PO) != p2wpkhAddr || meta.Owner != p2wpkhAddr {
		t.Errorf("unexpected owner fields po=%q owner=%q", deref(meta.PO), meta.Owner)
	}
	if meta.Number == nil || *meta.Number != 42 {
		t.Errorf("unexpected number %v", meta.Number)
	}
	if deref(meta.Image) != testBase+"img1" {
		t.Errorf("unexpected image %q", deref(meta.Image))
	}
	if !strings.HasPrefix(meta.ImageData, "data:image/png;base64,") || meta.ImageHash != "" {
		t.Errorf("unexpected image data/hash %q %q", meta.ImageData, meta.ImageHash)
	}
	if deref(meta.Banner) != "https://cdn.example.org/banner.jpg" || meta.BannerHash != "" {
		t.Errorf("failed external fetch should keep the original URL, got %q %q", deref(meta.Banner), meta.BannerHash)
	}
	if meta.Background != nil {
		t.Errorf("expected no background, got %q", deref(meta.Background))
	}

	var doc map[string]any
	if err := json.Unmarshal(resp.Profile, &doc); err != nil || doc["name"] != "Satoshi" {
		t.Errorf("unexpected profile %s: %v", resp.Profile, err)
	}
	sent, okSent := f.notifier.sent[profileID]
	if !okSent || string(sent) != string(resp.Profile) {
		t.Errorf("expected profile notification, got %s", sent)
	}
}

func TestLookupCachesAndPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.Lookup(ctx, "Satoshi", "")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	calls := f.indexer.callCount()

	rec, err := f.records.Get(ctx, "satoshi")
	if err != nil {
		t.Fatalf("expected persisted record: %v", err)
	}
	if rec.RealmID != realmID || rec.AvatarURL != testBase+"img1" || rec.OwnerAddress != p2wpkhAddr {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.RealmNumber == nil || *rec.RealmNumber != 42 || rec.MinterAddress != p2wpkhAddr {
		t.Errorf("unexpected provenance %+v", rec)
	}

	second, err := f.service.Lookup(ctx, "satoshi", "")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if string(second) != string(first) {
		t.Error("expected cached response")
	}
	if f.indexer.callCount() != calls {
		t.Error("cache hit should not query the indexer")
	}

	f.cache.Del(ctx, []byte(CacheKeyPrefix+"satoshi"))
	third, err := f.service.Lookup(ctx, "satoshi", "")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if f.indexer.callCount() != calls {
		t.Error("durable hit should not query the indexer")
	}
	out := decode(t, third)
	if _, hasMeta := out["meta"]; !hasMeta {
		t.Errorf("expected meta in stored response: %s", third)
	}
	if p, _ := out["profile"].(map[string]any); p["name"] != "Satoshi" {
		t.Errorf("unexpected stored profile: %s", third)
	}
	if ok, _ := f.cache.Has(ctx, []byte(CacheKeyPrefix+"satoshi")); !ok {
		t.Error("durable hit should repopulate the response cache")
	}
}

func TestLookupUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := electrumx.Methods{}.WithDefaults()

	if _, err := f.service.Lookup(ctx, "satoshi", ""); err != nil {
		t.Fatalf("lookup: %v", err)
	}

	f.indexer.set(m.State, realmID, state(profileID, p2pkh))

	stale, _ := f.service.Lookup(ctx, "satoshi", "")
	if owner := decode(t, stale)["meta"].(map[string]any)["owner"]; owner != p2wpkhAddr {
		t.Errorf("expected cached owner before update, got %v", owner)
	}

	fresh, err := f.service.Lookup(ctx, "satoshi", ActionUpdate)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if owner := decode(t, fresh)["meta"].(map[string]any)["owner"]; owner != p2pkhAddr {
		t.Errorf("expected fresh owner on update, got %v", owner)
	}
	if ok, _ := f.cache.Has(ctx, []byte(CacheKeyPrefix+"satoshi")); ok {
		t.Error("update should invalidate the response cache")
	}

	rec, err := f.records.Get(ctx, "satoshi")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.OwnerAddress != p2pkhAddr {
		t.Errorf("expected updated owner, got %q", rec.OwnerAddress)
	}

	after, _ := f.service.Lookup(ctx, "satoshi", "")
	if owner := decode(t, after)["meta"].(map[string]any)["owner"]; owner != p2pkhAddr {
		t.Errorf("expected updated owner after invalidation, got %v", owner)
	}
}

func TestLookupUpdateDropsCacheWhenResolutionStops(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := electrumx.Methods{}.WithDefaults()

	if _, err := f.service.Lookup(ctx, "satoshi", ""); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if ok, _ := f.cache.Has(ctx, []byte(CacheKeyPrefix+"satoshi")); !ok {
		t.Fatal("expected cached response")
	}

	f.indexer.unset(m.State, realmID)
	if _, err := f.service.Lookup(ctx, "satoshi", ActionUpdate); err != nil {
		t.Fatalf("update: %v", err)
	}
	if ok, _ := f.cache.Has(ctx, []byte(CacheKeyPrefix+"satoshi")); ok {
		t.Error("update should drop the cached response even when nothing is persisted")
	}
}

func TestLookupWithoutUpdateKeepsRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := electrumx.Methods{}.WithDefaults()

	f.service.Lookup(ctx, "satoshi", "")
	f.cache.Del(ctx, []byte(CacheKeyPrefix+"satoshi"))
	f.records.Update(ctx, &records.Record{RealmName: "satoshi", OwnerAddress: "kept"})
	f.indexer.set(m.State, realmID, state(profileID, p2pkh))

	// Durable hit; the pipeline does not run and the record is untouched.
	f.service.Lookup(ctx, "satoshi", "")
	rec, _ := f.records.Get(ctx, "satoshi")
	if rec.OwnerAddress != "kept" {
		t.Errorf("record rewritten without update action: %q", rec.OwnerAddress)
	}
}

func TestRealmRoute(t *testing.T) {
	f := newFixture(t)
	app := fiber.New()
	NewRoutes(f.service, nil).Register(app, "/realm")

	resp, err := app.Test(httptest.NewRequest("GET", "/realm/satoshi", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("unexpected content type %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	meta := decode(t, body)["meta"].(map[string]any)
	if meta["id"] != realmID {
		t.Errorf("unexpected id %v", meta["id"])
	}
}

// slowRepository holds every Create until released.
type slowRepository struct {
	records.Repository
	release chan struct{}

	mu    sync.Mutex
	names []string
}

func (r *slowRepository) Create(ctx context.Context, rec *records.Record) (bool, error) {
	<-r.release
	r.mu.Lock()
	r.names = append(r.names, rec.RealmName)
	r.mu.Unlock()
	return r.Repository.Create(ctx, rec)
}

func TestRealmRoutePersistsRequestedName(t *testing.T) {
	f := newFixture(t)
	repo := &slowRepository{Repository: f.records, release: make(chan struct{})}
	pool := worker.New(&worker.Config{Concurrency: 2})
	defer pool.Close()

	svc := NewService(&ServiceDeps{
		Pipeline: f.pipeline,
		Cache:    f.cache,
		CacheTTL: time.Minute,
		Records:  repo,
		Pool:     pool,
	})
	app := fiber.New()
	NewRoutes(svc, nil).Register(app, "/realm")

	resp, err := app.Test(httptest.NewRequest("GET", "/realm/satoshi", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// Later requests reuse the server's request buffers while the first record is still pending.
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest("GET", fmt.Sprintf("/realm/XXXXXXX?n=%d", i), nil)
		if _, err := app.Test(req); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}

	close(repo.release)
	pool.Wait()

	repo.mu.Lock()
	names := append([]string(nil), repo.names...)
	repo.mu.Unlock()
	if len(names) != 1 || names[0] != "satoshi" {
		t.Fatalf("persisted names = %q, want [satoshi]", names)
	}
	if _, err := f.records.Get(context.Background(), "satoshi"); err != nil {
		t.Errorf("expected record under the requested name: %v", err)
	}
}
