package electrumx

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/arc20-me/realm-stack/pkg/document"
	"github.com/spf13/viper"
)

func TestNewSelectorCleansMirrors(t *testing.T) {
	s, err := NewSelector([]string{" https://a.example/proxy/ ", "", "https://b.example"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 mirrors, got %d", s.Len())
	}
	if s.Mirror(0) != "https://a.example/proxy" {
		t.Errorf("unexpected mirror 0: %q", s.Mirror(0))
	}
	if s.Mirror(5) != "" {
		t.Error("expected empty string for out-of-range mirror")
	}

	if _, err := NewSelector([]string{" ", ""}, nil); !errors.Is(err, ErrNoMirrors) {
		t.Errorf("expected ErrNoMirrors, got %v", err)
	}
}

func TestSelectorOrder(t *testing.T) {
	s, err := NewSelector([]string{"a", "b", "c", "d"}, rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 20; i++ {
		order := s.Order(-1)
		if len(order) != 4 {
			t.Fatalf("expected 4 attempts, got %d", len(order))
		}
		sorted := append([]int(nil), order...)
		sort.Ints(sorted)
		for j, idx := range sorted {
			if idx != j {
				t.Fatalf("expected each mirror exactly once, got %v", order)
			}
		}
	}

	tests := []struct {
		pinned int
		want   int
	}{
		{0, 0},
		{2, 2},
		{9, 0},
	}
	for _, tt := range tests {
		order := s.Order(tt.pinned)
		if len(order) != 4 {
			t.Errorf("Order(%d) = %v, want one attempt per mirror", tt.pinned, order)
			continue
		}
		for _, idx := range order {
			if idx != tt.want {
				t.Errorf("Order(%d) = %v, want every attempt on %d", tt.pinned, order, tt.want)
				break
			}
		}
	}
}

func TestPinned(t *testing.T) {
	if i, ok := Pinned(); ok || i != -1 {
		t.Errorf("Pinned() = %d, %v; want -1, false", i, ok)
	}
	if i, ok := Pinned(WithMirror(0)); !ok || i != 0 {
		t.Errorf("Pinned(WithMirror(0)) = %d, %v; want 0, true", i, ok)
	}
	if i, ok := Pinned(WithMirror(0), WithMirror(3)); !ok || i != 3 {
		t.Errorf("expected the last option to win, got %d, %v", i, ok)
	}
}

func newTestClient(t *testing.T, mirrors ...string) *Client {
	t.Helper()
	s, err := NewSelector(mirrors, nil)
	if err != nil {
		t.Fatalf("selector: %v", err)
	}
	return NewClient(s, nil, nil)
}

func TestQueryFailsOverToHealthyMirror(t *testing.T) {
	var badHits atomic.Int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		badHits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer bad.Close()

	var gotPath, gotParams string
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotParams = r.URL.Query().Get("params")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"response":{"result":{"atomical_id":"abc"}}}`))
	}))
	defer good.Close()

	c := newTestClient(t, bad.URL, good.URL)

	// Random order means the bad mirror may or may not be hit first; the result must not change.
	for i := 0; i < 5; i++ {
		n, err := c.Query(context.Background(), MethodRealmInfo, []any{"satoshi", 0})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !Succeeded(n) {
			t.Error("expected success flag")
		}
		if id, _ := document.String(document.Lookup(Result(n), "atomical_id")); id != "abc" {
			t.Errorf("expected atomical_id abc, got %q", id)
		}
	}

	if gotPath != "/"+MethodRealmInfo {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotParams != `["satoshi",0]` {
		t.Errorf("unexpected params %q", gotParams)
	}

	// Pinning the bad mirror retries it and then yields unavailable.
	before := badHits.Load()
	_, err := c.Query(context.Background(), MethodRealmInfo, []any{"satoshi"}, WithMirror(0))
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if badHits.Load() != before+2 {
		t.Errorf("expected the pinned mirror to be tried once per mirror, got %d attempts", badHits.Load()-before)
	}
}

func TestFetchAllMirrorsUnavailable(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL+"/", "http://127.0.0.1:1")
	_, err := c.Fetch(context.Background(), "anything")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("expected each reachable mirror tried once, got %d hits", hits.Load())
	}
}

func TestQueryMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Query(context.Background(), MethodGet, []any{"x"})
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestFetchRespectsCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Fetch(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMethodPath(t *testing.T) {
	got, err := MethodPath(MethodTransaction, []any{strings.Repeat("a", 64)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := MethodTransaction + "?params=%5B%22" + strings.Repeat("a", 64) + "%22%5D"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got, _ = MethodPath("m", nil)
	if got != "m?params=%5B%5D" {
		t.Errorf("expected empty array params, got %q", got)
	}
}

func TestConfigSetDefaults(t *testing.T) {
	cfg := &Config{}
	v := viper.New()
	cfg.SetDefaults(v, "indexer")

	if len(v.GetStringSlice("indexer.mirrors")) != 2 {
		t.Errorf("expected 2 default mirrors, got %v", v.GetStringSlice("indexer.mirrors"))
	}
	if v.GetString("indexer.methods.state") != MethodState {
		t.Errorf("unexpected state method %q", v.GetString("indexer.methods.state"))
	}

	if err := v.UnmarshalKey("indexer", cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	svc, err := cfg.Initialize(context.Background(), nil)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if svc.Client.Selector().Len() != 2 {
		t.Errorf("expected client over 2 mirrors")
	}
	if svc.Methods.Transaction != MethodTransaction {
		t.Errorf("unexpected transaction method %q", svc.Methods.Transaction)
	}
}
