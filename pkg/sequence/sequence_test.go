package sequence

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendProfile(t *testing.T) {
	var gotPath, gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", nil, nil)
	if err := c.SendProfile(context.Background(), "pid123i0", json.RawMessage(`{"v":"1"}`)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotPath != "/profile/pid123i0" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotType != "application/json" {
		t.Errorf("unexpected content type %q", gotType)
	}
	if gotBody != `{"v":"1"}` {
		t.Errorf("unexpected body %q", gotBody)
	}
}

func TestSendProfileErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL, nil, nil).SendProfile(context.Background(), "p", nil); err == nil {
		t.Error("expected error for 502")
	}
}

func TestDisabledClient(t *testing.T) {
	cfg := &Config{}
	c := cfg.NewClient(nil)
	if c != nil {
		t.Fatal("expected nil client for empty base url")
	}
	if err := c.SendProfile(context.Background(), "p", nil); err != nil {
		t.Errorf("nil client should be a no-op, got %v", err)
	}
}
