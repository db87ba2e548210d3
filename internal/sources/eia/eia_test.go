package eia

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seenimoa/energyprice/internal/infra"
	"github.com/seenimoa/energyprice/internal/source"
)

func newTestServer(t *testing.T, calls *int32, rows []map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Query().Get("api_key") == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]any{"data": rows},
		})
	}))
}

func TestFetchNewestObservation(t *testing.T) {
	var calls int32
	srv := newTestServer(t, &calls, []map[string]any{
		{"period": "2026-08-20", "value": 74.62},
		{"period": "2026-08-19", "value": 74.01},
	})
	defer srv.Close()

	a := New("testkey", infra.NewCache(5*time.Minute))
	a.SetBaseURL(srv.URL)
	a.SetHTTPClient(srv.Client())

	pt, err := a.Fetch(context.Background(), "PET.RWTC.D")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if pt.Value != 74.62 {
		t.Errorf("value = %v, want 74.62 (newest row)", pt.Value)
	}
	if pt.Date != "2026-08-20" {
		t.Errorf("date = %q", pt.Date)
	}
	if pt.Source != "EIA" {
		t.Errorf("source = %q", pt.Source)
	}
}

func TestFetchSkipsNullValues(t *testing.T) {
	var calls int32
	srv := newTestServer(t, &calls, []map[string]any{
		{"period": "2026-08-20", "value": nil},
		{"period": "2026-08-19", "value": 73.90},
	})
	defer srv.Close()

	a := New("testkey", infra.NewCache(5*time.Minute))
	a.SetBaseURL(srv.URL)
	a.SetHTTPClient(srv.Client())

	pt, err := a.Fetch(context.Background(), "PET.RWTC.D")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if pt.Value != 73.90 || pt.Date != "2026-08-19" {
		t.Errorf("expected 73.90 @ 2026-08-19, got %v @ %s", pt.Value, pt.Date)
	}
}

func TestFetchCachesWithinTTL(t *testing.T) {
	var calls int32
	srv := newTestServer(t, &calls, []map[string]any{
		{"period": "2026-08-20", "value": 74.62},
	})
	defer srv.Close()

	cache := infra.NewCache(5 * time.Minute)
	base := time.Now()
	now := base
	var mu sync.Mutex
	cache.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})

	a := New("testkey", cache)
	a.SetBaseURL(srv.URL)
	a.SetHTTPClient(srv.Client())

	// Two fetches within TTL issue exactly one outbound call.
	for i := 0; i < 2; i++ {
		if _, err := a.Fetch(context.Background(), "PET.RWTC.D"); err != nil {
			t.Fatalf("Fetch %d: %v", i, err)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected 1 outbound call within TTL, got %d", n)
	}

	// After TTL elapses, a third fetch goes back upstream.
	mu.Lock()
	now = base.Add(5*time.Minute + time.Second)
	mu.Unlock()
	if _, err := a.Fetch(context.Background(), "PET.RWTC.D"); err != nil {
		t.Fatalf("Fetch after expiry: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("expected 2 outbound calls after expiry, got %d", n)
	}
}

func TestFetchNoCredential(t *testing.T) {
	var calls int32
	srv := newTestServer(t, &calls, nil)
	defer srv.Close()

	a := New("", infra.NewCache(5*time.Minute))
	a.SetBaseURL(srv.URL)
	a.SetHTTPClient(srv.Client())

	if a.Configured() {
		t.Error("adapter with empty key should report unconfigured")
	}

	_, err := a.Fetch(context.Background(), "PET.RWTC.D")
	if !errors.Is(err, source.ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
	// Short-circuit: no network attempt at all.
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("expected 0 outbound calls without credential, got %d", n)
	}
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := New("testkey", infra.NewCache(5*time.Minute))
	a.SetBaseURL(srv.URL)
	a.SetHTTPClient(srv.Client())

	_, err := a.Fetch(context.Background(), "PET.RWTC.D")
	var te *source.TransientError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransientError, got %v", err)
	}
}

func TestFetchMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{broken`))
	}))
	defer srv.Close()

	a := New("testkey", infra.NewCache(5*time.Minute))
	a.SetBaseURL(srv.URL)
	a.SetHTTPClient(srv.Client())

	_, err := a.Fetch(context.Background(), "PET.RWTC.D")
	var te *source.TransientError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransientError for malformed payload, got %v", err)
	}
}

func TestFetchEmptyResultSet(t *testing.T) {
	var calls int32
	srv := newTestServer(t, &calls, []map[string]any{})
	defer srv.Close()

	a := New("testkey", infra.NewCache(5*time.Minute))
	a.SetBaseURL(srv.URL)
	a.SetHTTPClient(srv.Client())

	_, err := a.Fetch(context.Background(), "PET.RWTC.D")
	if !errors.Is(err, source.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestNormalizePeriod(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"2026-08-20", "2026-08-20"},
		{"2024", "2024-01-01"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		if got := normalizePeriod(tt.in); got != tt.out {
			t.Errorf("normalizePeriod(%q) = %q, want %q", tt.in, got, tt.out)
		}
	}
}
