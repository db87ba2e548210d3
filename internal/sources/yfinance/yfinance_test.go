package yfinance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seenimoa/energyprice/internal/infra"
	"github.com/seenimoa/energyprice/internal/source"
)

func chartBody(symbol string, price float64, ts int64) map[string]any {
	return map[string]any{
		"chart": map[string]any{
			"result": []map[string]any{
				{"meta": map[string]any{
					"symbol":             symbol,
					"currency":           "USD",
					"regularMarketPrice": price,
					"regularMarketTime":  ts,
				}},
			},
		},
	}
}

func TestFetchQuote(t *testing.T) {
	var calls int32
	ts := time.Date(2026, 8, 20, 18, 30, 0, 0, time.UTC).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if !strings.HasPrefix(r.URL.Path, "/v8/finance/chart/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected a User-Agent header")
		}
		json.NewEncoder(w).Encode(chartBody("CL=F", 74.85, ts))
	}))
	defer srv.Close()

	a := New(infra.NewCache(5 * time.Minute))
	a.SetBaseURL(srv.URL)
	a.SetHTTPClient(srv.Client())

	pt, err := a.Fetch(context.Background(), "CL=F")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if pt.Value != 74.85 {
		t.Errorf("value = %v, want 74.85", pt.Value)
	}
	if pt.Date != "2026-08-20" {
		t.Errorf("date = %q, want 2026-08-20", pt.Date)
	}
	if pt.Source != "Yahoo Finance" {
		t.Errorf("source = %q", pt.Source)
	}
}

func TestFetchCachesWithinTTL(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(chartBody("NG=F", 2.91, time.Now().Unix()))
	}))
	defer srv.Close()

	a := New(infra.NewCache(5 * time.Minute))
	a.SetBaseURL(srv.URL)
	a.SetHTTPClient(srv.Client())

	for i := 0; i < 2; i++ {
		if _, err := a.Fetch(context.Background(), "NG=F"); err != nil {
			t.Fatalf("Fetch %d: %v", i, err)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected 1 outbound call, got %d", n)
	}
}

func TestFetchChartError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"chart": map[string]any{
				"result": nil,
				"error":  map[string]string{"code": "Not Found", "description": "No data found"},
			},
		})
	}))
	defer srv.Close()

	a := New(infra.NewCache(5 * time.Minute))
	a.SetBaseURL(srv.URL)
	a.SetHTTPClient(srv.Client())

	_, err := a.Fetch(context.Background(), "XX=F")
	var te *source.TransientError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransientError, got %v", err)
	}
}

func TestFetchEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"chart": map[string]any{"result": []map[string]any{}},
		})
	}))
	defer srv.Close()

	a := New(infra.NewCache(5 * time.Minute))
	a.SetBaseURL(srv.URL)
	a.SetHTTPClient(srv.Client())

	if _, err := a.Fetch(context.Background(), "CL=F"); !errors.Is(err, source.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestFetchUnknownDateWhenTimeMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chartBody("MTF=F", 118.5, 0))
	}))
	defer srv.Close()

	a := New(infra.NewCache(5 * time.Minute))
	a.SetBaseURL(srv.URL)
	a.SetHTTPClient(srv.Client())

	pt, err := a.Fetch(context.Background(), "MTF=F")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if pt.Date != source.DateUnknown {
		t.Errorf("date = %q, want %q", pt.Date, source.DateUnknown)
	}
}
