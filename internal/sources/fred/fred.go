// Package fred implements the FRED (Federal Reserve Economic Data) source
// adapter. FRED mirrors the major commodity spot benchmarks (DCOILWTICO,
// DHHNGSP, PCOALAUUSDM, ...) as economic time series.
//
// Requires a free API key from https://fred.stlouisfed.org/docs/api/api_key.html
// Rate limit: 120 requests/minute.
// Docs: https://fred.stlouisfed.org/docs/api/fred/
package fred

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/seenimoa/energyprice/internal/infra"
	"github.com/seenimoa/energyprice/internal/source"
)

const (
	sourceName     = "FRED"
	defaultBaseURL = "https://api.stlouisfed.org/fred"
)

// Adapter fetches the newest observation of a FRED series.
type Adapter struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cache   *infra.Cache
	limiter *infra.RateLimiter
}

// New creates a FRED adapter. An empty apiKey degrades the adapter to
// always-absent without network calls.
func New(apiKey string, cache *infra.Cache) *Adapter {
	return &Adapter{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  infra.DefaultHTTPClient(),
		cache:   cache,
		limiter: infra.NewRateLimiter(10, time.Second),
	}
}

// SetBaseURL overrides the API base URL. Tests point this at httptest.
func (a *Adapter) SetBaseURL(u string) { a.baseURL = u }

// SetHTTPClient overrides the HTTP client.
func (a *Adapter) SetHTTPClient(c *http.Client) { a.client = c }

func (a *Adapter) Name() string { return sourceName }

func (a *Adapter) Configured() bool { return a.apiKey != "" }

// --- FRED API types ---

type observationsResponse struct {
	Observations []observation `json:"observations"`
}

type observation struct {
	Date  string `json:"date"`
	Value string `json:"value"` // "." means missing
}

// Fetch returns the newest observation for a FRED series ID.
func (a *Adapter) Fetch(ctx context.Context, seriesID string) (*source.PricePoint, error) {
	cacheKey := source.CacheKey("fred", seriesID)
	if cached, ok := a.cache.Get(cacheKey); ok {
		if pt, ok := cached.(*source.PricePoint); ok {
			return pt, nil
		}
	}

	if !a.Configured() {
		return nil, source.ErrNoCredential
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, source.Transient(sourceName, err)
	}

	reqURL := fmt.Sprintf(
		"%s/series/observations?series_id=%s&api_key=%s&file_type=json&sort_order=desc&limit=10",
		a.baseURL, url.QueryEscape(seriesID), url.QueryEscape(a.apiKey),
	)

	var resp observationsResponse
	if err := infra.GetJSON(ctx, a.client, reqURL, &resp); err != nil {
		return nil, source.Transient(sourceName, err)
	}

	// Observations come newest first; "." marks a missing value.
	for _, obs := range resp.Observations {
		if obs.Value == "" || obs.Value == "." {
			continue
		}
		value, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			continue
		}
		pt := &source.PricePoint{
			Value:  value,
			Date:   normalizeDate(obs.Date),
			Source: sourceName,
		}
		a.cache.Set(cacheKey, pt)
		return pt, nil
	}

	return nil, source.ErrNoData
}

func normalizeDate(d string) string {
	if d == "" {
		return source.DateUnknown
	}
	return d
}
