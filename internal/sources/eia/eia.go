// Package eia implements the EIA (U.S. Energy Information Administration)
// source adapter. EIA publishes official U.S. energy statistics, including
// the WTI/Brent spot benchmarks and Henry Hub natural gas prices.
//
// Requires a free API key from https://www.eia.gov/opendata/register.php
// Docs: https://www.eia.gov/opendata/documentation.php
package eia

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/seenimoa/energyprice/internal/infra"
	"github.com/seenimoa/energyprice/internal/source"
)

const (
	sourceName     = "EIA"
	defaultBaseURL = "https://api.eia.gov/v2"
)

// Adapter fetches the newest observation of an EIA series.
type Adapter struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cache   *infra.Cache
	limiter *infra.RateLimiter
}

// New creates an EIA adapter. An empty apiKey is allowed: the adapter then
// reports itself unconfigured and Fetch short-circuits without any network
// call.
func New(apiKey string, cache *infra.Cache) *Adapter {
	return &Adapter{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  infra.DefaultHTTPClient(),
		cache:   cache,
		limiter: infra.NewRateLimiter(5, time.Second),
	}
}

// SetBaseURL overrides the API base URL. Tests point this at httptest.
func (a *Adapter) SetBaseURL(u string) { a.baseURL = u }

// SetHTTPClient overrides the HTTP client.
func (a *Adapter) SetHTTPClient(c *http.Client) { a.client = c }

func (a *Adapter) Name() string { return sourceName }

func (a *Adapter) Configured() bool { return a.apiKey != "" }

// --- EIA v2 API types ---

type eiaResponse struct {
	Response struct {
		Total any      `json:"total"`
		Data  []eiaRow `json:"data"`
	} `json:"response"`
	Error string `json:"error,omitempty"`
}

type eiaRow struct {
	Period string   `json:"period"`
	Value  *float64 `json:"value"`
}

// Fetch returns the newest observation for an EIA series ID.
func (a *Adapter) Fetch(ctx context.Context, seriesID string) (*source.PricePoint, error) {
	cacheKey := source.CacheKey("eia", seriesID)
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
		"%s/seriesid/%s?api_key=%s&sort[0][column]=period&sort[0][direction]=desc&length=5",
		a.baseURL, url.PathEscape(seriesID), url.QueryEscape(a.apiKey),
	)

	var resp eiaResponse
	if err := infra.GetJSON(ctx, a.client, reqURL, &resp); err != nil {
		return nil, source.Transient(sourceName, err)
	}
	if resp.Error != "" {
		return nil, source.Transient(sourceName, fmt.Errorf("eia: %s", resp.Error))
	}

	// Rows come newest first; take the first one carrying a value.
	for _, row := range resp.Response.Data {
		if row.Value == nil {
			continue
		}
		pt := &source.PricePoint{
			Value:  *row.Value,
			Date:   normalizePeriod(row.Period),
			Source: sourceName,
		}
		a.cache.Set(cacheKey, pt)
		return pt, nil
	}

	return nil, source.ErrNoData
}

// normalizePeriod converts an EIA period to the wire date format. Daily and
// weekly series already use YYYY-MM-DD; annual series use a bare year.
func normalizePeriod(period string) string {
	switch len(period) {
	case 0:
		return source.DateUnknown
	case 4:
		return period + "-01-01"
	default:
		return period
	}
}
