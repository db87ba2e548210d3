// Package ember implements the Ember levelized-cost dataset adapter. Ember
// publishes a free static dataset of yearly levelized cost of electricity
// (LCOE) figures per generation technology; no API key is required.
//
// Unlike the spot-price providers, one call returns the whole yearly series
// with every technology as a named field. The adapter caches the full
// payload once and answers per-technology requests from it, selecting the
// most recent year that actually carries data for the requested technology.
package ember

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/seenimoa/energyprice/internal/infra"
	"github.com/seenimoa/energyprice/internal/source"
)

const (
	sourceName     = "Ember"
	defaultBaseURL = "https://api.ember-energy.org/v1"

	datasetCacheKey = "ember:lcoe-dataset"
)

// Adapter serves per-technology LCOE values from Ember's yearly dataset.
type Adapter struct {
	baseURL string
	client  *http.Client
	cache   *infra.Cache
	limiter *infra.RateLimiter
}

// New creates an Ember adapter. No credential is required.
func New(cache *infra.Cache) *Adapter {
	return &Adapter{
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

// Configured is always true: the dataset is public.
func (a *Adapter) Configured() bool { return true }

// --- Ember dataset types ---

// lcoeResponse is the yearly LCOE dataset: calendar year → technology →
// USD/MWh. Years may omit technologies that were not surveyed.
type lcoeResponse struct {
	Data map[string]map[string]float64 `json:"data"`
}

// Fetch returns the most recent LCOE value for a technology ("solar",
// "wind", "nuclear", ...).
func (a *Adapter) Fetch(ctx context.Context, technology string) (*source.PricePoint, error) {
	dataset, err := a.dataset(ctx)
	if err != nil {
		return nil, err
	}

	// Walk years newest first until one carries the requested technology.
	years := make([]string, 0, len(dataset))
	for y := range dataset {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(years)))

	for _, year := range years {
		if value, ok := dataset[year][technology]; ok {
			return &source.PricePoint{
				Value:  value,
				Date:   year + "-01-01",
				Source: sourceName,
			}, nil
		}
	}

	return nil, source.ErrNoData
}

// dataset returns the full yearly payload, fetching it at most once per
// cache TTL regardless of how many technologies are requested.
func (a *Adapter) dataset(ctx context.Context) (map[string]map[string]float64, error) {
	if cached, ok := a.cache.Get(datasetCacheKey); ok {
		if data, ok := cached.(map[string]map[string]float64); ok {
			return data, nil
		}
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, source.Transient(sourceName, err)
	}

	var resp lcoeResponse
	if err := infra.GetJSON(ctx, a.client, a.baseURL+"/lcoe/yearly", &resp); err != nil {
		return nil, source.Transient(sourceName, err)
	}
	if len(resp.Data) == 0 {
		return nil, source.Transient(sourceName, fmt.Errorf("empty LCOE dataset"))
	}

	a.cache.Set(datasetCacheKey, resp.Data)
	return resp.Data, nil
}
