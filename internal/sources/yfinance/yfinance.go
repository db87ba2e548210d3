// Package yfinance implements the Yahoo Finance source adapter. It quotes
// the energy futures contracts (CL=F, BZ=F, NG=F, MTF=F) through the v8
// chart API; no API key is required.
package yfinance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/seenimoa/energyprice/internal/infra"
	"github.com/seenimoa/energyprice/internal/source"
)

const (
	sourceName     = "Yahoo Finance"
	defaultBaseURL = "https://query1.finance.yahoo.com"

	// Yahoo rejects requests without a browser-ish user agent.
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"
)

// Adapter quotes futures symbols from Yahoo Finance.
type Adapter struct {
	baseURL string
	client  *http.Client
	cache   *infra.Cache
	limiter *infra.RateLimiter
}

// New creates a Yahoo Finance adapter. No credential is required.
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

// Configured is always true: the chart API is public.
func (a *Adapter) Configured() bool { return true }

// --- Yahoo Finance v8 chart API types ---

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta chartMeta `json:"meta"`
}

type chartMeta struct {
	Symbol             string  `json:"symbol"`
	Currency           string  `json:"currency"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	RegularMarketTime  int64   `json:"regularMarketTime"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Fetch returns the latest regular market price for a futures symbol.
func (a *Adapter) Fetch(ctx context.Context, symbol string) (*source.PricePoint, error) {
	cacheKey := source.CacheKey("yfinance", symbol)
	if cached, ok := a.cache.Get(cacheKey); ok {
		if pt, ok := cached.(*source.PricePoint); ok {
			return pt, nil
		}
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, source.Transient(sourceName, err)
	}

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=5d",
		a.baseURL, url.PathEscape(symbol))

	body, _, err := infra.DoGet(ctx, a.client, reqURL, map[string]string{
		"Accept":     "application/json",
		"User-Agent": userAgent,
	})
	if err != nil {
		return nil, source.Transient(sourceName, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, source.Transient(sourceName, err)
	}

	var resp chartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, source.Transient(sourceName, fmt.Errorf("parse chart JSON: %w", err))
	}
	if resp.Chart.Error != nil {
		return nil, source.Transient(sourceName,
			fmt.Errorf("chart API %s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description))
	}
	if len(resp.Chart.Result) == 0 || resp.Chart.Result[0].Meta.RegularMarketPrice == 0 {
		return nil, source.ErrNoData
	}

	meta := resp.Chart.Result[0].Meta
	date := source.DateUnknown
	if meta.RegularMarketTime > 0 {
		date = source.FormatDate(time.Unix(meta.RegularMarketTime, 0).UTC())
	}

	pt := &source.PricePoint{
		Value:  meta.RegularMarketPrice,
		Date:   date,
		Source: sourceName,
	}
	a.cache.Set(cacheKey, pt)
	return pt, nil
}
