// Package projection implements the price-impact calculator: given a
// current price and a hypothetical consumption change, it projects the new
// price through a fixed price-elasticity formula. Pure arithmetic, no I/O.
package projection

import (
	"sync"
	"time"

	"github.com/seenimoa/energyprice/internal/commodity"
)

// Project applies the elasticity formula:
//
//	priceChangePct = (usageChangePct/100) * (1/elasticity) * supplyFactor * 100
//	newPrice       = currentPrice * (1 + priceChangePct/100)
//
// usageChangePct may be negative (demand contraction) and the projected
// change may be negative; results are never clamped. Elasticity must be
// positive; that is enforced where commodity configs are validated, not
// here, since elasticity is a static constant rather than user input.
func Project(currentPrice, usageChangePct, elasticity, supplyFactor float64) (priceChangePct, newPrice float64) {
	priceChangePct = (usageChangePct / 100) * (1 / elasticity) * supplyFactor * 100
	newPrice = currentPrice * (1 + priceChangePct/100)
	return priceChangePct, newPrice
}

// ProjectCommodity runs Project with a commodity's configured elasticity
// and supply constraint factor.
func ProjectCommodity(cfg commodity.Config, currentPrice, usageChangePct float64) (priceChangePct, newPrice float64) {
	return Project(currentPrice, usageChangePct, cfg.Elasticity, cfg.SupplyFactor)
}

// Result is one completed projection, kept in the session history.
type Result struct {
	Region         string        `json:"region"` // "us" or "world"
	Commodity      commodity.Key `json:"commodity"`
	CurrentPrice   float64       `json:"currentPrice"`
	UsageChangePct float64       `json:"usageChangePct"`
	PriceChangePct float64       `json:"priceChangePct"`
	NewPrice       float64       `json:"newPrice"`
	Timestamp      time.Time     `json:"timestamp"`
	Unit           string        `json:"unit"`
	DataSources    []string      `json:"dataSources"`
	IsLiveData     bool          `json:"isLiveData"`
}

// defaultHistoryLimit bounds the session history.
const defaultHistoryLimit = 100

// History is an in-memory, session-scoped list of projection results.
// It lives as long as its owner (the server process or a CLI invocation)
// and is never persisted.
type History struct {
	mu      sync.Mutex
	entries []Result
	limit   int
}

// NewHistory creates an empty history bounded to the default limit.
func NewHistory() *History {
	return &History{limit: defaultHistoryLimit}
}

// Add appends a result, dropping the oldest entry once the bound is hit.
func (h *History) Add(r Result) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, r)
	if len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
}

// Entries returns the history newest first.
func (h *History) Entries() []Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Result, len(h.entries))
	for i, r := range h.entries {
		out[len(h.entries)-1-i] = r
	}
	return out
}

// Len returns the number of stored results.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
