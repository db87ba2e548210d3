// Package source defines the common shape all upstream price providers
// normalize into, and the Adapter interface the aggregator consumes.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DateUnknown is the date label used when a provider gives no usable date.
const DateUnknown = "unknown"

// PricePoint is one normalized observation from one provider.
// It is never mutated after creation.
type PricePoint struct {
	Value  float64 `json:"value"`
	Date   string  `json:"date"` // "2006-01-02" or "unknown"
	Source string  `json:"source"`
}

// Adapter is implemented by every upstream provider. Fetch returns the
// newest observation for a provider-specific series ID.
//
// Adapters never panic and never block past their HTTP client timeout.
// All failures come back as errors; the aggregator converts any error to
// "this source had nothing" and moves on, so a single provider outage can
// never fail a quote.
type Adapter interface {
	// Name returns the label recorded as PricePoint.Source and in a
	// quote's contributing-sources list.
	Name() string

	// Configured reports whether the adapter has the credentials it needs.
	// Unconfigured adapters short-circuit Fetch with ErrNoCredential.
	Configured() bool

	// Fetch returns the newest observation for the series, or an error.
	Fetch(ctx context.Context, seriesID string) (*PricePoint, error)
}

// ErrNoCredential is returned when a provider requires an API key that is
// not configured. Distinct from a transient failure so callers can log it
// quietly instead of as a warning.
var ErrNoCredential = errors.New("provider credential not configured")

// ErrNoData is returned when a provider answered but carried no usable
// observation (empty result set, all values missing).
var ErrNoData = errors.New("provider returned no usable data")

// TransientError wraps a network, status, or parse failure from a provider.
type TransientError struct {
	Provider string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("provider %q: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError for the named provider.
func Transient(provider string, err error) error {
	return &TransientError{Provider: provider, Err: err}
}

// FormatDate renders t in the wire date format.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// CacheKey builds the shared-cache key for a provider and series.
func CacheKey(provider, seriesID string) string {
	return provider + ":" + seriesID
}
