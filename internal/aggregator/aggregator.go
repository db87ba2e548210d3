// Package aggregator resolves commodity quotes. For each commodity it
// interprets the declarative slot policies from the commodity package:
// try the US-slot adapters in priority order, resolve the world slot the
// same way (or derive it from the US value), and substitute the static
// fallback estimate for any slot that stays unresolved.
//
// The resolution contract is "always answer": adapter failures are logged
// and absorbed, never propagated. The only error Resolve can return is an
// unknown commodity key.
package aggregator

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/seenimoa/energyprice/internal/commodity"
	"github.com/seenimoa/energyprice/internal/source"
)

// Quote is the merged per-commodity result: one US price point, one world
// price point, and the provenance of both. Built fresh per resolution,
// never mutated afterwards.
type Quote struct {
	Commodity   commodity.Key     `json:"commodity"`
	US          source.PricePoint `json:"us"`
	World       source.PricePoint `json:"world"`
	UnitsUS     string            `json:"unitsUs"`
	UnitsWorld  string            `json:"unitsWorld"`
	DataSources []string          `json:"dataSources"`
	IsFallback  bool              `json:"isFallback"`
}

// Aggregator interprets commodity policies over a set of named adapters.
type Aggregator struct {
	adapters map[string]source.Adapter
	logger   *logrus.Logger
	group    singleflight.Group
}

// New creates an aggregator over the given adapters. Adapters are looked up
// by Name(), which must match the labels used in the policy tables.
func New(logger *logrus.Logger, adapters ...source.Adapter) *Aggregator {
	byName := make(map[string]source.Adapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}
	return &Aggregator{
		adapters: byName,
		logger:   logger,
	}
}

// Resolve returns the quote for one commodity. The error is non-nil only
// for an unrecognized commodity key; every other failure mode resolves to
// fallback data inside the quote.
//
// Concurrent resolutions of the same commodity are collapsed into one via
// singleflight; the shared quote is safe to hand out because it is
// immutable.
func (a *Aggregator) Resolve(ctx context.Context, key commodity.Key) (*Quote, error) {
	policy, err := commodity.LookupPolicy(key)
	if err != nil {
		return nil, err
	}
	fallback, err := commodity.LookupFallback(key)
	if err != nil {
		return nil, err
	}

	v, err, _ := a.group.Do(string(key), func() (any, error) {
		return a.resolve(ctx, key, policy, fallback), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Quote), nil
}

func (a *Aggregator) resolve(ctx context.Context, key commodity.Key, policy commodity.Policy, fallback commodity.Fallback) *Quote {
	us, usLive := a.resolveSlot(ctx, key, "us", policy.US)

	var world *source.PricePoint
	worldLive := false
	switch {
	case policy.World.Derived():
		if usLive {
			world = &source.PricePoint{
				Value:  us.Value * policy.World.USMultiplier,
				Date:   us.Date,
				Source: commodity.SourceDerived,
			}
			worldLive = true
		}
		// A fallback US value gives no basis to derive from; the world
		// slot falls back too.
	default:
		world, worldLive = a.resolveSlot(ctx, key, "world", policy.World)
	}

	if !usLive {
		us = &source.PricePoint{
			Value:  fallback.USValue,
			Date:   source.DateUnknown,
			Source: commodity.SourceFallback,
		}
	}
	if !worldLive && world == nil {
		world = &source.PricePoint{
			Value:  fallback.WorldValue,
			Date:   source.DateUnknown,
			Source: commodity.SourceFallback,
		}
	}

	return &Quote{
		Commodity:   key,
		US:          *us,
		World:       *world,
		UnitsUS:     fallback.USUnit,
		UnitsWorld:  fallback.WorldUnit,
		DataSources: contributingSources(us, world),
		IsFallback:  !usLive && !worldLive,
	}
}

// resolveSlot tries a slot's adapters in priority order and returns the
// first success. The second return is false when every adapter came up
// empty.
func (a *Aggregator) resolveSlot(ctx context.Context, key commodity.Key, slot string, policy commodity.SlotPolicy) (*source.PricePoint, bool) {
	for _, ref := range policy.Sources {
		adapter, ok := a.adapters[ref.Adapter]
		if !ok {
			a.logger.WithFields(logrus.Fields{
				"commodity": key,
				"slot":      slot,
				"provider":  ref.Adapter,
			}).Warn("policy names an unregistered adapter")
			continue
		}

		pt, err := adapter.Fetch(ctx, ref.Series)
		if err != nil {
			fields := logrus.Fields{
				"commodity": key,
				"slot":      slot,
				"provider":  ref.Adapter,
				"series":    ref.Series,
			}
			if errors.Is(err, source.ErrNoCredential) {
				// Not a failure: the provider was never configured.
				a.logger.WithFields(fields).Info("provider skipped, credential not configured")
			} else {
				a.logger.WithFields(fields).WithError(err).Warn("provider unavailable")
			}
			continue
		}
		return pt, true
	}
	return nil, false
}

// ResolveAll resolves every configured commodity concurrently, one
// goroutine per commodity. Within each commodity, slot resolution stays
// sequential so priority order keeps its meaning.
func (a *Aggregator) ResolveAll(ctx context.Context) ([]*Quote, error) {
	keys := commodity.Keys()
	quotes := make([]*Quote, len(keys))

	g, ctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		g.Go(func() error {
			q, err := a.Resolve(ctx, key)
			if err != nil {
				return err
			}
			quotes[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return quotes, nil
}

// contributingSources lists each slot's source label in slot order,
// collapsing duplicates (both slots often come from the same provider).
func contributingSources(us, world *source.PricePoint) []string {
	sources := []string{us.Source}
	if world.Source != us.Source {
		sources = append(sources, world.Source)
	}
	return sources
}
