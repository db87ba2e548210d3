// Package commodity holds the static per-commodity data the aggregator
// interprets: display configuration, fallback price estimates, and the
// priority-ordered source policies for the US and world slots.
//
// Everything here is loaded once and read-only afterwards. Adding a new
// commodity or provider is a table edit, not a code change in the
// aggregator.
package commodity

import (
	"fmt"
	"sort"
	"strings"
)

// Key identifies one of the supported energy commodities.
type Key string

const (
	Oil        Key = "oil"
	NaturalGas Key = "naturalgas"
	Coal       Key = "coal"
	Solar      Key = "solar"
	Wind       Key = "wind"
	Nuclear    Key = "nuclear"
)

// Adapter name labels. These are the strings recorded in a quote's
// data-sources list and referenced by the policy tables below.
const (
	SourceEIA      = "EIA"
	SourceFRED     = "FRED"
	SourceEmber    = "Ember"
	SourceYFinance = "Yahoo Finance"
	SourceFallback = "Fallback"
	SourceDerived  = "Calculated from US price"
)

// Config is the static configuration for one commodity.
type Config struct {
	Key          Key     `json:"key"`
	Name         string  `json:"name"`
	FullName     string  `json:"fullName"`
	Unit         string  `json:"unit"`
	Elasticity   float64 `json:"elasticity"`   // price elasticity of demand, 0 < e <= 1
	USUnit       string  `json:"unitsUs"`
	WorldUnit    string  `json:"unitsWorld"`
	SupplyFactor float64 `json:"supplyConstraintFactor"` // > 0
}

// Fallback is the static estimated price pair used when no live source
// resolves a slot. Units for every quote come from here, live or not;
// providers occasionally omit or vary unit conventions.
type Fallback struct {
	USValue    float64
	WorldValue float64
	USUnit     string
	WorldUnit  string
}

// SourceRef names one adapter and the provider-specific series to ask it for.
type SourceRef struct {
	Adapter string
	Series  string
}

// SlotPolicy describes how one slot (US or world) of a quote resolves.
// Either Sources is a priority-ordered list of adapters to try, or
// USMultiplier is > 0 and the slot derives from the resolved US value.
type SlotPolicy struct {
	Sources      []SourceRef
	USMultiplier float64
}

// Derived reports whether this slot is computed from the US slot.
func (p SlotPolicy) Derived() bool { return p.USMultiplier > 0 }

// Policy is the full resolution policy for one commodity.
type Policy struct {
	US    SlotPolicy
	World SlotPolicy
}

// GasWorldMultiplier converts the Henry Hub US price to a world (LNG
// import parity) estimate.
const GasWorldMultiplier = 3.5

// LCOEWorldMarkup converts a US levelized cost of electricity to a world
// estimate for the generation commodities.
const LCOEWorldMarkup = 1.15

var configs = map[Key]Config{
	Oil: {
		Key: Oil, Name: "Oil", FullName: "Crude Oil (WTI)",
		Unit: "barrel", Elasticity: 0.4,
		USUnit: "USD/barrel", WorldUnit: "USD/barrel",
		SupplyFactor: 1.2,
	},
	NaturalGas: {
		Key: NaturalGas, Name: "Natural Gas", FullName: "Natural Gas (Henry Hub)",
		Unit: "MMBtu", Elasticity: 0.3,
		USUnit: "USD/MMBtu", WorldUnit: "USD/MMBtu",
		SupplyFactor: 1.4,
	},
	Coal: {
		Key: Coal, Name: "Coal", FullName: "Coal (Central Appalachia)",
		Unit: "short ton", Elasticity: 0.3,
		USUnit: "USD/short ton", WorldUnit: "USD/tonne",
		SupplyFactor: 1.1,
	},
	Solar: {
		Key: Solar, Name: "Solar", FullName: "Solar (Utility-Scale LCOE)",
		Unit: "MWh", Elasticity: 0.9,
		USUnit: "USD/MWh", WorldUnit: "USD/MWh",
		SupplyFactor: 0.8,
	},
	Wind: {
		Key: Wind, Name: "Wind", FullName: "Wind (Onshore LCOE)",
		Unit: "MWh", Elasticity: 0.9,
		USUnit: "USD/MWh", WorldUnit: "USD/MWh",
		SupplyFactor: 0.8,
	},
	Nuclear: {
		Key: Nuclear, Name: "Nuclear", FullName: "Nuclear (LCOE)",
		Unit: "MWh", Elasticity: 0.25,
		USUnit: "USD/MWh", WorldUnit: "USD/MWh",
		SupplyFactor: 1.0,
	},
}

var fallbacks = map[Key]Fallback{
	Oil:        {USValue: 74.50, WorldValue: 78.80, USUnit: "USD/barrel", WorldUnit: "USD/barrel"},
	NaturalGas: {USValue: 2.80, WorldValue: 9.80, USUnit: "USD/MMBtu", WorldUnit: "USD/MMBtu"},
	Coal:       {USValue: 77.00, WorldValue: 118.00, USUnit: "USD/short ton", WorldUnit: "USD/tonne"},
	Solar:      {USValue: 36.00, WorldValue: 41.40, USUnit: "USD/MWh", WorldUnit: "USD/MWh"},
	Wind:       {USValue: 40.00, WorldValue: 46.00, USUnit: "USD/MWh", WorldUnit: "USD/MWh"},
	Nuclear:    {USValue: 155.00, WorldValue: 178.25, USUnit: "USD/MWh", WorldUnit: "USD/MWh"},
}

// policies maps each commodity to its slot resolution policy. US and world
// slots have independent priority lists because domestic benchmarks and
// world estimates usually live in structurally different upstream datasets.
var policies = map[Key]Policy{
	Oil: {
		US: SlotPolicy{Sources: []SourceRef{
			{Adapter: SourceEIA, Series: "PET.RWTC.D"},
			{Adapter: SourceFRED, Series: "DCOILWTICO"},
			{Adapter: SourceYFinance, Series: "CL=F"},
		}},
		World: SlotPolicy{Sources: []SourceRef{
			{Adapter: SourceEIA, Series: "PET.RBRTE.D"},
			{Adapter: SourceFRED, Series: "DCOILBRENTEU"},
			{Adapter: SourceYFinance, Series: "BZ=F"},
		}},
	},
	NaturalGas: {
		US: SlotPolicy{Sources: []SourceRef{
			{Adapter: SourceEIA, Series: "NG.RNGWHHD.D"},
			{Adapter: SourceFRED, Series: "DHHNGSP"},
			{Adapter: SourceYFinance, Series: "NG=F"},
		}},
		World: SlotPolicy{USMultiplier: GasWorldMultiplier},
	},
	Coal: {
		US: SlotPolicy{Sources: []SourceRef{
			{Adapter: SourceEIA, Series: "COAL.WEEKLY_PRICE.CAPP.W"},
			{Adapter: SourceFRED, Series: "WPU051"},
		}},
		World: SlotPolicy{Sources: []SourceRef{
			{Adapter: SourceFRED, Series: "PCOALAUUSDM"},
			{Adapter: SourceYFinance, Series: "MTF=F"},
		}},
	},
	Solar: {
		US:    SlotPolicy{Sources: []SourceRef{{Adapter: SourceEmber, Series: "solar"}}},
		World: SlotPolicy{USMultiplier: LCOEWorldMarkup},
	},
	Wind: {
		US:    SlotPolicy{Sources: []SourceRef{{Adapter: SourceEmber, Series: "wind"}}},
		World: SlotPolicy{USMultiplier: LCOEWorldMarkup},
	},
	Nuclear: {
		US:    SlotPolicy{Sources: []SourceRef{{Adapter: SourceEmber, Series: "nuclear"}}},
		World: SlotPolicy{USMultiplier: LCOEWorldMarkup},
	},
}

// UnknownKeyError reports a request for a commodity that is not configured.
// The message lists the valid keys so API clients can self-correct.
type UnknownKeyError struct {
	Key string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown commodity %q (valid: %s)", e.Key, strings.Join(keyStrings(), ", "))
}

// Get returns the configuration for a commodity key.
func Get(key Key) (Config, error) {
	cfg, ok := configs[key]
	if !ok {
		return Config{}, &UnknownKeyError{Key: string(key)}
	}
	return cfg, nil
}

// LookupFallback returns the static price estimates for a commodity key.
func LookupFallback(key Key) (Fallback, error) {
	fb, ok := fallbacks[key]
	if !ok {
		return Fallback{}, &UnknownKeyError{Key: string(key)}
	}
	return fb, nil
}

// LookupPolicy returns the slot resolution policy for a commodity key.
func LookupPolicy(key Key) (Policy, error) {
	p, ok := policies[key]
	if !ok {
		return Policy{}, &UnknownKeyError{Key: string(key)}
	}
	return p, nil
}

// Keys returns all configured commodity keys, sorted.
func Keys() []Key {
	keys := make([]Key, 0, len(configs))
	for k := range configs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// All returns all commodity configs, sorted by key.
func All() []Config {
	out := make([]Config, 0, len(configs))
	for _, k := range Keys() {
		out = append(out, configs[k])
	}
	return out
}

func keyStrings() []string {
	keys := Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

// Validate checks the static tables for internal consistency. Any error
// here is a build-time mistake, so main treats it as fatal.
func Validate() error {
	for k, cfg := range configs {
		if cfg.Elasticity <= 0 || cfg.Elasticity > 1 {
			return fmt.Errorf("commodity %s: elasticity %v out of range (0, 1]", k, cfg.Elasticity)
		}
		if cfg.SupplyFactor <= 0 {
			return fmt.Errorf("commodity %s: supply factor %v must be positive", k, cfg.SupplyFactor)
		}
		if _, ok := fallbacks[k]; !ok {
			return fmt.Errorf("commodity %s: missing fallback entry", k)
		}
		p, ok := policies[k]
		if !ok {
			return fmt.Errorf("commodity %s: missing resolution policy", k)
		}
		if len(p.US.Sources) == 0 {
			return fmt.Errorf("commodity %s: US slot has no sources", k)
		}
		if p.US.Derived() {
			return fmt.Errorf("commodity %s: US slot cannot derive from itself", k)
		}
		if !p.World.Derived() && len(p.World.Sources) == 0 {
			return fmt.Errorf("commodity %s: world slot has no sources and no multiplier", k)
		}
	}
	return nil
}
