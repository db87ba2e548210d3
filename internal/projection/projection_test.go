package projection

import (
	"math"
	"testing"

	"github.com/seenimoa/energyprice/internal/commodity"
)

func closeTo(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestProjectZeroUsageChange(t *testing.T) {
	pct, price := Project(74.50, 0, 0.4, 1.2)
	if pct != 0 {
		t.Errorf("priceChangePct = %v, want 0", pct)
	}
	if price != 74.50 {
		t.Errorf("newPrice = %v, want unchanged 74.50", price)
	}
}

func TestProjectOilExample(t *testing.T) {
	// oil at 74.50, +10% usage, elasticity 0.4, supply factor 1.2:
	// (10/100) * (1/0.4) * 1.2 * 100 = 30% → 74.50 * 1.30 = 96.85
	pct, price := Project(74.50, 10, 0.4, 1.2)
	if !closeTo(pct, 30.0) {
		t.Errorf("priceChangePct = %v, want 30.0", pct)
	}
	if !closeTo(price, 96.85) {
		t.Errorf("newPrice = %v, want 96.85", price)
	}
}

func TestProjectNegativeUsageChange(t *testing.T) {
	pct, price := Project(100, -5, 0.5, 1.0)
	if !closeTo(pct, -10.0) {
		t.Errorf("priceChangePct = %v, want -10.0", pct)
	}
	if !closeTo(price, 90.0) {
		t.Errorf("newPrice = %v, want 90.0", price)
	}
}

func TestProjectLowElasticityAmplifies(t *testing.T) {
	// Inelastic demand means a small usage shift moves the price a lot.
	inelastic, _ := Project(100, 5, 0.25, 1.0)
	elastic, _ := Project(100, 5, 0.9, 1.0)
	if inelastic <= elastic {
		t.Errorf("inelastic %v should exceed elastic %v", inelastic, elastic)
	}
}

func TestProjectCommodityUsesConfig(t *testing.T) {
	cfg, err := commodity.Get(commodity.Oil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	pct, price := ProjectCommodity(cfg, 74.50, 10)
	if !closeTo(pct, 30.0) || !closeTo(price, 96.85) {
		t.Errorf("ProjectCommodity = (%v, %v), want (30.0, 96.85)", pct, price)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	h := NewHistory()
	h.Add(Result{CurrentPrice: 1})
	h.Add(Result{CurrentPrice: 2})
	h.Add(Result{CurrentPrice: 3})

	entries := h.Entries()
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	for i, want := range []float64{3, 2, 1} {
		if entries[i].CurrentPrice != want {
			t.Errorf("entries[%d].CurrentPrice = %v, want %v", i, entries[i].CurrentPrice, want)
		}
	}
}

func TestHistoryBounded(t *testing.T) {
	h := NewHistory()
	for i := 0; i < defaultHistoryLimit+20; i++ {
		h.Add(Result{CurrentPrice: float64(i)})
	}
	if h.Len() != defaultHistoryLimit {
		t.Fatalf("len = %d, want %d", h.Len(), defaultHistoryLimit)
	}
	entries := h.Entries()
	// Oldest entries were dropped; the newest survives at the front.
	if entries[0].CurrentPrice != float64(defaultHistoryLimit+19) {
		t.Errorf("newest = %v", entries[0].CurrentPrice)
	}
	if entries[len(entries)-1].CurrentPrice != 20 {
		t.Errorf("oldest retained = %v, want 20", entries[len(entries)-1].CurrentPrice)
	}
}

func TestHistoryEntriesCopy(t *testing.T) {
	h := NewHistory()
	h.Add(Result{CurrentPrice: 1})
	entries := h.Entries()
	entries[0].CurrentPrice = 99
	if h.Entries()[0].CurrentPrice != 1 {
		t.Error("Entries must return a copy")
	}
}
