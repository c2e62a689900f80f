package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CalculateShipping returns the shipping cost for an order of subtotal to city
// containing items.
//
// Orders at or above the free-shipping threshold ship free. Otherwise the
// city's base rate applies, plus a surcharge of extraSellerFactor*base for
// every distinct seller beyond the first, capped at maxShipping.
func (e *Engine) CalculateShipping(subtotal decimal.Decimal, city string, items []Item) Shipping {
	base := e.baseCost(city)
	sellers := uniqueSellers(items)
	ship := Shipping{
		Cost:     decimal.Zero,
		BaseCost: base,
		Sellers:  sellers,
	}

	if subtotal.GreaterThanOrEqual(e.threshold) || base.IsZero() {
		return ship
	}

	extra := sellers - 1
	if extra < 0 {
		extra = 0
	}
	surcharge := base.Mul(e.extraSellerFactor).Mul(decimal.NewFromInt(int64(extra)))
	cost := base.Add(surcharge)
	if cost.GreaterThan(e.maxShipping) {
		cost = e.maxShipping
	}
	ship.Cost = cost.Round(2)
	return ship
}

// baseCost resolves the rate for city: an exact table match first, then the
// first entry where either name contains the other, then the default rate.
//
// Containment is checked in both directions, so short inputs can match
// unrelated entries (an empty city matches the first one). Requests are
// expected to reject blank cities before reaching the engine.
func (e *Engine) baseCost(city string) decimal.Decimal {
	for _, r := range e.rates {
		if r.City == city {
			return r.Rate
		}
	}
	for _, r := range e.rates {
		if strings.Contains(city, r.City) || strings.Contains(r.City, city) {
			return r.Rate
		}
	}
	return e.defaultRate
}

func uniqueSellers(items []Item) int {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		seen[item.SellerID] = struct{}{}
	}
	return len(seen)
}
