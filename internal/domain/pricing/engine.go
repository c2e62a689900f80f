package pricing

import (
	"github.com/shopspring/decimal"
)

var (
	// DefaultVATRate is the flat Saudi VAT rate.
	DefaultVATRate = decimal.RequireFromString("0.15")
	// DefaultFreeShippingThreshold is the subtotal (SAR) from which shipping is waived.
	DefaultFreeShippingThreshold = decimal.NewFromInt(500)
	// DefaultShippingRate applies to cities missing from the rate table.
	DefaultShippingRate = decimal.NewFromInt(25)
	// DefaultMaxShipping caps the shipping amount of a single order.
	DefaultMaxShipping = decimal.NewFromInt(100)
	// DefaultExtraSellerFactor is the share of the base rate charged per
	// additional seller.
	DefaultExtraSellerFactor = decimal.RequireFromString("0.5")

	validationTolerance = decimal.RequireFromString("0.01")
)

// DefaultRates returns the built-in rate table: the five major cities, all
// shipped free.
func DefaultRates() []CityRate {
	cities := []string{"الرياض", "جدة", "الدمام", "مكة المكرمة", "المدينة المنورة"}
	rates := make([]CityRate, len(cities))
	for i, c := range cities {
		rates[i] = CityRate{City: c, Rate: decimal.Zero, IsFree: true}
	}
	return rates
}

// Engine computes order pricing. It is immutable after construction and safe
// for concurrent use.
type Engine struct {
	vatRate           decimal.Decimal
	threshold         decimal.Decimal
	defaultRate       decimal.Decimal
	maxShipping       decimal.Decimal
	extraSellerFactor decimal.Decimal
	rates             []CityRate
}

// Option configures an Engine.
type Option func(*Engine)

// WithVATRate overrides the VAT rate.
func WithVATRate(rate decimal.Decimal) Option {
	return func(e *Engine) { e.vatRate = rate }
}

// WithFreeShippingThreshold overrides the free-shipping subtotal threshold.
func WithFreeShippingThreshold(threshold decimal.Decimal) Option {
	return func(e *Engine) { e.threshold = threshold }
}

// WithDefaultRate overrides the rate used for unknown cities.
func WithDefaultRate(rate decimal.Decimal) Option {
	return func(e *Engine) { e.defaultRate = rate }
}

// WithMaxShipping overrides the shipping cap.
func WithMaxShipping(limit decimal.Decimal) Option {
	return func(e *Engine) { e.maxShipping = limit }
}

// WithExtraSellerFactor overrides the per-additional-seller surcharge factor.
func WithExtraSellerFactor(factor decimal.Decimal) Option {
	return func(e *Engine) { e.extraSellerFactor = factor }
}

// WithRates replaces the city rate table. Order matters: substring matches
// resolve to the first matching entry. An empty table is ignored.
func WithRates(rates []CityRate) Option {
	return func(e *Engine) {
		if len(rates) == 0 {
			return
		}
		e.rates = make([]CityRate, len(rates))
		for i, r := range rates {
			r.IsFree = r.Rate.IsZero()
			e.rates[i] = r
		}
	}
}

// NewEngine returns an Engine with the default Saudi marketplace rules,
// adjusted by opts.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		vatRate:           DefaultVATRate,
		threshold:         DefaultFreeShippingThreshold,
		defaultRate:       DefaultShippingRate,
		maxShipping:       DefaultMaxShipping,
		extraSellerFactor: DefaultExtraSellerFactor,
		rates:             DefaultRates(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FreeShippingThreshold returns the subtotal from which shipping is waived.
func (e *Engine) FreeShippingThreshold() decimal.Decimal {
	return e.threshold
}

// CalculateOrderPricing prices an order: VAT on the subtotal, shipping for the
// destination and seller spread, and the grand total.
func (e *Engine) CalculateOrderPricing(in Input) Pricing {
	tax := e.CalculateVAT(in.Subtotal)
	ship := e.CalculateShipping(in.Subtotal, in.ShippingCity, in.Items)
	total := in.Subtotal.Add(tax).Add(ship.Cost)

	eligible := in.Subtotal.GreaterThanOrEqual(e.threshold)
	details := ShippingDetails{
		EligibleForFreeShipping: eligible,
		ShippingCity:            in.ShippingCity,
		BaseCost:                ship.BaseCost,
	}
	if !eligible {
		details.AmountNeededForFreeShipping = decimal.NewNullDecimal(e.threshold.Sub(in.Subtotal))
	}

	return Pricing{
		Subtotal:       in.Subtotal,
		TaxAmount:      tax,
		ShippingAmount: ship.Cost,
		Total:          total,
		Breakdown: Breakdown{
			Subtotal: in.Subtotal,
			VAT:      tax,
			Shipping: ship.Cost,
			Total:    total,
		},
		FreeShipping:    ship.Cost.IsZero() && (eligible || ship.BaseCost.IsZero()),
		ShippingDetails: details,
	}
}

// CalculateVAT returns the VAT due on subtotal, rounded to halalas.
func (e *Engine) CalculateVAT(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(e.vatRate).Round(2)
}

// EstimateShipping quotes shipping before checkout, assuming a single seller.
func (e *Engine) EstimateShipping(subtotal decimal.Decimal, city string) Estimate {
	ship := e.CalculateShipping(subtotal, city, nil)
	est := Estimate{
		Cost:                 ship.Cost,
		FreeShippingEligible: ship.Cost.IsZero(),
	}
	if !est.FreeShippingEligible && subtotal.LessThan(e.threshold) {
		est.AmountNeededForFreeShipping = decimal.NewNullDecimal(e.threshold.Sub(subtotal))
	}
	return est
}

// SupportedCities returns a copy of the rate table.
func (e *Engine) SupportedCities() []CityRate {
	out := make([]CityRate, len(e.rates))
	copy(out, e.rates)
	return out
}

// ValidatePricing reports whether p.Total equals subtotal + tax + shipping
// within one halala.
func ValidatePricing(p Pricing) bool {
	sum := p.Subtotal.Add(p.TaxAmount).Add(p.ShippingAmount)
	return sum.Sub(p.Total).Abs().LessThanOrEqual(validationTolerance)
}
