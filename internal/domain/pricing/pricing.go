// Package pricing computes VAT, shipping and order totals for marketplace
// checkouts.
//
// The engine is a pure function of its input: it performs no I/O, returns no
// errors and never mutates shared state. Input validation belongs to the
// caller.
package pricing

import "github.com/shopspring/decimal"

// Item is a single order line with its originating seller.
type Item struct {
	ListingID string
	Quantity  int
	UnitPrice decimal.Decimal
	SellerID  string
	// City is the seller's city. It is carried through for callers and
	// currently does not affect shipping cost.
	City string
}

// Input is the engine input for one order.
//
// Subtotal is expected to equal the sum of UnitPrice*Quantity over Items; the
// engine does not check it.
type Input struct {
	Subtotal     decimal.Decimal
	ShippingCity string
	Items        []Item
}

// Breakdown restates the four headline amounts under the field names older
// API consumers expect.
type Breakdown struct {
	Subtotal decimal.Decimal
	VAT      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// ShippingDetails explains how the shipping amount was derived.
type ShippingDetails struct {
	EligibleForFreeShipping bool
	// AmountNeededForFreeShipping is set only while the subtotal is below the
	// free-shipping threshold.
	AmountNeededForFreeShipping decimal.NullDecimal
	ShippingCity                string
	BaseCost                    decimal.Decimal
}

// Pricing is the computed price of an order.
type Pricing struct {
	Subtotal        decimal.Decimal
	TaxAmount       decimal.Decimal
	ShippingAmount  decimal.Decimal
	Total           decimal.Decimal
	Breakdown       Breakdown
	FreeShipping    bool
	ShippingDetails ShippingDetails
}

// Shipping is the result of a shipping calculation.
type Shipping struct {
	Cost     decimal.Decimal
	BaseCost decimal.Decimal
	// Sellers is the number of distinct sellers the order ships from.
	Sellers int
}

// Estimate is a pre-checkout shipping estimate for a single seller.
type Estimate struct {
	Cost                        decimal.Decimal
	FreeShippingEligible        bool
	AmountNeededForFreeShipping decimal.NullDecimal
}

// CityRate is one entry of the shipping rate table.
type CityRate struct {
	City   string
	Rate   decimal.Decimal
	IsFree bool
}
