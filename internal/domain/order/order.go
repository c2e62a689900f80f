package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/autoparts/internal/domain/pricing"
)

// Order is a placed order with the pricing it was accepted at.
type Order struct {
	ID           string
	Items        []Item
	ShippingCity string
	BuyerName    string
	BuyerPhone   string
	Pricing      pricing.Pricing
	CreatedAt    time.Time
}

// Item is an order line snapshot taken at checkout time.
type Item struct {
	ListingID  string
	SellerID   string
	SellerCity string
	Quantity   int
	UnitPrice  decimal.Decimal
}

// Line is a requested cart line.
type Line struct {
	ListingID string
	Quantity  int
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
}
