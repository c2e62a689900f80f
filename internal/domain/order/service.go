package order

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/autoparts/internal/domain/listing"
	"github.com/xenking/autoparts/internal/domain/pricing"
)

// Sentinel errors for checkout validation.
var (
	ErrEmptyItems        = errors.New("items required")
	ErrEmptyShippingCity = errors.New("shipping city required")
	// ErrInconsistentPricing means the computed total does not add up. It
	// indicates a bug, not bad input.
	ErrInconsistentPricing = errors.New("pricing total mismatch")
)

// ListingNotFoundError indicates a requested listing does not exist or is
// no longer active.
type ListingNotFoundError struct {
	ListingID string
}

func (e *ListingNotFoundError) Error() string {
	return fmt.Sprintf("listing %s not found", e.ListingID)
}

// InvalidQuantityError indicates a line has a non-positive quantity.
type InvalidQuantityError struct {
	ListingID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for listing %s", e.ListingID)
}

// InsufficientStockError indicates more units were requested than the
// seller has.
type InsufficientStockError struct {
	ListingID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("listing %s has %d in stock, %d requested", e.ListingID, e.Available, e.Requested)
}

// QuoteRequest holds the input for pricing a cart.
type QuoteRequest struct {
	Lines        []Line
	ShippingCity string
}

// Quote is a priced cart.
type Quote struct {
	Items    []Item
	Listings []listing.Listing
	Pricing  pricing.Pricing
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	QuoteRequest
	BuyerName  string
	BuyerPhone string
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order    *Order
	Listings []listing.Listing
}

// Service prices carts and places orders.
type Service struct {
	listings listing.Repository
	orders   Repository
	engine   *pricing.Engine
	now      func() time.Time

	tracer trace.Tracer
	quotes metric.Int64Counter
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	listings listing.Repository,
	orders Repository,
	engine *pricing.Engine,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*Service, error) {
	meter := mp.Meter("github.com/xenking/autoparts/internal/domain/order")
	quotes, err := meter.Int64Counter("checkout.quotes",
		metric.WithDescription("Priced carts by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create quotes counter")
	}
	return &Service{
		listings: listings,
		orders:   orders,
		engine:   engine,
		now:      time.Now,
		tracer:   tp.Tracer("github.com/xenking/autoparts/internal/domain/order"),
		quotes:   quotes,
	}, nil
}

// Quote validates lines, fetches listings in a single batch and prices the
// cart for the requested city.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (_ *Quote, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Quote",
		trace.WithAttributes(
			attribute.Int("checkout.lines", len(req.Lines)),
			attribute.String("checkout.city", req.ShippingCity),
		),
	)
	defer func() {
		outcome := "ok"
		if rerr != nil {
			outcome = "rejected"
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		s.quotes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		span.End()
	}()

	if len(req.Lines) == 0 {
		return nil, ErrEmptyItems
	}
	if strings.TrimSpace(req.ShippingCity) == "" {
		return nil, ErrEmptyShippingCity
	}

	ids := make([]string, len(req.Lines))
	for i, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, &InvalidQuantityError{ListingID: line.ListingID}
		}
		ids[i] = line.ListingID
	}

	fetched, err := s.listings.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get listings")
	}
	byID := make(map[string]listing.Listing, len(fetched))
	for _, l := range fetched {
		byID[l.ID] = l
	}

	// The same listing may appear on several lines; stock is checked against
	// the combined quantity.
	requested := make(map[string]int, len(req.Lines))

	listings := make([]listing.Listing, 0, len(req.Lines))
	items := make([]Item, 0, len(req.Lines))
	pricingItems := make([]pricing.Item, 0, len(req.Lines))
	subtotal := decimal.Zero
	for _, line := range req.Lines {
		l, ok := byID[line.ListingID]
		if !ok || !l.Active {
			return nil, &ListingNotFoundError{ListingID: line.ListingID}
		}
		prev := requested[l.ID]
		if line.Quantity > l.Stock-prev {
			return nil, &InsufficientStockError{
				ListingID: l.ID,
				Requested: addCapped(prev, line.Quantity),
				Available: l.Stock,
			}
		}
		requested[l.ID] = prev + line.Quantity

		listings = append(listings, l)
		items = append(items, Item{
			ListingID:  l.ID,
			SellerID:   l.SellerID,
			SellerCity: l.SellerCity,
			Quantity:   line.Quantity,
			UnitPrice:  l.Price,
		})
		pricingItems = append(pricingItems, pricing.Item{
			ListingID: l.ID,
			Quantity:  line.Quantity,
			UnitPrice: l.Price,
			SellerID:  l.SellerID,
			City:      l.SellerCity,
		})
		subtotal = subtotal.Add(l.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	p := s.engine.CalculateOrderPricing(pricing.Input{
		Subtotal:     subtotal,
		ShippingCity: req.ShippingCity,
		Items:        pricingItems,
	})
	span.SetAttributes(
		attribute.String("checkout.total", p.Total.String()),
		attribute.Bool("checkout.free_shipping", p.FreeShipping),
	)

	return &Quote{
		Items:    items,
		Listings: listings,
		Pricing:  p,
	}, nil
}

// PlaceOrder prices the cart, checks the totals add up, and persists the
// order.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder")
	defer span.End()

	q, err := s.Quote(ctx, req.QuoteRequest)
	if err != nil {
		return nil, err
	}
	if !pricing.ValidatePricing(q.Pricing) {
		return nil, ErrInconsistentPricing
	}

	o := &Order{
		ID:           uuid.New().String(),
		Items:        q.Items,
		ShippingCity: req.ShippingCity,
		BuyerName:    strings.TrimSpace(req.BuyerName),
		BuyerPhone:   strings.TrimSpace(req.BuyerPhone),
		Pricing:      q.Pricing,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create order")
		return nil, errors.Wrap(err, "create order")
	}
	span.SetAttributes(attribute.String("order.id", o.ID))

	return &PlaceOrderResult{
		Order:    o,
		Listings: q.Listings,
	}, nil
}

// addCapped returns a+b for non-negative a and b, saturating at math.MaxInt.
func addCapped(a, b int) int {
	if b > math.MaxInt-a {
		return math.MaxInt
	}
	return a + b
}
