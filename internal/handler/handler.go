// Package handler exposes pricing, shipping and checkout over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/autoparts/internal/domain/order"
	"github.com/xenking/autoparts/internal/domain/pricing"
)

// Checkout prices carts and places orders.
type Checkout interface {
	Quote(ctx context.Context, req order.QuoteRequest) (*order.Quote, error)
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.PlaceOrderResult, error)
}

var _ Checkout = (*order.Service)(nil)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// DefaultLocale is used when the request names neither a locale query
	// parameter nor an Accept-Language header.
	DefaultLocale string
}

// Handler serves the /api routes.
type Handler struct {
	engine        *pricing.Engine
	checkout      Checkout
	defaultLocale string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg Config, engine *pricing.Engine, checkout Checkout) *Handler {
	locale := cfg.DefaultLocale
	if locale == "" {
		locale = "ar"
	}
	return &Handler{
		engine:        engine,
		checkout:      checkout,
		defaultLocale: locale,
	}
}

// Routes registers the API endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/pricing", func(r chi.Router) {
		r.Post("/calculate", h.calculatePricing)
		r.Post("/quote", h.quote)
		r.Get("/vat", h.vat)
	})
	r.Route("/shipping", func(r chi.Router) {
		r.Get("/estimate", h.estimateShipping)
		r.Get("/cities", h.supportedCities)
	})
	r.Post("/orders", h.placeOrder)
}

// Router returns a chi router with the API mounted under /api. Middlewares
// run inside the router, so they can read the matched route pattern.
func (h *Handler) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares...)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.Route("/api", h.Routes)
	return r
}
