package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/autoparts/internal/domain/pricing"
)

// calculateRequest is the raw pricing input. Subtotal may be omitted, in
// which case it is summed from the items.
type calculateRequest struct {
	Subtotal     decimal.NullDecimal
	ShippingCity string
	Items        []pricing.Item
}

func (c *calculateRequest) decode(d *jx.Decoder, key string) error {
	switch key {
	case "subtotal":
		v, err := decodeDecimal(d)
		if err != nil {
			return errors.Wrap(err, "subtotal")
		}
		c.Subtotal = decimal.NewNullDecimal(v)
	case "shippingCity":
		s, err := d.Str()
		if err != nil {
			return errors.Wrap(err, "shippingCity")
		}
		c.ShippingCity = s
	case "items":
		return d.Arr(func(d *jx.Decoder) error {
			var it pricing.Item
			if err := d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "listingId":
					it.ListingID, err = d.Str()
				case "quantity":
					it.Quantity, err = d.Int()
				case "unitPrice":
					it.UnitPrice, err = decodeDecimal(d)
				case "sellerId":
					it.SellerID, err = d.Str()
				case "city":
					it.City, err = d.Str()
				default:
					err = d.Skip()
				}
				return errors.Wrap(err, key)
			}); err != nil {
				return errors.Wrap(err, "items")
			}
			c.Items = append(c.Items, it)
			return nil
		})
	default:
		return d.Skip()
	}
	return nil
}

func (c *calculateRequest) validate() error {
	if strings.TrimSpace(c.ShippingCity) == "" {
		return errors.New("shippingCity required")
	}
	for _, it := range c.Items {
		if it.Quantity <= 0 {
			return errors.Errorf("quantity must be greater than 0 for listing %s", it.ListingID)
		}
		if it.UnitPrice.IsNegative() {
			return errors.Errorf("unitPrice must not be negative for listing %s", it.ListingID)
		}
	}
	if c.Subtotal.Valid && c.Subtotal.Decimal.IsNegative() {
		return errors.New("subtotal must not be negative")
	}
	if !c.Subtotal.Valid && len(c.Items) == 0 {
		return errors.New("subtotal or items required")
	}
	return nil
}

func (c *calculateRequest) input() pricing.Input {
	subtotal := c.Subtotal.Decimal
	if !c.Subtotal.Valid {
		for _, it := range c.Items {
			subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
	}
	return pricing.Input{
		Subtotal:     subtotal,
		ShippingCity: c.ShippingCity,
		Items:        c.Items,
	}
}

func (h *Handler) calculatePricing(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := decodeBody(w, r, req.decode); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := h.engine.CalculateOrderPricing(req.input())
	locale := h.locale(r)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodePricing(e, p, locale)
	})
}

func (h *Handler) vat(w http.ResponseWriter, r *http.Request) {
	subtotal, err := parseMoney(r.URL.Query().Get("subtotal"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subtotal: "+err.Error())
		return
	}

	vat := h.engine.CalculateVAT(subtotal)
	locale := h.locale(r)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("subtotal")
		encodeMoney(e, subtotal)
		e.FieldStart("vat")
		encodeMoney(e, vat)
		e.FieldStart("formatted")
		e.Str(pricing.FormatCurrency(vat, locale))
		e.ObjEnd()
	})
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	var req cartRequest
	if err := decodeBody(w, r, req.decode); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	q, err := h.checkout.Quote(r.Context(), req.quoteRequest())
	if err != nil {
		writeCheckoutError(w, r, err)
		return
	}

	locale := h.locale(r)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("items")
		encodeLines(e, q.Items, q.Listings, locale)
		e.FieldStart("pricing")
		encodePricing(e, q.Pricing, locale)
		e.ObjEnd()
	})
}
