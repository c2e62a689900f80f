package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/autoparts/internal/domain/listing"
	"github.com/xenking/autoparts/internal/domain/order"
	"github.com/xenking/autoparts/internal/domain/pricing"
)

// cartRequest is the body shared by quote and order placement.
type cartRequest struct {
	Lines        []order.Line
	ShippingCity string
	BuyerName    string
	BuyerPhone   string
}

func (c *cartRequest) decode(d *jx.Decoder, key string) error {
	var err error
	switch key {
	case "items":
		err = d.Arr(func(d *jx.Decoder) error {
			var line order.Line
			if err := d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "listingId":
					line.ListingID, err = d.Str()
				case "quantity":
					line.Quantity, err = d.Int()
				default:
					err = d.Skip()
				}
				return errors.Wrap(err, key)
			}); err != nil {
				return err
			}
			c.Lines = append(c.Lines, line)
			return nil
		})
	case "shippingCity":
		c.ShippingCity, err = d.Str()
	case "buyerName":
		c.BuyerName, err = d.Str()
	case "buyerPhone":
		c.BuyerPhone, err = d.Str()
	default:
		err = d.Skip()
	}
	return errors.Wrap(err, key)
}

func (c *cartRequest) quoteRequest() order.QuoteRequest {
	return order.QuoteRequest{
		Lines:        c.Lines,
		ShippingCity: c.ShippingCity,
	}
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req cartRequest
	if err := decodeBody(w, r, req.decode); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.checkout.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		QuoteRequest: req.quoteRequest(),
		BuyerName:    req.BuyerName,
		BuyerPhone:   req.BuyerPhone,
	})
	if err != nil {
		writeCheckoutError(w, r, err)
		return
	}

	o := result.Order
	locale := h.locale(r)
	w.Header().Set("Location", "/api/orders/"+o.ID)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(o.ID)
		e.FieldStart("createdAt")
		e.Str(o.CreatedAt.Format(time.RFC3339))
		e.FieldStart("shippingCity")
		e.Str(o.ShippingCity)
		e.FieldStart("items")
		encodeLines(e, o.Items, result.Listings, locale)
		e.FieldStart("pricing")
		encodePricing(e, o.Pricing, locale)
		e.ObjEnd()
	})
}

// encodeLines writes priced lines. listings is parallel to items.
func encodeLines(e *jx.Encoder, items []order.Item, listings []listing.Listing, locale string) {
	arabic := pricing.IsArabic(locale)
	e.ArrStart()
	for i, it := range items {
		e.ObjStart()
		e.FieldStart("listingId")
		e.Str(it.ListingID)
		if i < len(listings) {
			e.FieldStart("partNumber")
			e.Str(listings[i].PartNumber)
			e.FieldStart("title")
			e.Str(listings[i].Title.Localized(arabic))
		}
		e.FieldStart("sellerId")
		e.Str(it.SellerID)
		e.FieldStart("sellerCity")
		e.Str(it.SellerCity)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("unitPrice")
		encodeMoney(e, it.UnitPrice)
		e.FieldStart("formattedUnitPrice")
		e.Str(pricing.FormatCurrency(it.UnitPrice, locale))
		e.ObjEnd()
	}
	e.ArrEnd()
}
