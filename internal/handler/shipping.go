package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"

	"github.com/xenking/autoparts/internal/domain/pricing"
)

func (h *Handler) estimateShipping(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	subtotal, err := parseMoney(q.Get("subtotal"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subtotal: "+err.Error())
		return
	}
	city := strings.TrimSpace(q.Get("city"))
	if city == "" {
		writeError(w, http.StatusBadRequest, "city required")
		return
	}

	est := h.engine.EstimateShipping(subtotal, city)
	locale := h.locale(r)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("cost")
		encodeMoney(e, est.Cost)
		e.FieldStart("freeShippingEligible")
		e.Bool(est.FreeShippingEligible)
		if est.AmountNeededForFreeShipping.Valid {
			e.FieldStart("amountNeededForFreeShipping")
			encodeMoney(e, est.AmountNeededForFreeShipping.Decimal)
		}
		e.FieldStart("formatted")
		e.Str(pricing.FormatCurrency(est.Cost, locale))
		e.ObjEnd()
	})
}

func (h *Handler) supportedCities(w http.ResponseWriter, _ *http.Request) {
	cities := h.engine.SupportedCities()
	threshold := h.engine.FreeShippingThreshold()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("freeShippingThreshold")
		encodeMoney(e, threshold)
		e.FieldStart("cities")
		e.ArrStart()
		for _, c := range cities {
			e.ObjStart()
			e.FieldStart("city")
			e.Str(c.City)
			e.FieldStart("rate")
			encodeMoney(e, c.Rate)
			e.FieldStart("isFree")
			e.Bool(c.IsFree)
			e.ObjEnd()
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}
