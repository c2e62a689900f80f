package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/autoparts/internal/domain/pricing"
)

const maxBodyBytes = 1 << 20

// decodeBody reads the request body and hands each top-level field to fn.
func decodeBody(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if len(body) == 0 {
		return errors.New("empty body")
	}
	return jx.DecodeBytes(body).Obj(fn)
}

// Money bounds match the NUMERIC(12,2) order columns.
const (
	moneyScale     = 2
	moneyIntDigits = 10
	maxMoneyLen    = 32
)

var maxMoney = decimal.New(1, moneyIntDigits)

// parseMoney parses an amount and rejects values the order columns cannot
// hold. Length and exponent are checked before any arithmetic.
func parseMoney(s string) (decimal.Decimal, error) {
	if len(s) > maxMoneyLen {
		return decimal.Decimal{}, errors.Errorf("amount longer than %d characters", maxMoneyLen)
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if exp := v.Exponent(); exp > moneyIntDigits || exp < -maxMoneyLen {
		return decimal.Decimal{}, errors.Errorf("amount %s out of range", s)
	}
	if v.Abs().GreaterThanOrEqual(maxMoney) {
		return decimal.Decimal{}, errors.Errorf("amount %s out of range", s)
	}
	if !v.Equal(v.Truncate(moneyScale)) {
		return decimal.Decimal{}, errors.Errorf("amount %s has more than %d decimal places", s, moneyScale)
	}
	return v, nil
}

// decodeDecimal accepts a JSON number or a numeric string.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return parseMoney(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return parseMoney(n.String())
	default:
		return decimal.Decimal{}, errors.Errorf("unexpected %s, want number", d.Next())
	}
}

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes the {code, message} error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}

// encodeMoney writes a decimal as a JSON number without going through float64.
func encodeMoney(e *jx.Encoder, v decimal.Decimal) {
	e.RawStr(v.String())
}

func encodePricing(e *jx.Encoder, p pricing.Pricing, locale string) {
	e.ObjStart()
	e.FieldStart("subtotal")
	encodeMoney(e, p.Subtotal)
	e.FieldStart("taxAmount")
	encodeMoney(e, p.TaxAmount)
	e.FieldStart("shippingAmount")
	encodeMoney(e, p.ShippingAmount)
	e.FieldStart("total")
	encodeMoney(e, p.Total)

	e.FieldStart("breakdown")
	e.ObjStart()
	e.FieldStart("subtotal")
	encodeMoney(e, p.Breakdown.Subtotal)
	e.FieldStart("vat")
	encodeMoney(e, p.Breakdown.VAT)
	e.FieldStart("shipping")
	encodeMoney(e, p.Breakdown.Shipping)
	e.FieldStart("total")
	encodeMoney(e, p.Breakdown.Total)
	e.ObjEnd()

	e.FieldStart("freeShipping")
	e.Bool(p.FreeShipping)

	sd := p.ShippingDetails
	e.FieldStart("shippingDetails")
	e.ObjStart()
	e.FieldStart("eligibleForFreeShipping")
	e.Bool(sd.EligibleForFreeShipping)
	if sd.AmountNeededForFreeShipping.Valid {
		e.FieldStart("amountNeededForFreeShipping")
		encodeMoney(e, sd.AmountNeededForFreeShipping.Decimal)
	}
	e.FieldStart("shippingCity")
	e.Str(sd.ShippingCity)
	e.FieldStart("baseCost")
	encodeMoney(e, sd.BaseCost)
	e.ObjEnd()

	e.FieldStart("formatted")
	e.ObjStart()
	e.FieldStart("subtotal")
	e.Str(pricing.FormatCurrency(p.Subtotal, locale))
	e.FieldStart("taxAmount")
	e.Str(pricing.FormatCurrency(p.TaxAmount, locale))
	e.FieldStart("shippingAmount")
	e.Str(pricing.FormatCurrency(p.ShippingAmount, locale))
	e.FieldStart("total")
	e.Str(pricing.FormatCurrency(p.Total, locale))
	e.ObjEnd()

	e.ObjEnd()
}
