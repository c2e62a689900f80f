package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/autoparts/internal/domain/order"
)

// writeCheckoutError maps checkout errors to HTTP responses. Anything not
// recognised is logged and reported as 500.
func writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, order.ErrEmptyItems) || errors.Is(err, order.ErrEmptyShippingCity) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		iqErr    *order.InvalidQuantityError
		nfErr    *order.ListingNotFoundError
		stockErr *order.InsufficientStockError
	)
	switch {
	case errors.As(err, &iqErr):
		writeError(w, http.StatusUnprocessableEntity, iqErr.Error())
	case errors.As(err, &nfErr):
		writeError(w, http.StatusUnprocessableEntity, nfErr.Error())
	case errors.As(err, &stockErr):
		writeError(w, http.StatusUnprocessableEntity, stockErr.Error())
	default:
		writeInternalError(w, r, err)
	}
}

func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
