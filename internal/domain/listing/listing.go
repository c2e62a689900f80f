package listing

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested listing does not exist.
var ErrNotFound = errors.New("listing not found")

// Listing is a used part offered by a seller.
type Listing struct {
	ID         string
	SellerID   string
	SellerCity string
	PartNumber string
	Title      Title
	Price      decimal.Decimal
	Stock      int
	Active     bool
}

// Title holds the bilingual listing title.
type Title struct {
	AR string
	EN string
}

// Localized returns the Arabic title when arabic is set and present,
// otherwise the English one.
func (t Title) Localized(arabic bool) string {
	if arabic && t.AR != "" {
		return t.AR
	}
	if t.EN == "" {
		return t.AR
	}
	return t.EN
}

// Repository defines persistence operations for listings.
type Repository interface {
	GetByIDs(ctx context.Context, ids []string) ([]Listing, error)
}
