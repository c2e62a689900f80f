package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/autoparts/internal/domain/order"
)

const createOrderSQL = `INSERT INTO orders (id, items, shipping_city, buyer_name, buyer_phone,
		subtotal, tax_amount, shipping_amount, total, free_shipping, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. Line snapshots go into the JSONB items column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	p := o.Pricing
	_, err := r.pool.Exec(ctx, createOrderSQL,
		o.ID, encodeItems(o.Items), o.ShippingCity, o.BuyerName, o.BuyerPhone,
		p.Subtotal, p.TaxAmount, p.ShippingAmount, p.Total, p.FreeShipping, o.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "create order %q", o.ID)
	}
	return nil
}

func encodeItems(items []order.Item) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		e.FieldStart("listingId")
		e.Str(it.ListingID)
		e.FieldStart("sellerId")
		e.Str(it.SellerID)
		e.FieldStart("sellerCity")
		e.Str(it.SellerCity)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("unitPrice")
		e.Str(it.UnitPrice.String())
		e.ObjEnd()
	}
	e.ArrEnd()

	// The encoder buffer is returned to the pool, so hand pgx a copy.
	return append([]byte(nil), e.Bytes()...)
}
