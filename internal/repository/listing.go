package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/autoparts/internal/domain/listing"
)

const (
	getListingsByIDsSQL = `SELECT id, seller_id, seller_city, part_number, title_ar, title_en, price, stock, active
		FROM listings WHERE id = ANY($1)`

	upsertListingSQL = `INSERT INTO listings (id, seller_id, seller_city, part_number, title_ar, title_en, price, stock, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			seller_id = EXCLUDED.seller_id,
			seller_city = EXCLUDED.seller_city,
			part_number = EXCLUDED.part_number,
			title_ar = EXCLUDED.title_ar,
			title_en = EXCLUDED.title_en,
			price = EXCLUDED.price,
			stock = EXCLUDED.stock,
			active = EXCLUDED.active`
)

var _ listing.Repository = (*ListingRepository)(nil)

// ListingRepository implements listing.Repository backed by PostgreSQL.
type ListingRepository struct {
	pool *pgxpool.Pool
}

// NewListingRepository returns a ListingRepository that uses the given pool.
func NewListingRepository(pool *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{pool: pool}
}

// GetByIDs returns listings matching any of the given IDs, inactive ones
// included. Missing IDs are silently skipped.
func (r *ListingRepository) GetByIDs(ctx context.Context, ids []string) ([]listing.Listing, error) {
	rows, err := r.pool.Query(ctx, getListingsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "query listings by ids")
	}
	return pgx.CollectRows(rows, scanListing)
}

// Upsert inserts or replaces a listing.
func (r *ListingRepository) Upsert(ctx context.Context, l listing.Listing) error {
	_, err := r.pool.Exec(ctx, upsertListingSQL,
		l.ID, l.SellerID, l.SellerCity, l.PartNumber, l.Title.AR, l.Title.EN, l.Price, l.Stock, l.Active,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert listing %q", l.ID)
	}
	return nil
}

func scanListing(row pgx.CollectableRow) (listing.Listing, error) {
	var (
		l     listing.Listing
		stock int32
	)
	err := row.Scan(
		&l.ID, &l.SellerID, &l.SellerCity, &l.PartNumber,
		&l.Title.AR, &l.Title.EN, &l.Price, &stock, &l.Active,
	)
	l.Stock = int(stock)
	return l, err
}
