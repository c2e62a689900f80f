package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/autoparts/internal/domain/pricing"
)

const (
	listRatesSQL = `SELECT city, rate FROM shipping_rates ORDER BY position, city`

	deleteRatesSQL = `DELETE FROM shipping_rates`

	upsertRateSQL = `INSERT INTO shipping_rates (city, rate, position) VALUES ($1, $2, $3)
		ON CONFLICT (city) DO UPDATE SET rate = EXCLUDED.rate, position = EXCLUDED.position`
)

// RateRepository stores the shipping rate table.
type RateRepository struct {
	pool *pgxpool.Pool
}

// NewRateRepository returns a RateRepository that uses the given pool.
func NewRateRepository(pool *pgxpool.Pool) *RateRepository {
	return &RateRepository{pool: pool}
}

// List returns the rate table in match order.
func (r *RateRepository) List(ctx context.Context) ([]pricing.CityRate, error) {
	rows, err := r.pool.Query(ctx, listRatesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "query shipping rates")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (pricing.CityRate, error) {
		var cr pricing.CityRate
		err := row.Scan(&cr.City, &cr.Rate)
		cr.IsFree = cr.Rate.IsZero()
		return cr, err
	})
}

// Replace swaps the whole rate table in a single transaction, using the slice
// index as the match position.
func (r *RateRepository) Replace(ctx context.Context, rates []pricing.CityRate) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteRatesSQL); err != nil {
			return errors.Wrap(err, "delete shipping rates")
		}
		batch := &pgx.Batch{}
		for i, cr := range rates {
			batch.Queue(upsertRateSQL, cr.City, cr.Rate, i)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "upsert shipping rates")
		}
		return nil
	})
}
