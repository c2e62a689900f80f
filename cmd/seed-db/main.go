// Command seed-db applies the schema and loads the shipping rate table and
// a sample listing catalog.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/cristalhq/aconfig"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/autoparts/db"
	"github.com/xenking/autoparts/internal/domain/pricing"
	"github.com/xenking/autoparts/internal/repository"
)

type config struct {
	DatabaseURL  string `usage:"PostgreSQL connection URL (PARTS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ListingsFile string `usage:"Listings JSON file; the embedded sample catalog when empty" flag:"listings-file"`
	SkipRates    bool   `usage:"Leave the shipping rate table untouched" flag:"skip-rates"`
}

func main() {
	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	var cfg config
	if err := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "PARTS",
		SkipFiles: true,
	}).Load(); err != nil {
		lg.Fatal("Load config", zap.Error(err))
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, cfg); err != nil {
		lg.Error("Seed failed", zap.Error(err))
		cancel()
		_ = lg.Sync()
		os.Exit(1)
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, cfg config) error {
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if !cfg.SkipRates {
		rates := pricing.DefaultRates()
		if err := repository.NewRateRepository(pool).Replace(ctx, rates); err != nil {
			return errors.Wrap(err, "seed shipping rates")
		}
		lg.Info("Seeded shipping rates", zap.Int("cities", len(rates)))
	}

	data := db.Listings
	if cfg.ListingsFile != "" {
		if data, err = os.ReadFile(cfg.ListingsFile); err != nil {
			return errors.Wrap(err, "read listings file")
		}
	}
	listings, err := parseListings(data)
	if err != nil {
		return errors.Wrap(err, "parse listings")
	}

	repo := repository.NewListingRepository(pool)
	for _, l := range listings {
		if err := repo.Upsert(ctx, l); err != nil {
			return err
		}
		lg.Info("Upserted listing",
			zap.String("id", l.ID),
			zap.String("seller", l.SellerID),
			zap.Stringer("price", l.Price),
		)
	}
	return nil
}
