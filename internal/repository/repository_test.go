//go:build integration

package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/autoparts/internal/domain/listing"
	"github.com/xenking/autoparts/internal/domain/order"
	"github.com/xenking/autoparts/internal/domain/pricing"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "parts",
				"POSTGRES_PASSWORD": "parts",
				"POSTGRES_DB":       "parts",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		return 1
	}
	defer func() { _ = c.Terminate(context.Background()) }()

	host, err := c.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "host: %v\n", err)
		return 1
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "mapped port: %v\n", err)
		return 1
	}

	url := fmt.Sprintf("postgres://parts:parts@%s:%s/parts?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pool: %v\n", err)
		return 1
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "migrations: %v\n", err)
		return 1
	}

	return m.Run()
}

func TestListingRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewListingRepository(testPool)

	l := listing.Listing{
		ID:         "itest-1",
		SellerID:   "seller-a",
		SellerCity: "جدة",
		PartNumber: "04465-0K240",
		Title:      listing.Title{AR: "فحمات فرامل", EN: "Brake pads"},
		Price:      decimal.RequireFromString("185.50"),
		Stock:      4,
		Active:     true,
	}
	require.NoError(t, repo.Upsert(ctx, l))

	got, err := repo.GetByIDs(ctx, []string{"itest-1", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, l.Title, got[0].Title)
	assert.True(t, l.Price.Equal(got[0].Price))
	assert.Equal(t, 4, got[0].Stock)

	l.Active = false
	l.Stock = 0
	require.NoError(t, repo.Upsert(ctx, l))

	got, err = repo.GetByIDs(ctx, []string{"itest-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Active)
}

func TestRateRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRateRepository(testPool)

	rates := append(pricing.DefaultRates(), pricing.CityRate{City: "أبها", Rate: decimal.NewFromInt(30)})
	require.NoError(t, repo.Replace(ctx, rates))

	got, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(rates))
	for i := range rates {
		assert.Equal(t, rates[i].City, got[i].City)
		assert.True(t, rates[i].Rate.Equal(got[i].Rate), rates[i].City)
	}
	assert.True(t, got[0].IsFree)
	assert.False(t, got[len(got)-1].IsFree)
}

func TestRateRepository_ReplaceDropsStaleCities(t *testing.T) {
	ctx := context.Background()
	repo := NewRateRepository(testPool)

	require.NoError(t, repo.Replace(ctx, []pricing.CityRate{
		{City: "أبها", Rate: decimal.NewFromInt(30)},
		{City: "تبوك", Rate: decimal.NewFromInt(40)},
		{City: "حائل", Rate: decimal.NewFromInt(35)},
	}))
	require.NoError(t, repo.Replace(ctx, []pricing.CityRate{
		{City: "حائل", Rate: decimal.NewFromInt(20)},
		{City: "أبها", Rate: decimal.NewFromInt(30)},
	}))

	got, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "حائل", got[0].City)
	assert.True(t, decimal.NewFromInt(20).Equal(got[0].Rate))
	assert.Equal(t, "أبها", got[1].City)
}

func TestOrderRepository_Create(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testPool)

	p := pricing.NewEngine().CalculateOrderPricing(pricing.Input{
		Subtotal:     decimal.RequireFromString("120"),
		ShippingCity: "الخبر",
	})
	o := &order.Order{
		ID: "order-itest-1",
		Items: []order.Item{{
			ListingID:  "itest-1",
			SellerID:   "seller-a",
			SellerCity: "جدة",
			Quantity:   1,
			UnitPrice:  decimal.RequireFromString("120"),
		}},
		ShippingCity: "الخبر",
		BuyerName:    "Noura",
		Pricing:      p,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, o))

	var (
		total    decimal.Decimal
		quantity int
	)
	err := testPool.QueryRow(ctx,
		`SELECT total, (items->0->>'quantity')::int FROM orders WHERE id = $1`, o.ID,
	).Scan(&total, &quantity)
	require.NoError(t, err)
	assert.True(t, p.Total.Equal(total))
	assert.Equal(t, 1, quantity)

	require.Error(t, repo.Create(ctx, o), "duplicate id must fail")
}
