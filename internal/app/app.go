// Package app wires the pricing service together and runs its HTTP server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/autoparts/internal/domain/order"
	"github.com/xenking/autoparts/internal/domain/pricing"
	"github.com/xenking/autoparts/internal/handler"
	"github.com/xenking/autoparts/internal/repository"
	"github.com/xenking/autoparts/pkg/health"
	"github.com/xenking/autoparts/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	engine, err := newEngine(ctx, lg, cfg.Pricing, repository.NewRateRepository(pool))
	if err != nil {
		return err
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", health.PingCheck(pool), health.WithTimeout(5*time.Second))
	healthSvc.AddLivenessCheck("goroutines", health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", health.GCMaxPauseCheck(time.Second))
	healthSvc.Start(ctx, 10*time.Second)

	checkout, err := order.NewService(
		repository.NewListingRepository(pool),
		repository.NewOrderRepository(pool),
		engine,
		m.TracerProvider(),
		m.MeterProvider(),
	)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	h := handler.NewHandler(handler.Config{DefaultLocale: cfg.DefaultLocale}, engine, checkout)
	router := h.Router(
		httpmiddleware.Instrument("autoparts-api", routePattern, m.TracerProvider(), m.MeterProvider()),
	)
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Accept-Language"},
				ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Remaining"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.LogRequests(),
		),
	}

	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	healthSvc.SetReady(true)
	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// RateLister loads the shipping rate table.
type RateLister interface {
	List(ctx context.Context) ([]pricing.CityRate, error)
}

// newEngine builds the pricing engine from config and the stored rate table.
// An empty table keeps the built-in major-city rates.
func newEngine(ctx context.Context, lg *zap.Logger, cfg PricingConfig, rates RateLister) (*pricing.Engine, error) {
	opts, err := cfg.EngineOptions()
	if err != nil {
		return nil, err
	}

	table, err := rates.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load shipping rates")
	}
	if len(table) == 0 {
		lg.Warn("Shipping rate table is empty, using built-in rates")
	} else {
		opts = append(opts, pricing.WithRates(table))
	}

	engine := pricing.NewEngine(opts...)
	lg.Info("Pricing engine ready",
		zap.Int("cities", len(engine.SupportedCities())),
		zap.Stringer("free_shipping_threshold", engine.FreeShippingThreshold()),
	)
	return engine, nil
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}
