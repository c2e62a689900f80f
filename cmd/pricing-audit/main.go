// Command pricing-audit recomputes exported orders with the pricing engine
// and reports orders whose stored amounts do not add up or no longer match.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/cristalhq/aconfig"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.uber.org/zap"

	"github.com/xenking/autoparts/internal/app"
	"github.com/xenking/autoparts/internal/domain/pricing"
	"github.com/xenking/autoparts/internal/repository"
)

type config struct {
	DataDir       string  `default:"exports" usage:"Directory holding gzip'd JSON-lines order exports" flag:"data-dir"`
	Pattern       string  `default:"*.jsonl.gz" usage:"Export file glob inside data-dir" flag:"pattern"`
	Report        string  `usage:"Write findings to this file instead of stdout" flag:"report"`
	DatabaseURL   string  `usage:"Load the shipping rate table from PostgreSQL (optional)" flag:"database-url"`
	BloomCapacity uint    `default:"10000000" usage:"Expected number of exported orders" flag:"bloom-capacity"`
	BloomFPR      float64 `default:"0.001" usage:"Bloom filter false positive rate" flag:"bloom-fpr"`
	Pricing       app.PricingConfig
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

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	findings, err := run(ctx, lg, cfg)
	if err != nil {
		lg.Error("Audit failed", zap.Error(err))
		cancel()
		_ = lg.Sync()
		os.Exit(1)
	}
	if findings > 0 {
		cancel()
		_ = lg.Sync()
		os.Exit(2)
	}
}

func run(ctx context.Context, lg *zap.Logger, cfg config) (int, error) {
	files, err := filepath.Glob(filepath.Join(cfg.DataDir, cfg.Pattern))
	if err != nil {
		return 0, errors.Wrap(err, "glob exports")
	}
	if len(files) == 0 {
		return 0, errors.Errorf("no exports matching %s in %s", cfg.Pattern, cfg.DataDir)
	}
	slices.Sort(files)

	engine, err := buildEngine(ctx, cfg)
	if err != nil {
		return 0, err
	}

	auditor := NewAuditor(engine, lg)
	auditor.Capacity = cfg.BloomCapacity
	auditor.FPR = cfg.BloomFPR

	summary, err := auditor.Run(ctx, files)
	if err != nil {
		return 0, err
	}
	lg.Info("Audit complete",
		zap.Int("files", len(files)),
		zap.Int("orders", summary.Orders),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("findings", len(summary.Findings)),
	)

	var out io.Writer = os.Stdout
	if cfg.Report != "" {
		f, err := os.Create(cfg.Report)
		if err != nil {
			return 0, errors.Wrap(err, "create report")
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	if err := writeReport(out, summary.Findings); err != nil {
		return 0, errors.Wrap(err, "write report")
	}
	return len(summary.Findings), nil
}

func buildEngine(ctx context.Context, cfg config) (*pricing.Engine, error) {
	opts, err := cfg.Pricing.EngineOptions()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return pricing.NewEngine(opts...), nil
	}

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	rates, err := repository.NewRateRepository(pool).List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load shipping rates")
	}
	return pricing.NewEngine(append(opts, pricing.WithRates(rates))...), nil
}

// writeReport writes one JSON object per finding.
func writeReport(w io.Writer, findings []Finding) error {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	for _, f := range findings {
		e.Reset()
		e.ObjStart()
		e.FieldStart("file")
		e.Str(f.File)
		e.FieldStart("line")
		e.Int(f.Line)
		if f.OrderID != "" {
			e.FieldStart("orderId")
			e.Str(f.OrderID)
		}
		e.FieldStart("kind")
		e.Str(f.Kind)
		e.FieldStart("detail")
		e.Str(f.Detail)
		if f.Kind != KindMalformed {
			e.FieldStart("stored")
			encodeBreakdown(e, f.Stored)
		}
		if f.Kind == KindDrift {
			e.FieldStart("recomputed")
			encodeBreakdown(e, f.Recomputed)
		}
		e.ObjEnd()
		if _, err := w.Write(append(e.Bytes(), '\n')); err != nil {
			return err
		}
	}
	return nil
}

func encodeBreakdown(e *jx.Encoder, b pricing.Breakdown) {
	e.ObjStart()
	e.FieldStart("subtotal")
	e.Str(b.Subtotal.StringFixed(2))
	e.FieldStart("vat")
	e.Str(b.VAT.StringFixed(2))
	e.FieldStart("shipping")
	e.Str(b.Shipping.StringFixed(2))
	e.FieldStart("total")
	e.Str(b.Total.StringFixed(2))
	e.ObjEnd()
}
