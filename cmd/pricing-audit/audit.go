package main

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/autoparts/internal/domain/pricing"
)

const maxLineBytes = 4 << 20

var driftTolerance = decimal.RequireFromString("0.01")

// exportedOrder is one line of an order export.
type exportedOrder struct {
	ID           string
	ShippingCity string
	Items        []pricing.Item
	Stored       pricing.Breakdown
}

// Finding kinds.
const (
	// KindInconsistent means the stored amounts do not add up to the stored total.
	KindInconsistent = "inconsistent"
	// KindDrift means the stored amounts differ from a recomputation.
	KindDrift = "drift"
	// KindMalformed means the line could not be decoded.
	KindMalformed = "malformed"
)

// Finding is a single audited problem.
type Finding struct {
	File       string
	Line       int
	OrderID    string
	Kind       string
	Detail     string
	Stored     pricing.Breakdown
	Recomputed pricing.Breakdown
}

// Summary counts what an audit saw.
type Summary struct {
	Orders     int
	Duplicates int
	Findings   []Finding
}

// Auditor recomputes exported orders with the pricing engine.
type Auditor struct {
	engine *pricing.Engine
	lg     *zap.Logger

	// Capacity and FPR size the bloom filter used to spot repeated order IDs.
	Capacity uint
	FPR      float64
}

// NewAuditor returns an Auditor using engine.
func NewAuditor(engine *pricing.Engine, lg *zap.Logger) *Auditor {
	return &Auditor{
		engine:   engine,
		lg:       lg,
		Capacity: 10_000_000,
		FPR:      0.001,
	}
}

// Run audits gzip'd JSON-lines exports. Orders exported more than once are
// audited once.
//
// The first pass feeds every order ID through a bloom filter; IDs the filter
// has probably seen before become suspects. The second pass audits orders and
// tracks exact IDs only for suspects, so memory stays proportional to the
// duplicates rather than to the export size.
func (a *Auditor) Run(ctx context.Context, files []string) (*Summary, error) {
	suspects, err := a.findSuspects(ctx, files)
	if err != nil {
		return nil, errors.Wrap(err, "find repeated ids")
	}
	a.lg.Info("Pass 1 complete", zap.Int("files", len(files)), zap.Int("suspects", len(suspects)))

	var (
		mu      sync.Mutex
		audited = make(map[string]struct{}, len(suspects))
		summary Summary
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, path := range files {
		g.Go(func() error {
			var (
				orders, dups int
				findings     []Finding
			)
			err := streamExport(gctx, path, func(line int, raw []byte) {
				o, err := decodeOrder(raw)
				if err != nil {
					findings = append(findings, Finding{File: path, Line: line, Kind: KindMalformed, Detail: err.Error()})
					return
				}
				if _, suspect := suspects[o.ID]; suspect {
					mu.Lock()
					_, seen := audited[o.ID]
					audited[o.ID] = struct{}{}
					mu.Unlock()
					if seen {
						dups++
						return
					}
				}
				orders++
				if f, ok := a.check(o); ok {
					f.File, f.Line = path, line
					findings = append(findings, f)
				}
			})
			if err != nil {
				return errors.Wrapf(err, "audit %s", path)
			}

			a.lg.Info("Pass 2 complete",
				zap.String("file", path),
				zap.Int("orders", orders),
				zap.Int("duplicates", dups),
				zap.Int("findings", len(findings)),
			)
			mu.Lock()
			summary.Orders += orders
			summary.Duplicates += dups
			summary.Findings = append(summary.Findings, findings...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(summary.Findings, func(x, y Finding) int {
		if c := strings.Compare(x.File, y.File); c != 0 {
			return c
		}
		return x.Line - y.Line
	})
	return &summary, nil
}

func (a *Auditor) findSuspects(ctx context.Context, files []string) (map[string]struct{}, error) {
	var (
		mu       sync.Mutex
		filter   = bloom.NewWithEstimates(a.Capacity, a.FPR)
		suspects = make(map[string]struct{})
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, path := range files {
		g.Go(func() error {
			return streamExport(gctx, path, func(_ int, raw []byte) {
				id, err := decodeOrderID(raw)
				if err != nil || id == "" {
					return
				}
				mu.Lock()
				if filter.TestAndAddString(id) {
					suspects[id] = struct{}{}
				}
				mu.Unlock()
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return suspects, nil
}

// check reports whether o has a problem worth recording.
func (a *Auditor) check(o exportedOrder) (Finding, bool) {
	stored := pricing.Pricing{
		Subtotal:       o.Stored.Subtotal,
		TaxAmount:      o.Stored.VAT,
		ShippingAmount: o.Stored.Shipping,
		Total:          o.Stored.Total,
	}
	f := Finding{OrderID: o.ID, Stored: o.Stored}
	if !pricing.ValidatePricing(stored) {
		f.Kind = KindInconsistent
		f.Detail = "subtotal + tax + shipping does not match total"
		return f, true
	}

	subtotal := decimal.Zero
	for _, it := range o.Items {
		subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	p := a.engine.CalculateOrderPricing(pricing.Input{
		Subtotal:     subtotal,
		ShippingCity: o.ShippingCity,
		Items:        o.Items,
	})
	f.Recomputed = p.Breakdown

	var drifted []string
	for _, c := range []struct {
		name       string
		stored, re decimal.Decimal
	}{
		{"subtotal", o.Stored.Subtotal, p.Subtotal},
		{"vat", o.Stored.VAT, p.TaxAmount},
		{"shipping", o.Stored.Shipping, p.ShippingAmount},
		{"total", o.Stored.Total, p.Total},
	} {
		if c.stored.Sub(c.re).Abs().GreaterThan(driftTolerance) {
			drifted = append(drifted, c.name)
		}
	}
	if len(drifted) == 0 {
		return Finding{}, false
	}
	f.Kind = KindDrift
	f.Detail = strings.Join(drifted, ",") + " differ from recomputation"
	return f, true
}

// streamExport calls fn for every non-blank line of a gzip'd export.
func streamExport(ctx context.Context, path string, fn func(line int, raw []byte)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		fn(line, raw)
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

func decodeOrderID(raw []byte) (string, error) {
	var id string
	err := jx.DecodeBytes(raw).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "id" {
			return d.Skip()
		}
		var err error
		id, err = d.Str()
		return err
	})
	return id, err
}

func decodeOrder(raw []byte) (exportedOrder, error) {
	var o exportedOrder
	err := jx.DecodeBytes(raw).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.ID, err = d.Str()
		case "shippingCity":
			o.ShippingCity, err = d.Str()
		case "subtotal":
			o.Stored.Subtotal, err = decodeMoney(d)
		case "taxAmount":
			o.Stored.VAT, err = decodeMoney(d)
		case "shippingAmount":
			o.Stored.Shipping, err = decodeMoney(d)
		case "total":
			o.Stored.Total, err = decodeMoney(d)
		case "items":
			err = d.Arr(func(d *jx.Decoder) error {
				var it pricing.Item
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "listingId":
						it.ListingID, err = d.Str()
					case "sellerId":
						it.SellerID, err = d.Str()
					case "sellerCity":
						it.City, err = d.Str()
					case "quantity":
						it.Quantity, err = d.Int()
					case "unitPrice":
						it.UnitPrice, err = decodeMoney(d)
					default:
						err = d.Skip()
					}
					return errors.Wrap(err, key)
				}); err != nil {
					return err
				}
				o.Items = append(o.Items, it)
				return nil
			})
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
	if err != nil {
		return o, err
	}
	if o.ID == "" {
		return o, errors.New("id required")
	}
	return o, nil
}

// decodeMoney accepts a JSON number or a numeric string.
func decodeMoney(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(n.String())
}
