package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/autoparts/internal/domain/pricing"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (PARTS_ prefix), flags, or YAML config files.
type Config struct {
	Addr          string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL   string `usage:"PostgreSQL connection URL (PARTS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	DefaultLocale string `default:"ar" usage:"Locale for formatted amounts when the request names none" flag:"default-locale"`
	Pricing       PricingConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Graceful      GracefulConfig
}

// PricingConfig overrides the marketplace pricing rules. Amounts are decimal
// strings so no precision is lost on the way in.
type PricingConfig struct {
	VATRate               string `env:"VAT_RATE" yaml:"vat_rate" default:"0.15" usage:"VAT rate applied to the subtotal" flag:"vat-rate"`
	FreeShippingThreshold string `env:"FREE_SHIPPING_THRESHOLD" yaml:"free_shipping_threshold" default:"500" usage:"Subtotal from which shipping is free (SAR)" flag:"free-shipping-threshold"`
	DefaultShippingRate   string `env:"DEFAULT_SHIPPING_RATE" yaml:"default_shipping_rate" default:"25" usage:"Base shipping rate for cities outside the rate table (SAR)" flag:"default-shipping-rate"`
	MaxShipping           string `env:"MAX_SHIPPING" yaml:"max_shipping" default:"100" usage:"Shipping cap per order (SAR)" flag:"max-shipping"`
	ExtraSellerFactor     string `env:"EXTRA_SELLER_FACTOR" yaml:"extra_seller_factor" default:"0.5" usage:"Share of the base rate added per extra seller" flag:"extra-seller-factor"`
}

// RateLimitConfig controls the per-client fixed window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, flags and YAML
// config files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "PARTS",
		Files:     []string{"config.yaml", "/etc/autoparts/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(acfg aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, acfg).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set PARTS_DATABASE_URL or DATABASE_URL")
	}
	if _, err := cfg.Pricing.EngineOptions(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided DATABASE_URL and PORT onto
// the PARTS_-prefixed settings.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

// EngineOptions parses the pricing settings into engine options.
func (c PricingConfig) EngineOptions() ([]pricing.Option, error) {
	fields := []struct {
		name  string
		value string
		max   decimal.NullDecimal
		apply func(decimal.Decimal) pricing.Option
	}{
		{"vat rate", c.VATRate, decimal.NewNullDecimal(decimal.NewFromInt(1)), pricing.WithVATRate},
		{"free shipping threshold", c.FreeShippingThreshold, decimal.NullDecimal{}, pricing.WithFreeShippingThreshold},
		{"default shipping rate", c.DefaultShippingRate, decimal.NullDecimal{}, pricing.WithDefaultRate},
		{"max shipping", c.MaxShipping, decimal.NullDecimal{}, pricing.WithMaxShipping},
		{"extra seller factor", c.ExtraSellerFactor, decimal.NullDecimal{}, pricing.WithExtraSellerFactor},
	}

	opts := make([]pricing.Option, 0, len(fields))
	for _, f := range fields {
		v, err := decimal.NewFromString(f.value)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s %q", f.name, f.value)
		}
		if v.IsNegative() {
			return nil, errors.Errorf("%s must not be negative, got %s", f.name, v)
		}
		if f.max.Valid && v.GreaterThan(f.max.Decimal) {
			return nil, errors.Errorf("%s must not exceed %s, got %s", f.name, f.max.Decimal, v)
		}
		opts = append(opts, f.apply(v))
	}
	return opts, nil
}
