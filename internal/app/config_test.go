package app

import (
	"os"
	"testing"

	"github.com/cristalhq/aconfig"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/autoparts/internal/domain/pricing"
)

func loadTestConfig(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	for _, k := range []string{"DATABASE_URL", "PORT", "PARTS_DATABASE_URL", "PARTS_ADDR"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
	return loadConfig(aconfig.Config{
		EnvPrefix: "PARTS",
		SkipFiles: true,
		SkipFlags: true,
	})
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadTestConfig(t, map[string]string{"PARTS_DATABASE_URL": "postgres://localhost/parts"})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
	assert.Equal(t, "postgres://localhost/parts", cfg.DatabaseURL)
	assert.Equal(t, "ar", cfg.DefaultLocale)
	assert.Equal(t, "0.15", cfg.Pricing.VATRate)
	assert.Equal(t, "500", cfg.Pricing.FreeShippingThreshold)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	cfg, err := loadTestConfig(t, map[string]string{
		"DATABASE_URL": "postgres://platform/db",
		"PORT":         "9090",
	})
	require.NoError(t, err)

	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
}

func TestLoadConfig_ExplicitAddrWinsOverPort(t *testing.T) {
	cfg, err := loadTestConfig(t, map[string]string{
		"PARTS_DATABASE_URL": "postgres://localhost/parts",
		"PARTS_ADDR":         "127.0.0.1:7000",
		"PORT":               "9090",
	})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
}

func TestLoadConfig_RequiresDatabase(t *testing.T) {
	_, err := loadTestConfig(t, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")
}

func TestLoadConfig_PricingOverride(t *testing.T) {
	cfg, err := loadTestConfig(t, map[string]string{
		"PARTS_DATABASE_URL":     "postgres://localhost/parts",
		"PARTS_PRICING_VAT_RATE": "0.05",
	})
	require.NoError(t, err)

	opts, err := cfg.Pricing.EngineOptions()
	require.NoError(t, err)
	vat := pricing.NewEngine(opts...).CalculateVAT(decimal.NewFromInt(100))
	assert.True(t, decimal.NewFromInt(5).Equal(vat), vat.String())
}

func TestPricingConfig_EngineOptions(t *testing.T) {
	valid := PricingConfig{
		VATRate:               "0.15",
		FreeShippingThreshold: "500",
		DefaultShippingRate:   "25",
		MaxShipping:           "100",
		ExtraSellerFactor:     "0.5",
	}

	tests := []struct {
		name    string
		mutate  func(c *PricingConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*PricingConfig) {}},
		{name: "not a number", mutate: func(c *PricingConfig) { c.MaxShipping = "lots" }, wantErr: "parse max shipping"},
		{name: "negative", mutate: func(c *PricingConfig) { c.DefaultShippingRate = "-1" }, wantErr: "must not be negative"},
		{name: "vat above one", mutate: func(c *PricingConfig) { c.VATRate = "15" }, wantErr: "must not exceed 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)

			opts, err := c.EngineOptions()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, opts, 5)
		})
	}
}
