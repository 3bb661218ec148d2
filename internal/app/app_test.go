package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/config"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/lock"
)

func memoryConfig() *config.Config {
	return &config.Config{
		UseMemory:           true,
		GenerateInterval:    time.Hour,
		DedupWindow:         24 * time.Hour,
		PriceLookbackDays:   14,
		PriceThreshold:      3,
		TariffThresholdPct:  12,
		FreightThresholdPct: 20,
		FXThresholdPct:      4,
		APIRateLimit:        10,
		APIRateBurst:        10,
		LogLevel:            "info",
	}
}

func TestOpenStores_Memory(t *testing.T) {
	stores, cleanup, err := OpenStores(context.Background(), memoryConfig(), nil, nil)
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &lock.Local{}, stores.Lock)
	require.NotNil(t, stores.Series)
	require.NotNil(t, stores.Alerts)
}

func TestSettings(t *testing.T) {
	s := Settings(memoryConfig())
	assert.Equal(t, 14, s.PriceLookbackDays)
	assert.Equal(t, 3.0, s.PriceThreshold)
	assert.Equal(t, 12.0, s.TariffThresholdPct)
	assert.Equal(t, 20.0, s.FreightThresholdPct)
	assert.Equal(t, 4.0, s.FXThresholdPct)
}

func TestNewServices_GeneratesFromMemory(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()
	stores, cleanup, err := OpenStores(ctx, cfg, nil, nil)
	require.NoError(t, err)
	defer cleanup()

	svc, err := NewServices(cfg, stores, nil, nil, nil)
	require.NoError(t, err)

	res := svc.Generator.GenerateAllAlerts(ctx)
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.TotalAlerts)

	ci, err := svc.Analyzer.Analyze(ctx, "missing", 0)
	require.NoError(t, err)
	assert.Nil(t, ci)
}

func TestNewServices_PolicyFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("price:\n  change:\n    - {severity: critical, min: 80}\n    - {severity: low, min: 5}\n"), 0o600))
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("price: [unterminated"), 0o600))

	cfg := memoryConfig()
	stores, cleanup, err := OpenStores(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	defer cleanup()

	cfg.PolicyFile = good
	svc, err := NewServices(cfg, stores, nil, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, svc.Detectors.Price)

	cfg.PolicyFile = bad
	_, err = NewServices(cfg, stores, nil, nil, nil)
	assert.Error(t, err)
}

func TestMigrate_MemoryIsNoop(t *testing.T) {
	applied, err := Migrate(context.Background(), memoryConfig())
	require.NoError(t, err)
	assert.Empty(t, applied)
}
