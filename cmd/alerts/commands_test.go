package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/app"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/config"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
)

func memoryServices(t *testing.T) *app.Services {
	t.Helper()
	cfg := &config.Config{
		UseMemory:           true,
		GenerateInterval:    time.Hour,
		DedupWindow:         24 * time.Hour,
		PriceLookbackDays:   30,
		PriceThreshold:      2,
		TariffThresholdPct:  10,
		FreightThresholdPct: 15,
		FXThresholdPct:      2.5,
		APIRateLimit:        10,
		APIRateBurst:        10,
		LogLevel:            "info",
	}
	stores, cleanup, err := app.OpenStores(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	svc, err := app.NewServices(cfg, stores, nil, nil, nil)
	require.NoError(t, err)
	return svc
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	svc := memoryServices(t)
	open := func(*cobra.Command) (*app.Services, func(), error) { return svc, func() {}, nil }

	p := "P1"
	rec, err := svc.Generator.CreateAnomalyAndAlert(context.Background(), domain.AnomalyPriceSpike, &p, domain.SeverityHigh, nil)
	require.NoError(t, err)
	require.NotNil(t, rec)

	out, err := run(t, generateCmd(open))
	require.NoError(t, err)
	var gen map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &gen))
	assert.Equal(t, true, gen["success"])

	out, err = run(t, statsCmd(open))
	require.NoError(t, err)
	var stats struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 1, stats.Total)

	out, err = run(t, analyzeCmd(open), rec.ID, "--window", "7")
	require.NoError(t, err)
	assert.Contains(t, out, `"time_window_days": 7`)
	assert.Contains(t, out, `"benchmark"`)

	_, err = run(t, analyzeCmd(open), "missing")
	assert.Error(t, err)

	_, err = run(t, resolveCmd(open), rec.ID, "--status", "bogus")
	assert.Error(t, err)

	out, err = run(t, resolveCmd(open), rec.ID)
	require.NoError(t, err)
	assert.Contains(t, out, `"resolved"`)

	out, err = run(t, clearCmd(open), "--days", "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"deleted":0}`, out)
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	root := rootCmd()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"generate", "analyze", "stats", "resolve", "clear", "detect", "migrate"}, names)
}

func TestMigrate_MemoryMode(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("USE_MEMORY", "")
	t.Setenv("LOG_LEVEL", "")

	out, err := run(t, rootCmd(), "migrate", "--use-memory")
	require.NoError(t, err)
	assert.JSONEq(t, `{"applied":[]}`, out)
}

func seedSeries(t *testing.T, svc *app.Services, kind domain.SeriesKind, entity string, values ...float64) {
	t.Helper()
	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -len(values))
	points := make([]domain.SeriesPoint, len(values))
	for i, v := range values {
		points[i] = domain.SeriesPoint{EntityID: entity, Value: v, Date: start.AddDate(0, 0, i)}
	}
	require.NoError(t, svc.Stores.Series.InsertBulk(context.Background(), kind, points))
}

func TestDetectCommands(t *testing.T) {
	svc := memoryServices(t)
	open := func(*cobra.Command) (*app.Services, func(), error) { return svc, func() {}, nil }

	seedSeries(t, svc, domain.SeriesFX, "USD/MYR", 4.0, 4.0, 4.0, 4.0, 4.0, 4.0, 4.5)
	seedSeries(t, svc, domain.SeriesFreight, "CN-MY",
		100, 100, 100, 100, 100, 100, 100, 120, 120, 120, 120, 120, 120, 120)

	var out detectOutput
	raw, err := run(t, detectCmd(open), "fx-spike", "USD/MYR", "--create")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	require.Len(t, out.Anomalies, 1)
	assert.Equal(t, domain.FXSignalSpike, out.Anomalies[0].Details.(domain.FXDetails).Signal)
	require.Len(t, out.Alerts, 1)

	// Same scope inside the dedup window.
	out = detectOutput{}
	raw, err = run(t, detectCmd(open), "fx-spike", "USD/MYR", "--create")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	assert.Empty(t, out.Alerts)
	assert.Equal(t, 1, out.Skipped)

	out = detectOutput{}
	raw, err = run(t, detectCmd(open), "fx-threshold", "USD/MYR", "--level", "4.2")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	require.Len(t, out.Anomalies, 1)
	assert.Equal(t, domain.SeverityHigh, out.Anomalies[0].Severity)

	_, err = run(t, detectCmd(open), "fx-threshold", "USD/MYR", "--level", "4.2", "--direction", "sideways")
	assert.Error(t, err)

	raw, err = run(t, detectCmd(open), "freight-trend", "CN-MY")
	require.NoError(t, err)
	assert.Contains(t, raw, `"direction": "increasing"`)

	out = detectOutput{}
	raw, err = run(t, detectCmd(open), "price-ma", "unknown")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	assert.Empty(t, out.Anomalies)

	raw, err = run(t, detectCmd(open), "tariff-recent")
	require.NoError(t, err)
	assert.JSONEq(t, `{"anomalies":[]}`, raw)
}
