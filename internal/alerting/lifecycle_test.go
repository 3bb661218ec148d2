package alerting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/storage"
)

func (f *fixture) createAlert(t *testing.T, typ domain.AnomalyType, productID string, sev domain.Severity) *domain.AlertRecord {
	t.Helper()
	rec, err := f.gen.CreateAnomalyAndAlert(context.Background(), typ, strPtr(productID), sev, nil)
	require.NoError(t, err)
	require.NotNil(t, rec)
	return rec
}

func TestUpdateAlertStatus_Transitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.createAlert(t, domain.AnomalyPriceSpike, "P1", domain.SeverityHigh)

	require.NoError(t, f.gen.UpdateAlertStatus(ctx, rec.ID, domain.AlertStatusViewed))
	got, err := f.alerts.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStatusViewed, got.Status)
	assert.Nil(t, got.ResolvedAt)

	err = f.gen.UpdateAlertStatus(ctx, rec.ID, domain.AlertStatusNew)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	resolvedAt := testNow.Add(2 * time.Hour)
	f.clock.Set(resolvedAt)
	require.NoError(t, f.gen.UpdateAlertStatus(ctx, rec.ID, domain.AlertStatusResolved))
	got, err = f.alerts.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStatusResolved, got.Status)
	require.NotNil(t, got.ResolvedAt)
	assert.Equal(t, resolvedAt, *got.ResolvedAt)

	// Repeating the current status keeps the original resolution time.
	f.clock.Set(resolvedAt.Add(time.Hour))
	require.NoError(t, f.gen.UpdateAlertStatus(ctx, rec.ID, domain.AlertStatusResolved))
	got, err = f.alerts.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, resolvedAt, *got.ResolvedAt)

	err = f.gen.UpdateAlertStatus(ctx, rec.ID, domain.AlertStatusViewed)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateAlertStatus_NewDirectlyToResolved(t *testing.T) {
	f := newFixture(t)
	rec := f.createAlert(t, domain.AnomalyPriceSpike, "P1", domain.SeverityHigh)

	require.NoError(t, f.gen.UpdateAlertStatus(context.Background(), rec.ID, domain.AlertStatusResolved))
}

func TestUpdateAlertStatus_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.createAlert(t, domain.AnomalyPriceSpike, "P1", domain.SeverityHigh)

	assert.ErrorIs(t, f.gen.UpdateAlertStatus(ctx, rec.ID, "archived"), ErrInvalidStatus)
	assert.ErrorIs(t, f.gen.UpdateAlertStatus(ctx, "missing", domain.AlertStatusViewed), storage.ErrNotFound)
}

func TestGetAlertStatistics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createAlert(t, domain.AnomalyPriceSpike, "P1", domain.SeverityHigh)
	f.createAlert(t, domain.AnomalyPriceSpike, "P2", domain.SeverityCritical)
	f.createAlert(t, domain.AnomalyTariffChange, "P1", domain.SeverityHigh)
	require.NoError(t, f.gen.UpdateAlertStatus(ctx, a.ID, domain.AlertStatusResolved))

	s := f.gen.GetAlertStatistics(ctx)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.ByStatus[domain.AlertStatusNew])
	assert.Equal(t, 1, s.ByStatus[domain.AlertStatusResolved])
	assert.Equal(t, 0, s.ByStatus[domain.AlertStatusViewed])
	assert.Equal(t, 2, s.BySeverity[domain.SeverityHigh])
	assert.Equal(t, 1, s.BySeverity[domain.SeverityCritical])
	assert.Equal(t, 2, s.ByType[domain.AnomalyPriceSpike])
	assert.Equal(t, 1, s.ByType[domain.AnomalyTariffChange])
	assert.Equal(t, 0, s.ByType[domain.AnomalyFXVolatility])
}

type brokenAlerts struct {
	storage.AlertStore
}

func (brokenAlerts) ListAll(context.Context) ([]*domain.AlertRecord, error) {
	return nil, errors.New("connection reset")
}

func TestGetAlertStatistics_ReadFailureYieldsZeros(t *testing.T) {
	f := newFixture(t)
	f.gen = f.build(f.anomalies, brokenAlerts{AlertStore: f.alerts})

	s := f.gen.GetAlertStatistics(context.Background())

	assert.Equal(t, 0, s.Total)
	assert.Len(t, s.ByStatus, len(domain.AllAlertStatuses))
	assert.Len(t, s.BySeverity, len(domain.AllSeverities))
	assert.Len(t, s.ByType, len(domain.AllAnomalyTypes))
}

func TestClearOldAlerts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.clock.Set(testNow.AddDate(0, 0, -40))
	old := f.createAlert(t, domain.AnomalyPriceSpike, "P1", domain.SeverityHigh)
	require.NoError(t, f.gen.UpdateAlertStatus(ctx, old.ID, domain.AlertStatusResolved))
	stale := f.createAlert(t, domain.AnomalyPriceSpike, "P2", domain.SeverityHigh)

	f.clock.Set(testNow.AddDate(0, 0, -5))
	recent := f.createAlert(t, domain.AnomalyPriceSpike, "P3", domain.SeverityHigh)
	require.NoError(t, f.gen.UpdateAlertStatus(ctx, recent.ID, domain.AlertStatusResolved))

	f.clock.Set(testNow)
	n, err := f.gen.ClearOldAlerts(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.alerts.GetByID(ctx, old.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = f.alerts.GetByID(ctx, stale.ID)
	assert.NoError(t, err, "unresolved alerts are kept regardless of age")
	_, err = f.alerts.GetByID(ctx, recent.ID)
	assert.NoError(t, err)
}
