package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
)

// DefaultClearDays is the resolution age after which resolved alerts are deleted.
const DefaultClearDays = 30

var (
	// ErrInvalidStatus is returned for an unknown target status.
	ErrInvalidStatus = errors.New("invalid alert status")
	// ErrInvalidTransition is returned when a status would move backwards.
	ErrInvalidTransition = errors.New("invalid alert status transition")
)

// Statistics counts alerts by status, severity and anomaly type.
type Statistics struct {
	Total      int                        `json:"total"`
	ByStatus   map[domain.AlertStatus]int `json:"by_status"`
	BySeverity map[domain.Severity]int    `json:"by_severity"`
	ByType     map[domain.AnomalyType]int `json:"by_type"`
}

func newStatistics() *Statistics {
	s := &Statistics{
		ByStatus:   make(map[domain.AlertStatus]int),
		BySeverity: make(map[domain.Severity]int),
		ByType:     make(map[domain.AnomalyType]int),
	}
	for _, st := range domain.AllAlertStatuses {
		s.ByStatus[st] = 0
	}
	for _, sev := range domain.AllSeverities {
		s.BySeverity[sev] = 0
	}
	for _, t := range domain.AllAnomalyTypes {
		s.ByType[t] = 0
	}
	return s
}

// UpdateAlertStatus moves an alert forward in its lifecycle. resolved_at is
// set when the status becomes resolved. Repeating the current status is a no-op.
func (g *Generator) UpdateAlertStatus(ctx context.Context, alertID string, status domain.AlertStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("%q: %w", status, ErrInvalidStatus)
	}

	rec, err := g.alerts.GetByID(ctx, alertID)
	if err != nil {
		return fmt.Errorf("get alert %s: %w", alertID, err)
	}
	if !rec.Status.CanTransitionTo(status) {
		return fmt.Errorf("%s -> %s: %w", rec.Status, status, ErrInvalidTransition)
	}
	if rec.Status == status {
		return nil
	}

	var resolvedAt *time.Time
	if status == domain.AlertStatusResolved {
		now := g.now()
		resolvedAt = &now
	}
	if err := g.alerts.UpdateStatus(ctx, alertID, status, resolvedAt); err != nil {
		return fmt.Errorf("update alert %s: %w", alertID, err)
	}

	g.metrics.RecordStatusUpdate(status.String())
	g.logger.Info().Str("alert_id", alertID).Str("from", rec.Status.String()).Str("to", status.String()).Msg("alert status updated")
	return nil
}

// GetAlertStatistics counts all alerts. A read failure is logged and yields
// zero counts.
func (g *Generator) GetAlertStatistics(ctx context.Context) *Statistics {
	s := newStatistics()

	records, err := g.alerts.ListAll(ctx)
	if err != nil {
		g.logger.Error().Err(err).Msg("alert statistics unavailable")
		return s
	}

	for _, rec := range records {
		s.Total++
		s.ByStatus[rec.Status]++
		s.BySeverity[rec.Anomaly.Severity]++
		s.ByType[rec.Anomaly.Type]++
	}
	return s
}

// ClearOldAlerts deletes resolved alerts resolved more than daysOld days ago
// and returns how many were removed.
func (g *Generator) ClearOldAlerts(ctx context.Context, daysOld int) (int, error) {
	if daysOld <= 0 {
		daysOld = DefaultClearDays
	}
	cutoff := g.now().AddDate(0, 0, -daysOld)

	n, err := g.alerts.DeleteResolvedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("clear alerts older than %d days: %w", daysOld, err)
	}

	g.metrics.RecordAlertsCleared(n)
	g.logger.Info().Int("deleted", n).Int("days_old", daysOld).Msg("cleared resolved alerts")
	return n, nil
}
