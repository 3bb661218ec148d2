package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/storage"
)

// AlertStore implements storage.AlertStore using PostgreSQL.
type AlertStore struct {
	pool *Pool
}

// NewAlertStore creates a new AlertStore.
func NewAlertStore(pool *Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AlertStore = (*AlertStore)(nil)

// alertRecordQuery selects alerts joined with their anomaly.
const alertRecordQuery = `
	SELECT al.id, al.anomaly_id, al.status, al.created_at, al.resolved_at,
	       an.id, an.type, an.product_id, an.severity, an.detected_at, an.details
	FROM alerts al
	JOIN anomalies an ON an.id = al.anomaly_id
`

// Insert adds a new alert. Returns ErrDuplicateKey if id or anomaly_id exists,
// ErrInvalidInput if the anomaly does not exist.
func (s *AlertStore) Insert(ctx context.Context, a *domain.Alert) error {
	if a == nil || a.ID == "" || a.AnomalyID == "" || !a.Status.IsValid() {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO alerts (id, anomaly_id, status, created_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5)
	`, a.ID, a.AnomalyID, string(a.Status), a.CreatedAt, a.ResolvedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isConstraintError(err) {
			return storage.ErrInvalidInput
		}
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// InsertWithAnomaly adds an anomaly and its alert in one transaction.
// Neither row is committed on failure.
func (s *AlertStore) InsertWithAnomaly(ctx context.Context, anomaly *domain.Anomaly, a *domain.Alert) error {
	if anomaly == nil || anomaly.ID == "" || !anomaly.Type.IsValid() || !anomaly.Severity.IsValid() {
		return storage.ErrInvalidInput
	}
	if a == nil || a.ID == "" || a.AnomalyID != anomaly.ID || !a.Status.IsValid() {
		return storage.ErrInvalidInput
	}

	details, err := domain.EncodeDetails(anomaly.Details)
	if err != nil {
		return fmt.Errorf("encode anomaly details: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO anomalies (`+anomalyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, anomaly.ID, string(anomaly.Type), anomaly.ProductID, string(anomaly.Severity), anomaly.DetectedAt, details); err != nil {
		return insertError("insert anomaly", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO alerts (id, anomaly_id, status, created_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5)
	`, a.ID, a.AnomalyID, string(a.Status), a.CreatedAt, a.ResolvedAt); err != nil {
		return insertError("insert alert", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// insertError maps constraint violations to storage errors.
func insertError(op string, err error) error {
	if isDuplicateKeyError(err) {
		return storage.ErrDuplicateKey
	}
	if isConstraintError(err) {
		return storage.ErrInvalidInput
	}
	return fmt.Errorf("%s: %w", op, err)
}

// GetByID retrieves an alert joined with its anomaly. Returns ErrNotFound if not exists.
func (s *AlertStore) GetByID(ctx context.Context, id string) (*domain.AlertRecord, error) {
	row := s.pool.QueryRow(ctx, alertRecordQuery+` WHERE al.id = $1`, id)

	rec, err := scanAlertRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get alert by id: %w", err)
	}
	return rec, nil
}

// ListCreatedSince retrieves up to limit alerts created at or after since, newest first.
func (s *AlertStore) ListCreatedSince(ctx context.Context, since time.Time, excludeID string, limit int) ([]*domain.AlertRecord, error) {
	rows, err := s.pool.Query(ctx, alertRecordQuery+`
		WHERE al.created_at >= $1 AND al.id <> $2
		ORDER BY al.created_at DESC, al.id ASC
		LIMIT $3
	`, since, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts created since: %w", err)
	}
	defer rows.Close()

	return scanAlertRecords(rows)
}

// ListAll retrieves every alert joined with its anomaly, newest first.
func (s *AlertStore) ListAll(ctx context.Context) ([]*domain.AlertRecord, error) {
	rows, err := s.pool.Query(ctx, alertRecordQuery+`
		ORDER BY al.created_at DESC, al.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	return scanAlertRecords(rows)
}

// UpdateStatus sets status and resolved_at. Returns ErrNotFound if not exists.
func (s *AlertStore) UpdateStatus(ctx context.Context, id string, status domain.AlertStatus, resolvedAt *time.Time) error {
	if !status.IsValid() {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE alerts SET status = $2, resolved_at = $3
		WHERE id = $1
	`, id, string(status), resolvedAt)
	if err != nil {
		if isConstraintError(err) {
			return storage.ErrInvalidInput
		}
		return fmt.Errorf("update alert status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteResolvedBefore hard-deletes resolved alerts with resolved_at before cutoff.
func (s *AlertStore) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM alerts
		WHERE status = 'resolved' AND resolved_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete resolved alerts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// scanAlertRecord scans a single joined row.
func scanAlertRecord(row pgx.Row) (*domain.AlertRecord, error) {
	var rec domain.AlertRecord
	var status, typ, severity string
	var details []byte

	err := row.Scan(
		&rec.ID, &rec.AnomalyID, &status, &rec.CreatedAt, &rec.ResolvedAt,
		&rec.Anomaly.ID, &typ, &rec.Anomaly.ProductID, &severity, &rec.Anomaly.DetectedAt, &details,
	)
	if err != nil {
		return nil, err
	}

	rec.Status = domain.AlertStatus(status)
	rec.CreatedAt = rec.CreatedAt.UTC()
	if rec.ResolvedAt != nil {
		ts := rec.ResolvedAt.UTC()
		rec.ResolvedAt = &ts
	}
	rec.Anomaly.Type = domain.AnomalyType(typ)
	rec.Anomaly.Severity = domain.Severity(severity)
	rec.Anomaly.DetectedAt = rec.Anomaly.DetectedAt.UTC()

	d, err := domain.DecodeDetails(rec.Anomaly.Type, details)
	if err != nil {
		return nil, err
	}
	rec.Anomaly.Details = d
	return &rec, nil
}

// scanAlertRecords scans multiple joined rows.
func scanAlertRecords(rows pgx.Rows) ([]*domain.AlertRecord, error) {
	var records []*domain.AlertRecord

	for rows.Next() {
		rec, err := scanAlertRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert rows: %w", err)
	}

	return records, nil
}
