package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/storage"
)

// AnomalyStore implements storage.AnomalyStore using PostgreSQL.
// Details are stored as JSONB and restored by anomaly type.
type AnomalyStore struct {
	pool *Pool
}

// NewAnomalyStore creates a new AnomalyStore.
func NewAnomalyStore(pool *Pool) *AnomalyStore {
	return &AnomalyStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AnomalyStore = (*AnomalyStore)(nil)

const anomalyColumns = `id, type, product_id, severity, detected_at, details`

// Insert adds a new anomaly. Returns ErrDuplicateKey if id exists.
func (s *AnomalyStore) Insert(ctx context.Context, a *domain.Anomaly) error {
	if a == nil || a.ID == "" || !a.Type.IsValid() || !a.Severity.IsValid() {
		return storage.ErrInvalidInput
	}

	details, err := domain.EncodeDetails(a.Details)
	if err != nil {
		return fmt.Errorf("encode anomaly details: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO anomalies (`+anomalyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, string(a.Type), a.ProductID, string(a.Severity), a.DetectedAt, details)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isConstraintError(err) {
			return storage.ErrInvalidInput
		}
		return fmt.Errorf("insert anomaly: %w", err)
	}
	return nil
}

// GetByID retrieves an anomaly by id. Returns ErrNotFound if not exists.
func (s *AnomalyStore) GetByID(ctx context.Context, id string) (*domain.Anomaly, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+anomalyColumns+`
		FROM anomalies
		WHERE id = $1
	`, id)

	a, err := scanAnomaly(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get anomaly by id: %w", err)
	}
	return a, nil
}

// FindRecent retrieves the most recent anomaly of type and product detected at or after since.
// A nil productID matches anomalies without a product.
func (s *AnomalyStore) FindRecent(ctx context.Context, t domain.AnomalyType, productID *string, since time.Time) (*domain.Anomaly, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+anomalyColumns+`
		FROM anomalies
		WHERE type = $1
		  AND product_id IS NOT DISTINCT FROM $2
		  AND detected_at >= $3
		ORDER BY detected_at DESC, id ASC
		LIMIT 1
	`, string(t), productID, since)

	a, err := scanAnomaly(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("find recent anomaly: %w", err)
	}
	return a, nil
}

// scanAnomaly scans a single row into an Anomaly.
func scanAnomaly(row pgx.Row) (*domain.Anomaly, error) {
	var a domain.Anomaly
	var typ, severity string
	var details []byte

	if err := row.Scan(&a.ID, &typ, &a.ProductID, &severity, &a.DetectedAt, &details); err != nil {
		return nil, err
	}

	a.Type = domain.AnomalyType(typ)
	a.Severity = domain.Severity(severity)
	a.DetectedAt = a.DetectedAt.UTC()

	d, err := domain.DecodeDetails(a.Type, details)
	if err != nil {
		return nil, err
	}
	a.Details = d
	return &a, nil
}
