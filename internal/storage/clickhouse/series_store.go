package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/storage"
)

// SeriesStore implements storage.SeriesStore using ClickHouse.
// All four series kinds share the series_points table.
type SeriesStore struct {
	conn *Conn
}

// NewSeriesStore creates a new SeriesStore.
func NewSeriesStore(conn *Conn) *SeriesStore {
	return &SeriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SeriesStore = (*SeriesStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate (kind, entity_id, date).
func (s *SeriesStore) InsertBulk(ctx context.Context, kind domain.SeriesKind, points []domain.SeriesPoint) error {
	if !kind.IsValid() {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	// MergeTree does not enforce uniqueness, so check intra-batch and existing rows.
	type key struct {
		entityID string
		date     int64
	}
	seen := make(map[key]struct{}, len(points))
	for _, p := range points {
		if p.EntityID == "" {
			return storage.ErrInvalidInput
		}
		k := key{p.EntityID, p.Date.UnixMilli()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, p := range points {
		exists, err := s.exists(ctx, kind, p.EntityID, p.Date)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO series_points (kind, entity_id, date, value)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err := batch.Append(string(kind), p.EntityID, p.Date.UTC(), p.Value); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// Latest retrieves up to limit most recent points for an entity, ordered by date ASC.
func (s *SeriesStore) Latest(ctx context.Context, kind domain.SeriesKind, entityID string, limit int) ([]domain.SeriesPoint, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT entity_id, date, value FROM (
			SELECT entity_id, date, value
			FROM series_points
			WHERE kind = ? AND entity_id = ?
			ORDER BY date DESC
			LIMIT ?
		)
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, string(kind), entityID, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query latest %s: %w", kind, err)
	}
	defer rows.Close()

	return scanSeries(rows)
}

// exists checks if a point with the given key exists.
func (s *SeriesStore) exists(ctx context.Context, kind domain.SeriesKind, entityID string, date time.Time) (bool, error) {
	query := `
		SELECT count(*) FROM series_points
		WHERE kind = ? AND entity_id = ? AND date = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, string(kind), entityID, date.UTC()).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanSeries scans multiple rows.
func scanSeries(rows chRows) ([]domain.SeriesPoint, error) {
	var points []domain.SeriesPoint

	for rows.Next() {
		var p domain.SeriesPoint
		if err := rows.Scan(&p.EntityID, &p.Date, &p.Value); err != nil {
			return nil, fmt.Errorf("scan series row: %w", err)
		}
		p.Date = p.Date.UTC()
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series rows: %w", err)
	}

	return points, nil
}
