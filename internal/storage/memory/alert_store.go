package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/storage"
)

// AlertStore is an in-memory implementation of storage.AlertStore.
// Joins are resolved against the given AnomalyStore.
type AlertStore struct {
	mu        sync.RWMutex
	data      map[string]*domain.Alert // keyed by id
	anomalies *AnomalyStore
}

// NewAlertStore creates a new in-memory alert store backed by anomalies.
func NewAlertStore(anomalies *AnomalyStore) *AlertStore {
	return &AlertStore{
		data:      make(map[string]*domain.Alert),
		anomalies: anomalies,
	}
}

// Insert adds a new alert. Returns ErrDuplicateKey if id or anomaly_id exists.
func (s *AlertStore) Insert(ctx context.Context, a *domain.Alert) error {
	if !validAlert(a) {
		return storage.ErrInvalidInput
	}
	if _, err := s.anomalies.GetByID(ctx, a.AnomalyID); err != nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.ID]; exists {
		return storage.ErrDuplicateKey
	}
	for _, existing := range s.data {
		if existing.AnomalyID == a.AnomalyID {
			return storage.ErrDuplicateKey
		}
	}
	s.data[a.ID] = copyAlert(a)
	return nil
}

// InsertWithAnomaly adds an anomaly and its alert under both store locks.
// Neither record is stored on failure.
func (s *AlertStore) InsertWithAnomaly(_ context.Context, anomaly *domain.Anomaly, a *domain.Alert) error {
	if !validAnomaly(anomaly) || !validAlert(a) || a.AnomalyID != anomaly.ID {
		return storage.ErrInvalidInput
	}

	// Lock order: anomalies, then alerts.
	s.anomalies.mu.Lock()
	defer s.anomalies.mu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.anomalies.data[anomaly.ID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.data[a.ID]; exists {
		return storage.ErrDuplicateKey
	}
	s.anomalies.data[anomaly.ID] = copyAnomaly(anomaly)
	s.data[a.ID] = copyAlert(a)
	return nil
}

// GetByID retrieves an alert joined with its anomaly. Returns ErrNotFound if not exists.
func (s *AlertStore) GetByID(ctx context.Context, id string) (*domain.AlertRecord, error) {
	s.mu.RLock()
	a, exists := s.data[id]
	var alertCopy *domain.Alert
	if exists {
		alertCopy = copyAlert(a)
	}
	s.mu.RUnlock()

	if !exists {
		return nil, storage.ErrNotFound
	}
	return s.join(ctx, alertCopy)
}

// ListCreatedSince retrieves up to limit alerts created at or after since, newest first.
func (s *AlertStore) ListCreatedSince(ctx context.Context, since time.Time, excludeID string, limit int) ([]*domain.AlertRecord, error) {
	alerts := s.snapshot(func(a *domain.Alert) bool {
		return a.ID != excludeID && !a.CreatedAt.Before(since)
	})
	if limit > 0 && len(alerts) > limit {
		alerts = alerts[:limit]
	}
	return s.joinAll(ctx, alerts)
}

// ListAll retrieves every alert joined with its anomaly, newest first.
func (s *AlertStore) ListAll(ctx context.Context) ([]*domain.AlertRecord, error) {
	return s.joinAll(ctx, s.snapshot(func(*domain.Alert) bool { return true }))
}

// UpdateStatus sets status and resolved_at. Returns ErrNotFound if not exists.
func (s *AlertStore) UpdateStatus(_ context.Context, id string, status domain.AlertStatus, resolvedAt *time.Time) error {
	if !status.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	a.Status = status
	a.ResolvedAt = nil
	if resolvedAt != nil {
		ts := *resolvedAt
		a.ResolvedAt = &ts
	}
	return nil
}

// DeleteResolvedBefore hard-deletes resolved alerts with resolved_at before cutoff.
func (s *AlertStore) DeleteResolvedBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, a := range s.data {
		if a.Status == domain.AlertStatusResolved && a.ResolvedAt != nil && a.ResolvedAt.Before(cutoff) {
			delete(s.data, id)
			deleted++
		}
	}
	return deleted, nil
}

// snapshot copies matching alerts sorted by created_at DESC, id ASC.
func (s *AlertStore) snapshot(match func(*domain.Alert) bool) []*domain.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Alert
	for _, a := range s.data {
		if match(a) {
			result = append(result, copyAlert(a))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (s *AlertStore) join(ctx context.Context, a *domain.Alert) (*domain.AlertRecord, error) {
	anomaly, err := s.anomalies.GetByID(ctx, a.AnomalyID)
	if err != nil {
		return nil, err
	}
	return &domain.AlertRecord{Alert: *a, Anomaly: *anomaly}, nil
}

func (s *AlertStore) joinAll(ctx context.Context, alerts []*domain.Alert) ([]*domain.AlertRecord, error) {
	result := make([]*domain.AlertRecord, 0, len(alerts))
	for _, a := range alerts {
		rec, err := s.join(ctx, a)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, nil
}

func validAlert(a *domain.Alert) bool {
	return a != nil && a.ID != "" && a.AnomalyID != "" && a.Status.IsValid()
}

func copyAlert(a *domain.Alert) *domain.Alert {
	alertCopy := *a
	if a.ResolvedAt != nil {
		ts := *a.ResolvedAt
		alertCopy.ResolvedAt = &ts
	}
	return &alertCopy
}

var _ storage.AlertStore = (*AlertStore)(nil)
