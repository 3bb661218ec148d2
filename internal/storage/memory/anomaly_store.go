package memory

import (
	"context"
	"sync"
	"time"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/storage"
)

// AnomalyStore is an in-memory implementation of storage.AnomalyStore.
type AnomalyStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Anomaly // keyed by id
}

// NewAnomalyStore creates a new in-memory anomaly store.
func NewAnomalyStore() *AnomalyStore {
	return &AnomalyStore{
		data: make(map[string]*domain.Anomaly),
	}
}

// Insert adds a new anomaly. Returns ErrDuplicateKey if id exists.
func (s *AnomalyStore) Insert(_ context.Context, a *domain.Anomaly) error {
	if !validAnomaly(a) {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.ID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[a.ID] = copyAnomaly(a)
	return nil
}

// GetByID retrieves an anomaly by id. Returns ErrNotFound if not exists.
func (s *AnomalyStore) GetByID(_ context.Context, id string) (*domain.Anomaly, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyAnomaly(a), nil
}

// FindRecent retrieves the most recent anomaly of type and product detected at or after since.
func (s *AnomalyStore) FindRecent(_ context.Context, t domain.AnomalyType, productID *string, since time.Time) (*domain.Anomaly, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.Anomaly
	for _, a := range s.data {
		if !a.SameScope(t, productID) || a.DetectedAt.Before(since) {
			continue
		}
		if latest == nil || a.DetectedAt.After(latest.DetectedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return copyAnomaly(latest), nil
}

func validAnomaly(a *domain.Anomaly) bool {
	return a != nil && a.ID != "" && a.Type.IsValid() && a.Severity.IsValid()
}

// copyAnomaly copies an anomaly so callers cannot mutate stored state.
// Details variants are value types.
func copyAnomaly(a *domain.Anomaly) *domain.Anomaly {
	anomalyCopy := *a
	if a.ProductID != nil {
		id := *a.ProductID
		anomalyCopy.ProductID = &id
	}
	return &anomalyCopy
}

var _ storage.AnomalyStore = (*AnomalyStore)(nil)
