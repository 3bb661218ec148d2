package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/storage"
)

// SeriesStore is an in-memory implementation of storage.SeriesStore.
type SeriesStore struct {
	mu   sync.RWMutex
	data map[string]domain.SeriesPoint // keyed by (kind, entity_id, date)
}

// NewSeriesStore creates a new in-memory series store.
func NewSeriesStore() *SeriesStore {
	return &SeriesStore{
		data: make(map[string]domain.SeriesPoint),
	}
}

// seriesKey generates a unique key for a point.
func seriesKey(kind domain.SeriesKind, entityID string, p domain.SeriesPoint) string {
	return fmt.Sprintf("%s|%s|%d", kind, entityID, p.Date.UnixNano())
}

// InsertBulk adds multiple points. Fails entire batch on duplicate.
func (s *SeriesStore) InsertBulk(_ context.Context, kind domain.SeriesKind, points []domain.SeriesPoint) error {
	if !kind.IsValid() {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(points))

	for _, p := range points {
		if p.EntityID == "" {
			return storage.ErrInvalidInput
		}
		key := seriesKey(kind, p.EntityID, p)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range points {
		s.data[seriesKey(kind, p.EntityID, p)] = p
	}
	return nil
}

// Latest retrieves up to limit most recent points for an entity, ordered by date ASC.
func (s *SeriesStore) Latest(_ context.Context, kind domain.SeriesKind, entityID string, limit int) ([]domain.SeriesPoint, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := fmt.Sprintf("%s|%s|", kind, entityID)
	var result []domain.SeriesPoint
	for key, p := range s.data {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			result = append(result, p)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	if len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

var _ storage.SeriesStore = (*SeriesStore)(nil)
