package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/storage"
)

// CatalogStore is an in-memory implementation of storage.CatalogStore.
type CatalogStore struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
	routes   map[string]*domain.FreightRoute
	pairs    map[string]*domain.CurrencyPair
}

// NewCatalogStore creates a new in-memory catalog store.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		products: make(map[string]*domain.Product),
		routes:   make(map[string]*domain.FreightRoute),
		pairs:    make(map[string]*domain.CurrencyPair),
	}
}

// InsertProduct adds a product. Returns ErrDuplicateKey if id exists.
func (s *CatalogStore) InsertProduct(_ context.Context, p *domain.Product) error {
	if p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[p.ID]; exists {
		return storage.ErrDuplicateKey
	}
	productCopy := *p
	s.products[p.ID] = &productCopy
	return nil
}

// GetProduct retrieves a product by id. Returns ErrNotFound if not exists.
func (s *CatalogStore) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.products[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	productCopy := *p
	return &productCopy, nil
}

// ListProducts retrieves all products ordered by id.
func (s *CatalogStore) ListProducts(_ context.Context) ([]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Product, 0, len(s.products))
	for _, p := range s.products {
		productCopy := *p
		result = append(result, &productCopy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// InsertRoute adds a freight route. Returns ErrDuplicateKey if route exists.
func (s *CatalogStore) InsertRoute(_ context.Context, r *domain.FreightRoute) error {
	if r == nil || r.Route == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.routes[r.Route]; exists {
		return storage.ErrDuplicateKey
	}
	routeCopy := *r
	s.routes[r.Route] = &routeCopy
	return nil
}

// ListRoutes retrieves all freight routes ordered by route.
func (s *CatalogStore) ListRoutes(_ context.Context) ([]*domain.FreightRoute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.FreightRoute, 0, len(s.routes))
	for _, r := range s.routes {
		routeCopy := *r
		result = append(result, &routeCopy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Route < result[j].Route })
	return result, nil
}

// InsertCurrencyPair adds a currency pair. Returns ErrDuplicateKey if pair exists.
func (s *CatalogStore) InsertCurrencyPair(_ context.Context, c *domain.CurrencyPair) error {
	if c == nil || c.Pair == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pairs[c.Pair]; exists {
		return storage.ErrDuplicateKey
	}
	pairCopy := *c
	s.pairs[c.Pair] = &pairCopy
	return nil
}

// ListCurrencyPairs retrieves all currency pairs ordered by pair.
func (s *CatalogStore) ListCurrencyPairs(_ context.Context) ([]*domain.CurrencyPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.CurrencyPair, 0, len(s.pairs))
	for _, c := range s.pairs {
		pairCopy := *c
		result = append(result, &pairCopy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Pair < result[j].Pair })
	return result, nil
}

var _ storage.CatalogStore = (*CatalogStore)(nil)
