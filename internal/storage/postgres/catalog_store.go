package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/storage"
)

// CatalogStore implements storage.CatalogStore using PostgreSQL.
type CatalogStore struct {
	pool *Pool
}

// NewCatalogStore creates a new CatalogStore.
func NewCatalogStore(pool *Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CatalogStore = (*CatalogStore)(nil)

// InsertProduct adds a product. Returns ErrDuplicateKey if id exists.
func (s *CatalogStore) InsertProduct(ctx context.Context, p *domain.Product) error {
	if p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO products (id, name, hs_code, category, country)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.Name, p.HSCode, p.Category, p.Country)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetProduct retrieves a product by id. Returns ErrNotFound if not exists.
func (s *CatalogStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, hs_code, category, country
		FROM products
		WHERE id = $1
	`, id)

	var p domain.Product
	if err := row.Scan(&p.ID, &p.Name, &p.HSCode, &p.Category, &p.Country); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// ListProducts retrieves all products ordered by id.
func (s *CatalogStore) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, hs_code, category, country
		FROM products
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Product, error) {
		var p domain.Product
		err := row.Scan(&p.ID, &p.Name, &p.HSCode, &p.Category, &p.Country)
		return &p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan product rows: %w", err)
	}
	return products, nil
}

// InsertRoute adds a freight route. Returns ErrDuplicateKey if route exists.
func (s *CatalogStore) InsertRoute(ctx context.Context, r *domain.FreightRoute) error {
	if r == nil || r.Route == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO freight_routes (route, origin, destination)
		VALUES ($1, $2, $3)
	`, r.Route, r.Origin, r.Destination)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert route: %w", err)
	}
	return nil
}

// ListRoutes retrieves all freight routes ordered by route.
func (s *CatalogStore) ListRoutes(ctx context.Context) ([]*domain.FreightRoute, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT route, origin, destination
		FROM freight_routes
		ORDER BY route ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	defer rows.Close()

	routes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.FreightRoute, error) {
		var r domain.FreightRoute
		err := row.Scan(&r.Route, &r.Origin, &r.Destination)
		return &r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan route rows: %w", err)
	}
	return routes, nil
}

// InsertCurrencyPair adds a currency pair. Returns ErrDuplicateKey if pair exists.
func (s *CatalogStore) InsertCurrencyPair(ctx context.Context, c *domain.CurrencyPair) error {
	if c == nil || c.Pair == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO currency_pairs (pair, base, quote)
		VALUES ($1, $2, $3)
	`, c.Pair, c.Base, c.Quote)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert currency pair: %w", err)
	}
	return nil
}

// ListCurrencyPairs retrieves all currency pairs ordered by pair.
func (s *CatalogStore) ListCurrencyPairs(ctx context.Context) ([]*domain.CurrencyPair, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pair, base, quote
		FROM currency_pairs
		ORDER BY pair ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list currency pairs: %w", err)
	}
	defer rows.Close()

	pairs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.CurrencyPair, error) {
		var c domain.CurrencyPair
		err := row.Scan(&c.Pair, &c.Base, &c.Quote)
		return &c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan currency pair rows: %w", err)
	}
	return pairs, nil
}
