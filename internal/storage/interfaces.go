package storage

import (
	"context"
	"time"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
)

// SeriesStore provides access to entity time series (prices, tariff rates,
// freight indices, FX rates).
type SeriesStore interface {
	// InsertBulk adds multiple points of one kind. Fails entire batch on duplicate (entity_id, date).
	InsertBulk(ctx context.Context, kind domain.SeriesKind, points []domain.SeriesPoint) error

	// Latest retrieves up to limit most recent points for an entity, ordered by date ASC.
	Latest(ctx context.Context, kind domain.SeriesKind, entityID string, limit int) ([]domain.SeriesPoint, error)
}

// CatalogStore provides access to the tracked entities.
type CatalogStore interface {
	// InsertProduct adds a product. Returns ErrDuplicateKey if id exists.
	InsertProduct(ctx context.Context, p *domain.Product) error

	// GetProduct retrieves a product by id. Returns ErrNotFound if not exists.
	GetProduct(ctx context.Context, id string) (*domain.Product, error)

	// ListProducts retrieves all products ordered by id.
	ListProducts(ctx context.Context) ([]*domain.Product, error)

	// InsertRoute adds a freight route. Returns ErrDuplicateKey if route exists.
	InsertRoute(ctx context.Context, r *domain.FreightRoute) error

	// ListRoutes retrieves all freight routes ordered by route.
	ListRoutes(ctx context.Context) ([]*domain.FreightRoute, error)

	// InsertCurrencyPair adds a currency pair. Returns ErrDuplicateKey if pair exists.
	InsertCurrencyPair(ctx context.Context, c *domain.CurrencyPair) error

	// ListCurrencyPairs retrieves all currency pairs ordered by pair.
	ListCurrencyPairs(ctx context.Context) ([]*domain.CurrencyPair, error)
}

// AnomalyStore provides access to anomalies storage.
type AnomalyStore interface {
	// Insert adds a new anomaly. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, a *domain.Anomaly) error

	// GetByID retrieves an anomaly by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Anomaly, error)

	// FindRecent retrieves the most recent anomaly of the given type and product
	// (nil product matches nil) detected at or after since. Returns ErrNotFound if none.
	FindRecent(ctx context.Context, t domain.AnomalyType, productID *string, since time.Time) (*domain.Anomaly, error)
}

// AlertStore provides access to alerts storage.
type AlertStore interface {
	// Insert adds a new alert. Returns ErrDuplicateKey if id or anomaly_id exists.
	Insert(ctx context.Context, a *domain.Alert) error

	// InsertWithAnomaly adds an anomaly and the alert wrapping it in one atomic step.
	// a.AnomalyID must equal anomaly.ID. Neither record is stored on failure.
	InsertWithAnomaly(ctx context.Context, anomaly *domain.Anomaly, a *domain.Alert) error

	// GetByID retrieves an alert joined with its anomaly. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.AlertRecord, error)

	// ListCreatedSince retrieves up to limit alerts created at or after since,
	// excluding excludeID, ordered by created_at DESC.
	ListCreatedSince(ctx context.Context, since time.Time, excludeID string, limit int) ([]*domain.AlertRecord, error)

	// ListAll retrieves every alert joined with its anomaly, ordered by created_at DESC.
	ListAll(ctx context.Context) ([]*domain.AlertRecord, error)

	// UpdateStatus sets status and resolved_at. Returns ErrNotFound if not exists.
	UpdateStatus(ctx context.Context, id string, status domain.AlertStatus, resolvedAt *time.Time) error

	// DeleteResolvedBefore hard-deletes resolved alerts with resolved_at before cutoff.
	// Returns the number of deleted alerts.
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int, error)
}
