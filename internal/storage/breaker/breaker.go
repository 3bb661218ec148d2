// Package breaker guards a SeriesStore with a circuit breaker so that a
// degraded analytical backend fails fast instead of stalling detector runs.
package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/observability"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/storage"
)

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = errors.New("series store circuit open")

// Options configures the breaker.
type Options struct {
	Name                string
	Timeout             time.Duration // open -> half-open
	Interval            time.Duration // closed-state count reset
	ConsecutiveFailures uint32
	Logger              *zerolog.Logger
	Metrics             *observability.Metrics
}

// SeriesStore wraps a storage.SeriesStore.
type SeriesStore struct {
	next    storage.SeriesStore
	cb      *gobreaker.CircuitBreaker
	name    string
	metrics *observability.Metrics
}

// Compile-time interface check.
var _ storage.SeriesStore = (*SeriesStore)(nil)

// NewSeriesStore wraps next with a circuit breaker.
func NewSeriesStore(next storage.SeriesStore, opts Options) *SeriesStore {
	if opts.Name == "" {
		opts.Name = "series-store"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Interval <= 0 {
		opts.Interval = 60 * time.Second
	}
	if opts.ConsecutiveFailures == 0 {
		opts.ConsecutiveFailures = 5
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	st := gobreaker.Settings{
		Name:     opts.Name,
		Interval: opts.Interval,
		Timeout:  opts.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.ConsecutiveFailures
		},
		// Domain outcomes are not backend failures.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, storage.ErrNotFound) ||
				errors.Is(err, storage.ErrDuplicateKey) ||
				errors.Is(err, storage.ErrInvalidInput) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit state change")
		},
	}

	return &SeriesStore{
		next:    next,
		cb:      gobreaker.NewCircuitBreaker(st),
		name:    opts.Name,
		metrics: opts.Metrics,
	}
}

// State reports the current breaker state.
func (s *SeriesStore) State() gobreaker.State {
	return s.cb.State()
}

// InsertBulk delegates through the breaker.
func (s *SeriesStore) InsertBulk(ctx context.Context, kind domain.SeriesKind, points []domain.SeriesPoint) error {
	start := time.Now()
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.InsertBulk(ctx, kind, points)
	})
	s.metrics.RecordDBQuery(s.name, "insert_bulk", time.Since(start), err)
	return translate(err)
}

// Latest delegates through the breaker.
func (s *SeriesStore) Latest(ctx context.Context, kind domain.SeriesKind, entityID string, limit int) ([]domain.SeriesPoint, error) {
	start := time.Now()
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.next.Latest(ctx, kind, entityID, limit)
	})
	s.metrics.RecordDBQuery(s.name, "latest", time.Since(start), err)
	if err != nil {
		return nil, translate(err)
	}
	points, _ := out.([]domain.SeriesPoint)
	return points, nil
}

func translate(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrOpen
	}
	return err
}
