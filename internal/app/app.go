// Package app wires configuration into stores, detectors and services shared
// by the server and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/alerting"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/config"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/detection"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/intelligence"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/lock"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/observability"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/storage"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/storage/breaker"
	chstore "github.com/azrilxx/tradenestkgsb-sub000/internal/storage/clickhouse"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/storage/memory"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/storage/migrations"
	pgstore "github.com/azrilxx/tradenestkgsb-sub000/internal/storage/postgres"
)

// lockPrefix namespaces dedup lock keys in Redis.
const lockPrefix = "tradenest:"

// Stores holds all storage implementations.
type Stores struct {
	Series    storage.SeriesStore
	Catalog   storage.CatalogStore
	Anomalies storage.AnomalyStore
	Alerts    storage.AlertStore
	Lock      lock.Locker
}

// OpenStores connects the configured backends. The returned cleanup closes
// every connection that was opened.
func OpenStores(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *zerolog.Logger) (*Stores, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	locker, closeLock, err := openLock(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, closeLock)

	if cfg.UseMemory {
		anomalies := memory.NewAnomalyStore()
		return &Stores{
			Series:    memory.NewSeriesStore(),
			Catalog:   memory.NewCatalogStore(),
			Anomalies: anomalies,
			Alerts:    memory.NewAlertStore(anomalies),
			Lock:      locker,
		}, cleanup, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	closers = append(closers, pool.Close)

	chConn, err := chstore.NewConn(ctx, cfg.ClickhouseDSN)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	closers = append(closers, func() { chConn.Close() })

	stores := &Stores{
		// ClickHouse (analytics), guarded by a circuit breaker
		Series: breaker.NewSeriesStore(chstore.NewSeriesStore(chConn), breaker.Options{
			Name:    "clickhouse-series",
			Timeout: cfg.BreakerTimeout,
			Logger:  logger,
			Metrics: metrics,
		}),

		// PostgreSQL (catalog and workflow)
		Catalog:   pgstore.NewCatalogStore(pool),
		Anomalies: pgstore.NewAnomalyStore(pool),
		Alerts:    pgstore.NewAlertStore(pool),
		Lock:      locker,
	}
	return stores, cleanup, nil
}

// openLock returns a Redis lock when REDIS_ADDR is set, else an in-process one.
func openLock(ctx context.Context, cfg *config.Config) (lock.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		return lock.NewLocal(), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	return lock.NewRedis(client, lockPrefix, cfg.LockTTL), func() { client.Close() }, nil
}

// Migrate applies Postgres and ClickHouse schema migrations.
func Migrate(ctx context.Context, cfg *config.Config) ([]string, error) {
	if cfg.UseMemory {
		return nil, nil
	}
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		return applied, fmt.Errorf("postgres migrations: %w", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		return applied, fmt.Errorf("clickhouse migrations: %w", err)
	}
	conn.Close()
	return applied, nil
}

// Services are the application components built on top of Stores.
type Services struct {
	Stores    *Stores
	Detectors *detection.Detectors
	Generator *alerting.Generator
	Analyzer  *intelligence.Analyzer
}

// Settings maps configuration onto generator settings.
func Settings(cfg *config.Config) alerting.Settings {
	s := alerting.DefaultSettings()
	s.PriceLookbackDays = cfg.PriceLookbackDays
	s.PriceThreshold = cfg.PriceThreshold
	s.TariffThresholdPct = cfg.TariffThresholdPct
	s.FreightThresholdPct = cfg.FreightThresholdPct
	s.FXThresholdPct = cfg.FXThresholdPct
	return s
}

// NewServices builds detectors, the alert generator and the analyzer.
// notifier may be nil.
func NewServices(cfg *config.Config, stores *Stores, notifier alerting.Notifier, metrics *observability.Metrics, logger *zerolog.Logger) (*Services, error) {
	policies := detection.DefaultPolicies()
	if cfg.PolicyFile != "" {
		p, err := detection.LoadPolicies(cfg.PolicyFile)
		if err != nil {
			return nil, fmt.Errorf("load policies: %w", err)
		}
		policies = p
	}

	detectors := detection.New(detection.Options{
		Series:   stores.Series,
		Catalog:  stores.Catalog,
		Policies: &policies,
		Logger:   logger,
	})

	settings := Settings(cfg)
	gen := alerting.New(alerting.Options{
		Detectors:   detectors,
		Anomalies:   stores.Anomalies,
		Alerts:      stores.Alerts,
		Lock:        stores.Lock,
		Notifier:    notifier,
		Metrics:     metrics,
		Logger:      logger,
		DedupWindow: cfg.DedupWindow,
		Settings:    &settings,
	})

	analyzer := intelligence.New(intelligence.Options{
		Alerts:  stores.Alerts,
		Metrics: metrics,
		Logger:  logger,
	})

	return &Services{
		Stores:    stores,
		Detectors: detectors,
		Generator: gen,
		Analyzer:  analyzer,
	}, nil
}
