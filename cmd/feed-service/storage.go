package main

import (
	"context"
	"fmt"

	"github.com/pribylovaa/go-shortvideo-feed/internal/config"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage/memory"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage/mongo"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage/postgres"
)

// pinger — хранилище с проверкой соединения (postgres, mongo).
type pinger interface {
	Ping(ctx context.Context) error
}

// openStorage открывает хранилище по storage.driver.
// Для postgres применяется встроенная схема, если не задан postgres.skip_migrate.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverPostgres:
		pg, err := postgres.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}

		if !cfg.Postgres.SkipMigrate {
			if err := pg.Migrate(ctx); err != nil {
				_ = pg.Close(ctx)
				return nil, err
			}
		}

		return pg, nil
	case config.DriverMongo:
		mg, err := mongo.New(ctx, cfg.Mongo.URL)
		if err != nil {
			return nil, err
		}

		return mg, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
