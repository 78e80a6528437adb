package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/retire-easy/internal/allocations"
	"github.com/yourusername/retire-easy/internal/config"
	"github.com/yourusername/retire-easy/internal/database"
	"github.com/yourusername/retire-easy/internal/users"
)

type stores struct {
	users       users.Store
	allocations allocations.Store
	pool        *pgxpool.Pool
}

func (s *stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// openStores は設定に応じて PostgreSQL かインメモリのストアを用意します。
func openStores(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*stores, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL is not set, using in-memory stores")
		return &stores{
			users:       users.NewMemoryStore(),
			allocations: allocations.NewMemoryStore(),
		}, nil
	}

	if err := database.Migrate(cfg.DatabaseURL, logger); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, database.PoolOptions{
		MaxConns:        int32(cfg.DBMaxConns),
		MinConns:        int32(cfg.DBMinConns),
		MaxConnLifetime: time.Hour,
	})
	if err != nil {
		return nil, err
	}

	return &stores{
		users:       users.NewPostgresStore(pool),
		allocations: allocations.NewPostgresStore(pool),
		pool:        pool,
	}, nil
}
