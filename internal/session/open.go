package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"hannu-storefront/internal/config"
	"hannu-storefront/internal/database"
	"hannu-storefront/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrUnknownStore = errors.New("unknown session store")

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the Store selected by cfg.Session.Store. The returned closer
// releases the underlying connection.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, io.Closer, error) {
	switch cfg.Session.Store {
	case "", "memory":
		return NewMemoryStore(), nopCloser{}, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return NewRedisStore(client, cfg.Session.KeyPrefix), client, nil

	case "postgres":
		db, err := database.New(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := database.RunMigrations(ctx, db, logger); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repository.NewStateRepository(db), db, nil

	case "sqlite":
		db, err := repository.OpenSQLite(cfg.Session.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSQLiteStateRepository(db), db, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownStore, cfg.Session.Store)
	}
}
