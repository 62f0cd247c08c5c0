package cache

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/workforce/internal/config"
)

var Module = fx.Module("cache",
	fx.Provide(NewStore),
	fx.Provide(NewBookkeeper),
)

// NewStore builds the cache store. With REDIS_ADDR set it connects to redis
// and pings it on startup; without it the process-local store is used.
func NewStore(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Store {
	if cfg.RedisAddr == "" {
		log.Info("no redis address configured, using in-memory cache store")
		return NewMemoryStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				// Reads degrade to direct computation, so a dead redis
				// is a warning rather than a startup failure.
				log.Warn("redis ping failed, cache will degrade to direct reads",
					zap.String("addr", cfg.RedisAddr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	return NewRedisStore(client)
}
