package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/smallbiznis/workforce/internal/observability/logger"
)

// TTLs for the different entry classes.
const (
	TTLList     = 5 * time.Minute
	TTLEntity   = 30 * time.Minute
	TTLRecent   = 6 * time.Hour
	TTLStats    = 24 * time.Hour
	TTLRegistry = 24 * time.Hour
	TTLResponse = 30 * time.Second
	TTLWarmup   = 6 * time.Hour
)

// Bookkeeper mediates every cache interaction and keeps the per-namespace
// registry of live keys current. A failing store degrades reads to direct
// computation and turns writes into no-ops; callers never see cache errors.
type Bookkeeper struct {
	store Store
}

func NewBookkeeper(store Store) *Bookkeeper {
	return &Bookkeeper{store: store}
}

// Get loads a cached entry into dest. The second return reports a hit.
func (b *Bookkeeper) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, ok, err := b.store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Put stores value under key and tracks the key in its namespace registry.
func (b *Bookkeeper) Put(ctx context.Context, namespace, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := b.store.Set(ctx, key, raw, ttl); err != nil {
		return err
	}
	return b.store.AddToSet(ctx, RegistryKey(namespace), key, TTLRegistry)
}

// InvalidateNamespace deletes every tracked key of the namespace plus the
// registry itself. Keys that already expired are deleted harmlessly.
func (b *Bookkeeper) InvalidateNamespace(ctx context.Context, namespaces ...string) error {
	for _, namespace := range namespaces {
		registry := RegistryKey(namespace)
		keys, err := b.store.SetMembers(ctx, registry)
		if err != nil {
			return err
		}
		if err := b.store.Del(ctx, append(keys, registry)...); err != nil {
			return err
		}
	}
	return nil
}

// InvalidateKeys deletes individual keys, typically single-entity entries.
func (b *Bookkeeper) InvalidateKeys(ctx context.Context, keys ...string) error {
	return b.store.Del(ctx, keys...)
}

// GetOrCompute returns the cached value under key, or computes, stores and
// tracks it on a miss. Store failures are logged and the computed value is
// returned directly, so a degraded cache never degrades the request.
func GetOrCompute[T any](ctx context.Context, b *Bookkeeper, namespace, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	var cached T
	hit, err := b.Get(ctx, key, &cached)
	if err != nil {
		logger.FromContext(ctx).Warn("cache read failed, computing directly",
			zap.String("key", key), zap.Error(err))
	} else if hit {
		return cached, nil
	}

	value, err := compute(ctx)
	if err != nil {
		return value, err
	}

	if err := b.Put(ctx, namespace, key, value, ttl); err != nil {
		logger.FromContext(ctx).Warn("cache write failed",
			zap.String("key", key), zap.Error(err))
	}
	return value, nil
}
