package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/repository"
	"course-marketplace/internal/infra/metrics"
	red "course-marketplace/internal/infra/redis"
)

var _ repository.CourseTierRepository = (*tierRepoCacheDecorator)(nil)

// tierRepoCacheDecorator caches tier reads in Redis; tiers are read on every
// quote and rarely change. Writes invalidate.
type tierRepoCacheDecorator struct {
	inner repository.CourseTierRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewTierRepoCacheDecorator(inner repository.CourseTierRepository, cache red.RedisClient, ttl time.Duration) repository.CourseTierRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &tierRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func (d *tierRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CourseTier, error) {
	// Transactional reads bypass the cache: checkout must price against the
	// row it locked, not a stale copy.
	if tx != nil {
		return d.inner.FindByID(ctx, tx, id)
	}

	key := fmt.Sprintf("tier:%s", id)
	// Any cache error, redis.Nil included, falls through to the database.
	if val, err := d.cache.Get(ctx, key); err == nil {
		metrics.IncCacheRequest("tier", "hit")
		var t model.CourseTier
		if json.Unmarshal([]byte(val), &t) == nil {
			return &t, nil
		}
	}

	metrics.IncCacheRequest("tier", "miss")
	t, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(t); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return t, nil
}

func (d *tierRepoCacheDecorator) ListAll(ctx context.Context, tx repository.Tx) ([]*model.CourseTier, error) {
	key := "tiers:all"
	if tx == nil {
		if val, err := d.cache.Get(ctx, key); err == nil {
			metrics.IncCacheRequest("tier_list", "hit")
			var tiers []*model.CourseTier
			if json.Unmarshal([]byte(val), &tiers) == nil {
				return tiers, nil
			}
		}
		metrics.IncCacheRequest("tier_list", "miss")
	}
	tiers, err := d.inner.ListAll(ctx, tx)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		if b, err := json.Marshal(tiers); err == nil {
			_ = d.cache.Set(ctx, key, b, d.ttl)
		}
	}
	return tiers, nil
}

func (d *tierRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, t *model.CourseTier) error {
	_ = d.cache.Del(ctx, fmt.Sprintf("tier:%s", t.ID), "tiers:all")
	return d.inner.Save(ctx, tx, t)
}

func (d *tierRepoCacheDecorator) Delete(ctx context.Context, tx repository.Tx, id string) error {
	_ = d.cache.Del(ctx, fmt.Sprintf("tier:%s", id), "tiers:all")
	return d.inner.Delete(ctx, tx, id)
}
