//go:build !integration

package postgres

import (
	"context"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/repository"
	red "course-marketplace/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerTierRepo mocks the database repository that the tier decorator wraps.
type mockInnerTierRepo struct {
	SaveFunc     func(ctx context.Context, tx repository.Tx, t *model.CourseTier) error
	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.CourseTier, error)
	ListAllFunc  func(ctx context.Context, tx repository.Tx) ([]*model.CourseTier, error)
	DeleteFunc   func(ctx context.Context, tx repository.Tx, id string) error
}

func (m *mockInnerTierRepo) Save(ctx context.Context, tx repository.Tx, t *model.CourseTier) error {
	return m.SaveFunc(ctx, tx, t)
}

func (m *mockInnerTierRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CourseTier, error) {
	return m.FindByIDFunc(ctx, tx, id)
}

func (m *mockInnerTierRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.CourseTier, error) {
	return m.ListAllFunc(ctx, tx)
}

func (m *mockInnerTierRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	return m.DeleteFunc(ctx, tx, id)
}

// mockRedisClient is a functional mock for the RedisClient interface.
type mockRedisClient struct {
	GetFunc func(ctx context.Context, key string) (string, error)
	SetFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc func(ctx context.Context, keys ...string) error
}

var _ red.RedisClient = (*mockRedisClient)(nil)

func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return "", goredis.Nil
}

func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	return nil
}

func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc != nil {
		return m.DelFunc(ctx, keys...)
	}
	return nil
}

func (m *mockRedisClient) Close() error { return nil }
