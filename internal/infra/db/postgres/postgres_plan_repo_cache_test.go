//go:build !integration

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"gym-membership-billing/internal/domain"
	"gym-membership-billing/internal/domain/model"
	"gym-membership-billing/internal/domain/ports/repository"
)

func TestPlanRepoCacheDecorator(t *testing.T) {
	ctx := context.Background()
	plan := &model.Plan{ID: "plan-gold", Name: "Gold", QuarterlyPrice: 2700, IsActive: true}
	planJSON, _ := json.Marshal(plan)

	t.Run("FindByID should return from cache on hit", func(t *testing.T) {
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				return string(planJSON), nil
			},
		}
		innerRepoCalled := false
		mockInnerRepo := &mockInnerPlanRepo{
			FindByIDFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
				innerRepoCalled = true
				return nil, nil
			},
		}

		decorator := NewPlanRepoCacheDecorator(mockInnerRepo, mockRedis, time.Minute, newTestLogger())
		result, err := decorator.FindByID(ctx, nil, "plan-gold")

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if innerRepoCalled {
			t.Error("inner repository should not be called on a cache hit")
		}
		if result == nil || result.QuarterlyPrice != 2700 {
			t.Errorf("did not return the cached plan, got %+v", result)
		}
	})

	t.Run("FindByID should load and populate the cache on miss", func(t *testing.T) {
		var setKey string
		var setTTL time.Duration
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				return "", redis.Nil
			},
			SetFunc: func(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
				setKey, setTTL = key, expiration
				return nil
			},
		}
		mockInnerRepo := &mockInnerPlanRepo{
			FindByIDFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
				return plan, nil
			},
		}

		decorator := NewPlanRepoCacheDecorator(mockInnerRepo, mockRedis, 5*time.Minute, newTestLogger())
		result, err := decorator.FindByID(ctx, nil, "plan-gold")

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.ID != "plan-gold" {
			t.Errorf("expected plan-gold, got %s", result.ID)
		}
		if setKey != "plan:plan-gold" || setTTL != 5*time.Minute {
			t.Errorf("cache not populated as expected: key=%q ttl=%s", setKey, setTTL)
		}
	})

	t.Run("FindByID should fall through when redis is down", func(t *testing.T) {
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				return "", errors.New("connection refused")
			},
			SetFunc: func(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
				return errors.New("connection refused")
			},
		}
		mockInnerRepo := &mockInnerPlanRepo{
			FindByIDFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
				return plan, nil
			},
		}

		decorator := NewPlanRepoCacheDecorator(mockInnerRepo, mockRedis, time.Minute, newTestLogger())
		result, err := decorator.FindByID(ctx, nil, "plan-gold")
		if err != nil || result == nil {
			t.Fatalf("expected plan from inner repo, got %v / %v", result, err)
		}
	})

	t.Run("FindByID should not cache a missing plan", func(t *testing.T) {
		setCalled := false
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				return "", redis.Nil
			},
			SetFunc: func(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
				setCalled = true
				return nil
			},
		}
		mockInnerRepo := &mockInnerPlanRepo{
			FindByIDFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
				return nil, domain.ErrNotFound
			},
		}

		decorator := NewPlanRepoCacheDecorator(mockInnerRepo, mockRedis, time.Minute, newTestLogger())
		_, err := decorator.FindByID(ctx, nil, "nope")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if setCalled {
			t.Error("a missing plan must not be cached")
		}
	})

	t.Run("ListActive should cache a non-empty list", func(t *testing.T) {
		calls := 0
		stored := ""
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				if stored == "" {
					return "", redis.Nil
				}
				return stored, nil
			},
			SetFunc: func(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
				stored = string(value.([]byte))
				return nil
			},
		}
		mockInnerRepo := &mockInnerPlanRepo{
			ListActiveFunc: func(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
				calls++
				return []*model.Plan{plan}, nil
			},
		}

		decorator := NewPlanRepoCacheDecorator(mockInnerRepo, mockRedis, time.Minute, newTestLogger())
		for i := 0; i < 3; i++ {
			plans, err := decorator.ListActive(ctx, nil)
			if err != nil || len(plans) != 1 {
				t.Fatalf("unexpected result %v / %v", plans, err)
			}
		}
		if calls != 1 {
			t.Errorf("expected inner repo to be called once, got %d", calls)
		}
	})
}
