package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"expense-tracker-api/internal/model"
)

const defaultDirtyMarkerTTL = 5 * time.Second

// ExpenseCache keeps each owner's full expense list as one JSON value.
// A short-lived dirty marker set by writers stops readers from caching a
// list they read before the write committed.
type ExpenseCache struct {
	client         *redisv9.Client
	ttl            time.Duration
	dirtyMarkerTTL time.Duration
}

func NewExpenseCache(client *redisv9.Client, ttl time.Duration) *ExpenseCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &ExpenseCache{
		client:         client,
		ttl:            ttl,
		dirtyMarkerTTL: defaultDirtyMarkerTTL,
	}
}

func (c *ExpenseCache) GetList(ctx context.Context, userID string) ([]model.Expense, bool, error) {
	raw, err := c.client.Get(ctx, c.listKey(userID)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get expense list failed: %w", err)
	}

	expenses := make([]model.Expense, 0)
	if err := json.Unmarshal([]byte(raw), &expenses); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached expense list failed: %w", err)
	}
	return expenses, true, nil
}

func (c *ExpenseCache) SetList(ctx context.Context, userID string, expenses []model.Expense) error {
	payload, err := json.Marshal(expenses)
	if err != nil {
		return fmt.Errorf("marshal expense list failed: %w", err)
	}
	if err := c.client.Set(ctx, c.listKey(userID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set expense list failed: %w", err)
	}
	return nil
}

func (c *ExpenseCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, c.listKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete expense list failed: %w", err)
	}
	return nil
}

func (c *ExpenseCache) MarkDirty(ctx context.Context, userID string) error {
	if err := c.client.Set(ctx, c.dirtyKey(userID), "1", c.dirtyMarkerTTL).Err(); err != nil {
		return fmt.Errorf("redis set dirty marker failed: %w", err)
	}
	return nil
}

func (c *ExpenseCache) IsDirty(ctx context.Context, userID string) (bool, error) {
	exists, err := c.client.Exists(ctx, c.dirtyKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

func (c *ExpenseCache) listKey(userID string) string {
	return fmt.Sprintf("expense:list:%s", userID)
}

func (c *ExpenseCache) dirtyKey(userID string) string {
	return fmt.Sprintf("expense:list:dirty:%s", userID)
}
