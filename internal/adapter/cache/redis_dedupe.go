package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atpstore/storefront-gateway/internal/repository"
)

const dedupePrefix = "webhook:event:"

// RedisEventDedupe implements EventDedupe backed by Redis SETNX.
type RedisEventDedupe struct {
	client redis.UniversalClient
}

var _ repository.EventDedupe = (*RedisEventDedupe)(nil)

// NewRedisEventDedupe constructs a Redis-backed dedupe store.
func NewRedisEventDedupe(client redis.UniversalClient) *RedisEventDedupe {
	return &RedisEventDedupe{client: client}
}

// FirstDelivery atomically claims the event key, returning false when an
// earlier delivery already claimed it within the ttl window.
func (d *RedisEventDedupe) FirstDelivery(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	first, err := d.client.SetNX(ctx, dedupePrefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim event key: %w", err)
	}
	return first, nil
}
