package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisReceiptCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisReceiptCache(rdb *redis.Client, ttl time.Duration) *RedisReceiptCache {
	return &RedisReceiptCache{rdb: rdb, ttl: ttl}
}

var _ ReceiptCache = (*RedisReceiptCache)(nil)

type receiptValue struct {
	Provider         string    `json:"provider"`
	ProviderResponse string    `json:"providerResponse"`
	SentAt           time.Time `json:"sentAt"`
}

func (c *RedisReceiptCache) StoreReceipt(ctx context.Context, id int64, providerName, providerResponse string, sentAt time.Time) error {
	key := fmt.Sprintf("receipt:%d", id)
	val := receiptValue{
		Provider:         providerName,
		ProviderResponse: providerResponse,
		SentAt:           sentAt.UTC(),
	}

	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}
