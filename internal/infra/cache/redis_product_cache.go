package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"gamestore/internal/domain/model"

	"github.com/go-redis/redis/v8"
)

// 商品1件のキャッシュ
type ProductCache interface {
	Get(ctx context.Context, id int64) (model.Product, bool, error)
	Set(ctx context.Context, p model.Product) error
	Delete(ctx context.Context, id int64) error
}

type RedisProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProductCache(client *redis.Client, ttl time.Duration) *RedisProductCache {
	return &RedisProductCache{client: client, ttl: ttl}
}

func productKey(id int64) string {
	return "product:" + strconv.FormatInt(id, 10)
}

func (c *RedisProductCache) Get(ctx context.Context, id int64) (model.Product, bool, error) {
	value, err := c.client.Get(ctx, productKey(id)).Bytes()
	if err == redis.Nil {
		return model.Product{}, false, nil
	}
	if err != nil {
		return model.Product{}, false, err
	}

	var p model.Product
	if err := json.Unmarshal(value, &p); err != nil {
		return model.Product{}, false, err
	}
	return p, true, nil
}

func (c *RedisProductCache) Set(ctx context.Context, p model.Product) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, productKey(p.ID), payload, c.ttl).Err()
}

func (c *RedisProductCache) Delete(ctx context.Context, id int64) error {
	return c.client.Del(ctx, productKey(id)).Err()
}
