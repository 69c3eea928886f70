package snapshot

import (
	"context"

	redis "github.com/redis/go-redis/v9"
)

type RedisBackend struct {
	client *redis.Client
	prefix string
}

func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "barakapos"
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := b.client.Get(ctx, b.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (b *RedisBackend) Put(ctx context.Context, key string, payload []byte) error {
	return b.client.Set(ctx, b.key(key), payload, 0).Err()
}

func (b *RedisBackend) key(key string) string {
	return b.prefix + ":state:" + key
}
