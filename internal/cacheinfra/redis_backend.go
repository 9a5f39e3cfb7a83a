package cacheinfra

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 200

// RedisBackend stores encoded cache values in redis without expiry.
type RedisBackend struct {
	client redis.UniversalClient
}

// NewRedisBackend connects a redis client for cfg.
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisBackend{client: client}, nil
}

// NewRedisBackendFromClient wraps an existing client. Cluster clients are supported: prefix
// deletes visit every master.
func NewRedisBackendFromClient(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	return b.client.Set(ctx, key, value, 0).Err()
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, key).Err()
}

// DeleteByPrefix scans for keys matching prefix and deletes them in batches. Cluster clients
// are scanned on every master, deleting key by key since a node rejects multi-key commands
// across slots.
func (b *RedisBackend) DeleteByPrefix(ctx context.Context, prefix string) error {
	pattern := escapeGlob(prefix) + "*"
	if cluster, ok := b.client.(*redis.ClusterClient); ok {
		return cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			return scanDelete(ctx, node, pattern, deleteEach)
		})
	}
	return scanDelete(ctx, b.client, pattern, deleteBatch)
}

type deleteFn func(ctx context.Context, client redis.Cmdable, keys []string) error

func deleteBatch(ctx context.Context, client redis.Cmdable, keys []string) error {
	return client.Del(ctx, keys...).Err()
}

func deleteEach(ctx context.Context, client redis.Cmdable, keys []string) error {
	_, err := client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Del(ctx, key)
		}
		return nil
	})
	return err
}

func scanDelete(ctx context.Context, client redis.Cmdable, pattern string, del deleteFn) error {
	iter := client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := del(ctx, client, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return del(ctx, client, batch)
	}
	return nil
}

// Close releases the underlying connections.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func escapeGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
