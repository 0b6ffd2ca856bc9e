package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	domain "github.com/bryanwahyu/plantcare/internal/domain/plants"
)

// RedisSlot keeps the blob under a single key. SET replaces the value
// atomically.
type RedisSlot struct {
	client *redis.Client
	key    string
}

func NewRedisSlot(ctx context.Context, addr, password string, db int, key string) (*RedisSlot, error) {
	cli := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := cli.Ping(ctx).Err(); err != nil {
		cli.Close()
		return nil, err
	}
	return &RedisSlot{client: cli, key: key}, nil
}

func (r *RedisSlot) Read(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSlotEmpty
	}
	return data, err
}

func (r *RedisSlot) Write(ctx context.Context, data []byte) error {
	return r.client.Set(ctx, r.key, data, 0).Err()
}

func (r *RedisSlot) Close() error { return r.client.Close() }
