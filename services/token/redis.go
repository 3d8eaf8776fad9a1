package tokensvc

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
)

// RedisStore keeps verification codes in Redis with native TTL expiry.
type RedisStore struct {
	client *redis.Client
}

var _ core.KVStore = (*RedisStore)(nil)

func NewRedisStore(conf *core.Config) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr: conf.RedisAddress(),
			DB:   conf.Redis.TokenDB,
		}),
	}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errors.Wrap(s.client.Set(ctx, key, value, ttl).Err(), "redis set")
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", core.ErrKeyNotFound
		}
		return "", errors.Wrap(err, "redis get")
	}
	return val, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return errors.Wrap(s.client.Del(ctx, key).Err(), "redis del")
}
