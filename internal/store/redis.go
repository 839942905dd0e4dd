// FILE: redis.go
// RedisStore is the production Store backend, grounded on
// tgeconf-nof0/internal/repo/dbrepo.go's GetCtx/SetWithExpireCtx wrapper
// pattern over github.com/redis/go-redis/v9.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store over a go-redis/v9 client.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore dials host:port (database db) and pings it before
// returning, matching RedisCache.connect()'s eager ping-on-connect.
func NewRedisStore(ctx context.Context, addr string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *RedisStore) RPush(ctx context.Context, key, value string) error {
	return s.client.RPush(ctx, key, value).Err()
}

func (s *RedisStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return s.client.LRange(ctx, key, start, stop).Result()
}

func (s *RedisStore) Publish(ctx context.Context, channel, data string) error {
	return s.client.Publish(ctx, channel, data).Err()
}

func (s *RedisStore) Subscribe(ctx context.Context, channel string) (<-chan string, error) {
	sub := s.client.Subscribe(ctx, channel)
	// Confirm the subscription is live before handing back the channel,
	// the same eager-readiness contract as connect()'s ping.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	out := make(chan string)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				out <- msg.Payload
			}
		}
	}()
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
