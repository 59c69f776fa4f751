package downloads

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps counters in a Redis hash, one field per day
type RedisStore struct {
	base
	client *redis.Client
	key    string
}

// NewRedisStore connects to Redis. keyPrefix namespaces the hash key.
func NewRedisStore(ctx context.Context, address, password string, db int, keyPrefix string, opts ...Option) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{
		base:   newBase(opts),
		client: client,
		key:    keyPrefix + StatsKey,
	}, nil
}

func (s *RedisStore) IncrementToday(ctx context.Context) (int, error) {
	n, err := s.client.HIncrBy(ctx, s.key, s.today(), 1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment downloads: %w", err)
	}
	return int(n), nil
}

func (s *RedisStore) ReadAll(ctx context.Context) (map[string]int, error) {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read downloads: %w", err)
	}

	stats := make(map[string]int, len(raw))
	for day, v := range raw {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid count for %s: %w", day, err)
		}
		stats[day] = n
	}
	return stats, nil
}

func (s *RedisStore) Reset(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to reset downloads: %w", err)
	}
	return nil
}

func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
