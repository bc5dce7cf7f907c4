package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vovakirdan/wirestream/internal/store"
)

// decrFloorScript decrements a counter unless it is already zero.
var decrFloorScript = goredis.NewScript(`
local v = tonumber(redis.call('GET', KEYS[1]) or '0')
if v > 0 then
	return redis.call('DECR', KEYS[1])
end
return v
`)

// appendUnlessLastScript pushes ARGV[1] unless it equals the list tail.
var appendUnlessLastScript = goredis.NewScript(`
local last = redis.call('LINDEX', KEYS[1], -1)
if last == ARGV[1] then
	return 0
end
redis.call('RPUSH', KEYS[1], ARGV[1])
return 1
`)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore implements store.Store on top of Redis.
type RedisStore struct {
	client goredis.UniversalClient
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, opts Options) (*RedisStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewWithClient wraps an existing client. Useful for tests and clusters.
func NewWithClient(client goredis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// ==== KVStore implementation ====

// Get returns the value stored under key.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", store.ErrNotFound
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

// Set stores value under key without expiry.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// ==== SetStore implementation ====

// SetAdd inserts member into the set at key.
func (s *RedisStore) SetAdd(ctx context.Context, key, member string) error {
	if err := s.client.SAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("redis sadd: %w", err)
	}
	return nil
}

// SetMembers returns all members of the set at key.
func (s *RedisStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	return members, nil
}

// ==== MapStore implementation ====

// MapPutIfAbsent sets field only if it is not present yet (HSETNX).
func (s *RedisStore) MapPutIfAbsent(ctx context.Context, key, field, value string) (bool, error) {
	added, err := s.client.HSetNX(ctx, key, field, value).Result()
	if err != nil {
		return false, fmt.Errorf("redis hsetnx: %w", err)
	}
	return added, nil
}

// MapDelete removes field from the map at key (HDEL).
func (s *RedisStore) MapDelete(ctx context.Context, key, field string) (bool, error) {
	n, err := s.client.HDel(ctx, key, field).Result()
	if err != nil {
		return false, fmt.Errorf("redis hdel: %w", err)
	}
	return n > 0, nil
}

// MapGetAll returns every field of the map at key.
func (s *RedisStore) MapGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	return m, nil
}

// ==== CounterStore implementation ====

// CounterIncr increments the counter at key.
func (s *RedisStore) CounterIncr(ctx context.Context, key string) (int64, error) {
	v, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}
	return v, nil
}

// CounterDecrFloor decrements the counter at key, never below zero.
func (s *RedisStore) CounterDecrFloor(ctx context.Context, key string) (int64, error) {
	v, err := decrFloorScript.Run(ctx, s.client, []string{key}).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis decr floor: %w", err)
	}
	return v, nil
}

// CounterGet returns the counter at key.
func (s *RedisStore) CounterGet(ctx context.Context, key string) (int64, error) {
	v, err := s.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get counter: %w", err)
	}
	return v, nil
}

// ==== ListStore implementation ====

// ListAppendUnlessLast appends value unless it repeats the list tail.
func (s *RedisStore) ListAppendUnlessLast(ctx context.Context, key, value string) (bool, error) {
	n, err := appendUnlessLastScript.Run(ctx, s.client, []string{key}, value).Int64()
	if err != nil {
		return false, fmt.Errorf("redis append unless last: %w", err)
	}
	return n == 1, nil
}

// ListRange returns the whole list at key.
func (s *RedisStore) ListRange(ctx context.Context, key string) ([]string, error) {
	items, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	return items, nil
}

// Ensure RedisStore implements store.Store
var _ store.Store = (*RedisStore)(nil)
