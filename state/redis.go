package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig describes the connection of the Redis user backend.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	// Prefix is prepended to every user hash key.
	Prefix string
	// TTL expires idle user hashes; zero keeps them forever.
	TTL time.Duration
}

// RedisUserStore keeps the user scope of every user in one Redis hash per user.
// Values are stored as JSON; counters are plain integers updated with HINCRBY,
// which is atomic across processes.
type RedisUserStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisUserStore connects to Redis and verifies the connection.
func NewRedisUserStore(ctx context.Context, cfg RedisConfig) (*RedisUserStore, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address must not be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return NewRedisUserStoreFromClient(client, cfg), nil
}

// NewRedisUserStoreFromClient wraps an existing client. Address and credentials in cfg are ignored.
func NewRedisUserStoreFromClient(client redis.UniversalClient, cfg RedisConfig) *RedisUserStore {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "tripmesh:user:"
	}
	return &RedisUserStore{client: client, prefix: prefix, ttl: cfg.TTL}
}

// Close releases the underlying connection pool.
func (s *RedisUserStore) Close() error {
	return s.client.Close()
}

func (s *RedisUserStore) key(userID string) string {
	return s.prefix + userID
}

// Get implements UserBackend.
func (s *RedisUserStore) Get(ctx context.Context, userID, key string) (any, bool, error) {
	raw, err := s.client.HGet(ctx, s.key(userID), key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	v, err := decodeValue(raw)
	if err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", key, err)
	}

	return v, true, nil
}

// Set implements UserBackend.
func (s *RedisUserStore) Set(ctx context.Context, userID, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	if err := s.client.HSet(ctx, s.key(userID), key, data).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return s.touch(ctx, userID)
}

// Increment implements UserBackend.
func (s *RedisUserStore) Increment(ctx context.Context, userID, key string) (int64, error) {
	n, err := s.client.HIncrBy(ctx, s.key(userID), key, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("redis increment %s: %w", key, err)
	}

	return n, s.touch(ctx, userID)
}

// Snapshot implements UserBackend.
func (s *RedisUserStore) Snapshot(ctx context.Context, userID string) (map[string]any, error) {
	fields, err := s.client.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis snapshot: %w", err)
	}

	out := make(map[string]any, len(fields))
	for k, raw := range fields {
		v, err := decodeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", k, err)
		}
		out[k] = v
	}

	return out, nil
}

func (s *RedisUserStore) touch(ctx context.Context, userID string) error {
	if s.ttl <= 0 {
		return nil
	}
	if err := s.client.Expire(ctx, s.key(userID), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis expire: %w", err)
	}
	return nil
}

// decodeValue parses a stored JSON value. Integral numbers come back as int64
// so counters written by HINCRBY and by Set read the same way.
func decodeValue(raw string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
		return t
	default:
		return v
	}
}
