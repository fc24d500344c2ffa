package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "storefront:pref"

// RedisPreferenceStore keeps preferences in Redis, one string key per visitor/key pair.
type RedisPreferenceStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisPreferenceStore builds a Redis-backed preference store.
// A zero ttl keeps values until overwritten.
func NewRedisPreferenceStore(addr, password string, ttl time.Duration) (*RedisPreferenceStore, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("preference redis addr is required")
	}
	return &RedisPreferenceStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix: defaultRedisPrefix,
		ttl:    ttl,
	}, nil
}

func (s *RedisPreferenceStore) Get(ctx context.Context, visitorID, key string) (string, bool, error) {
	visitorID, key, err := normalizeKey(visitorID, key)
	if err != nil {
		return "", false, err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	val, err := s.client.Get(ctx, s.redisKey(visitorID, key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get preference: %w", err)
	}
	return val, true, nil
}

func (s *RedisPreferenceStore) Set(ctx context.Context, visitorID, key, value string) error {
	visitorID, key, err := normalizeKey(visitorID, key)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.client.Set(ctx, s.redisKey(visitorID, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set preference: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisPreferenceStore) Close() error {
	return s.client.Close()
}

func (s *RedisPreferenceStore) redisKey(visitorID, key string) string {
	return s.prefix + ":" + visitorID + ":" + key
}
