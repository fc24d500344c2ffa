package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "storefront:ratelimit"
	redisCallTimeout   = 2 * time.Second
)

// incrWithExpiry bumps the slot counter and arms its expiry on first use.
var incrWithExpiry = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Limiter decides whether the caller identified by key may perform one more
// mutating request.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
	Close() error
}

// FixedWindowLimiter keeps one Redis counter per key and window slot, so
// every replica pointed at the same Redis shares the quota.
type FixedWindowLimiter struct {
	client *redis.Client
	prefix string
	quota  int64
	window time.Duration
	now    func() time.Time
}

// NewRedisFixedWindowLimiter allows limit calls per key in each window.
// An empty prefix uses "storefront:ratelimit".
func NewRedisFixedWindowLimiter(addr, password, prefix string, limit int, window time.Duration) (*FixedWindowLimiter, error) {
	if limit <= 0 || window < time.Millisecond {
		return nil, errors.New("rate limiter requires a positive limit and a window of at least 1ms")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("rate limiter redis addr is required")
	}
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &FixedWindowLimiter{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		prefix: prefix,
		quota:  int64(limit),
		window: window,
		now:    time.Now,
	}, nil
}

// Allow fails closed: a Redis error denies the request.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, redisCallTimeout)
	defer cancel()
	n, err := incrWithExpiry.Run(ctx, l.client, []string{l.slotKey(key)}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false
	}
	return n <= l.quota
}

func (l *FixedWindowLimiter) slotKey(key string) string {
	slot := l.now().UnixMilli() / l.window.Milliseconds()
	return l.prefix + ":" + normalizeKey(key) + ":" + strconv.FormatInt(slot, 10)
}

func (l *FixedWindowLimiter) Close() error {
	if l == nil {
		return nil
	}
	return l.client.Close()
}

func normalizeKey(key string) string {
	if key = strings.TrimSpace(key); key == "" {
		return "unknown"
	}
	return key
}
