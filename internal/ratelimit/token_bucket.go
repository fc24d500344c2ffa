package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultIdleTTL    = 3 * time.Minute
	defaultSweepEvery = time.Minute
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// TokenBucketLimiter keeps one in-process token bucket per key.
// Idle buckets are swept in the background until Close is called.
type TokenBucketLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*bucket
	idleTTL time.Duration
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewTokenBucketLimiter allows perMinute requests per key, with bursts up to perMinute.
func NewTokenBucketLimiter(perMinute int) (*TokenBucketLimiter, error) {
	if perMinute <= 0 {
		return nil, errors.New("rate limiter requires positive limit")
	}
	l := &TokenBucketLimiter{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		buckets: make(map[string]*bucket),
		idleTTL: defaultIdleTTL,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.sweepLoop(defaultSweepEvery)
	return l, nil
}

func (l *TokenBucketLimiter) Allow(_ context.Context, key string) bool {
	if l == nil {
		return false
	}
	return l.bucketFor(normalizeKey(key)).Allow()
}

func (l *TokenBucketLimiter) bucketFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = l.now()
	return b.limiter
}

func (l *TokenBucketLimiter) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *TokenBucketLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.idleTTL)
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Close stops the background sweeper.
func (l *TokenBucketLimiter) Close() error {
	if l == nil {
		return nil
	}
	l.stopOnce.Do(func() { close(l.stop) })
	return nil
}
