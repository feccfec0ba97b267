package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisFixedWindow shares one window counter between every instance that
// points at the same redis and key.
type RedisFixedWindow struct {
	client *redis.Client
	key    string
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewRedisFixedWindow(client *redis.Client, key string, max int, window time.Duration) *RedisFixedWindow {
	if max <= 0 {
		max = DefaultMax
	}
	if window <= 0 {
		window = DefaultWindow
	}
	// window slots are counted in whole milliseconds
	if window < time.Millisecond {
		window = time.Millisecond
	}
	return &RedisFixedWindow{
		client: client,
		key:    key,
		max:    int64(max),
		window: window,
		now:    time.Now,
	}
}

func (l *RedisFixedWindow) windowKey() string {
	slot := l.now().UnixMilli() / l.window.Milliseconds()
	return fmt.Sprintf("%s:%d", l.key, slot)
}

func (l *RedisFixedWindow) Allow(ctx context.Context) error {
	key := l.windowKey()

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.PExpire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rate limit counter: %w", err)
	}

	if incr.Val() > l.max {
		return ErrRateLimited
	}
	return nil
}
