// Package ratelimit caps outbound gateway traffic with a fixed window counter.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	DefaultMax    = 100
	DefaultWindow = time.Minute
)

var ErrRateLimited = errors.New("rate limit exceeded")

type Limiter interface {
	Allow(ctx context.Context) error
}

// FixedWindow allows at most max calls per window inside one process.
type FixedWindow struct {
	mu          sync.Mutex
	max         int
	window      time.Duration
	windowStart time.Time
	count       int
	now         func() time.Time
}

type Option func(*FixedWindow)

func WithClock(now func() time.Time) Option {
	return func(l *FixedWindow) {
		l.now = now
	}
}

func NewFixedWindow(max int, window time.Duration, opts ...Option) *FixedWindow {
	if max <= 0 {
		max = DefaultMax
	}
	if window <= 0 {
		window = DefaultWindow
	}

	l := &FixedWindow{
		max:    max,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *FixedWindow) Allow(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.window {
		l.windowStart = now
		l.count = 0
	}

	if l.count >= l.max {
		return ErrRateLimited
	}
	l.count++
	return nil
}

// Remaining reports how many calls the current window still admits.
func (l *FixedWindow) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.windowStart.IsZero() || l.now().Sub(l.windowStart) >= l.window {
		return l.max
	}
	return l.max - l.count
}
