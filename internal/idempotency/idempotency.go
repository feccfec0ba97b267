// Package idempotency remembers successful gateway responses by request
// fingerprint so that a repeated call is answered without a second side effect.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL = 5 * time.Minute
	// DefaultCallTimeout bounds a coalesced call whose first caller set no deadline.
	DefaultCallTimeout = 2 * time.Minute
)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Fingerprint hashes the canonical JSON form of payload. Map keys are sorted at
// every level, so two payloads that differ only in key order share a key.
func Fingerprint(payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}

	h := sha256.New()
	writeCanonical(h, decoded)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeCanonical(w io.Writer, v any) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		w.Write([]byte("{"))
		for i, k := range keys {
			if i > 0 {
				w.Write([]byte(","))
			}
			name, _ := json.Marshal(k)
			w.Write(name)
			w.Write([]byte(":"))
			writeCanonical(w, val[k])
		}
		w.Write([]byte("}"))
	case []any:
		w.Write([]byte("["))
		for i, item := range val {
			if i > 0 {
				w.Write([]byte(","))
			}
			writeCanonical(w, item)
		}
		w.Write([]byte("]"))
	default:
		raw, _ := json.Marshal(val)
		w.Write(raw)
	}
}

// Cache puts check-then-register semantics on top of a Store. Only
// successful results are registered; failures are never cached.
type Cache struct {
	store       Store
	ttl         time.Duration
	callTimeout time.Duration
	group       singleflight.Group
	logger      *slog.Logger
}

func NewCache(store Store, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store:       store,
		ttl:         ttl,
		callTimeout: DefaultCallTimeout,
		logger:      logger,
	}
}

// WithCallTimeout bounds a shared call that has no deadline of its own.
func (c *Cache) WithCallTimeout(d time.Duration) *Cache {
	if d > 0 {
		c.callTimeout = d
	}
	return c
}

// Check returns the cached value for key, if any. Store failures degrade to a
// miss.
func (c *Cache) Check(ctx context.Context, key string) ([]byte, bool) {
	value, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("idempotency lookup failed", "key", key, "error", err)
		return nil, false
	}
	return value, ok
}

func (c *Cache) Register(ctx context.Context, key string, value []byte) {
	if err := c.store.Put(ctx, key, value, c.ttl); err != nil {
		c.logger.Warn("idempotency register failed", "key", key, "error", err)
	}
}

// Do returns the cached value for key or runs fn once for all concurrent
// callers presenting the same key. The bool result reports a cache hit.
// The shared call ignores the cancellation of whichever caller started it
// and keeps that caller's deadline, or callTimeout when it has none. Each
// caller stops waiting when its own context is done.
func (c *Cache) Do(ctx context.Context, key string, fn func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	if value, ok := c.Check(ctx, key); ok {
		return value, true, nil
	}

	type outcome struct {
		value  []byte
		cached bool
	}

	ch := c.group.DoChan(key, func() (any, error) {
		shared, cancel := c.sharedContext(ctx)
		defer cancel()

		if value, ok := c.Check(shared, key); ok {
			return outcome{value: value, cached: true}, nil
		}
		value, err := fn(shared)
		if err != nil {
			return nil, err
		}
		c.Register(shared, key, value)
		return outcome{value: value}, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		out := res.Val.(outcome)
		return out.value, out.cached, nil
	}
}

func (c *Cache) sharedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(detached, deadline)
	}
	return context.WithTimeout(detached, c.callTimeout)
}
