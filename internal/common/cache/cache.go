// internal/common/cache/cache.go
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"company-assistant/internal/common/metrics"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("CACHE_MISS")

// Cache stores serialized provider responses.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
}

// Noop never hits and discards writes.
type Noop struct{}

func (Noop) Get(ctx context.Context, key string) (string, error) {
	return "", ErrMiss
}

func (Noop) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	return nil
}

// Key builds a stable cache key from a namespace and free-text parts.
func Key(namespace string, parts ...string) string {
	normalized := strings.ToLower(strings.Join(parts, "|"))
	sum := sha1.Sum([]byte(normalized))
	return namespace + ":" + hex.EncodeToString(sum[:8])
}

// Fetch returns the cached value for key or calls load and stores its result.
// Cache failures never fail the call; they only cost a provider round trip.
// Zero values are not cached so empty results are retried next time.
func Fetch[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return load(ctx)
	}

	if raw, err := c.Get(ctx, key); err == nil {
		var cached T
		if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
			metrics.CacheRequests.WithLabelValues("hit").Inc()
			return cached, nil
		}
		metrics.CacheRequests.WithLabelValues("corrupt").Inc()
	} else if errors.Is(err, ErrMiss) {
		metrics.CacheRequests.WithLabelValues("miss").Inc()
	} else {
		metrics.CacheRequests.WithLabelValues("error").Inc()
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	if data, jsonErr := json.Marshal(value); jsonErr == nil && !isEmptyJSON(data) {
		if setErr := c.Set(ctx, key, string(data), ttl); setErr != nil {
			metrics.CacheRequests.WithLabelValues("write_error").Inc()
		}
	}
	return value, nil
}

func isEmptyJSON(data []byte) bool {
	switch string(data) {
	case "null", "[]", "{}", `""`:
		return true
	}
	return false
}
