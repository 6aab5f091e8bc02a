// Package cache provides an optional result cache for tool invocations.
// Deployments without Redis get NoOpCache, which misses on every lookup,
// so callers never branch on whether caching is configured.
package cache

import (
	"context"
	"time"
)

// Cache stores serialized tool results under string keys for a short TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// NoOpCache satisfies Cache without storing anything.
type NoOpCache struct{}

func (NoOpCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NoOpCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NoOpCache) Delete(context.Context, string) error                     { return nil }
func (NoOpCache) Close() error                                             { return nil }
