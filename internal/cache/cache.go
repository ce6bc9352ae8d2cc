// Package cache stores reshaped Storefront API responses under tags so that
// webhook deliveries can evict everything derived from a changed resource.
package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Tags attached to cached reads.
const (
	TagCollections = "collections"
	TagProducts    = "products"
)

// Lifetime names how long an entry stays fresh.
type Lifetime string

const (
	Seconds Lifetime = "seconds"
	Minutes Lifetime = "minutes"
	Hours   Lifetime = "hours"
	Days    Lifetime = "days"
	Weeks   Lifetime = "weeks"
	Max     Lifetime = "max"
)

const defaultRevalidate = 15 * time.Minute

// Revalidate is the duration after which an entry is refetched.
func (l Lifetime) Revalidate() time.Duration {
	switch l {
	case Seconds:
		return time.Second
	case Minutes:
		return time.Minute
	case Hours:
		return time.Hour
	case Days:
		return 24 * time.Hour
	case Weeks:
		return 7 * 24 * time.Hour
	case Max:
		return 30 * 24 * time.Hour
	default:
		return defaultRevalidate
	}
}

// Invalidator evicts every entry carrying any of the tags.
type Invalidator interface {
	Invalidate(ctx context.Context, tags ...string) error
}

// Cache is a tagged byte store.
type Cache interface {
	Invalidator
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, tags []string, life Lifetime) error
}

type Log interface {
	Debug(string, ...zap.Field)
	Info(string, ...zap.Field)
	Warn(string, ...zap.Field)
	Error(string, ...zap.Field)
}
