package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Entry describes where a read is cached.
type Entry struct {
	Key  string
	Tags []string
	Life Lifetime
}

// Loader reads through a Cache and coalesces concurrent misses per key.
//
// Every Invalidate bumps the epoch. A fetch only stores its result when the
// epoch it started under is still current, and flights are keyed by epoch so
// reads after an invalidation never join a fetch started before it.
type Loader struct {
	cache Cache
	group singleflight.Group
	log   Log

	mx    sync.RWMutex
	epoch uint64
}

func NewLoader(cache Cache, log Log) *Loader {
	return &Loader{cache: cache, log: log}
}

// Invalidate forwards to the underlying cache.
func (l *Loader) Invalidate(ctx context.Context, tags ...string) error {
	l.mx.Lock()
	defer l.mx.Unlock()
	l.epoch++
	return l.cache.Invalidate(ctx, tags...)
}

func (l *Loader) currentEpoch() uint64 {
	l.mx.RLock()
	defer l.mx.RUnlock()
	return l.epoch
}

// store writes the entry unless an invalidation happened since epoch.
func (l *Loader) store(ctx context.Context, e Entry, epoch uint64, encoded []byte) {
	l.mx.RLock()
	defer l.mx.RUnlock()
	if l.epoch != epoch {
		l.log.Debug("dropping result fetched before invalidation", zap.String("key", e.Key))
		return
	}
	if err := l.cache.Set(ctx, e.Key, encoded, e.Tags, e.Life); err != nil {
		l.log.Warn("cache write failed", zap.String("key", e.Key), zap.Error(err))
	}
}

// Load returns the cached value for e.Key or calls fetch and stores its
// JSON encoding under e.Tags. Cache failures are logged and never surface.
// The shared fetch outlives any single caller; a caller whose ctx ends
// stops waiting with ctx.Err().
func Load[T any](ctx context.Context, l *Loader, e Entry, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	raw, ok, err := l.cache.Get(ctx, e.Key)
	switch {
	case err != nil:
		l.log.Warn("cache read failed", zap.String("key", e.Key), zap.Error(err))
	case ok:
		var v T
		err := json.Unmarshal(raw, &v)
		if err == nil {
			l.log.Debug("cache hit", zap.String("key", e.Key))
			return v, nil
		}
		l.log.Warn("discarding undecodable cache entry", zap.String("key", e.Key), zap.Error(err))
	}

	epoch := l.currentEpoch()
	flightCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(e.Key+"@"+strconv.FormatUint(epoch, 10), func() (interface{}, error) {
		v, err := fetch(flightCtx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			l.log.Warn("cannot encode cache entry", zap.String("key", e.Key), zap.Error(err))
			return v, nil
		}
		l.store(flightCtx, e, epoch, encoded)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Shared {
			l.log.Debug("cache miss coalesced", zap.String("key", e.Key))
		}
		return res.Val.(T), nil
	}
}
