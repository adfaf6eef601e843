package querycache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

// Loader produces the value to cache. It must return something encoding/json can marshal.
type Loader func(ctx context.Context) (any, error)

// Cache memoizes query results per namespace. Invalidate bumps the namespace
// version so every key written under the previous version stops matching.
type Cache interface {
	GetOrLoad(ctx context.Context, namespace, key string, ttl time.Duration, dst any, load Loader) error
	Invalidate(ctx context.Context, namespace string) error
}

// Store is the raw key/value backend behind a Cache.
type Store interface {
	Version(ctx context.Context, namespace string) (int64, error)
	Bump(ctx context.Context, namespace string) (int64, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// Observer is told whether each lookup was served from the store.
type Observer func(namespace string, hit bool)

type Option func(*cache)

func WithObserver(fn Observer) Option {
	return func(c *cache) { c.observe = fn }
}

type cache struct {
	log     *logger.Logger
	store   Store
	group   singleflight.Group
	observe Observer
}

func New(log *logger.Logger, store Store, opts ...Option) Cache {
	c := &cache{log: log.With("component", "QueryCache"), store: store}
	for _, opt := range opts {
		opt(c)
	}
	if c.observe == nil {
		c.observe = func(string, bool) {}
	}
	return c
}

func (c *cache) GetOrLoad(ctx context.Context, namespace, key string, ttl time.Duration, dst any, load Loader) error {
	ver, err := c.store.Version(ctx, namespace)
	if err != nil {
		c.log.Warn("Cache version lookup failed; loading directly", "namespace", namespace, "error", err)
		return loadInto(ctx, dst, load)
	}
	entryKey := EntryKey(namespace, ver, key)

	raw, ok, err := c.store.Get(ctx, entryKey)
	if err != nil {
		c.log.Warn("Cache read failed", "namespace", namespace, "error", err)
	}
	if ok {
		if err := json.Unmarshal(raw, dst); err == nil {
			c.observe(namespace, true)
			return nil
		}
	}
	c.observe(namespace, false)

	// Waiters share this load, so one caller's cancellation must not fail the rest.
	lctx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(entryKey, func() (any, error) {
		val, err := load(lctx)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("encode cache value: %w", err)
		}
		if err := c.store.Set(lctx, entryKey, b, ttl); err != nil {
			c.log.Warn("Cache write failed", "namespace", namespace, "error", err)
		}
		return b, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(v.([]byte), dst)
}

func (c *cache) Invalidate(ctx context.Context, namespace string) error {
	_, err := c.store.Bump(ctx, namespace)
	return err
}

func loadInto(ctx context.Context, dst any, load Loader) error {
	val, err := load(ctx)
	if err != nil {
		return err
	}
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// EntryKey is qc:{namespace}:v{version}:{sha256(key)}.
func EntryKey(namespace string, version int64, key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("qc:%s:v%d:%s", namespace, version, hex.EncodeToString(sum[:16]))
}

func versionKey(namespace string) string {
	return "qc:" + namespace + ":ver"
}
