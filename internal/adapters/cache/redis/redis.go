// Package redis implements cache.Backend on Redis. Every key is stored under
// a configurable prefix so invalidation can SCAN for a namespace without
// touching foreign keys.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vncsmyrnk/pollcore/internal/cache"
)

const (
	defaultKeyPrefix = "pollcore:cache:"
	scanBatch        = 500
)

var _ cache.Backend = (*Backend)(nil)

// Option configures the Backend.
type Option func(*Backend)

// WithKeyPrefix overrides the prefix applied to every cache key.
func WithKeyPrefix(prefix string) Option {
	return func(b *Backend) { b.keyPrefix = prefix }
}

type Backend struct {
	client    goredis.Cmdable
	keyPrefix string
}

// New wraps an existing client. The caller owns the client lifecycle.
func New(client goredis.Cmdable, opts ...Option) *Backend {
	b := &Backend{client: client, keyPrefix: defaultKeyPrefix}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Connect opens a client and checks it answers within five seconds.
func Connect(addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := b.client.Get(ctx, b.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache key: %w", err)
	}
	return value, true, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	if err := b.client.Set(ctx, b.keyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write cache key: %w", err)
	}
	return nil
}

// DeletePrefix walks the keyspace with SCAN and deletes matches batch by
// batch, so large namespaces never block the server the way KEYS would.
func (b *Backend) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	match := escapeGlob(b.keyPrefix+prefix) + "*"

	removed := 0
	var cursor uint64
	for {
		keys, next, err := b.client.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to scan cache keys: %w", err)
		}
		if len(keys) > 0 {
			n, err := b.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("failed to delete cache keys: %w", err)
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func (b *Backend) Generation(ctx context.Context, namespace string) (uint64, error) {
	gen, err := b.client.Get(ctx, b.generationKey(namespace)).Uint64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read cache generation: %w", err)
	}
	return gen, nil
}

func (b *Backend) BumpGeneration(ctx context.Context, namespace string) (uint64, error) {
	gen, err := b.client.Incr(ctx, b.generationKey(namespace)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to bump cache generation: %w", err)
	}
	return uint64(gen), nil
}

// generationKey lives outside the "namespace:" prefix so DeletePrefix never
// resets it.
func (b *Backend) generationKey(namespace string) string {
	return b.keyPrefix + namespace + "#gen"
}

func escapeGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
