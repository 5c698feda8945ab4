// Package cache implements the cache-aside read path shared by every
// repository decorator. Keys are content addressed: a namespace, the
// namespace generation, and the SHA-256 of the canonical JSON form of the
// query shape. Entries never expire; a write to an entity kind bumps the
// generation and clears its whole namespace.
package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
)

// Backend is the key/value storage behind a Store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// DeletePrefix removes every key starting with prefix and returns how
	// many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	// Generation returns the namespace counter, zero when never bumped.
	Generation(ctx context.Context, namespace string) (uint64, error)
	// BumpGeneration atomically increments the namespace counter. It must
	// not be stored under the namespace prefix.
	BumpGeneration(ctx context.Context, namespace string) (uint64, error)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

type Store struct {
	backend Backend
	logger  *slog.Logger
}

func New(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetOrLoad returns the cached value for (namespace, shape) or calls loader,
// caches its result and returns it. A loader error is returned as is and
// nothing is cached. Backend failures are logged and treated as a miss.
//
// The generation is read before the loader runs, so a value loaded across
// an Invalidate is stored under a generation no reader asks for anymore.
func GetOrLoad[T any](ctx context.Context, s *Store, namespace string, shape any, loader func(context.Context) (T, error)) (T, error) {
	var zero T

	base, err := Key(namespace, shape)
	if err != nil {
		return zero, err
	}

	gen, err := s.backend.Generation(ctx, namespace)
	if err != nil {
		s.logger.Warn("cache generation unreadable, bypassing cache", "namespace", namespace, "error", err)
		return loader(ctx)
	}
	key := versionedKey(namespace, gen, base)

	raw, found, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache read failed", "namespace", namespace, "key", key, "error", err)
	}
	if found {
		var value T
		if err := json.Unmarshal(raw, &value); err == nil {
			return value, nil
		}
		s.logger.Warn("cache entry undecodable, reloading", "namespace", namespace, "key", key)
	}

	value, err := loader(ctx)
	if err != nil {
		return zero, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache value not serializable", "namespace", namespace, "error", err)
		return value, nil
	}
	if err := s.backend.Set(ctx, key, encoded); err != nil {
		s.logger.Warn("cache write failed", "namespace", namespace, "key", key, "error", err)
	}

	return value, nil
}

// Invalidate drops every entry derived from the namespace. The generation is
// bumped first; the prefix sweep only reclaims space.
func (s *Store) Invalidate(ctx context.Context, namespace string) error {
	gen, err := s.backend.BumpGeneration(ctx, namespace)
	if err != nil {
		s.logger.Error("cache generation bump failed", "namespace", namespace, "error", err)
		return fmt.Errorf("failed to invalidate cache namespace %s: %w", namespace, err)
	}

	removed, err := s.backend.DeletePrefix(ctx, namespacePrefix(namespace))
	if err != nil {
		s.logger.Error("cache invalidation failed", "namespace", namespace, "error", err)
		return fmt.Errorf("failed to invalidate cache namespace %s: %w", namespace, err)
	}
	s.logger.Debug("cache namespace invalidated", "namespace", namespace, "generation", gen, "removed", removed)
	return nil
}

// Key derives the cache key for a query shape. Shapes that differ only in
// object field order map to the same key.
func Key(namespace string, shape any) (string, error) {
	canonical, err := Canonicalize(shape)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return namespacePrefix(namespace) + hex.EncodeToString(sum[:]), nil
}

// Canonicalize renders shape as JSON with object keys sorted at every depth.
// Numbers keep their literal form so large ids are not rounded.
func Canonicalize(shape any) ([]byte, error) {
	raw, err := json.Marshal(shape)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query shape: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("failed to decode query shape: %w", err)
	}

	// encoding/json writes map keys in sorted order.
	canonical, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("failed to encode canonical query shape: %w", err)
	}
	return canonical, nil
}

func namespacePrefix(namespace string) string {
	return namespace + ":"
}

// versionedKey turns "ns:<hash>" into "ns:<gen>:<hash>".
func versionedKey(namespace string, gen uint64, base string) string {
	prefix := namespacePrefix(namespace)
	return prefix + strconv.FormatUint(gen, 10) + ":" + base[len(prefix):]
}
