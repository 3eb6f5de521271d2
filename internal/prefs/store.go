// Package prefs keeps small per-module UI selections, such as the growth
// metric last chosen on a dashboard page, behind an explicit scope.
package prefs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrModuleRequired is returned when a call omits the module scope.
var ErrModuleRequired = errors.New("prefs: module required")

// KeyLastGrowth stores the metric name last selected on a page.
const KeyLastGrowth = "lastGrowth"

// Store persists string values scoped by module name.
type Store interface {
	Get(ctx context.Context, module, key string) (string, bool, error)
	Set(ctx context.Context, module, key, value string) error
	Delete(ctx context.Context, module, key string) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]string)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, module, key string) (string, bool, error) {
	module, err := scope(module)
	if err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[module][key]
	return v, ok, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, module, key, value string) error {
	module, err := scope(module)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[module] == nil {
		s.data[module] = make(map[string]string)
	}
	s.data[module][key] = value
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, module, key string) error {
	module, err := scope(module)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[module], key)
	return nil
}

// RedisStore keeps each module in its own Redis hash.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore. Keys are namespaced by prefix, which
// typically carries the user or session identifier. A zero ttl keeps values
// until deleted.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) hashKey(module string) string {
	parts := []string{"pivotboard", "prefs"}
	if s.prefix != "" {
		parts = append(parts, s.prefix)
	}
	return strings.Join(append(parts, module), ":")
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, module, key string) (string, bool, error) {
	module, err := scope(module)
	if err != nil {
		return "", false, err
	}
	v, err := s.client.HGet(ctx, s.hashKey(module), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, module, key, value string) error {
	module, err := scope(module)
	if err != nil {
		return err
	}
	hash := s.hashKey(module)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, hash, key, value)
	if s.ttl > 0 {
		pipe.Expire(ctx, hash, s.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, module, key string) error {
	module, err := scope(module)
	if err != nil {
		return err
	}
	return s.client.HDel(ctx, s.hashKey(module), key).Err()
}

// LastGrowth returns the remembered growth metric of module, or fallback.
func LastGrowth(ctx context.Context, s Store, module, fallback string) (string, error) {
	if s == nil {
		return fallback, nil
	}
	v, ok, err := s.Get(ctx, module, KeyLastGrowth)
	if err != nil {
		return fallback, err
	}
	if !ok || v == "" {
		return fallback, nil
	}
	return v, nil
}

// RememberGrowth records metric as the growth selection of module.
func RememberGrowth(ctx context.Context, s Store, module, metric string) error {
	if s == nil {
		return nil
	}
	return s.Set(ctx, module, KeyLastGrowth, metric)
}

func scope(module string) (string, error) {
	module = strings.TrimSpace(module)
	if module == "" {
		return "", ErrModuleRequired
	}
	return module, nil
}
