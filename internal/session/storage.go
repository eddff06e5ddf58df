package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// IdentityKey is the storage key of the persisted student identity.
const IdentityKey = "student_session"

// Storage is a small durable key/value store scoped to one browser.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// StorageProvider hands out the Storage of a device.
type StorageProvider interface {
	For(deviceID string) Storage
}

// MemoryStorage keeps values for the lifetime of the process.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStorage constructs an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// MemoryProvider keeps one MemoryStorage per device, outliving swept
// containers.
type MemoryProvider struct {
	mu      sync.Mutex
	storage map[string]*MemoryStorage
}

// NewMemoryProvider constructs a MemoryProvider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{storage: make(map[string]*MemoryStorage)}
}

// For returns the storage of deviceID, creating it on first use.
func (p *MemoryProvider) For(deviceID string) Storage {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.storage[deviceID]
	if !ok {
		s = NewMemoryStorage()
		p.storage[deviceID] = s
	}
	return s
}

// RedisStorage stores values under "<prefix><device>:<key>" without expiry.
type RedisStorage struct {
	client    *redis.Client
	namespace string
}

func (r *RedisStorage) key(key string) string {
	return r.namespace + key
}

func (r *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", r.key(key), err)
	}
	return value, true, nil
}

func (r *RedisStorage) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key(key), err)
	}
	return nil
}

func (r *RedisStorage) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", r.key(key), err)
	}
	return nil
}

// RedisProvider scopes a shared Redis client per device.
type RedisProvider struct {
	client *redis.Client
	prefix string
}

// NewRedisProvider constructs a RedisProvider. An empty prefix defaults to
// "reading:device:".
func NewRedisProvider(client *redis.Client, prefix string) *RedisProvider {
	if prefix == "" {
		prefix = "reading:device:"
	}
	return &RedisProvider{client: client, prefix: prefix}
}

// For returns the storage of deviceID.
func (p *RedisProvider) For(deviceID string) Storage {
	return &RedisStorage{client: p.client, namespace: p.prefix + deviceID + ":"}
}
