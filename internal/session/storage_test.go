package session

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProviderScopesDevices(t *testing.T) {
	ctx := context.Background()
	provider := NewMemoryProvider()

	require.NoError(t, provider.For("a").Set(ctx, IdentityKey, "x"))

	value, ok, err := provider.For("a").Get(ctx, IdentityKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", value)

	_, ok, err = provider.For("b").Get(ctx, IdentityKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, provider.For("a").Remove(ctx, IdentityKey))
	_, ok, _ = provider.For("a").Get(ctx, IdentityKey)
	assert.False(t, ok)
}

func TestRedisProviderNamespace(t *testing.T) {
	storage := NewRedisProvider(nil, "").For("dev-1").(*RedisStorage)

	assert.Equal(t, "reading:device:dev-1:student_session", storage.key(IdentityKey))
}

func TestRedisStorageIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	storage := NewRedisProvider(client, "reading:test:").For(NewDeviceID())
	require.NoError(t, storage.Set(ctx, IdentityKey, `{"number":"1","name":"Kim"}`))

	value, ok, err := storage.Get(ctx, IdentityKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"number":"1","name":"Kim"}`, value)

	require.NoError(t, storage.Remove(ctx, IdentityKey))
	_, ok, err = storage.Get(ctx, IdentityKey)
	require.NoError(t, err)
	assert.False(t, ok)
}
