package storage

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portal-admin/internal/config"
	"github.com/portal-admin/internal/models"
)

// setupSettingsCache starts miniredis and returns a settings cache on top of it
func setupSettingsCache(t *testing.T, ttl time.Duration) (*SettingsCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	return NewSettingsCache(NewRedisCacheFromClient(client), ttl), mr
}

func TestSettingsKey(t *testing.T) {
	assert.Equal(t, "settings:fees", SettingsKey(" Fees "))
	assert.Equal(t, "settings:notify_emails", SettingsKey("NOTIFY_EMAILS"))
}

func TestSettingsCache_StoreAndExpire(t *testing.T) {
	cache, mr := setupSettingsCache(t, time.Minute)
	ctx := testContext(t)

	in := []models.SettingField{{Name: "passport", Type: "number", Value: "30"}}
	require.NoError(t, cache.Store(ctx, "fees", in))

	out, found, err := cache.Fields(ctx, "FEES")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)

	mr.FastForward(2 * time.Minute)
	_, found, err = cache.Fields(ctx, "fees")
	require.NoError(t, err)
	assert.False(t, found, "entry should expire after ttl")
}

func TestSettingsCache_EmptyModuleIsCached(t *testing.T) {
	cache, _ := setupSettingsCache(t, time.Minute)
	ctx := testContext(t)

	require.NoError(t, cache.Store(ctx, "fees", nil))
	out, found, err := cache.Fields(ctx, "fees")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, out)
}

func TestSettingsCache_MissIsNotError(t *testing.T) {
	cache, _ := setupSettingsCache(t, time.Minute)

	_, found, err := cache.Fields(testContext(t), "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSettingsCache_CorruptEntry(t *testing.T) {
	cache, mr := setupSettingsCache(t, time.Minute)
	require.NoError(t, mr.Set("settings:fees", "{not json"))

	_, found, err := cache.Fields(testContext(t), "fees")
	assert.Error(t, err)
	assert.False(t, found)
}

func TestSettingsCache_Forget(t *testing.T) {
	cache, mr := setupSettingsCache(t, time.Minute)
	ctx := testContext(t)

	require.NoError(t, cache.Store(ctx, "fees", nil))
	require.NoError(t, cache.Store(ctx, "notify_emails", nil))
	require.NoError(t, mr.Set("login:fail:0171", "2"))

	require.NoError(t, cache.Forget(ctx, "fees"))
	assert.False(t, mr.Exists("settings:fees"))
	assert.True(t, mr.Exists("settings:notify_emails"))

	require.NoError(t, cache.Forget(ctx))
	assert.False(t, mr.Exists("settings:notify_emails"))
	assert.True(t, mr.Exists("login:fail:0171"), "only settings keys are dropped")
	assert.NoError(t, cache.Forget(ctx))
}

func TestRedisOptions(t *testing.T) {
	opts := redisOptions(&config.RedisConfig{Host: "cache", Port: "6380", DB: 2})
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 10, opts.PoolSize)

	opts = redisOptions(&config.RedisConfig{Host: "cache", Port: "6379", MaxConnections: 40})
	assert.Equal(t, 40, opts.PoolSize)
	assert.Equal(t, 10, opts.MinIdleConns)
}
