package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/portal-admin/internal/models"
)

const settingsKeyPrefix = "settings:"

// SettingsCache keeps the fields of settings modules in Redis as JSON
type SettingsCache struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewSettingsCache creates a settings cache whose entries expire after ttl
func NewSettingsCache(redis *RedisCache, ttl time.Duration) *SettingsCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SettingsCache{redis: redis, ttl: ttl}
}

// SettingsKey returns the Redis key of a module
func SettingsKey(module string) string {
	return settingsKeyPrefix + strings.ToLower(strings.TrimSpace(module))
}

// Fields returns the cached fields of a module. A missing key is a miss, not
// an error.
func (c *SettingsCache) Fields(ctx context.Context, module string) ([]models.SettingField, bool, error) {
	data, err := c.redis.client.Get(ctx, SettingsKey(module)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cached %s settings: %w", module, err)
	}

	var fields []models.SettingField
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, false, fmt.Errorf("decode cached %s settings: %w", module, err)
	}
	return fields, true, nil
}

// Store caches the fields of a module
func (c *SettingsCache) Store(ctx context.Context, module string, fields []models.SettingField) error {
	if fields == nil {
		fields = []models.SettingField{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s settings: %w", module, err)
	}
	return c.redis.client.Set(ctx, SettingsKey(module), data, c.ttl).Err()
}

// Forget drops modules from the cache. With no modules every cached module is
// dropped.
func (c *SettingsCache) Forget(ctx context.Context, modules ...string) error {
	var keys []string
	if len(modules) == 0 {
		found, err := c.redis.ScanKeys(ctx, settingsKeyPrefix+"*")
		if err != nil {
			return err
		}
		keys = found
	} else {
		for _, m := range modules {
			keys = append(keys, SettingsKey(m))
		}
	}

	if len(keys) == 0 {
		return nil
	}
	return c.redis.client.Del(ctx, keys...).Err()
}
