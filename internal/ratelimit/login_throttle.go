// Package ratelimit throttles repeated failed logins across API instances using Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default throttle configuration values.
const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 15 * time.Minute
)

// KeyPrefixLogin prefixes failed-login counters.
const KeyPrefixLogin = "login:fail:"

// LoginThrottle counts failed logins per identifier inside a fixed window.
// Once MaxAttempts failures are recorded the identifier is blocked until the
// window expires.
type LoginThrottle struct {
	redis       redis.Cmdable
	maxAttempts int
	window      time.Duration
}

// LoginThrottleConfig holds configuration for the throttle.
type LoginThrottleConfig struct {
	// Redis is required: counters must be shared by every API instance.
	Redis       redis.Cmdable
	MaxAttempts int
	Window      time.Duration
}

// Validate checks if the configuration is valid.
func (c *LoginThrottleConfig) Validate() error {
	if c.Redis == nil {
		return errors.New("redis client is required")
	}
	if c.MaxAttempts < 0 {
		return errors.New("max attempts cannot be negative")
	}
	if c.Window < 0 {
		return errors.New("window cannot be negative")
	}
	return nil
}

// NewLoginThrottle creates a throttle, applying defaults for zero values.
func NewLoginThrottle(cfg *LoginThrottleConfig) (*LoginThrottle, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}
	window := cfg.Window
	if window == 0 {
		window = DefaultWindow
	}

	return &LoginThrottle{
		redis:       cfg.Redis,
		maxAttempts: maxAttempts,
		window:      window,
	}, nil
}

func (t *LoginThrottle) key(identifier string) string {
	return KeyPrefixLogin + strings.ToLower(strings.TrimSpace(identifier))
}

// Check reports whether identifier may attempt a login. When blocked it
// returns the time until the window resets.
func (t *LoginThrottle) Check(ctx context.Context, identifier string) (bool, time.Duration, error) {
	key := t.key(identifier)

	count, err := t.redis.Get(ctx, key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return true, 0, nil
		}
		return false, 0, fmt.Errorf("read login counter: %w", err)
	}
	if count < t.maxAttempts {
		return true, 0, nil
	}

	ttl, err := t.redis.PTTL(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("read login counter ttl: %w", err)
	}
	if ttl < 0 {
		ttl = t.window
	}
	return false, ttl, nil
}

// recordFailureScript increments the counter and starts the window on the
// first failure only, so later failures do not extend it.
var recordFailureScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	return count
`)

// RecordFailure counts one failed login and returns the failures so far.
func (t *LoginThrottle) RecordFailure(ctx context.Context, identifier string) (int, error) {
	count, err := recordFailureScript.Run(ctx, t.redis, []string{t.key(identifier)}, t.window.Milliseconds()).Int()
	if err != nil {
		return 0, fmt.Errorf("record login failure: %w", err)
	}
	return count, nil
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, identifier string) error {
	return t.redis.Del(ctx, t.key(identifier)).Err()
}
