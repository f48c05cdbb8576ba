package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/edgewatch/tolerance-monitor/pkg/monitor"
)

const (
	// DefaultKeyPrefix is the prefix for signal reading keys.
	DefaultKeyPrefix = "tolerance_monitor:reading:"
	// DefaultReadTimeout bounds a single reading fetch so a slow Redis
	// cannot stall the evaluation sweep indefinitely.
	DefaultReadTimeout = 500 * time.Millisecond
)

// RedisConfig configures a Redis-backed value source.
type RedisConfig struct {
	// KeyPrefix for reading keys. Defaults to DefaultKeyPrefix.
	KeyPrefix string
	// ReadTimeout per fetch. Defaults to DefaultReadTimeout.
	ReadTimeout time.Duration
}

// Redis reads the latest reading for a signal from Redis. External producers
// write the current value as a plain float under <prefix><key>; this process
// only ever reads it, one value per signal, no history.
type Redis struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedis creates a Redis value source on an existing client.
func NewRedis(client *redis.Client, cfg RedisConfig) *Redis {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	return &Redis{
		client:  client,
		prefix:  cfg.KeyPrefix,
		timeout: cfg.ReadTimeout,
	}
}

// ValueFunc returns a reader for the given key. An empty key means the
// signal id doubles as the key. A missing key, an unparseable payload, or a
// Redis failure all surface as acquisition errors, which skip that signal's
// evaluation for the current tick only.
func (r *Redis) ValueFunc(key string) monitor.ValueFunc {
	return func(signalID string) (float64, error) {
		k := key
		if k == "" {
			k = signalID
		}

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		data, err := r.client.Get(ctx, r.prefix+k).Result()
		if err == redis.Nil {
			return 0, fmt.Errorf("no reading for signal %s (key %s)", signalID, k)
		}
		if err != nil {
			return 0, fmt.Errorf("failed to fetch reading for signal %s: %w", signalID, err)
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(data), 64)
		if err != nil {
			return 0, fmt.Errorf("bad reading %q for signal %s: %w", data, signalID, err)
		}

		return value, nil
	}
}
