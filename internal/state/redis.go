// internal/state/redis.go
package state

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	custom_errors "starred-digest/internal/errors"
)

const versionField = "__version__"

// RedisConfig defines the connection settings of the redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	Database int
	Prefix   string
}

// RedisBackend stores markers in a single redis hash.
type RedisBackend struct {
	client *redis.Client
	key    string
}

// NewRedisBackend connects to redis and verifies the connection.
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.Database,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisBackend{client: client, key: cfg.Prefix + "markers"}, nil
}

// Load reads the hash. A missing key yields an empty map.
func (b *RedisBackend) Load(ctx context.Context) (map[string]time.Time, error) {
	fields, err := b.client.HGetAll(ctx, b.key).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return map[string]time.Time{}, nil
	}

	version, err := strconv.Atoi(fields[versionField])
	if err != nil || version != SchemaVersion {
		return nil, custom_errors.ErrStateVersionMismatch
	}

	markers := make(map[string]time.Time, len(fields)-1)
	for repo, raw := range fields {
		if repo == versionField {
			continue
		}
		t, err := parseTimestamp(raw)
		if err != nil {
			return nil, &custom_errors.CorruptStateError{Source: "redis:" + b.key, Err: fmt.Errorf("repo %s: %w", repo, err)}
		}
		markers[repo] = t
	}
	return markers, nil
}

// Save replaces the hash inside a MULTI/EXEC block.
func (b *RedisBackend) Save(ctx context.Context, markers map[string]time.Time) error {
	values := make(map[string]any, len(markers)+1)
	values[versionField] = strconv.Itoa(SchemaVersion)
	for repo, t := range markers {
		values[repo] = formatTimestamp(t)
	}

	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, b.key)
		pipe.HSet(ctx, b.key, values)
		return nil
	})
	return err
}

// Close closes the client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
