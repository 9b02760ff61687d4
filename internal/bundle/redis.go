package bundle

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cervejazero/internal/model"
)

// redisClient is the subset of *redis.Client used by RedisBackend.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisBackend stores bundles as JSON under a key prefix.
type RedisBackend struct {
	rdb    redisClient
	prefix string
}

// NewRedisBackend wraps a redis client.
func NewRedisBackend(rdb redisClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "cervejazero:"
	}
	return &RedisBackend{rdb: rdb, prefix: prefix}
}

// DialRedis parses a redis:// URL and pings the server.
func DialRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "bundle: parse redis url")
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "bundle: ping redis")
	}
	return rdb, nil
}

// Name implements Backend.
func (r *RedisBackend) Name() string { return "redis" }

// Get implements Backend. A missing key is a miss, not an error.
func (r *RedisBackend) Get(ctx context.Context, key string) (*model.Bundle, bool, error) {
	data, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "bundle: redis get")
	}
	var b model.Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, false, eris.Wrap(err, "bundle: decode cached bundle")
	}
	return &b, true, nil
}

// Set implements Backend.
func (r *RedisBackend) Set(ctx context.Context, key string, b *model.Bundle, ttl time.Duration) error {
	data, err := json.Marshal(b)
	if err != nil {
		return eris.Wrap(err, "bundle: encode bundle")
	}
	return eris.Wrap(r.rdb.Set(ctx, r.prefix+key, data, ttl).Err(), "bundle: redis set")
}

// Delete implements Backend.
func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	return eris.Wrap(r.rdb.Del(ctx, r.prefix+key).Err(), "bundle: redis del")
}
