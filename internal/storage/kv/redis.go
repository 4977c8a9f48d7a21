package kv

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"adega/pkg/platform/sentinel"
)

const (
	// Redis key prefix for session storage areas
	sessionAreaKeyPrefix = "adega:session:"
	scanBatchSize        = 100
)

// RedisBackend is a storage area in Redis. Every write refreshes the key's
// TTL so an idle area expires like a closed tab.
type RedisBackend struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisBackend constructs the area whose keys start with prefix.
func NewRedisBackend(client *redis.Client, prefix string, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisBackend) Get(ctx context.Context, key string) (string, error) {
	defer observe("redis", "get", time.Now())
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (r *RedisBackend) Set(ctx context.Context, key, value string) error {
	defer observe("redis", "set", time.Now())
	err := r.client.Set(ctx, r.prefix+key, value, r.ttl).Err()
	if isRedisOOM(err) {
		return errors.Join(ErrQuotaExceeded, err)
	}
	return err
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	defer observe("redis", "delete", time.Now())
	return r.client.Del(ctx, r.prefix+key).Err()
}

// Keys walks the area with SCAN so large keyspaces never block the server.
func (r *RedisBackend) Keys(ctx context.Context) ([]string, error) {
	defer observe("redis", "keys", time.Now())
	var keys []string
	iter := r.client.Scan(ctx, 0, r.prefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func isRedisOOM(err error) bool {
	var rerr redis.Error
	if !errors.As(err, &rerr) {
		return false
	}
	return strings.HasPrefix(rerr.Error(), "OOM")
}

// RedisAreas maps area ids to RedisBackends sharing one client.
type RedisAreas struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAreas(client *redis.Client, ttl time.Duration) *RedisAreas {
	return &RedisAreas{client: client, ttl: ttl}
}

func (a *RedisAreas) Area(id string) Backend {
	return NewRedisBackend(a.client, sessionAreaKeyPrefix+id+":", a.ttl)
}

func observe(backend, op string, start time.Time) {
	backendOpDurationMs.WithLabelValues(backend, op).Observe(float64(time.Since(start).Microseconds()) / 1000.0)
}
