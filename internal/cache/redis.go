package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
)

const scanBatch = 200

// RedisCache is a Cache backed by a redigo connection pool.
type RedisCache struct {
	pool *redis.Pool
}

// NewRedisCache dials addr lazily through a bounded pool.
func NewRedisCache(addr, password string) *RedisCache {
	pool := &redis.Pool{
		MaxIdle:     10,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			opts := []redis.DialOption{
				redis.DialConnectTimeout(5 * time.Second),
				redis.DialReadTimeout(3 * time.Second),
				redis.DialWriteTimeout(3 * time.Second),
			}
			if password != "" {
				opts = append(opts, redis.DialPassword(password))
			}
			return redis.Dial("tcp", addr, opts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
	return &RedisCache{pool: pool}
}

// Ping checks that the server is reachable.
func (r *RedisCache) Ping(ctx context.Context) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Do("PING")
	return err
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return nil, false, err
	}
	defer conn.Close()

	value, err := redis.Bytes(conn.Do("GET", key))
	if errors.Is(err, redis.ErrNil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	seconds := int(ttl.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	_, err = conn.Do("SETEX", key, seconds, value)
	return err
}

// DeletePrefix deletes matching keys in SCAN batches.
func (r *RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	cursor := 0
	for {
		values, err := redis.Values(conn.Do("SCAN", cursor, "MATCH", prefix+"*", "COUNT", scanBatch))
		if err != nil {
			return fmt.Errorf("scan %s*: %w", prefix, err)
		}

		var keys []any
		if _, err := redis.Scan(values, &cursor, &keys); err != nil {
			return err
		}
		if len(keys) > 0 {
			if _, err := conn.Do("DEL", keys...); err != nil {
				return fmt.Errorf("delete %s*: %w", prefix, err)
			}
		}

		if cursor == 0 {
			return nil
		}
	}
}

func (r *RedisCache) Close() error {
	return r.pool.Close()
}
