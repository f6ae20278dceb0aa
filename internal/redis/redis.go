package redis

import (
	"context"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"github.com/fakhrymubarak/weather-compare/internal/config"
)

// NewClient builds a Redis client for addr. Callers own the returned client
// and must Close it.
func NewClient(addr string) *redisv9.Client {
	return redisv9.NewClient(&redisv9.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

// NewClientFromConfig builds a client for the configured redis.addr.
func NewClientFromConfig() *redisv9.Client {
	return NewClient(config.GetRedisAddr())
}

// Ping reports whether the server behind client answers within timeout.
func Ping(ctx context.Context, client *redisv9.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return client.Ping(ctx).Err()
}
