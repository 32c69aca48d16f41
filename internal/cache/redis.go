// Package cache connects to Redis, which backs the credential endpoint rate limiter.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// NewRedisClient connects and pings Redis. It returns nil when addr is empty
// or the server does not answer, and callers then run without rate limiting.
func NewRedisClient(addr, password string, db int, log logrus.FieldLogger) *redis.Client {
	if addr == "" {
		log.Info("redis address not configured, rate limiting disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).WithField("addr", addr).Warn("redis unreachable, rate limiting disabled")
		_ = client.Close()
		return nil
	}

	return client
}
