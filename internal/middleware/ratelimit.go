package middleware

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/adikrnwn171/project-ticket-be/internal/config"
	"github.com/adikrnwn171/project-ticket-be/internal/services"
)

// RateDecision is the result of taking one token from a bucket.
type RateDecision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// RateLimiter takes a token from the bucket identified by key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateDecision, error)
}

var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now_ms
end

if interval_ms > 0 and refill_tokens > 0 then
  local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
  if intervals > 0 then
    tokens = math.min(capacity, tokens + intervals * refill_tokens)
    last_refill = last_refill + intervals * interval_ms
  end
end

local allowed = 0
local retry_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)
return { allowed, tokens, retry_ms }
`)

// RedisTokenBucket is a RateLimiter shared by every instance through Redis.
type RedisTokenBucket struct {
	rdb redis.Scripter
	cfg config.RateLimitConfig
	now func() time.Time
}

func NewRedisTokenBucket(rdb redis.Scripter, cfg config.RateLimitConfig) *RedisTokenBucket {
	return &RedisTokenBucket{rdb: rdb, cfg: cfg, now: time.Now}
}

func (b *RedisTokenBucket) Allow(ctx context.Context, key string) (RateDecision, error) {
	ttl := int64(b.cfg.TTL / time.Second)
	if ttl <= 0 {
		ttl = 60
	}

	res, err := tokenBucketScript.Run(ctx, b.rdb, []string{key},
		b.now().UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		ttl,
	).Int64Slice()
	if err != nil {
		return RateDecision{}, err
	}
	if len(res) != 3 {
		return RateDecision{}, fmt.Errorf("unexpected token bucket result %v", res)
	}

	return RateDecision{
		Allowed:    res[0] == 1,
		Remaining:  res[1],
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// RateLimit limits requests per client IP and route. A nil limiter disables
// the middleware; limiter errors let the request through.
func RateLimit(limiter RateLimiter, cfg config.RateLimitConfig, log logrus.FieldLogger) fiber.Handler {
	if limiter == nil || !cfg.Enabled {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return func(c *fiber.Ctx) error {
		key := rateKey(cfg.Prefix, c)

		decision, err := limiter.Allow(c.UserContext(), key)
		if err != nil {
			log.WithError(err).WithField("key", key).Warn("rate limiter unavailable")
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))

		if !decision.Allowed {
			secs := int(math.Ceil(decision.RetryAfter.Seconds()))
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
			log.WithField("key", key).Info("rate limit exceeded")
			return services.TooManyRequests("too many requests, try again later")
		}
		return c.Next()
	}
}

func rateKey(prefix string, c *fiber.Ctx) string {
	ip := c.IP()
	if ip == "" {
		ip = "unknown"
	}
	return strings.Join([]string{prefix, "ip", ip, "route", c.Method() + " " + c.Path()}, ":")
}
