package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// countAndExpire bumps the window counter and stamps its expiry on first
// use, atomically.
var countAndExpire = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Quota is a per-key request budget over a fixed window.
type Quota struct {
	Limit  int
	Window time.Duration
}

// Limiter enforces a Quota per key against a shared Redis, so the budget
// holds across replicas. An unreachable Redis counts against the caller:
// the limiter fails closed.
type Limiter struct {
	quota  Quota
	prefix string
	client *redis.Client
}

// New builds a Redis-backed fixed-window limiter.
func New(addr, password, prefix string, quota Quota) (*Limiter, error) {
	if quota.Limit <= 0 || quota.Window <= 0 {
		return nil, errors.New("ratelimit: quota needs a positive limit and window")
	}
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("ratelimit: redis addr is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "bookcatalog:ratelimit"
	}
	return &Limiter{
		quota:  quota,
		prefix: prefix,
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
	}, nil
}

// Window returns the quota window, for Retry-After style hints.
func (l *Limiter) Window() time.Duration {
	return l.quota.Window
}

// Allow consumes one unit of the key's budget. When the budget is spent,
// or Redis cannot be reached, allowed is false and retryAfter says how
// long until the current window rolls over.
func (l *Limiter) Allow(key string) (allowed bool, retryAfter time.Duration) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}
	windowMs := l.quota.Window.Milliseconds()
	nowMs := time.Now().UTC().UnixMilli()
	slot := nowMs / windowMs
	untilRollover := time.Duration(windowMs-nowMs%windowMs) * time.Millisecond

	redisKey := l.prefix + ":" + key + ":" + strconv.FormatInt(slot, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	count, err := countAndExpire.Run(ctx, l.client, []string{redisKey}, windowMs).Int64()
	if err != nil {
		return false, untilRollover
	}
	if count > int64(l.quota.Limit) {
		return false, untilRollover
	}
	return true, 0
}
