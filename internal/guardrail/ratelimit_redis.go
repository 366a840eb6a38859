package guardrail

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript prunes, counts and conditionally records a request in one
// atomic step. It returns {breached window (0 none, 1 minute, 2 hour, 3 day), count}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local member = ARGV[2]
local per_minute = tonumber(ARGV[3])
local per_hour = tonumber(ARGV[4])
local per_day = tonumber(ARGV[5])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - 86400000)

local minute = redis.call('ZCOUNT', key, '(' .. (now - 60000), '+inf') + 1
local hour = redis.call('ZCOUNT', key, '(' .. (now - 3600000), '+inf') + 1
local day = redis.call('ZCARD', key) + 1

if minute > per_minute then return {1, minute} end
if hour > per_hour then return {2, hour} end
if day > per_day then return {3, day} end

redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, 86400000)
return {0, minute}
`)

// RedisLimiter shares request history between instances through Redis sorted sets.
type RedisLimiter struct {
	client redis.Scripter
	now    func() time.Time
	prefix string
	limits Limits
}

// NewRedisLimiter creates a limiter storing history under "ratelimit:<business>".
func NewRedisLimiter(client redis.Scripter, limits Limits) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		now:    time.Now,
		prefix: "ratelimit:",
		limits: limits,
	}
}

// Check atomically evaluates and records the current request.
func (l *RedisLimiter) Check(ctx context.Context, businessID string) (Result, error) {
	now := l.now().UTC().UnixMilli()

	reply, err := slidingWindowScript.Run(ctx, l.client, []string{l.prefix + businessID},
		now, uuid.NewString(), l.limits.PerMinute, l.limits.PerHour, l.limits.PerDay,
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit script for business %s: %w", businessID, err)
	}
	if len(reply) != 2 {
		return Result{}, fmt.Errorf("rate limit script returned %d values", len(reply))
	}

	count := int(reply[1])
	switch reply[0] {
	case 1:
		return l.limits.evaluate(count, 0, 0), nil
	case 2:
		return l.limits.evaluate(0, count, 0), nil
	case 3:
		return l.limits.evaluate(0, 0, count), nil
	}
	return NewResult(), nil
}
