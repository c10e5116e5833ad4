package quota

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// admitScript performs the check-and-increment in a single Redis round trip so
// two concurrent requests can never both pass the ceiling check.
var admitScript = goredis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if current + 1 > limit then
  return 0
end
current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('EXPIRE', KEYS[1], tonumber(ARGV[2]))
end
return 1
`)

// RedisLedger enforces quotas on shared Redis counters, one key per account
// per hour, expiring shortly after the window ends.
type RedisLedger struct {
	rdb    *goredis.Client
	limits Limits
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisLedger connects to Redis and verifies the connection.
func NewRedisLedger(addr string, limits Limits, logger *zap.Logger) (*RedisLedger, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisLedger{rdb: rdb, limits: limits, logger: logger, now: time.Now}, nil
}

// Admit checks and increments the account's window counter atomically.
func (l *RedisLedger) Admit(ctx context.Context, accountID, tier string) (Decision, error) {
	limit := l.limits.For(tier)
	now := l.now()
	start := windowStart(now)
	key := fmt.Sprintf("quota:%s:%d", accountID, start.Unix())

	// Keys outlive their window by a minute so late stragglers still see them.
	ttl := int(retryAfter(now).Seconds()) + 60

	allowed, err := admitScript.Run(ctx, l.rdb, []string{key}, limit, ttl).Int()
	if err != nil {
		return Decision{}, fmt.Errorf("quota admit: %w", err)
	}
	if allowed == 0 {
		return Decision{Allowed: false, RetryAfter: retryAfter(now)}, nil
	}
	return Decision{Allowed: true}, nil
}

// Close releases the Redis connection.
func (l *RedisLedger) Close() error {
	return l.rdb.Close()
}
