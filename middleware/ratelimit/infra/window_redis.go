package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"waitlist-service/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// windowScript aplica a regra da janela fixa de forma atômica no Redis.
// Retorna {allowed(0|1), count, pttl}.
var windowScript = redis.NewScript(`
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
if count == 0 then
  redis.call('SET', KEYS[1], 1, 'PX', window)
  return {1, 1, window}
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], window)
  ttl = window
end
if count >= limit then
  return {0, count, ttl}
end
count = redis.call('INCR', KEYS[1])
return {1, count, ttl}
`)

// RedisWindowStore é a versão compartilhada do WindowStore: várias instâncias
// do servidor enxergam o mesmo contador por chave.
type RedisWindowStore struct {
	rdb    redis.Scripter
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

type RedisWindowOption func(*RedisWindowStore)

func WithWindowPrefix(prefix string) RedisWindowOption {
	return func(s *RedisWindowStore) { s.prefix = strings.Trim(prefix, ":") }
}

func NewRedisWindowStore(rdb redis.Scripter, limit int, window time.Duration, opts ...RedisWindowOption) *RedisWindowStore {
	s := &RedisWindowStore{
		rdb:    rdb,
		prefix: "ratelimit:window",
		limit:  limit,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisWindowStore) Limit() int             { return s.limit }
func (s *RedisWindowStore) Window() time.Duration { return s.window }

// Allow implementa domain.RateLimiter.
func (s *RedisWindowStore) Allow(ctx context.Context, key domain.Key) (domain.Decision, error) {
	k := s.prefix + ":" + string(key)
	res, err := windowScript.Run(ctx, s.rdb, []string{k}, s.limit, s.window.Milliseconds()).Int64Slice()
	if err != nil {
		return domain.Decision{}, fmt.Errorf("redis window %q: %w", k, err)
	}
	if len(res) != 3 {
		return domain.Decision{}, fmt.Errorf("redis window %q: unexpected reply %v", k, res)
	}

	remaining := s.limit - int(res[1])
	if remaining < 0 {
		remaining = 0
	}
	return domain.Decision{
		Allowed:   res[0] == 1,
		Limit:     s.limit,
		Remaining: remaining,
		ResetAt:   s.now().Add(time.Duration(res[2]) * time.Millisecond),
	}, nil
}
