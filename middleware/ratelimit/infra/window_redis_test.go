package infra

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisWindowStore_SixthAttemptDeniedThenResets(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisWindowStore(rdb, 5, time.Hour, WithWindowPrefix("waitlist:ratelimit:"))
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		dec, err := s.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		require.Truef(t, dec.Allowed, "attempt %d should be allowed", i)
		assert.Equal(t, 5-i, dec.Remaining)
	}

	dec, err := s.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, dec.Allowed)

	// negação não incrementa o contador
	got, err := mr.Get("waitlist:ratelimit:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "5", got)
	assert.True(t, mr.TTL("waitlist:ratelimit:1.2.3.4") > 0, "window key must expire")

	mr.FastForward(time.Hour + time.Second)

	dec, err = s.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, dec.Allowed, "counter should reset after the window expires")
}

func TestRedisWindowStore_ReturnsErrorWhenRedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisWindowStore(rdb, 5, time.Hour)
	mr.Close()

	_, err := s.Allow(context.Background(), "k")
	assert.Error(t, err)
}
