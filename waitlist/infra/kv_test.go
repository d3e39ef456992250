package infra

import (
	"context"
	"testing"

	"waitlist-service/waitlist/domain"

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

// mesmo contrato para os dois backends
func TestKV_Contract(t *testing.T) {
	backends := map[string]func(t *testing.T) domain.KV{
		"memory": func(t *testing.T) domain.KV { return NewMemoryKV() },
		"redis": func(t *testing.T) domain.KV {
			_, rdb := newTestRedis(t)
			return NewRedisKV(rdb)
		},
	}

	for name, newKV := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			kv := newKV(t)

			require.NoError(t, kv.Ping(ctx))

			_, ok, err := kv.Get(ctx, "waitlist:count")
			require.NoError(t, err)
			assert.False(t, ok, "missing scalar")

			require.NoError(t, kv.Set(ctx, "waitlist:count", "3"))
			v, ok, err := kv.Get(ctx, "waitlist:count")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "3", v)

			_, ok, err = kv.HGet(ctx, "waitlist:codes", "ABCDEFGH")
			require.NoError(t, err)
			assert.False(t, ok, "missing field")

			require.NoError(t, kv.HSet(ctx, "waitlist:codes", "ABCDEFGH", "a@x.com"))
			require.NoError(t, kv.HSet(ctx, "waitlist:codes", "JKLMNPQR", "b@x.com"))
			v, ok, err = kv.HGet(ctx, "waitlist:codes", "ABCDEFGH")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "a@x.com", v)

			all, err := kv.HGetAll(ctx, "waitlist:codes")
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"ABCDEFGH": "a@x.com", "JKLMNPQR": "b@x.com"}, all)

			require.NoError(t, kv.HDel(ctx, "waitlist:codes", "ABCDEFGH"))
			require.NoError(t, kv.HDel(ctx, "waitlist:codes", "ABCDEFGH"), "deleting twice is not an error")
			all, err = kv.HGetAll(ctx, "waitlist:codes")
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"JKLMNPQR": "b@x.com"}, all)

			all, err = kv.HGetAll(ctx, "waitlist:nothing")
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestRedisKV_ErrorsWhenServerDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	kv := NewRedisKV(rdb)
	mr.Close()

	ctx := context.Background()
	assert.Error(t, kv.Ping(ctx))
	_, _, err := kv.HGet(ctx, "waitlist:emails", "a@x.com")
	assert.Error(t, err)
	_, _, err = kv.Get(ctx, "waitlist:count")
	assert.Error(t, err)
}
