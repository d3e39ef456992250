package infra

import (
	"context"
	"testing"
	"time"

	"waitlist-service/waitlist/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStatsStore_RecordsTotalsAndMinuteBuckets(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisStatsStore(rdb, WithStatsPrefix("waitlist:stats:"), WithStatsTTL(time.Hour))
	ctx := context.Background()
	at := time.Date(2026, 5, 4, 13, 7, 30, 0, time.UTC)

	require.NoError(t, s.Record(ctx, domain.StatsEvent{Kind: domain.EventJoined, At: at}))
	require.NoError(t, s.Record(ctx, domain.StatsEvent{Kind: domain.EventJoined, At: at}))
	require.NoError(t, s.Record(ctx, domain.StatsEvent{Kind: domain.EventRateLimited, At: at}))

	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[domain.EventKind]int64{
		domain.EventJoined:      2,
		domain.EventRateLimited: 1,
	}, totals)

	bucket := "waitlist:stats:minute:202605041307"
	assert.Equal(t, "2", mr.HGet(bucket, "joined"))
	assert.Equal(t, time.Hour, mr.TTL(bucket))
	assert.Equal(t, time.Duration(0), mr.TTL("waitlist:stats:total"), "total never expires")
}

func TestRedisStatsStore_NoBucket(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisStatsStore(rdb, WithStatsBucket(" NONE "))
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, domain.StatsEvent{Kind: domain.EventDeleted}))
	assert.Equal(t, []string{"waitlist:stats:total"}, mr.Keys())
}

func TestMemoryStatsStore_Totals(t *testing.T) {
	s := NewMemoryStatsStore()
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, domain.StatsEvent{Kind: domain.EventInvalidEmail}))
	require.NoError(t, s.Record(ctx, domain.StatsEvent{Kind: domain.EventInvalidEmail}))
	require.NoError(t, s.Record(ctx, domain.StatsEvent{}))

	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[domain.EventKind]int64{domain.EventInvalidEmail: 2}, totals)
}

func TestRedisStatsStore_RecentSumsMinuteBuckets(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := NewRedisStatsStore(rdb)
	ctx := context.Background()
	now := time.Date(2026, 5, 4, 13, 30, 10, 0, time.UTC)

	for _, ev := range []domain.StatsEvent{
		{Kind: domain.EventJoined, At: now.Add(-2 * time.Hour)},
		{Kind: domain.EventJoined, At: now.Add(-10 * time.Minute)},
		{Kind: domain.EventJoined, At: now.Add(-time.Minute)},
		{Kind: domain.EventRateLimited, At: now},
	} {
		require.NoError(t, s.Record(ctx, ev))
	}

	recent, err := s.Recent(ctx, now.Add(-15*time.Minute), now)
	require.NoError(t, err)
	assert.Equal(t, map[domain.EventKind]int64{
		domain.EventJoined:      2,
		domain.EventRateLimited: 1,
	}, recent)

	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), totals[domain.EventJoined])
}

func TestRedisStatsStore_RecentWithoutBuckets(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := NewRedisStatsStore(rdb, WithStatsBucket("none"))
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Record(ctx, domain.StatsEvent{Kind: domain.EventJoined, At: now}))
	recent, err := s.Recent(ctx, now.Add(-time.Hour), now)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestRedisStatsStore_RecentAfterBucketsExpire(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisStatsStore(rdb, WithStatsTTL(time.Hour))
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Record(ctx, domain.StatsEvent{Kind: domain.EventJoined, At: now}))
	mr.FastForward(2 * time.Hour)

	recent, err := s.Recent(ctx, now.Add(-time.Hour), now)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestMemoryStatsStore_RecentAndPrune(t *testing.T) {
	s := NewMemoryStatsStore(WithMemoryStatsTTL(time.Hour))
	ctx := context.Background()
	now := time.Date(2026, 5, 4, 13, 30, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, domain.StatsEvent{Kind: domain.EventDeleted, At: now.Add(-90 * time.Minute)}))
	require.NoError(t, s.Record(ctx, domain.StatsEvent{Kind: domain.EventDeleted, At: now.Add(-5 * time.Minute)}))
	require.NoError(t, s.Record(ctx, domain.StatsEvent{Kind: domain.EventJoined, At: now}))

	recent, err := s.Recent(ctx, now.Add(-10*time.Minute), now)
	require.NoError(t, err)
	assert.Equal(t, map[domain.EventKind]int64{domain.EventDeleted: 1, domain.EventJoined: 1}, recent)

	// o bucket de 90 minutos atrás já foi descartado
	recent, err = s.Recent(ctx, now.Add(-2*time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), recent[domain.EventDeleted])

	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals[domain.EventDeleted])
}

func TestBucketMinutes(t *testing.T) {
	until := time.Date(2026, 5, 4, 13, 30, 45, 0, time.UTC)

	got := bucketMinutes(until.Add(-2*time.Minute), until)
	require.Len(t, got, 3)
	assert.Equal(t, time.Date(2026, 5, 4, 13, 28, 0, 0, time.UTC), got[0])
	assert.Equal(t, time.Date(2026, 5, 4, 13, 30, 0, 0, time.UTC), got[2])

	assert.Len(t, bucketMinutes(until.Add(-72*time.Hour), until), int(domain.MaxStatsWindow/domain.StatsMinute)+1)
	assert.Empty(t, bucketMinutes(until, until.Add(-time.Hour)))
}
