package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"waitlist-service/waitlist/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore grava contadores de eventos da waitlist em hashes do Redis:
// um total cumulativo e, opcionalmente, um hash por minuto com TTL.
type RedisStatsStore struct {
	rdb redis.UniversalClient

	prefix string
	// ttl aplica apenas nas chaves por minuto; o total não expira.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.prefix = strings.Trim(prefix, ":") }
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func NewRedisStatsStore(rdb redis.UniversalClient, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "waitlist:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) totalKey() string { return s.prefix + ":total" }

func (s *RedisStatsStore) bucketKey(at time.Time) string {
	return fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil || ev.Kind == "" {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := string(ev.Kind)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.totalKey(), field, 1)
	if s.bucket == "minute" {
		key := s.bucketKey(at)
		pipe.HIncrBy(ctx, key, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStatsStore) Totals(ctx context.Context) (map[domain.EventKind]int64, error) {
	raw, err := s.rdb.HGetAll(ctx, s.totalKey()).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[domain.EventKind]int64, len(raw))
	if err := addCounts(out, raw); err != nil {
		return nil, err
	}
	return out, nil
}

// Recent lê os hashes por minuto do intervalo num único pipeline.
func (s *RedisStatsStore) Recent(ctx context.Context, since, until time.Time) (map[domain.EventKind]int64, error) {
	out := make(map[domain.EventKind]int64)
	minutes := bucketMinutes(since, until)
	if s.bucket != "minute" || len(minutes) == 0 {
		return out, nil
	}

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(minutes))
	for _, m := range minutes {
		cmds = append(cmds, pipe.HGetAll(ctx, s.bucketKey(m)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	for _, cmd := range cmds {
		if err := addCounts(out, cmd.Val()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// bucketMinutes lista os minutos de since até until, limitado a
// domain.MaxStatsWindow contado para trás a partir de until.
func bucketMinutes(since, until time.Time) []time.Time {
	since = since.UTC().Truncate(domain.StatsMinute)
	until = until.UTC().Truncate(domain.StatsMinute)
	if floor := until.Add(-domain.MaxStatsWindow); since.Before(floor) {
		since = floor
	}
	var out []time.Time
	for m := since; !m.After(until); m = m.Add(domain.StatsMinute) {
		out = append(out, m)
	}
	return out
}

func addCounts(out map[domain.EventKind]int64, raw map[string]string) error {
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("stats field %q: %w", k, err)
		}
		out[domain.EventKind(k)] += n
	}
	return nil
}
