package infra

import (
	"context"
	"sync"
	"time"

	"waitlist-service/waitlist/domain"
)

// MemoryStatsStore é uma implementação simples em memória.
// Útil para testes e para quem roda sem Redis.
//
// Guarda buckets por minuto como o RedisStatsStore; os mais velhos que o TTL
// são descartados a cada Record.
type MemoryStatsStore struct {
	mu      sync.Mutex
	totals  map[domain.EventKind]int64
	minutes map[time.Time]map[domain.EventKind]int64
	ttl     time.Duration
}

type MemoryStatsOption func(*MemoryStatsStore)

// WithMemoryStatsTTL define por quanto tempo um bucket por minuto é mantido.
func WithMemoryStatsTTL(d time.Duration) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.ttl = d }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		totals:  make(map[domain.EventKind]int64),
		minutes: make(map[time.Time]map[domain.EventKind]int64),
		ttl:     24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	if ev.Kind == "" {
		return nil
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	minute := at.UTC().Truncate(domain.StatsMinute)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals[ev.Kind]++

	bucket, ok := s.minutes[minute]
	if !ok {
		bucket = make(map[domain.EventKind]int64)
		s.minutes[minute] = bucket
	}
	bucket[ev.Kind]++

	if s.ttl > 0 {
		cutoff := minute.Add(-s.ttl)
		for m := range s.minutes {
			if m.Before(cutoff) {
				delete(s.minutes, m)
			}
		}
	}
	return nil
}

func (s *MemoryStatsStore) Totals(context.Context) (map[domain.EventKind]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.EventKind]int64, len(s.totals))
	for k, v := range s.totals {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStatsStore) Recent(_ context.Context, since, until time.Time) (map[domain.EventKind]int64, error) {
	out := make(map[domain.EventKind]int64)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range bucketMinutes(since, until) {
		for k, v := range s.minutes[m] {
			out[k] += v
		}
	}
	return out, nil
}
