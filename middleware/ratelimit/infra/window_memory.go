package infra

import (
	"context"
	"sync"
	"time"

	"waitlist-service/middleware/ratelimit/domain"
)

// WindowStore é um limiter de janela fixa em memória: no máximo `limit`
// tentativas por chave a cada `window`, contando a partir da primeira.
//
// O estado é local ao processo e some num restart. Com várias instâncias
// atrás de um balanceador, use RedisWindowStore.
type WindowStore struct {
	mu           sync.Mutex
	entries      map[string]*windowEntry
	limit        int
	window       time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

type WindowOption func(*WindowStore)

func WithWindowCleanupEvery(d time.Duration) WindowOption {
	return func(s *WindowStore) { s.cleanupEvery = d }
}

// WithWindowClock troca o relógio (útil em testes).
func WithWindowClock(now func() time.Time) WindowOption {
	return func(s *WindowStore) { s.now = now }
}

func NewWindowStore(limit int, window time.Duration, opts ...WindowOption) *WindowStore {
	s := &WindowStore{
		entries:      make(map[string]*windowEntry),
		limit:        limit,
		window:       window,
		cleanupEvery: 5 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WindowStore) Limit() int             { return s.limit }
func (s *WindowStore) Window() time.Duration { return s.window }

// Allow implementa domain.RateLimiter.
//
// Sem registro ou com a janela vencida: zera para 1 e abre nova janela.
// Abaixo do limite: incrementa e permite. No limite: nega sem incrementar.
func (s *WindowStore) Allow(_ context.Context, key domain.Key) (domain.Decision, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[string(key)]
	if !ok || now.After(ent.resetAt) {
		ent = &windowEntry{count: 1, resetAt: now.Add(s.window)}
		s.entries[string(key)] = ent
		return s.decision(true, ent), nil
	}

	if ent.count >= s.limit {
		return s.decision(false, ent), nil
	}
	ent.count++
	return s.decision(true, ent), nil
}

func (s *WindowStore) decision(allowed bool, ent *windowEntry) domain.Decision {
	remaining := s.limit - ent.count
	if remaining < 0 {
		remaining = 0
	}
	return domain.Decision{
		Allowed:   allowed,
		Limit:     s.limit,
		Remaining: remaining,
		ResetAt:   ent.resetAt,
	}
}

// Cleanup remove janelas já vencidas.
func (s *WindowStore) Cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if now.After(ent.resetAt) {
			delete(s.entries, k)
		}
	}
}

// Len retorna quantas chaves estão sendo acompanhadas.
func (s *WindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartJanitor inicia uma goroutine que remove janelas vencidas periodicamente.
// Pare cancelando o contexto.
func (s *WindowStore) StartJanitor(ctx DoneContext) {
	startJanitor(ctx, s.cleanupEvery, s.Cleanup)
}
