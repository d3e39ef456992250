package application

import (
	"context"
	"time"

	"waitlist-service/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
// O limiter é uma proteção best-effort: se o backend falhar, a tentativa passa
// e o erro é devolvido para quem chamou registrar.
type Service struct {
	Limiter    domain.RateLimiter
	RetryAfter time.Duration
	Now        func() time.Time
}

func (s Service) Decide(ctx context.Context, key domain.Key) (domain.Decision, error) {
	if s.Limiter == nil {
		return domain.Decision{Allowed: true}, nil
	}
	if s.RetryAfter <= 0 {
		s.RetryAfter = 1 * time.Second
	}
	if s.Now == nil {
		s.Now = time.Now
	}

	dec, err := s.Limiter.Allow(ctx, key)
	if err != nil {
		return domain.Decision{Allowed: true}, err
	}
	if dec.Allowed {
		dec.RetryAfter = 0
		return dec, nil
	}

	// janela conhecida: espera até o reset; senão usa o padrão configurado
	if !dec.ResetAt.IsZero() {
		if wait := dec.ResetAt.Sub(s.Now()); wait > 0 {
			dec.RetryAfter = wait
		}
	}
	if dec.RetryAfter <= 0 {
		dec.RetryAfter = s.RetryAfter
	}
	return dec, nil
}
