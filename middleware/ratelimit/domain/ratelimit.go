package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"time"
)

type Key string

// RateLimiter decide se uma tentativa identificada por Key pode seguir agora.
//
// A implementação pode ser janela fixa (em memória ou Redis), token bucket
// (golang.org/x/time/rate), etc. Um erro significa que a decisão não pôde ser
// tomada (ex.: backend fora do ar); a camada application decide o que fazer.
type RateLimiter interface {
	Allow(ctx context.Context, key Key) (Decision, error)
}

type Decision struct {
	Allowed bool

	// Limit e Remaining descrevem a janela atual. Limit=0 quando o limiter
	// não trabalha com contagem (ex.: token bucket).
	Limit     int
	Remaining int
	// ResetAt é quando a janela atual expira. Zero quando desconhecido.
	ResetAt time.Time

	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}
