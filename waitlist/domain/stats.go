package domain

import (
	"context"
	"time"
)

// EventKind classifica o que aconteceu numa requisição da waitlist.
type EventKind string

const (
	EventJoined           EventKind = "joined"
	EventAlreadyJoined    EventKind = "already_joined"
	EventInvalidEmail     EventKind = "invalid_email"
	EventReferralCredited EventKind = "referral_credited"
	EventReferralIgnored  EventKind = "referral_ignored"
	EventRateLimited      EventKind = "rate_limited"
	EventDeleted          EventKind = "deleted"
)

// StatsEvent é um evento agregado em contadores. Não carrega email nem IP
// para não explodir a cardinalidade das chaves.
type StatsEvent struct {
	Kind EventKind
	At   time.Time
}

// StatsStore é a estratégia de persistência dos contadores de eventos.
//
// Quem grava deve tratar erro como best-effort (não derrubar a requisição).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
	Totals(ctx context.Context) (map[EventKind]int64, error)
	// Recent soma os buckets por minuto de since até until, inclusive.
	// Sem buckets (desligados ou expirados) devolve um mapa vazio.
	Recent(ctx context.Context, since, until time.Time) (map[EventKind]int64, error)
}

// StatsMinute é a granularidade dos buckets.
const StatsMinute = time.Minute

// MaxStatsWindow limita quantos buckets uma consulta Recent pode somar.
const MaxStatsWindow = 24 * time.Hour
