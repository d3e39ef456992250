package application

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"time"

	"waitlist-service/waitlist/domain"

	"github.com/rs/zerolog"
)

// DefaultMaxCodeAttempts limita as tentativas de gerar um código sem colisão.
const DefaultMaxCodeAttempts = 10

// Engine guarda as regras de posição, crédito de indicação e consulta da waitlist.
// É seguro para uso concorrente; todo estado compartilhado vive no KV.
type Engine struct {
	repo            repository
	codes           CodeGenerator
	validator       EmailValidator
	stats           domain.StatsStore
	log             zerolog.Logger
	now             func() time.Time
	maxCodeAttempts int
}

type EngineOption func(*Engine)

func WithKeys(keys domain.Keys) EngineOption {
	return func(e *Engine) { e.repo.keys = keys }
}

func WithCodeGenerator(g CodeGenerator) EngineOption {
	return func(e *Engine) { e.codes = g }
}

func WithValidator(v EmailValidator) EngineOption {
	return func(e *Engine) { e.validator = v }
}

func WithStats(s domain.StatsStore) EngineOption {
	return func(e *Engine) { e.stats = s }
}

func WithLogger(l zerolog.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func WithMaxCodeAttempts(n int) EngineOption {
	return func(e *Engine) { e.maxCodeAttempts = n }
}

func NewEngine(kv domain.KV, opts ...EngineOption) *Engine {
	e := &Engine{
		repo:            repository{kv: kv, keys: domain.NewKeys("")},
		codes:           RandomCodes{},
		validator:       StrictEmail{},
		log:             zerolog.Nop(),
		now:             time.Now,
		maxCodeAttempts: DefaultMaxCodeAttempts,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Join coloca email na waitlist, opcionalmente creditando quem indicou.
//
// Reentrar com o mesmo email devolve a atribuição original com
// AlreadyJoined=true. Email inválido retorna domain.ErrInvalidEmail sem
// nenhuma gravação. Falhas no crédito da indicação nunca falham o join.
func (e *Engine) Join(ctx context.Context, email any, referredBy string) (domain.JoinResult, error) {
	if !e.validator.Valid(email) {
		e.record(ctx, domain.EventInvalidEmail)
		return domain.JoinResult{}, domain.ErrInvalidEmail
	}
	raw, _ := email.(string)
	normalized := NormalizeEmail(raw)

	existing, ok, err := e.repo.entry(ctx, normalized)
	if err != nil {
		return domain.JoinResult{}, err
	}
	if ok {
		e.record(ctx, domain.EventAlreadyJoined)
		return domain.JoinResult{
			ReferralCode:  existing.ReferralCode,
			Position:      existing.Position,
			AlreadyJoined: true,
		}, nil
	}

	// leitura e escrita do contador não são atômicas: joins simultâneos
	// podem repetir a mesma posição
	count, err := e.repo.count(ctx)
	if err != nil {
		return domain.JoinResult{}, err
	}
	position := count + 1

	code, err := e.newCode(ctx)
	if err != nil {
		return domain.JoinResult{}, err
	}

	referrer := e.resolveReferrer(ctx, referredBy, normalized)

	entry := domain.Entry{
		Email:        normalized,
		ReferralCode: code,
		Position:     position,
		JoinedAt:     e.now().UTC(),
	}
	if referrer != "" {
		entry.ReferredBy = referredBy
	}

	if err := e.repo.putEntry(ctx, entry); err != nil {
		return domain.JoinResult{}, err
	}
	if err := e.repo.putCode(ctx, code, normalized); err != nil {
		return domain.JoinResult{}, err
	}
	if err := e.repo.setCount(ctx, position); err != nil {
		return domain.JoinResult{}, err
	}
	e.record(ctx, domain.EventJoined)

	res := domain.JoinResult{ReferralCode: code, Position: position}
	if referrer != "" {
		res.Credited = e.credit(ctx, referrer)
	}
	return res, nil
}

// newCode gera um código que ainda não está no índice reverso.
func (e *Engine) newCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < e.maxCodeAttempts; attempt++ {
		code, err := e.codes.Generate()
		if err != nil {
			return "", fmt.Errorf("generate referral code: %w", err)
		}
		_, taken, err := e.repo.codeOwner(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
		e.log.Warn().Str("code", code).Int("attempt", attempt+1).Msg("referral code collision")
	}
	return "", fmt.Errorf("%w after %d attempts", domain.ErrCodeSpaceExhausted, e.maxCodeAttempts)
}

// resolveReferrer devolve o email dono do código, ou "" quando não há
// indicação válida. Erros são registrados e engolidos.
func (e *Engine) resolveReferrer(ctx context.Context, code, joining string) string {
	if code == "" {
		return ""
	}
	email, ok, err := e.repo.codeOwner(ctx, code)
	if err != nil {
		e.log.Warn().Err(err).Str("referred_by", code).Msg("referral lookup failed")
		e.record(ctx, domain.EventReferralIgnored)
		return ""
	}
	if !ok || email == joining {
		e.record(ctx, domain.EventReferralIgnored)
		return ""
	}
	return email
}

// credit relê e regrava o registro inteiro do referrer, sem isolamento:
// dois créditos simultâneos podem perder um (last write wins).
func (e *Engine) credit(ctx context.Context, referrerEmail string) bool {
	referrer, ok, err := e.repo.entry(ctx, referrerEmail)
	if err != nil || !ok {
		if err != nil {
			e.log.Warn().Err(err).Str("referrer", referrerEmail).Msg("referral credit read failed")
		}
		e.record(ctx, domain.EventReferralIgnored)
		return false
	}

	credited := referrer.Credit()
	if err := e.repo.putEntry(ctx, credited); err != nil {
		e.log.Warn().Err(err).Str("referrer", referrerEmail).Msg("referral credit write failed")
		e.record(ctx, domain.EventReferralIgnored)
		return false
	}

	e.log.Debug().
		Str("referrer", referrerEmail).
		Int64("position", credited.Position).
		Int64("referral_count", credited.ReferralCount).
		Msg("referral credited")
	e.record(ctx, domain.EventReferralCredited)
	return true
}

// Status resolve código -> email -> entrada e devolve os campos atuais e o
// total. Sempre lê o KV; não há cache.
func (e *Engine) Status(ctx context.Context, code string) (domain.Status, error) {
	if code == "" {
		return domain.Status{}, domain.ErrNotFound
	}
	email, ok, err := e.repo.codeOwner(ctx, code)
	if err != nil {
		return domain.Status{}, err
	}
	if !ok {
		return domain.Status{}, fmt.Errorf("referral code %q: %w", code, domain.ErrNotFound)
	}

	entry, ok, err := e.repo.entry(ctx, email)
	if err != nil {
		return domain.Status{}, err
	}
	if !ok {
		// índice reverso sem a entrada (gravação interrompida)
		return domain.Status{}, fmt.Errorf("entry for code %q: %w", code, domain.ErrNotFound)
	}

	total, err := e.repo.count(ctx)
	if err != nil {
		return domain.Status{}, err
	}
	return domain.Status{
		ReferralCode:  entry.ReferralCode,
		Position:      entry.Position,
		ReferralCount: entry.ReferralCount,
		TotalCount:    total,
	}, nil
}

// Entries percorre todas as entradas em ordem crescente de posição. Cada
// iteração relê o KV, então a sequência pode ser reiniciada e sempre reflete
// o estado mais recente. Um erro de leitura é entregue como único elemento.
//
// Autorização é responsabilidade de quem chama.
func (e *Engine) Entries(ctx context.Context) iter.Seq2[domain.Entry, error] {
	return func(yield func(domain.Entry, error) bool) {
		entries, err := e.sortedEntries(ctx)
		if err != nil {
			yield(domain.Entry{}, err)
			return
		}
		for _, entry := range entries {
			if !yield(entry, nil) {
				return
			}
		}
	}
}

// List coleta Entries.
func (e *Engine) List(ctx context.Context) ([]domain.Entry, error) {
	var out []domain.Entry
	for entry, err := range e.Entries(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func (e *Engine) sortedEntries(ctx context.Context) ([]domain.Entry, error) {
	all, err := e.repo.allEntries(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.Entry, 0, len(all))
	for email, raw := range all {
		entry, err := decodeEntry(raw)
		if err != nil {
			e.log.Warn().Err(err).Str("email", email).Msg("skipping unreadable entry")
			continue
		}
		entries = append(entries, entry)
	}

	// empate de posição: quem entrou antes fica na frente
	slices.SortFunc(entries, func(a, b domain.Entry) int {
		return cmp.Or(
			cmp.Compare(a.Position, b.Position),
			a.JoinedAt.Compare(b.JoinedAt),
			cmp.Compare(a.Email, b.Email),
		)
	})
	return entries, nil
}

// Delete remove a entrada e o índice reverso. Não renumera ninguém, não
// decrementa o contador e não desfaz créditos já aplicados.
func (e *Engine) Delete(ctx context.Context, email string) (domain.Entry, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return domain.Entry{}, domain.ErrNotFound
	}

	entry, ok, err := e.repo.entry(ctx, normalized)
	if err != nil {
		return domain.Entry{}, err
	}
	if !ok {
		return domain.Entry{}, fmt.Errorf("email %q: %w", normalized, domain.ErrNotFound)
	}

	if err := e.repo.deleteEntry(ctx, normalized); err != nil {
		return domain.Entry{}, err
	}
	if entry.ReferralCode != "" {
		if err := e.repo.deleteCode(ctx, entry.ReferralCode); err != nil {
			return domain.Entry{}, err
		}
	}
	e.record(ctx, domain.EventDeleted)
	return entry, nil
}

// Count devolve o total de entradas já criadas (não diminui com Delete).
func (e *Engine) Count(ctx context.Context) (int64, error) {
	return e.repo.count(ctx)
}

// Ping verifica se o KV responde.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.repo.kv.Ping(ctx); err != nil {
		return storeErr("ping", err)
	}
	return nil
}

// Record registra um evento externo ao Engine (ex.: rate limit na borda).
func (e *Engine) Record(ctx context.Context, kind domain.EventKind) {
	e.record(ctx, kind)
}

// Totals devolve os contadores de eventos, ou nil se não há StatsStore.
func (e *Engine) Totals(ctx context.Context) (map[domain.EventKind]int64, error) {
	if e.stats == nil {
		return nil, nil
	}
	return e.stats.Totals(ctx)
}

// Recent soma os eventos dos últimos `window` (granularidade de minuto), ou
// nil se não há StatsStore.
func (e *Engine) Recent(ctx context.Context, window time.Duration) (map[domain.EventKind]int64, error) {
	if e.stats == nil {
		return nil, nil
	}
	until := e.now()
	return e.stats.Recent(ctx, until.Add(-window), until)
}

func (e *Engine) record(ctx context.Context, kind domain.EventKind) {
	if e.stats == nil {
		return
	}
	err := e.stats.Record(ctx, domain.StatsEvent{Kind: kind, At: e.now()})
	if err != nil && !errors.Is(err, context.Canceled) {
		e.log.Debug().Err(err).Str("event", string(kind)).Msg("stats record failed")
	}
}
