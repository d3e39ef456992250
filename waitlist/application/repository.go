package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"waitlist-service/waitlist/domain"
)

// entryRecord é o formato JSON gravado no hash de emails. joinedAt em ms
// desde a época e referredBy nulo quando não houve indicação, compatível
// com os dados já existentes no KV.
type entryRecord struct {
	Email         string  `json:"email"`
	ReferralCode  string  `json:"referralCode"`
	Position      int64   `json:"position"`
	ReferredBy    *string `json:"referredBy"`
	ReferralCount int64   `json:"referralCount"`
	JoinedAt      int64   `json:"joinedAt"`
}

func recordFromEntry(e domain.Entry) entryRecord {
	rec := entryRecord{
		Email:         e.Email,
		ReferralCode:  e.ReferralCode,
		Position:      e.Position,
		ReferralCount: e.ReferralCount,
		JoinedAt:      e.JoinedAt.UnixMilli(),
	}
	if e.ReferredBy != "" {
		ref := e.ReferredBy
		rec.ReferredBy = &ref
	}
	return rec
}

func (r entryRecord) entry() domain.Entry {
	e := domain.Entry{
		Email:         r.Email,
		ReferralCode:  r.ReferralCode,
		Position:      r.Position,
		ReferralCount: r.ReferralCount,
		JoinedAt:      time.UnixMilli(r.JoinedAt).UTC(),
	}
	if r.ReferredBy != nil {
		e.ReferredBy = *r.ReferredBy
	}
	return e
}

func decodeEntry(raw string) (domain.Entry, error) {
	var rec entryRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return domain.Entry{}, fmt.Errorf("decode entry: %w", err)
	}
	return rec.entry(), nil
}

// repository traduz entradas/contador para chamadas ao KV. Cada método faz
// no máximo uma chamada; combinar chamadas é responsabilidade do Engine.
type repository struct {
	kv   domain.KV
	keys domain.Keys
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

func (r repository) entry(ctx context.Context, email string) (domain.Entry, bool, error) {
	raw, ok, err := r.kv.HGet(ctx, r.keys.Emails, email)
	if err != nil {
		return domain.Entry{}, false, storeErr("read entry", err)
	}
	if !ok {
		return domain.Entry{}, false, nil
	}
	e, err := decodeEntry(raw)
	if err != nil {
		return domain.Entry{}, false, fmt.Errorf("entry %q: %w", email, err)
	}
	return e, true, nil
}

func (r repository) putEntry(ctx context.Context, e domain.Entry) error {
	raw, err := json.Marshal(recordFromEntry(e))
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	if err := r.kv.HSet(ctx, r.keys.Emails, e.Email, string(raw)); err != nil {
		return storeErr("write entry", err)
	}
	return nil
}

func (r repository) deleteEntry(ctx context.Context, email string) error {
	if err := r.kv.HDel(ctx, r.keys.Emails, email); err != nil {
		return storeErr("delete entry", err)
	}
	return nil
}

// allEntries devolve os registros brutos; a decodificação fica com quem chama.
func (r repository) allEntries(ctx context.Context) (map[string]string, error) {
	all, err := r.kv.HGetAll(ctx, r.keys.Emails)
	if err != nil {
		return nil, storeErr("read entries", err)
	}
	return all, nil
}

func (r repository) codeOwner(ctx context.Context, code string) (string, bool, error) {
	email, ok, err := r.kv.HGet(ctx, r.keys.Codes, code)
	if err != nil {
		return "", false, storeErr("read code index", err)
	}
	return email, ok, nil
}

func (r repository) putCode(ctx context.Context, code, email string) error {
	if err := r.kv.HSet(ctx, r.keys.Codes, code, email); err != nil {
		return storeErr("write code index", err)
	}
	return nil
}

func (r repository) deleteCode(ctx context.Context, code string) error {
	if err := r.kv.HDel(ctx, r.keys.Codes, code); err != nil {
		return storeErr("delete code index", err)
	}
	return nil
}

// count devolve 0 quando o contador ainda não existe.
func (r repository) count(ctx context.Context) (int64, error) {
	raw, ok, err := r.kv.Get(ctx, r.keys.Count)
	if err != nil {
		return 0, storeErr("read count", err)
	}
	if !ok || raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse count %q: %w", raw, err)
	}
	return n, nil
}

func (r repository) setCount(ctx context.Context, n int64) error {
	if err := r.kv.Set(ctx, r.keys.Count, strconv.FormatInt(n, 10)); err != nil {
		return storeErr("write count", err)
	}
	return nil
}
