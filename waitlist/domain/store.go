package domain

import "context"

// KV é a porta para o key-value store externo (Redis, Vercel KV, memória).
//
// Cada chamada é atômica apenas na sua própria chave; não existe transação
// entre chaves. ok=false indica chave/campo inexistente.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error

	HGet(ctx context.Context, key, field string) (value string, ok bool, err error)
	HSet(ctx context.Context, key, field, value string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key, field string) error

	Ping(ctx context.Context) error
}

// Keys são os nomes lógicos usados no KV.
type Keys struct {
	Emails string // hash: email normalizado -> registro JSON
	Codes  string // hash: código de indicação -> email
	Count  string // escalar: total de entradas já criadas
}

// NewKeys monta os nomes a partir de um prefixo (ex.: "waitlist").
func NewKeys(prefix string) Keys {
	if prefix == "" {
		prefix = "waitlist"
	}
	return Keys{
		Emails: prefix + ":emails",
		Codes:  prefix + ":codes",
		Count:  prefix + ":count",
	}
}
