package domain

import "errors"

var (
	// ErrInvalidEmail: entrada com formato inválido, o usuário pode corrigir (400).
	ErrInvalidEmail = errors.New("invalid email")
	// ErrUnauthorized: segredo de admin ausente ou incorreto (401).
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound: código ou email não existe (404).
	ErrNotFound = errors.New("not found")
	// ErrRateLimited: muitas tentativas, tente mais tarde (429).
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable: falha transitória do KV (500).
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrCodeSpaceExhausted: colisões demais ao gerar código de indicação.
	// É erro de configuração, não do usuário.
	ErrCodeSpaceExhausted = errors.New("referral code space exhausted")
)
