package domain

import "time"

// ReferralStep é quantas posições um referrer sobe a cada indicação creditada.
const ReferralStep = 100

// Entry é o registro de um participante da waitlist, um por email normalizado.
//
// Position é um ranking relativo: menor é melhor, pode repetir e não é contíguo.
type Entry struct {
	Email         string
	ReferralCode  string
	Position      int64
	ReferredBy    string // vazio quando não veio de indicação
	ReferralCount int64
	JoinedAt      time.Time
}

// Credit aplica uma indicação: +1 no contador e sobe ReferralStep posições,
// nunca abaixo de 1.
func (e Entry) Credit() Entry {
	e.ReferralCount++
	e.Position -= ReferralStep
	if e.Position < 1 {
		e.Position = 1
	}
	return e
}

// JoinResult é o que o participante recebe ao entrar (ou reentrar) na lista.
type JoinResult struct {
	ReferralCode  string
	Position      int64
	AlreadyJoined bool
	// Credited indica que o código de indicação informado foi creditado.
	Credited bool
}

// Status é a visão de polling de um participante.
type Status struct {
	ReferralCode  string
	Position      int64
	ReferralCount int64
	TotalCount    int64
}
