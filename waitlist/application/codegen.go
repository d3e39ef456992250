package application

import (
	"crypto/rand"
	"fmt"
	"io"
)

const (
	// CodeLength é o tamanho dos códigos de indicação.
	CodeLength = 8
	// CodeAlphabet tem 32 símbolos, sem I, O, 0 e 1 (fáceis de confundir).
	// 256 é múltiplo de 32, então byte%32 não tem viés.
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// CodeGenerator produz candidatos a código de indicação. Não garante
// unicidade: o Engine confere no índice reverso e tenta de novo se colidir.
type CodeGenerator interface {
	Generate() (string, error)
}

// RandomCodes gera códigos com crypto/rand.
type RandomCodes struct {
	// Reader substitui a fonte aleatória; nil usa crypto/rand.Reader.
	Reader io.Reader
}

func (g RandomCodes) Generate() (string, error) {
	r := g.Reader
	if r == nil {
		r = rand.Reader
	}

	buf := make([]byte, CodeLength)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = CodeAlphabet[int(b)%len(CodeAlphabet)]
	}
	return string(buf), nil
}
