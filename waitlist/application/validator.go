package application

import (
	"regexp"
	"strings"
)

// MaxEmailLength é o limite de tamanho de um endereço (RFC 5321).
const MaxEmailLength = 254

// parte local com os caracteres permitidos, "@", e domínio com pelo menos
// dois labels de 1-63 caracteres que não começam nem terminam com hífen
var emailPattern = regexp.MustCompile(
	"^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+" +
		"@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?" +
		"(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$",
)

// EmailValidator decide se um valor recebido do cliente é um email aceitável.
type EmailValidator interface {
	Valid(candidate any) bool
}

// StrictEmail é o validador padrão; veja ValidEmail.
type StrictEmail struct{}

func (StrictEmail) Valid(candidate any) bool { return ValidEmail(candidate) }

// ValidEmail rejeita valores que não são string, strings vazias, maiores que
// MaxEmailLength ou fora do padrão. Não normaliza: espaços em volta reprovam.
func ValidEmail(candidate any) bool {
	s, ok := candidate.(string)
	if !ok || s == "" || len(s) > MaxEmailLength {
		return false
	}
	return emailPattern.MatchString(s)
}

// NormalizeEmail é a forma usada como chave no KV.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
