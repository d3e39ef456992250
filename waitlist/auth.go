package waitlist

import (
	"crypto/subtle"
	"strings"

	"waitlist-service/waitlist/domain"
)

// AdminAuth compara o segredo compartilhado de administração.
// Segredo vazio na configuração nega tudo.
type AdminAuth struct {
	secret string
}

func NewAdminAuth(secret string) AdminAuth {
	return AdminAuth{secret: secret}
}

func (a AdminAuth) Authorize(candidate string) error {
	if a.secret == "" || candidate == "" {
		return domain.ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(a.secret)) != 1 {
		return domain.ErrUnauthorized
	}
	return nil
}

// secretFromAuthorization aceita "Bearer <segredo>" ou o segredo cru.
func secretFromAuthorization(header string) string {
	if v, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(header)
}
