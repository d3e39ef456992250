package waitlist

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"waitlist-service/waitlist/domain"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{domain.ErrInvalidEmail, http.StatusBadRequest},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("email %q: %w", "a@x.com", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrRateLimited, http.StatusTooManyRequests},
		{fmt.Errorf("hget: %w: %w", domain.ErrStoreUnavailable, errors.New("timeout")), http.StatusInternalServerError},
		{domain.ErrCodeSpaceExhausted, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, statusOf(tt.err), "err %v", tt.err)
	}
}
