package ratelimit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"waitlist-service/middleware/ratelimit/domain"
	"waitlist-service/middleware/ratelimit/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doRequest(h http.Handler, remoteAddr, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "http://example/api/waitlist/join", strings.NewReader(body))
	r.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestMiddleware_SixthJoinFromSameClientRejected(t *testing.T) {
	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})

	h := Middleware(Options{
		Limiter:             infra.NewWindowStore(5, time.Hour),
		RejectMessage:       "Too many requests. Please try again later.",
		AddRateLimitHeaders: true,
	})(next)

	// payload inválido também conta
	for i := 0; i < 5; i++ {
		w := doRequest(h, "10.0.0.1:1234", `{"email":"not-an-email"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Key"))
	}

	w := doRequest(h, "10.0.0.1:1234", `{"email":"a@x.com"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"Too many requests. Please try again later."}`, w.Body.String())
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, 5, calls, "expected next handler to be called five times")

	// outro cliente não é afetado
	w = doRequest(h, "10.0.0.2:1234", `{"email":"a@x.com"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddleware_KeyByHeader(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	h := Middleware(Options{
		Limiter:   infra.NewBucketStore(0.02, 1),
		KeyHeader: "X-Api-Key",
	})(next)

	// duas chaves diferentes => ambos devem passar (cada chave tem seu próprio limiter)
	for _, key := range []string{"k1", "k2"} {
		r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
		r.Header.Set("X-Api-Key", key)
		r.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equalf(t, http.StatusOK, w.Code, "key %s", key)
	}
}

func TestMiddleware_BucketHeaders(t *testing.T) {
	h := Middleware(Options{
		Limiter:             infra.NewBucketStore(2, 3),
		AddRateLimitHeaders: true,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := doRequest(h, "10.0.0.1:1234", "")
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-RPS"))
	assert.Equal(t, "3", w.Header().Get("X-RateLimit-Burst"))
}

func TestMiddleware_RetryAfterRoundsUp(t *testing.T) {
	h := Middleware(Options{
		Limiter:    infra.NewBucketStore(0.0001, 1),
		RetryAfter: 2500 * time.Millisecond,
		KeyFn:      func(*http.Request) string { return "fixed" },
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	require.Equal(t, http.StatusOK, doRequest(h, "", "").Code)

	w := doRequest(h, "", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "10000", strings.TrimSpace(w.Header().Get("Retry-After")))
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, domain.Key) (domain.Decision, error) {
	return domain.Decision{}, errors.New("backend down")
}

func TestMiddleware_FailsOpenAndReportsError(t *testing.T) {
	var reported error
	h := Middleware(Options{
		Limiter: failingLimiter{},
		OnDecision: func(r *http.Request, key domain.Key, dec domain.Decision, err error) {
			reported = err
		},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	w := doRequest(h, "10.0.0.1:1234", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualError(t, reported, "backend down")
}

func TestMiddleware_CustomReject(t *testing.T) {
	var got domain.Decision
	h := Middleware(Options{
		Limiter: infra.NewWindowStore(1, time.Minute),
		KeyFn:   func(*http.Request) string { return "fixed" },
		Reject: func(w http.ResponseWriter, r *http.Request, dec domain.Decision) {
			got = dec
			w.WriteHeader(http.StatusTeapot)
		},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	require.Equal(t, http.StatusOK, doRequest(h, "", "").Code)

	w := doRequest(h, "", "")
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.False(t, got.Allowed)
	assert.Equal(t, 1, got.Limit)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, retryAfterSeconds(0))
	assert.Equal(t, 1, retryAfterSeconds(300*time.Millisecond))
	assert.Equal(t, 3, retryAfterSeconds(2500*time.Millisecond))
	assert.Equal(t, 3600, retryAfterSeconds(time.Hour))
}
