package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"waitlist-service/middleware/ratelimit/application"
	"waitlist-service/middleware/ratelimit/domain"
)

type KeyFunc func(r *http.Request) string

// DecisionFunc é chamado a cada decisão (ex.: para log/estatística).
// err != nil indica que o limiter falhou e a requisição passou mesmo assim.
type DecisionFunc func(r *http.Request, key domain.Key, dec domain.Decision, err error)

// RejectFunc escreve a resposta de uma requisição negada. O Retry-After já
// está no header quando ela é chamada.
type RejectFunc func(w http.ResponseWriter, r *http.Request, dec domain.Decision)

type Options struct {
	Limiter             domain.RateLimiter
	KeyFn               KeyFunc
	KeyHeader           string
	TrustProxyHeaders   bool
	RejectStatus        int
	RejectMessage       string
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
	OnDecision          DecisionFunc
	// Reject substitui o corpo JSON padrão do 429. Opcional.
	Reject RejectFunc
}

type bucketInfo interface {
	RPS() float64
	Burst() int
}

// cabeçalhos de IP do cliente preenchidos por proxies, em ordem de preferência
var proxyIPHeaders = []string{"X-Vercel-Forwarded-For", "X-Real-IP", "X-Forwarded-For"}

func DefaultKeyFunc(keyHeader string, trustProxy bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustProxy {
			// pega o primeiro IP da lista (cliente original)
			for _, h := range proxyIPHeaders {
				if v := r.Header.Get(h); v != "" {
					if ip := strings.TrimSpace(strings.Split(v, ",")[0]); ip != "" {
						return ip
					}
				}
			}
		}

		// fallback: RemoteAddr
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.RejectMessage == "" {
		opts.RejectMessage = http.StatusText(opts.RejectStatus)
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustProxyHeaders)
	}

	svc := application.Service{
		Limiter:    opts.Limiter,
		RetryAfter: opts.RetryAfter,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := domain.Key(opts.KeyFn(r))

			dec, err := svc.Decide(r.Context(), key)
			if opts.OnDecision != nil {
				opts.OnDecision(r, key, dec, err)
			}
			if opts.AddRateLimitHeaders {
				writeRateLimitHeaders(w, opts.Limiter, key, dec)
			}
			if !dec.Allowed {
				w.Header().Set("Retry-After", formatInt(retryAfterSeconds(dec.RetryAfter)))
				if opts.Reject != nil {
					opts.Reject(w, r, dec)
					return
				}
				writeReject(w, opts.RejectStatus, opts.RejectMessage)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeRateLimitHeaders(w http.ResponseWriter, lim domain.RateLimiter, key domain.Key, dec domain.Decision) {
	h := w.Header()
	h.Set("X-RateLimit-Key", string(key))
	if dec.Limit > 0 {
		h.Set("X-RateLimit-Limit", formatInt(dec.Limit))
		h.Set("X-RateLimit-Remaining", formatInt(dec.Remaining))
	}
	if !dec.ResetAt.IsZero() {
		h.Set("X-RateLimit-Reset", formatInt(int(dec.ResetAt.Unix())))
	}
	if bi, ok := lim.(bucketInfo); ok {
		h.Set("X-RateLimit-RPS", formatFloat(bi.RPS()))
		h.Set("X-RateLimit-Burst", formatInt(bi.Burst()))
	}
}

// retryAfterSeconds arredonda para cima: "Retry-After: 0" faria o cliente
// tentar de novo imediatamente.
func retryAfterSeconds(d time.Duration) int {
	s := int(d / time.Second)
	if d%time.Second != 0 {
		s++
	}
	if s < 1 {
		s = 1
	}
	return s
}

func writeReject(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
