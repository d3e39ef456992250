// Package requestlog atribui um request id (xid) a cada requisição, coloca um
// logger zerolog com esse id no contexto e registra uma linha de acesso ao fim.
package requestlog

import (
	"net/http"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
)

const Header = "X-Request-ID"

// maxIDLen descarta ids recebidos absurdamente longos.
const maxIDLen = 64

type statusWriter struct {
	http.ResponseWriter
	status  int
	written int64
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Middleware não registra corpo de requisição nem de resposta.
// Use zerolog.Ctx(r.Context()) nos handlers para logar com o request id.
func Middleware(base zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(Header)
			if id == "" || len(id) > maxIDLen {
				id = xid.New().String()
			}
			w.Header().Set(Header, id)

			logger := base.With().
				Str("request_id", id).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Logger()
			r = r.WithContext(logger.WithContext(r.Context()))

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			ev := logger.Info()
			if sw.status >= http.StatusInternalServerError {
				ev = logger.Error()
			}
			ev.Int("status", sw.status).
				Int64("bytes", sw.written).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Msg("request")
		})
	}
}

// ID devolve o request id que o Middleware colocou na resposta.
func ID(w http.ResponseWriter) string {
	return w.Header().Get(Header)
}
