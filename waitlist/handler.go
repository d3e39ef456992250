package waitlist

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"time"

	"waitlist-service/middleware/ratelimit"
	rldomain "waitlist-service/middleware/ratelimit/domain"
	"waitlist-service/waitlist/application"
	"waitlist-service/waitlist/domain"

	"github.com/rs/zerolog"
)

// maxBodyBytes limita o corpo de join/delete.
const maxBodyBytes = 4 << 10

// Service é o que os handlers precisam do Engine.
type Service interface {
	Join(ctx context.Context, email any, referredBy string) (domain.JoinResult, error)
	Status(ctx context.Context, code string) (domain.Status, error)
	Entries(ctx context.Context) iter.Seq2[domain.Entry, error]
	Delete(ctx context.Context, email string) (domain.Entry, error)
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Record(ctx context.Context, kind domain.EventKind)
	Totals(ctx context.Context) (map[domain.EventKind]int64, error)
	Recent(ctx context.Context, window time.Duration) (map[domain.EventKind]int64, error)
}

var _ Service = (*application.Engine)(nil)

type HandlerOptions struct {
	Service     Service
	AdminSecret string

	// JoinLimiter conta tentativas de join por cliente (ex.: 5 por hora).
	JoinLimiter rldomain.RateLimiter
	// StatusLimiter segura polling agressivo do status. Opcional.
	StatusLimiter rldomain.RateLimiter

	RateKeyHeader       string
	TrustProxyHeaders   bool
	AddRateLimitHeaders bool

	// InFlight informa requisições em andamento para o /healthz. Opcional.
	InFlight func() int

	Logger zerolog.Logger
}

type handler struct {
	svc      Service
	admin    AdminAuth
	inFlight func() int
	log      zerolog.Logger
}

// NewHandler monta as rotas da waitlist.
func NewHandler(opts HandlerOptions) http.Handler {
	h := &handler{
		svc:      opts.Service,
		admin:    NewAdminAuth(opts.AdminSecret),
		inFlight: opts.InFlight,
		log:      opts.Logger,
	}

	limit := func(lim rldomain.RateLimiter, msg string, next http.HandlerFunc) http.Handler {
		if lim == nil {
			return next
		}
		return ratelimit.Middleware(ratelimit.Options{
			Limiter:             lim,
			KeyHeader:           opts.RateKeyHeader,
			TrustProxyHeaders:   opts.TrustProxyHeaders,
			RejectMessage:       msg,
			AddRateLimitHeaders: opts.AddRateLimitHeaders,
			OnDecision:          h.observeRateLimit,
			Reject:              rejectWith(msg),
		})(next)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/waitlist/join", limit(opts.JoinLimiter, "Too many requests. Please try again later.", h.join))
	mux.Handle("GET /api/waitlist/status", limit(opts.StatusLimiter, "Too many requests. Please slow down.", h.status))
	mux.HandleFunc("GET /api/waitlist/count", h.count)
	mux.HandleFunc("GET /api/waitlist/list", h.list)
	mux.HandleFunc("POST /api/waitlist/delete", h.delete)
	mux.HandleFunc("GET /api/waitlist/stats", h.stats)
	mux.HandleFunc("GET /healthz", h.health)
	return mux
}

func (h *handler) logger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &h.log
}

func (h *handler) observeRateLimit(r *http.Request, key rldomain.Key, dec rldomain.Decision, err error) {
	if err != nil {
		h.logger(r).Warn().Err(err).Str("client", string(key)).Msg("rate limiter unavailable, allowing request")
		return
	}
	if !dec.Allowed {
		h.logger(r).Info().
			Err(domain.ErrRateLimited).
			Str("client", string(key)).
			Str("path", r.URL.Path).
			Time("reset_at", dec.ResetAt).
			Msg("request rejected")
		h.svc.Record(r.Context(), domain.EventRateLimited)
	}
}

// rejectWith responde 429 no mesmo formato {error} das outras rotas.
func rejectWith(msg string) ratelimit.RejectFunc {
	return func(w http.ResponseWriter, _ *http.Request, _ rldomain.Decision) {
		writeError(w, statusOf(domain.ErrRateLimited), msg)
	}
}

type joinRequest struct {
	Email      any `json:"email"`
	ReferredBy any `json:"referredBy"`
}

type joinResponse struct {
	Message      string `json:"message"`
	ReferralCode string `json:"referralCode"`
	Position     int64  `json:"position"`
}

func (h *handler) join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Valid email required")
		return
	}
	referredBy, _ := req.ReferredBy.(string)

	res, err := h.svc.Join(r.Context(), req.Email, referredBy)
	switch {
	case errors.Is(err, domain.ErrInvalidEmail):
		writeError(w, statusOf(err), "Valid email required")
		return
	case err != nil:
		h.logger(r).Error().Err(err).Msg("waitlist join failed")
		writeError(w, statusOf(err), "Failed to join waitlist")
		return
	}

	msg := "Successfully joined waitlist"
	if res.AlreadyJoined {
		msg = "Already on waitlist"
	}
	writeJSON(w, http.StatusOK, joinResponse{
		Message:      msg,
		ReferralCode: res.ReferralCode,
		Position:     res.Position,
	})
}

type statusResponse struct {
	Position      int64  `json:"position"`
	ReferralCount int64  `json:"referralCount"`
	TotalCount    int64  `json:"totalCount"`
	ReferralCode  string `json:"referralCode"`
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("ref")
	if code == "" {
		writeError(w, http.StatusBadRequest, "Referral code required")
		return
	}

	st, err := h.svc.Status(r.Context(), code)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, statusOf(err), "Invalid referral code")
		return
	case err != nil:
		h.logger(r).Error().Err(err).Msg("waitlist status failed")
		writeError(w, statusOf(err), "Failed to get status")
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Position:      st.Position,
		ReferralCount: st.ReferralCount,
		TotalCount:    st.TotalCount,
		ReferralCode:  st.ReferralCode,
	})
}

// count alimenta a landing page: falha do KV vira {count: 0}, nunca erro.
func (h *handler) count(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Count(r.Context())
	if err != nil {
		h.logger(r).Warn().Err(err).Msg("waitlist count unavailable, answering 0")
		n = 0
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

type userView struct {
	Email         string  `json:"email"`
	Position      int64   `json:"position"`
	ReferralCode  string  `json:"referralCode"`
	ReferralCount int64   `json:"referralCount"`
	ReferredBy    *string `json:"referredBy"`
	JoinedAt      string  `json:"joinedAt"`
}

type listResponse struct {
	Users []userView `json:"users"`
	Count int        `json:"count"`
}

// mesmo formato do Date.toISOString
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func newUserView(e domain.Entry) userView {
	v := userView{
		Email:         e.Email,
		Position:      e.Position,
		ReferralCode:  e.ReferralCode,
		ReferralCount: e.ReferralCount,
		JoinedAt:      e.JoinedAt.UTC().Format(isoMillis),
	}
	if e.ReferredBy != "" {
		ref := e.ReferredBy
		v.ReferredBy = &ref
	}
	return v
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.Authorize(r.URL.Query().Get("secret")); err != nil {
		writeError(w, statusOf(err), "Unauthorized")
		return
	}

	users := []userView{}
	for entry, err := range h.svc.Entries(r.Context()) {
		if err != nil {
			h.logger(r).Error().Err(err).Msg("waitlist list failed")
			writeError(w, http.StatusInternalServerError, "Failed to fetch waitlist")
			return
		}
		users = append(users, newUserView(entry))
	}

	writeJSON(w, http.StatusOK, listResponse{Users: users, Count: len(users)})
}

type deleteRequest struct {
	Email string `json:"email"`
}

func (h *handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.Authorize(secretFromAuthorization(r.Header.Get("Authorization"))); err != nil {
		writeError(w, statusOf(err), "Unauthorized")
		return
	}

	var req deleteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "Email required")
		return
	}

	entry, err := h.svc.Delete(r.Context(), req.Email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, statusOf(err), "User not found")
		return
	case err != nil:
		h.logger(r).Error().Err(err).Msg("waitlist delete failed")
		writeError(w, statusOf(err), "Failed to delete user")
		return
	}

	h.logger(r).Info().Str("email", entry.Email).Msg("waitlist entry deleted")
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "User deleted",
		"email":   entry.Email,
	})
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	secret := r.URL.Query().Get("secret")
	if secret == "" {
		secret = secretFromAuthorization(r.Header.Get("Authorization"))
	}
	if err := h.admin.Authorize(secret); err != nil {
		writeError(w, statusOf(err), "Unauthorized")
		return
	}

	var window time.Duration
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < domain.StatsMinute || d > domain.MaxStatsWindow {
			writeError(w, http.StatusBadRequest, "Invalid window")
			return
		}
		window = d
	}

	totals, err := h.svc.Totals(r.Context())
	if err != nil {
		h.logger(r).Error().Err(err).Msg("waitlist stats failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}
	if totals == nil {
		totals = map[domain.EventKind]int64{}
	}
	body := map[string]any{"totals": totals}

	if window > 0 {
		recent, err := h.svc.Recent(r.Context(), window)
		if err != nil {
			h.logger(r).Error().Err(err).Msg("waitlist recent stats failed")
			writeError(w, http.StatusInternalServerError, "Failed to fetch stats")
			return
		}
		if recent == nil {
			recent = map[domain.EventKind]int64{}
		}
		body["window"] = window.String()
		body["recent"] = recent
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := map[string]any{"status": "ok"}
	if h.inFlight != nil {
		body["inFlight"] = h.inFlight()
	}
	if err := h.svc.Ping(ctx); err != nil {
		h.logger(r).Warn().Err(err).Msg("health check failed")
		body["status"] = "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	writeJSON(w, http.StatusOK, body)
}
