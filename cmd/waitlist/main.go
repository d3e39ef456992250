package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"waitlist-service/config"
	"waitlist-service/middleware/ratelimit"
	rldomain "waitlist-service/middleware/ratelimit/domain"
	rlinfra "waitlist-service/middleware/ratelimit/infra"
	"waitlist-service/middleware/requestlog"
	"waitlist-service/waitlist"
	"waitlist-service/waitlist/application"
	"waitlist-service/waitlist/domain"
	"waitlist-service/waitlist/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv, closeFn, err := newServer(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}
	defer closeFn()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().
		Str("addr", cfg.ListenAddr).
		Str("store", cfg.StoreBackend).
		Str("join_rate_backend", cfg.JoinRateBackend).
		Int("join_rate_limit", cfg.JoinRateLimit).
		Dur("join_rate_window", cfg.JoinRateWindow).
		Float64("status_rps", cfg.StatusRateRPS).
		Int("status_burst", cfg.StatusRateBurst).
		Int("concurrency_max", cfg.ConcurrencyMax).
		Bool("stats", cfg.StatsEnabled).
		Msg("waitlist listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("waitlist stopped")
}

// newServer monta o servidor HTTP com todas as dependências. As goroutines
// de limpeza param quando ctx encerra; closeFn libera o cliente Redis.
func newServer(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*http.Server, func(), error) {
	closeFn := func() {}

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		closeFn = func() { _ = rdb.Close() }

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
	}

	var kv domain.KV
	var stats domain.StatsStore
	switch cfg.StoreBackend {
	case config.BackendRedis:
		kv = infra.NewRedisKV(rdb)
		if cfg.StatsEnabled {
			stats = infra.NewRedisStatsStore(
				rdb,
				infra.WithStatsPrefix(cfg.KeyPrefix+":stats"),
				infra.WithStatsTTL(cfg.StatsTTL),
				infra.WithStatsBucket(cfg.StatsBucket),
			)
		}
	default:
		logger.Warn().Msg("memory store selected, data is lost on restart")
		kv = infra.NewMemoryKV()
		if cfg.StatsEnabled {
			stats = infra.NewMemoryStatsStore(infra.WithMemoryStatsTTL(cfg.StatsTTL))
		}
	}

	opts := []application.EngineOption{
		application.WithKeys(domain.NewKeys(cfg.KeyPrefix)),
		application.WithLogger(logger),
	}
	if stats != nil {
		opts = append(opts, application.WithStats(stats))
	}
	engine := application.NewEngine(kv, opts...)

	var joinLimiter rldomain.RateLimiter
	switch cfg.JoinRateBackend {
	case config.BackendRedis:
		joinLimiter = rlinfra.NewRedisWindowStore(rdb, cfg.JoinRateLimit, cfg.JoinRateWindow,
			rlinfra.WithWindowPrefix(cfg.KeyPrefix+":ratelimit:join"))
	default:
		ws := rlinfra.NewWindowStore(cfg.JoinRateLimit, cfg.JoinRateWindow)
		ws.StartJanitor(ctx)
		joinLimiter = ws
	}

	var statusLimiter rldomain.RateLimiter
	if cfg.StatusRateRPS > 0 {
		bs := rlinfra.NewBucketStore(cfg.StatusRateRPS, cfg.StatusRateBurst)
		bs.StartJanitor(ctx)
		statusLimiter = bs
	}

	var pool *rlinfra.SemaphorePool
	inFlight := func() int { return 0 }
	if cfg.ConcurrencyMax > 0 {
		pool = rlinfra.NewSemaphorePool(cfg.ConcurrencyMax)
		inFlight = pool.InUse
	}

	h := waitlist.NewHandler(waitlist.HandlerOptions{
		Service:             engine,
		AdminSecret:         cfg.AdminSecret,
		JoinLimiter:         joinLimiter,
		StatusLimiter:       statusLimiter,
		RateKeyHeader:       cfg.RateKeyHeader,
		TrustProxyHeaders:   cfg.TrustProxyHeaders,
		AddRateLimitHeaders: cfg.AddRateLimitHeaders,
		InFlight:            inFlight,
		Logger:              logger,
	})
	if pool != nil {
		h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
			RejectStatus:   http.StatusServiceUnavailable,
			AcquireTimeout: cfg.ConcurrencyTimeout,
			Pool:           pool,
		})(h)
	}
	h = requestlog.Middleware(logger)(h)

	if cfg.AdminSecret == "" {
		logger.Warn().Msg("ADMIN_SECRET is empty, admin routes will reject every request")
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}
	return srv, closeFn, nil
}
