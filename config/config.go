// Package config lê a configuração do serviço a partir do ambiente.
// Fora de produção, um arquivo .env é carregado antes (sem sobrescrever
// variáveis já definidas).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	Env        string `envconfig:"GO_ENV" default:"development"`
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`

	// AdminSecret protege list, delete e stats. Vazio nega tudo.
	AdminSecret string `envconfig:"ADMIN_SECRET"`

	StoreBackend  string `envconfig:"STORE_BACKEND" default:"redis"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	KeyPrefix     string `envconfig:"KEY_PREFIX" default:"waitlist"`

	JoinRateLimit   int           `envconfig:"JOIN_RATE_LIMIT" default:"5"`
	JoinRateWindow  time.Duration `envconfig:"JOIN_RATE_WINDOW" default:"1h"`
	JoinRateBackend string        `envconfig:"JOIN_RATE_BACKEND" default:"memory"`

	// StatusRateRPS=0 desliga o limite do status.
	StatusRateRPS float64 `envconfig:"STATUS_RATE_RPS" default:"0"`
	// StatusRateBurst=0 escolhe automaticamente (ver Load).
	StatusRateBurst int `envconfig:"STATUS_RATE_BURST" default:"0"`

	RateKeyHeader       string `envconfig:"RATE_KEY_HEADER"`
	TrustProxyHeaders   bool   `envconfig:"TRUST_PROXY_HEADERS" default:"true"`
	AddRateLimitHeaders bool   `envconfig:"ADD_RATELIMIT_HEADERS" default:"false"`

	ConcurrencyMax     int           `envconfig:"CONCURRENCY_MAX" default:"100"`
	ConcurrencyTimeout time.Duration `envconfig:"CONCURRENCY_TIMEOUT" default:"0s"`

	StatsEnabled bool          `envconfig:"STATS_ENABLED" default:"false"`
	StatsTTL     time.Duration `envconfig:"STATS_TTL" default:"24h"`
	StatsBucket  string        `envconfig:"STATS_BUCKET" default:"minute"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load lê o ambiente. Os arquivos informados substituem o ".env" padrão.
func Load(dotenvFiles ...string) (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}

	if cfg.Env != "production" {
		if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
		// o .env pode ter trazido variáveis novas
		if err := envconfig.Process("", &cfg); err != nil {
			return Config{}, fmt.Errorf("read env: %w", err)
		}
	}

	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	cfg.JoinRateBackend = strings.ToLower(strings.TrimSpace(cfg.JoinRateBackend))
	cfg.StatsBucket = strings.ToLower(strings.TrimSpace(cfg.StatsBucket))

	// IMPORTANTE: o burst permite uma rajada inicial. Com RPS baixo (ex: 0.2)
	// um burst alto esconde o limite, então cai para 1.
	if cfg.StatusRateBurst == 0 && cfg.StatusRateRPS > 0 {
		cfg.StatusRateBurst = 20
		if cfg.StatusRateRPS < 1 {
			cfg.StatusRateBurst = 1
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NeedsRedis diz se algum componente configurado usa o Redis.
func (c Config) NeedsRedis() bool {
	return c.StoreBackend == BackendRedis || c.JoinRateBackend == BackendRedis
}

func (c Config) Validate() error {
	var errs []error
	if !validBackend(c.StoreBackend) {
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be redis or memory, got %q", c.StoreBackend))
	}
	if !validBackend(c.JoinRateBackend) {
		errs = append(errs, fmt.Errorf("JOIN_RATE_BACKEND must be redis or memory, got %q", c.JoinRateBackend))
	}
	if c.NeedsRedis() && strings.TrimSpace(c.RedisAddr) == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required when a redis backend is selected"))
	}
	if c.JoinRateLimit <= 0 {
		errs = append(errs, errors.New("JOIN_RATE_LIMIT must be > 0"))
	}
	if c.JoinRateWindow <= 0 {
		errs = append(errs, errors.New("JOIN_RATE_WINDOW must be > 0"))
	}
	if c.StatusRateRPS < 0 {
		errs = append(errs, errors.New("STATUS_RATE_RPS must be >= 0"))
	}
	if c.StatusRateBurst < 0 {
		errs = append(errs, errors.New("STATUS_RATE_BURST must be >= 0"))
	}
	if c.ConcurrencyMax < 0 {
		errs = append(errs, errors.New("CONCURRENCY_MAX must be >= 0"))
	}
	if c.StatsBucket != "minute" && c.StatsBucket != "none" {
		errs = append(errs, fmt.Errorf("STATS_BUCKET must be minute or none, got %q", c.StatsBucket))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

func validBackend(b string) bool {
	return b == BackendRedis || b == BackendMemory
}
