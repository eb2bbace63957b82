package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" envDefault:"development"`
	Port      string `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL"`

	JWTSecret string        `env:"JWT_SECRET,required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	StooqBaseURL           string        `env:"STOOQ_BASE_URL" envDefault:"https://stooq.com/q/l/"`
	StockWorkerConcurrency int64         `env:"STOCK_WORKER_CONCURRENCY" envDefault:"8"`
	StockRateInterval      time.Duration `env:"STOCK_RATE_INTERVAL" envDefault:"1s"`
	StockRateBurst         int           `env:"STOCK_RATE_BURST" envDefault:"5"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.StockWorkerConcurrency < 1 {
		return nil, fmt.Errorf("STOCK_WORKER_CONCURRENCY must be at least 1, got %d", cfg.StockWorkerConcurrency)
	}
	if cfg.StockRateBurst < 1 {
		return nil, fmt.Errorf("STOCK_RATE_BURST must be at least 1, got %d", cfg.StockRateBurst)
	}
	if len(cfg.JWTSecret) < 16 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}

	return &cfg, nil
}
