package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

type Config struct {
	// Store selects the durable backend: "file" (best-effort JSON
	// snapshot) or "postgres" (transactional).
	Store       string `env:"STORE" envDefault:"file"`
	DataFile    string `env:"DATA_FILE" envDefault:"data/accounts.json"`
	DatabaseURL string `env:"DATABASE_URL"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV" envDefault:"production"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if cfg.Store != StoreFile && cfg.Store != StorePostgres {
		return nil, fmt.Errorf("config.Load: unknown STORE %q", cfg.Store)
	}
	if cfg.Store == StorePostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("config.Load: STORE=postgres requires DATABASE_URL")
	}
	return &cfg, nil
}
