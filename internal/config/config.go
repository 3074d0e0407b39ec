package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
)

// DatabaseConfig is the subset needed by tools that only talk to Postgres.
type DatabaseConfig struct {
	DatabaseURL        string `env:"DATABASE_URL,required,notEmpty"`
	MigrationsPath     string `env:"MIGRATIONS_PATH" envDefault:"migrations"`
	DBMaxOpenConns     int    `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int    `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int    `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int    `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
	TxMaxRetries       int    `env:"TX_MAX_RETRIES" envDefault:"5"`
}

// AuthConfig holds the shared secret bearer tokens are signed with.
type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
}

type Config struct {
	DatabaseConfig
	AuthConfig

	Port      int    `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv    string `env:"APP_ENV" envDefault:"production"`

	AutoMigrate bool `env:"AUTO_MIGRATE" envDefault:"false"`

	InvoiceDueDays       int           `env:"INVOICE_DUE_DAYS" envDefault:"30"`
	OverdueSweepInterval time.Duration `env:"OVERDUE_SWEEP_INTERVAL" envDefault:"1h"`

	RedisURL       string        `env:"REDIS_URL"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func LoadDatabase() (*DatabaseConfig, error) {
	cfg, err := env.ParseAs[DatabaseConfig]()
	if err != nil {
		return nil, fmt.Errorf("config.LoadDatabase: %w", err)
	}
	return &cfg, nil
}

func LoadAuth() (*AuthConfig, error) {
	cfg, err := env.ParseAs[AuthConfig]()
	if err != nil {
		return nil, fmt.Errorf("config.LoadAuth: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.InvoiceDueDays < 0 {
		return fmt.Errorf("INVOICE_DUE_DAYS must not be negative, got %d", c.InvoiceDueDays)
	}
	if c.OverdueSweepInterval <= 0 {
		return fmt.Errorf("OVERDUE_SWEEP_INTERVAL must be positive, got %s", c.OverdueSweepInterval)
	}
	return nil
}
