package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload"
	"github.com/shopspring/decimal"
)

// Config is the full service configuration, read from the environment
// (and a .env file when present).
type Config struct {
	HTTP     HTTP
	Redis    Redis
	Postgres Postgres
	Engine   Engine
	Payment  Payment
}

type HTTP struct {
	Addr         string        `env:"HTTP_ADDR"          envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT"  envDefault:"10s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s"`
	RateLimit    int           `env:"HTTP_RATE_LIMIT"    envDefault:"100"`
}

type Redis struct {
	Addr     string `env:"REDIS_URL"      envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"       envDefault:"0"`
}

type Postgres struct {
	Host     string `env:"BLUEPRINT_DB_HOST"     envDefault:"localhost"`
	Port     string `env:"BLUEPRINT_DB_PORT"     envDefault:"5432"`
	Database string `env:"BLUEPRINT_DB_DATABASE" envDefault:"gambweb"`
	Username string `env:"BLUEPRINT_DB_USERNAME" envDefault:"postgres"`
	Password string `env:"BLUEPRINT_DB_PASSWORD" envDefault:"postgres"`
	Schema   string `env:"BLUEPRINT_DB_SCHEMA"   envDefault:"public"`
	// Migrations is applied on startup when non-empty.
	Migrations string `env:"MIGRATIONS_PATH" envDefault:"./migrations"`
}

// URL returns the pgx connection string.
func (p Postgres) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		p.Username, p.Password, p.Host, p.Port, p.Database, p.Schema)
}

type Engine struct {
	StartingBalance int64 `env:"STARTING_BALANCE" envDefault:"1000"`
	DefaultBet      int64 `env:"DEFAULT_BET"      envDefault:"10"`
	// DelayScale multiplies every suspense and release delay. Zero makes
	// rounds resolve immediately.
	DelayScale    float64 `env:"ROUND_DELAY_SCALE" envDefault:"1"`
	ClearOnLogout bool    `env:"CLEAR_ON_LOGOUT"   envDefault:"false"`
}

type Payment struct {
	CreditUnitPrice decimal.Decimal `env:"CREDIT_UNIT_PRICE" envDefault:"1.5"`
	// ProcessingDelay is how long the simulated processors take to approve.
	ProcessingDelay time.Duration `env:"PAYMENT_DELAY" envDefault:"2s"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Engine.StartingBalance <= 0 {
		return Config{}, fmt.Errorf("STARTING_BALANCE must be positive, got %d", cfg.Engine.StartingBalance)
	}
	if !cfg.Payment.CreditUnitPrice.IsPositive() {
		return Config{}, fmt.Errorf("CREDIT_UNIT_PRICE must be positive, got %s", cfg.Payment.CreditUnitPrice)
	}
	if cfg.Engine.DelayScale < 0 {
		return Config{}, fmt.Errorf("ROUND_DELAY_SCALE must not be negative, got %v", cfg.Engine.DelayScale)
	}
	return cfg, nil
}

// Scale applies the configured delay scale to d.
func (e Engine) Scale(d time.Duration) time.Duration {
	return time.Duration(float64(d) * e.DelayScale)
}
