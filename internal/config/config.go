package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers accepted in STORE_DRIVER
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	BotToken        string        `env:"BOT_TOKEN"`
	GroupID         int64         `env:"GROUP_ID"`
	WebhookSecret   string        `env:"WEBHOOK_SECRET"`
	RegisterWebhook bool          `env:"REGISTER_WEBHOOK" envDefault:"false"`
	PublicURL       string        `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	VerifyTTL       time.Duration `env:"VERIFY_TTL" envDefault:"168h"`
	TicketTTL       time.Duration `env:"TICKET_TTL" envDefault:"10m"`
	CallTimeout     time.Duration `env:"CALL_TIMEOUT" envDefault:"10s"`
	VerifyRateLimit float64       `env:"VERIFY_RATE_LIMIT" envDefault:"1"`
	StoreDriver     string        `env:"STORE_DRIVER" envDefault:"memory"`
	MigrationsPath  string        `env:"MIGRATIONS_PATH" envDefault:"file://migrations"`

	Turnstile TurnstileConfig `envPrefix:"TURNSTILE_"`
	Database  DatabaseConfig  `envPrefix:"DB_"`
}

// TurnstileConfig holds the challenge widget keys.
// Verification is disabled when Secret is empty.
type TurnstileConfig struct {
	SiteKey string `env:"SITE_KEY"`
	Secret  string `env:"SECRET"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	Name     string `env:"NAME" envDefault:"topicrelay"`
	User     string `env:"USER" envDefault:"topicrelay"`
	Password string `env:"PASSWORD"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if c.GroupID == 0 {
		return fmt.Errorf("GROUP_ID is required")
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverMemory, DriverPostgres, c.StoreDriver)
	}
	if c.VerifyTTL < 0 {
		return fmt.Errorf("VERIFY_TTL must not be negative (0 keeps verification forever)")
	}
	if c.TicketTTL <= 0 {
		return fmt.Errorf("TICKET_TTL must be positive")
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("CALL_TIMEOUT must be positive")
	}
	return nil
}

// VerificationEnabled reports whether first contact is gated behind the challenge
func (c *Config) VerificationEnabled() bool {
	return c.Turnstile.Secret != ""
}

// DSN returns PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}
