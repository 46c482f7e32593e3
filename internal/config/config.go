package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port           string   `env:"PORT"                 envDefault:"8080"`
	BaseURL        string   `env:"BASE_URL"             envDefault:"http://localhost:8080"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	PostgresDSN string `env:"POSTGRES_DSN"`
	SQLitePath  string `env:"SQLITE_PATH"  envDefault:"authgate.db"`

	MongoURI string `env:"MONGO_URI"`
	MongoDB  string `env:"MONGO_DB" envDefault:"authgate"`

	RedisAddr     string `env:"REDIS_ADDR"     envDefault:"redis:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	MinioEndpoint  string `env:"MINIO_ENDPOINT"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioBucket    string `env:"MINIO_BUCKET"  envDefault:"authgate-mail"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`

	SMTPAddr     string `env:"SMTP_ADDR"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"no-reply@localhost"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"1h"`

	RequireVerification bool          `env:"REQUIRE_EMAIL_VERIFICATION" envDefault:"true"`
	VerificationTTL     time.Duration `env:"VERIFICATION_TTL"           envDefault:"15m"`
	SendCooldown        time.Duration `env:"VERIFICATION_COOLDOWN"      envDefault:"60s"`
	MaxCodeAttempts     int           `env:"VERIFICATION_MAX_ATTEMPTS"  envDefault:"5"`
}

// Load parses the environment and checks the values that have no usable default.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("POSTGRES_DSN is required for the %s store", DriverPostgres)
		}
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("SQLITE_PATH is required for the %s store", DriverSQLite)
		}
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.MaxCodeAttempts < 1 {
		return nil, fmt.Errorf("VERIFICATION_MAX_ATTEMPTS must be at least 1, got %d", cfg.MaxCodeAttempts)
	}
	return &cfg, nil
}
