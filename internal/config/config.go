package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// DatabaseConfig holds database connection settings.
// URL takes precedence; the discrete Postgres fields are used only when it is empty.
type DatabaseConfig struct {
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DB_HOST"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	Echo bool `env:"DB_ECHO" envDefault:"false"`
	// Negative pool size or overflow means "not set"; zero is an explicit value.
	// Zero timeouts are not set. Unset values leave driver defaults in place.
	PoolSize       int  `env:"DB_POOL_SIZE" envDefault:"-1"`
	MaxOverflow    int  `env:"DB_MAX_OVERFLOW" envDefault:"-1"`
	PoolTimeoutSec int  `env:"DB_POOL_TIMEOUT_SEC"`
	PoolRecycleSec int  `env:"DB_POOL_RECYCLE_SEC"`
	AutoMigrate    bool `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET"`
	Region    string `env:"MINIO_REGION" envDefault:"us-east-1"`
	UseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string `env:"APP_HOST" envDefault:"localhost:8080"`
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Database DatabaseConfig
	MinIO    MinIOConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// Real environment variables take precedence over the .env file.
func Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	return &cfg, nil
}
