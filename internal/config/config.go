package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	zotloProductionURL = "https://api.zotlo.com"
	zotloSandboxURL    = "https://test-api.zotlo.com"
)

var ErrMissingDatabaseURL = errors.New("DATABASE_URL environment variable is required")

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	JWTSecret   string `env:"JWT_SECRET"`
	JWKSURL     string `env:"JWKS_URL"`

	Database DatabaseConfig `envPrefix:"DB_"`
	Zotlo    ZotloConfig    `envPrefix:"ZOTLO_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Minio    MinioConfig    `envPrefix:"MINIO_"`
	Sync     SyncConfig     `envPrefix:"SYNC_"`
	Report   ReportConfig   `envPrefix:"REPORT_"`
}

type DatabaseConfig struct {
	MaxConns        int32         `env:"MAX_CONNS" envDefault:"20"`
	MinConns        int32         `env:"MIN_CONNS" envDefault:"2"`
	MaxConnLifetime time.Duration `env:"MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxConnIdleTime time.Duration `env:"MAX_CONN_IDLE_TIME" envDefault:"30m"`
	ConnectRetries  int           `env:"CONNECT_RETRIES" envDefault:"3"`
	ConnectBackoff  time.Duration `env:"CONNECT_BACKOFF" envDefault:"2s"`
	AutoMigrate     bool          `env:"AUTO_MIGRATE" envDefault:"false"`
}

type ZotloConfig struct {
	AccessKey     string        `env:"ACCESS_KEY"`
	AccessSecret  string        `env:"ACCESS_SECRET"`
	AppID         string        `env:"APP_ID"`
	BaseURL       string        `env:"BASE_URL"`
	Language      string        `env:"LANGUAGE" envDefault:"tr"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"10s"`
	RetryAttempts int           `env:"RETRY_ATTEMPTS" envDefault:"3"`
	RetryDelay    time.Duration `env:"RETRY_DELAY" envDefault:"250ms"`
}

type RedisConfig struct {
	Addr      string        `env:"ADDR"`
	Password  string        `env:"PASSWORD"`
	DB        int           `env:"DB" envDefault:"0"`
	StatusTTL time.Duration `env:"STATUS_TTL" envDefault:"5m"`
}

type MinioConfig struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
	Bucket    string `env:"REPORT_BUCKET" envDefault:"subsync-reports"`
}

type SyncConfig struct {
	Enabled   bool          `env:"ENABLED" envDefault:"true"`
	Interval  time.Duration `env:"INTERVAL" envDefault:"5m"`
	BatchSize int           `env:"BATCH_SIZE" envDefault:"500"`
	LockTTL   time.Duration `env:"LOCK_TTL" envDefault:"30m"`
}

type ReportConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Cron    string `env:"CRON" envDefault:"10 0 * * *"`
}

// Load reads .env files when present and parses the environment.
func Load(envFiles ...string) (*Config, error) {
	// A missing .env file is fine; the environment may be set by the platform.
	_ = godotenv.Load(envFiles...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) finalize() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if c.Zotlo.BaseURL == "" {
		if c.IsProduction() {
			c.Zotlo.BaseURL = zotloProductionURL
		} else {
			c.Zotlo.BaseURL = zotloSandboxURL
		}
	}
	if c.Zotlo.RetryAttempts < 1 {
		c.Zotlo.RetryAttempts = 1
	}
	if c.Sync.BatchSize < 1 {
		return fmt.Errorf("SYNC_BATCH_SIZE must be positive, got %d", c.Sync.BatchSize)
	}
	return nil
}
