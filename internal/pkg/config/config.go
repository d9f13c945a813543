package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/FormFox/internal/pkg/env"
)

// Config is the process configuration, read once at startup and passed to
// the components that need it.
type Config struct {
	AppHost string `validate:"required"`
	AppPort string `validate:"required,numeric"`
	AppEnv  string `validate:"oneof=dev test prod"`

	DB    DBConfig
	Cache CacheConfig

	Webhook   WebhookConfig
	Reprocess ReprocessConfig
	Archive   ArchiveConfig

	AdminAPIKey     string
	MonitorUser     string
	MonitorPassword string
}

type DBConfig struct {
	User     string `validate:"required"`
	Password string
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	Name     string `validate:"required"`
}

// DSN returns the go-sql-driver/mysql data source name.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

type CacheConfig struct {
	Host     string `validate:"required"`
	Port     int    `validate:"gt=0,lte=65535"`
	Password string
}

func (c CacheConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type WebhookConfig struct {
	// Secret may be empty at startup; the webhook endpoint then rejects
	// every delivery with a configuration error.
	Secret string
	// RetryFailedEvents lets a resend with the id of a failed event run again.
	RetryFailedEvents bool

	RateLimitPerMinute int `validate:"gte=0"`
}

type ReprocessConfig struct {
	Workers   int `validate:"gt=0,lte=64"`
	ChunkSize int `validate:"gt=0,lte=1000"`
	// MaxBatch caps the number of ids accepted by a single request.
	MaxBatch  int `validate:"gt=0"`
}

type ArchiveConfig struct {
	Enabled         bool
	AccessKeyID     string `validate:"required_if=Enabled true"`
	SecretAccessKey string `validate:"required_if=Enabled true"`
	Region          string `validate:"required_if=Enabled true"`
	BucketName      string `validate:"required_if=Enabled true"`
	EndpointURL     string `validate:"omitempty,url"`
	Prefix          string
}

// Load reads the configuration from the environment (see env.SetupEnvFile).
func Load() (*Config, error) {
	cfg := &Config{
		AppHost: env.GetEnv("APP_HOST", "localhost"),
		AppPort: env.GetEnv("APP_PORT", "4000"),
		AppEnv:  strings.ToLower(env.GetEnv("APP_ENV", "prod")),
		DB: DBConfig{
			User:     env.GetEnv("DB_USER", "formfox"),
			Password: env.GetEnv("DB_PASSWORD", ""),
			Host:     env.GetEnv("DB_HOST", "127.0.0.1"),
			Port:     env.GetEnv("DB_PORT", "3306"),
			Name:     env.GetEnv("DB_NAME", "formfox_db"),
		},
		Cache: CacheConfig{
			Host:     env.GetEnv("CACHE_HOST", "localhost"),
			Port:     env.GetEnvInt("CACHE_PORT", 6379),
			Password: env.GetEnv("CACHE_PASSWORD", ""),
		},
		Webhook: WebhookConfig{
			Secret:             strings.TrimSpace(env.GetEnv("FILLOUT_WEBHOOK_SECRET", "")),
			RetryFailedEvents:  env.GetEnvBool("WEBHOOK_RETRY_FAILED_EVENTS", true),
			RateLimitPerMinute: env.GetEnvInt("WEBHOOK_RATE_LIMIT_PER_MINUTE", 120),
		},
		Reprocess: ReprocessConfig{
			Workers:   env.GetEnvInt("REPROCESS_WORKERS", 2),
			ChunkSize: env.GetEnvInt("REPROCESS_CHUNK_SIZE", 50),
			MaxBatch:  env.GetEnvInt("REPROCESS_MAX_BATCH", 5000),
		},
		Archive: ArchiveConfig{
			Enabled:         env.GetEnvBool("ARCHIVE_ENABLED", false),
			AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
			Region:          env.GetEnv("S3_REGION", "eu-central-1"),
			BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
			EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
			Prefix:          env.GetEnv("ARCHIVE_PREFIX", "webhooks"),
		},
		AdminAPIKey:     env.GetEnv("ADMIN_API_KEY", ""),
		MonitorUser:     env.GetEnv("MONITOR_USER", "admin"),
		MonitorPassword: env.GetEnv("MONITOR_PASSWORD", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.AppEnv == "dev"
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%s", c.AppHost, c.AppPort)
}
