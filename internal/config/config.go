package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/search-provisioner/pkg/config"
)

// Config holds all configuration for the provisioner.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server (serve mode)
	HTTPPort int `env:"PROVISIONER_HTTP_PORT" envDefault:"8020"`

	// Search engine
	EngineURL       string        `env:"ENGINE_URL" envDefault:"http://localhost:7700"`
	EngineMasterKey string        `env:"ENGINE_MASTER_KEY"`
	EngineTimeout   time.Duration `env:"ENGINE_TIMEOUT" envDefault:"10s"`

	// Catalog index
	IndexUID   string `env:"INDEX_UID" envDefault:"products"`
	PrimaryKey string `env:"INDEX_PRIMARY_KEY" envDefault:"id"`

	// Task polling
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`
	PollMaxWait  time.Duration `env:"POLL_MAX_WAIT" envDefault:"2m"`

	// Engine health wait (provision runs)
	HealthInterval time.Duration `env:"HEALTH_POLL_INTERVAL" envDefault:"2s"`
	HealthMaxWait  time.Duration `env:"HEALTH_MAX_WAIT" envDefault:"60s"`

	// Seeding
	SeedBatchSize        int     `env:"SEED_BATCH_SIZE" envDefault:"500"`
	SeedBatchesPerSecond float64 `env:"SEED_BATCHES_PER_SECOND" envDefault:"2"`

	// Catalog database (seed mode)
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"ecommerce_catalog"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// Redis (provisioning lease)
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Tracing
	TracingEnabled    bool    `env:"TRACING_ENABLED" envDefault:"false"`
	TracingEndpoint   string  `env:"TRACING_ENDPOINT" envDefault:"localhost:4318"`
	TracingSampleRate float64 `env:"TRACING_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load provisioner config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.EngineURL == "" {
		return fmt.Errorf("ENGINE_URL must be set")
	}
	if c.IndexUID == "" {
		return fmt.Errorf("INDEX_UID must be set")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("invalid poll interval: %s", c.PollInterval)
	}
	if c.PollMaxWait < 0 {
		return fmt.Errorf("invalid poll max wait: %s", c.PollMaxWait)
	}
	if c.SeedBatchSize < 1 {
		return fmt.Errorf("invalid seed batch size: %d", c.SeedBatchSize)
	}
	return nil
}
