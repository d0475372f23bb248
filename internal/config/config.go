// Package config loads process configuration.
//
// Values are layered: built-in defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"bakehouse/internal/domain/reports"
	"bakehouse/internal/infrastructure/cache"
	"bakehouse/internal/infrastructure/messaging"
	"bakehouse/internal/infrastructure/storage/postgres"
	"bakehouse/pkg/logger"
)

// Config is the full process configuration shared by server, worker and CLI.
type Config struct {
	App      AppConfig      `yaml:"app"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Reports  ReportsConfig  `yaml:"reports"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type AppConfig struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	Version  string `yaml:"version"`
}

type HTTPConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	IdempotencyTTL  time.Duration `yaml:"idempotency_ttl"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int           `yaml:"max_conns"`
	MinConns        int           `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	MigrateOnStart  bool          `yaml:"migrate_on_start"`
}

type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
	AdminPassword   string        `yaml:"admin_password"`
}

type RedisConfig struct {
	URL        string        `yaml:"url"`
	PoolSize   int           `yaml:"pool_size"`
	SummaryTTL time.Duration `yaml:"summary_ttl"`
}

type KafkaConfig struct {
	Brokers    []string `yaml:"brokers"`
	Topic      string   `yaml:"topic"`
	GroupID    string   `yaml:"group_id"`
	InstanceID string   `yaml:"instance_id"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	TLS        bool     `yaml:"tls"`
}

type ReportsConfig struct {
	LowStockRule string `yaml:"low_stock_rule"`
}

type WorkerConfig struct {
	RelayInterval   time.Duration `yaml:"relay_interval"`
	RelayBatchSize  int           `yaml:"relay_batch_size"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	OutboxRetention time.Duration `yaml:"outbox_retention"`
	MetricsPort     string        `yaml:"metrics_port"`
}

// DefaultAdminPassword is used when no admin password is configured.
const DefaultAdminPassword = "admin123"

const insecureJWTSecret = "change-me-in-production"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Env:      "development",
			LogLevel: "info",
			Version:  "dev",
		},
		HTTP: HTTPConfig{
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			IdempotencyTTL:  24 * time.Hour,
		},
		Database: DatabaseConfig{
			MaxConns:        20,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
		Auth: AuthConfig{
			JWTSecret:       insecureJWTSecret,
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
			AdminPassword:   DefaultAdminPassword,
		},
		Redis: RedisConfig{
			PoolSize:   10,
			SummaryTTL: cache.DefaultSummaryTTL,
		},
		Kafka: KafkaConfig{
			Topic:   messaging.DefaultTopic,
			GroupID: "bakehouse-dashboard",
		},
		Reports: ReportsConfig{
			LowStockRule: reports.DefaultLowStockRule,
		},
		Worker: WorkerConfig{
			RelayInterval:   time.Second,
			RelayBatchSize:  100,
			CleanupInterval: time.Hour,
			OutboxRetention: 7 * 24 * time.Hour,
			MetricsPort:     "9091",
		},
	}
}

// LoadFromFile reads a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Load builds the configuration from CONFIG_FILE and the environment.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		fromFile, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = fromFile
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.App.Env = getEnv("APP_ENV", c.App.Env)
	c.App.LogLevel = getEnv("LOG_LEVEL", c.App.LogLevel)
	c.App.Version = getEnv("APP_VERSION", c.App.Version)

	c.HTTP.Port = getEnv("APP_PORT", c.HTTP.Port)
	c.HTTP.ReadTimeout = getEnvDuration("HTTP_READ_TIMEOUT", c.HTTP.ReadTimeout)
	c.HTTP.WriteTimeout = getEnvDuration("HTTP_WRITE_TIMEOUT", c.HTTP.WriteTimeout)
	c.HTTP.IdleTimeout = getEnvDuration("HTTP_IDLE_TIMEOUT", c.HTTP.IdleTimeout)
	c.HTTP.ShutdownTimeout = getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", c.HTTP.ShutdownTimeout)
	c.HTTP.IdempotencyTTL = getEnvDuration("IDEMPOTENCY_TTL", c.HTTP.IdempotencyTTL)

	c.Database.DSN = getEnv("DATABASE_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvInt("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvInt("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.MigrateOnStart = getEnvBool("MIGRATE_ON_START", c.Database.MigrateOnStart)

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.AccessTokenTTL = getEnvDuration("JWT_ACCESS_TTL", c.Auth.AccessTokenTTL)
	c.Auth.RefreshTokenTTL = getEnvDuration("JWT_REFRESH_TTL", c.Auth.RefreshTokenTTL)
	c.Auth.AdminPassword = getEnv("ADMIN_PASSWORD", c.Auth.AdminPassword)

	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)
	c.Redis.PoolSize = getEnvInt("REDIS_POOL_SIZE", c.Redis.PoolSize)
	c.Redis.SummaryTTL = getEnvDuration("DASHBOARD_CACHE_TTL", c.Redis.SummaryTTL)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		c.Kafka.Brokers = messaging.ParseBrokers(brokers)
	}
	c.Kafka.Topic = getEnv("KAFKA_TOPIC", c.Kafka.Topic)
	c.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", c.Kafka.GroupID)
	c.Kafka.InstanceID = getEnv("KAFKA_INSTANCE_ID", c.Kafka.InstanceID)
	c.Kafka.Username = getEnv("KAFKA_USERNAME", c.Kafka.Username)
	c.Kafka.Password = getEnv("KAFKA_PASSWORD", c.Kafka.Password)
	c.Kafka.TLS = getEnvBool("KAFKA_TLS", c.Kafka.TLS)

	c.Reports.LowStockRule = getEnv("LOW_STOCK_RULE", c.Reports.LowStockRule)

	c.Worker.RelayInterval = getEnvDuration("OUTBOX_RELAY_INTERVAL", c.Worker.RelayInterval)
	c.Worker.RelayBatchSize = getEnvInt("OUTBOX_BATCH_SIZE", c.Worker.RelayBatchSize)
	c.Worker.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", c.Worker.CleanupInterval)
	c.Worker.OutboxRetention = getEnvDuration("OUTBOX_RETENTION", c.Worker.OutboxRetention)
	c.Worker.MetricsPort = getEnv("WORKER_METRICS_PORT", c.Worker.MetricsPort)
}

// Validate checks the settings every binary relies on.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database dsn is required (DATABASE_URL)"))
	}
	if c.HTTP.Port == "" {
		errs = append(errs, errors.New("http port is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret is required"))
	}
	if c.IsProduction() && c.Auth.JWTSecret == insecureJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token ttls must be positive"))
	}
	if c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, fmt.Errorf("db min conns %d exceeds max conns %d", c.Database.MinConns, c.Database.MaxConns))
	}
	if c.Worker.RelayBatchSize <= 0 {
		errs = append(errs, errors.New("outbox batch size must be positive"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Logger returns the logger settings.
func (c *Config) Logger() logger.Config {
	return logger.Config{
		Level:       c.App.LogLevel,
		Development: c.App.Env == "development",
	}
}

// Pool returns the pgx pool settings.
func (c *Config) Pool(appName string) postgres.PoolConfig {
	pc := postgres.DefaultPoolConfig(c.Database.DSN)
	pc.MaxConns = int32(c.Database.MaxConns)
	pc.MinConns = int32(c.Database.MinConns)
	pc.MaxConnLifetime = c.Database.MaxConnLifetime
	pc.MaxConnIdleTime = c.Database.MaxConnIdleTime
	pc.ApplicationName = appName
	return pc
}

// RedisEnabled reports whether a Redis URL is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.URL != ""
}

// RedisClient returns the Redis connection settings.
func (c *Config) RedisClient() cache.RedisConfig {
	return cache.RedisConfig{
		URL:      c.Redis.URL,
		PoolSize: c.Redis.PoolSize,
	}
}

// Messaging returns the Kafka settings.
func (c *Config) Messaging() messaging.Config {
	return messaging.Config{
		Brokers:    c.Kafka.Brokers,
		Topic:      c.Kafka.Topic,
		GroupID:    c.Kafka.GroupID,
		InstanceID: c.Kafka.InstanceID,
		Username:   c.Kafka.Username,
		Password:   c.Kafka.Password,
		TLS:        c.Kafka.TLS,
	}
}
