package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValidOnceDSNIsSet(t *testing.T) {
	cfg := Default()
	require.Error(t, cfg.Validate())

	cfg.Database.DSN = "postgres://localhost/bakehouse"
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "quantity < 1000.0", cfg.Reports.LowStockRule)
	assert.Equal(t, "bakehouse.inventory", cfg.Kafka.Topic)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty port", func(c *Config) { c.HTTP.Port = "" }, true},
		{"default secret in production", func(c *Config) { c.App.Env = "production" }, true},
		{"custom secret in production", func(c *Config) {
			c.App.Env = "production"
			c.Auth.JWTSecret = "s3cret"
		}, false},
		{"min above max conns", func(c *Config) { c.Database.MinConns = 50 }, true},
		{"zero access ttl", func(c *Config) { c.Auth.AccessTokenTTL = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Database.DSN = "postgres://localhost/bakehouse"
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bakehouse.yaml")
	content := `
http:
  port: "9090"
  read_timeout: 5s
database:
  dsn: postgres://db/bakehouse
  max_conns: 8
kafka:
  brokers: [k1:9092, k2:9092]
reports:
  low_stock_rule: "quantity < 500.0"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.HTTP.WriteTimeout, "unset keys keep defaults")
	assert.Equal(t, 8, cfg.Database.MaxConns)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "quantity < 500.0", cfg.Reports.LowStockRule)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bakehouse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  port: \"9090\"\ndatabase:\n  dsn: postgres://file/db\n"), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("KAFKA_INSTANCE_ID", "api-2")
	t.Setenv("MIGRATE_ON_START", "true")
	t.Setenv("DASHBOARD_CACHE_TTL", "45s")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, "postgres://env/db", cfg.Database.DSN)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Database.MigrateOnStart)
	assert.Equal(t, 45*time.Second, cfg.Redis.SummaryTTL)
	assert.Equal(t, 20, cfg.Database.MaxConns, "unparsable values fall back")
	assert.True(t, cfg.Messaging().Enabled())
	assert.Equal(t, "bakehouse-dashboard-api-2", cfg.Messaging().ConsumerGroup())
}

func TestPool(t *testing.T) {
	cfg := Default()
	cfg.Database.DSN = "postgres://localhost/bakehouse"
	cfg.Database.MaxConns = 7

	pc := cfg.Pool("bakehouse-worker")
	assert.Equal(t, int32(7), pc.MaxConns)
	assert.Equal(t, "bakehouse-worker", pc.ApplicationName)
	assert.Equal(t, "postgres://localhost/bakehouse", pc.DSN)
}
