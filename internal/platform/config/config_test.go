package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "this-is-a-very-long-jwt-secret-for-testing-32+"

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFrom_YAML(t *testing.T) {
	path := writeYAML(t, `
server:
  host: "127.0.0.1"
  port: 9090
  shutdown_timeout: "5s"
database:
  dsn: "postgres://u:p@localhost:5432/datatrail"
  max_conns: 10
  min_conns: 2
kafka:
  brokers: ["localhost:9092", "localhost:9093"]
  topic: "audit.test"
auth:
  jwt_secret: "`+testSecret+`"
log:
  level: "debug"
  format: "text"
audit:
  ignored_fields: ["fecha_registro"]
  recent_limit: 20
`)

	cfg, err := LoadFrom(path, true)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr())
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout, "default applies")
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, []string{"localhost:9092", "localhost:9093"}, cfg.Kafka.Brokers)
	assert.Equal(t, "audit.test", cfg.Kafka.Topic)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"fecha_registro"}, cfg.Audit.IgnoredFields)
	assert.Equal(t, 20, cfg.Audit.RecentLimit)
}

func TestLoadFrom_EnvOverridesYAML(t *testing.T) {
	path := writeYAML(t, `
server:
  port: 9090
auth:
  jwt_secret: "`+testSecret+`"
`)
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := LoadFrom(path, true)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadFrom_EnvOnly(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"), false)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "datatrail.audit", cfg.Kafka.Topic)
	assert.Equal(t, 50, cfg.Audit.RecentLimit)
}

func TestLoadFrom_MissingRequiredFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"), true)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server: ServerConfig{Port: 8080},
			Auth:   AuthConfig{JWTSecret: testSecret, AccessTokenTTL: time.Hour},
			Log:    LogConfig{Level: "info", Format: "json"},
			Audit:  AuditConfig{RecentLimit: 50, MaxPageSize: 1000},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "jwt_secret"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"pool bounds", func(c *Config) {
			c.Database.DSN = "postgres://x"
			c.Database.MinConns, c.Database.MaxConns = 5, 1
		}, "min_conns"},
		{"recent limit", func(c *Config) { c.Audit.RecentLimit = 0 }, "recent_limit"},
		{"page size", func(c *Config) { c.Audit.MaxPageSize = 10 }, "max_page_size"},
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
