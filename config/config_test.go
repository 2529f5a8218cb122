package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_ACCESS_TTL", "")
	cfg := Load()

	assert.Equal(t, time.Hour, cfg.AccessTTL)
	assert.Equal(t, "db/migrations", cfg.MigrationsDir)
	assert.False(t, cfg.AuditPublishEnabled)
	assert.True(t, cfg.MetricsEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_ACCESS_TTL", "15m")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("DB_MAX_CONNS", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	cfg := Load()

	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins())
}

func TestValidate(t *testing.T) {
	cfg := &Config{Env: "production", JWTSecret: "devaccesssecret", AccessTTL: time.Hour}
	require.Error(t, cfg.Validate())

	cfg.JWTSecret = "real"
	require.NoError(t, cfg.Validate())

	cfg.AccessTTL = 0
	require.Error(t, cfg.Validate())
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "5432", DBName: "rbac", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/rbac?sslmode=disable", cfg.PostgresDSN())

	cfg.DBPassword = "p@ss/word"
	assert.Equal(t, "postgres://u:p%40ss%2Fword@h:5432/rbac?sslmode=disable", cfg.PostgresDSN())
}
