package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DB_DSN", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Contains(t, cfg.Database.DSN, "sslmode=disable")
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 15*time.Minute, cfg.Auth.ResetTokenTTL)
	assert.NotEmpty(t, cfg.Auth.JWTSecret)
	assert.Equal(t, "20-M", cfg.RateLimit.AuthRate)
}

func TestLoadFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "DB_DRIVER=sqlite\nDB_DSN=file:test.db\nCORS_ALLOW_ORIGINS=https://a.example, https://b.example\nACCESS_TOKEN_TTL=30m\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	// godotenv never overrides variables that are already set
	for _, key := range []string{"DB_DRIVER", "DB_DSN", "CORS_ALLOW_ORIGINS", "ACCESS_TOKEN_TTL"} {
		value, ok := os.LookupEnv(key)
		require.NoError(t, os.Unsetenv(key))
		t.Cleanup(func() {
			if ok {
				_ = os.Setenv(key, value)
			} else {
				_ = os.Unsetenv(key)
			}
		})
	}
	t.Setenv("APP_ENV", "development")

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:test.db", cfg.Database.DSN)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowOrigins)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL)
}

func TestProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := &Config{
		Server:    ServerConfig{Port: "8080"},
		Database:  DatabaseConfig{Driver: "mysql", DSN: "x"},
		Auth:      AuthConfig{JWTSecret: "s", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Minute, ResetTokenTTL: time.Minute},
		Scheduler: SchedulerConfig{Timezone: "UTC"},
		RateLimit: RateLimitConfig{AuthRate: "5-M"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")

	cfg.Database.Driver = "sqlite"
	assert.NoError(t, cfg.Validate())
}
