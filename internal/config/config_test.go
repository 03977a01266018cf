package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/gameshelf")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")

	cfg := Load()

	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, ":8080", cfg.ServerPort)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
	assert.Equal(t, 168*time.Hour, cfg.JWTRefreshExpiry)
	assert.Equal(t, int64(5<<20), cfg.UploadMaxSize)
	assert.Equal(t, []string{"jpg", "jpeg", "png", "webp", "pdf"}, cfg.UploadAllowedExtensions)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file:gameshelf.db")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("JWT_ACCESS_EXPIRY", "5m")
	t.Setenv("UPLOAD_ALLOWED_EXTENSIONS", " png , gif ,,")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "not-a-number")

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, 5*time.Minute, cfg.JWTAccessExpiry)
	assert.Equal(t, []string{"png", "gif"}, cfg.UploadAllowedExtensions)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 20, cfg.RateLimitMaxRequests, "invalid value falls back to default")
	require.NoError(t, cfg.Validate())
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := &Config{
		DatabaseDriver:   "mysql",
		JWTSecret:        "short",
		JWTAccessExpiry:  time.Hour,
		JWTRefreshExpiry: time.Minute,
		UploadMaxSize:    0,
	}

	err := cfg.Validate()

	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "DATABASE_URL is required")
	assert.Contains(t, msg, "DB_DRIVER")
	assert.Contains(t, msg, "JWT_SECRET")
	assert.Contains(t, msg, "JWT_REFRESH_EXPIRY")
	assert.Contains(t, msg, "UPLOAD_MAX_SIZE")
}
