package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AEGIS_JWT_SECRET", validSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 25, cfg.Database.MaxConns)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.Guard.MaxLoginAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Guard.LockoutDuration)
	assert.Equal(t, 60, cfg.Guard.RateLimitMax)
	assert.Equal(t, time.Minute, cfg.Guard.RateLimitWindow)
	assert.Equal(t, 5, cfg.Guard.LoginRateLimitMax)
	assert.Equal(t, 30*time.Second, cfg.Guard.OperationTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Guard.AlertCooldown)
	assert.Empty(t, cfg.Guard.SensitiveFields)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AEGIS_JWT_SECRET", validSecret)
	t.Setenv("AEGIS_STORE", "memory")
	t.Setenv("AEGIS_DB_PORT", "5433")
	t.Setenv("AEGIS_MAX_LOGIN_ATTEMPTS", "3")
	t.Setenv("AEGIS_LOCKOUT_DURATION", "30m")
	t.Setenv("AEGIS_RATE_LIMIT_MAX", "10")
	t.Setenv("AEGIS_RATE_LIMIT_WINDOW", "10s")
	t.Setenv("AEGIS_OPERATION_TIMEOUT", "5s")
	t.Setenv("AEGIS_SENSITIVE_FIELDS", "ssn, card_number ,")
	t.Setenv("AEGIS_CORS_ORIGINS", "https://app.example.com,https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, 3, cfg.Guard.MaxLoginAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Guard.LockoutDuration)
	assert.Equal(t, 10, cfg.Guard.RateLimitMax)
	assert.Equal(t, 10*time.Second, cfg.Guard.RateLimitWindow)
	assert.Equal(t, 5*time.Second, cfg.Guard.OperationTimeout)
	assert.Equal(t, []string{"ssn", "card_number"}, cfg.Guard.SensitiveFields)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.Server.CORSOrigins)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing jwt secret",
			env:     map[string]string{},
			wantErr: "AEGIS_JWT_SECRET is required",
		},
		{
			name:    "short jwt secret",
			env:     map[string]string{"AEGIS_JWT_SECRET": "too-short"},
			wantErr: "at least 32 characters",
		},
		{
			name: "bad store kind",
			env: map[string]string{
				"AEGIS_JWT_SECRET": validSecret,
				"AEGIS_STORE":      "sqlite",
			},
			wantErr: "AEGIS_STORE",
		},
		{
			name: "db port out of range",
			env: map[string]string{
				"AEGIS_JWT_SECRET": validSecret,
				"AEGIS_DB_PORT":    "70000",
			},
			wantErr: "AEGIS_DB_PORT",
		},
		{
			name: "unparseable int",
			env: map[string]string{
				"AEGIS_JWT_SECRET": validSecret,
				"AEGIS_DB_PORT":    "not-a-number",
			},
			wantErr: "parsing AEGIS_DB_PORT",
		},
		{
			name: "unparseable duration",
			env: map[string]string{
				"AEGIS_JWT_SECRET":       validSecret,
				"AEGIS_LOCKOUT_DURATION": "15 minutes",
			},
			wantErr: "parsing AEGIS_LOCKOUT_DURATION",
		},
		{
			name: "zero max attempts",
			env: map[string]string{
				"AEGIS_JWT_SECRET":         validSecret,
				"AEGIS_MAX_LOGIN_ATTEMPTS": "0",
			},
			wantErr: "AEGIS_MAX_LOGIN_ATTEMPTS",
		},
		{
			name: "negative rate window",
			env: map[string]string{
				"AEGIS_JWT_SECRET":        validSecret,
				"AEGIS_RATE_LIMIT_WINDOW": "-1m",
			},
			wantErr: "AEGIS_RATE_LIMIT_WINDOW",
		},
		{
			name: "negative operation timeout",
			env: map[string]string{
				"AEGIS_JWT_SECRET":        validSecret,
				"AEGIS_OPERATION_TIMEOUT": "-1s",
			},
			wantErr: "AEGIS_OPERATION_TIMEOUT",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDSN(t *testing.T) {
	t.Parallel()

	db := DatabaseConfig{
		Host:    "db.internal",
		Port:    5432,
		User:    "aegis",
		DBName:  "aegis_prod",
		SSLMode: "require",
	}
	assert.Equal(t, "host=db.internal port=5432 user=aegis password= dbname=aegis_prod sslmode=require", db.DSN())
}
