// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	t.Setenv("DISPATCH_TRIGGER_SECRET", "cron-secret")
	t.Setenv("WHATSAPP_API_KEY", "wa-key")

	content := `
app:
  name: portal-notifier
  environment: test
server:
  trigger_secret: ${DISPATCH_TRIGGER_SECRET}
database:
  postgres:
    host: localhost
    database: portal
    user: portal
  redis:
    address: localhost:6379
dispatch:
  batch_size: 25
gateway:
  whatsapp:
    enabled: true
    base_url: https://gateway.example.com
    api_key: ${WHATSAPP_API_KEY}
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "portal-notifier", cfg.App.Name)
	assert.Equal(t, "cron-secret", cfg.Server.TriggerSecret)
	assert.Equal(t, "wa-key", cfg.Gateway.WhatsApp.APIKey)
	assert.Equal(t, 25, cfg.Dispatch.BatchSize)

	// Unset knobs get defaults.
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 5, cfg.Dispatch.MaxAttempts)
	assert.Equal(t, 60000, cfg.Dispatch.BackoffBase)
	assert.Equal(t, 3600000, cfg.Dispatch.BackoffMax)
	assert.Equal(t, 15000, cfg.Dispatch.ItemTimeout)
	assert.Equal(t, 100, cfg.Producer.ScanLimit)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Server.TriggerSecret = "secret"
		cfg.Database.Postgres.Host = "localhost"
		cfg.Database.Postgres.Database = "portal"
		cfg.Database.Postgres.User = "portal"
		cfg.Database.Redis.Address = "localhost:6379"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(cfg *Config) {}},
		{
			name: "no trigger credentials",
			mutate: func(cfg *Config) {
				cfg.Server.TriggerSecret = ""
				cfg.Server.SchedulerUserAgent = ""
			},
			wantErr: "trigger_secret",
		},
		{
			name: "user agent alone is enough",
			mutate: func(cfg *Config) {
				cfg.Server.TriggerSecret = ""
				cfg.Server.SchedulerUserAgent = "portal-cron/"
			},
		},
		{
			name:    "missing postgres host",
			mutate:  func(cfg *Config) { cfg.Database.Postgres.Host = "" },
			wantErr: "postgres.host",
		},
		{
			name:    "missing redis address",
			mutate:  func(cfg *Config) { cfg.Database.Redis.Address = "" },
			wantErr: "redis.address",
		},
		{
			name:    "audit enabled without elasticsearch",
			mutate:  func(cfg *Config) { cfg.Audit.Enabled = true },
			wantErr: "elasticsearch",
		},
		{
			name:    "whatsapp enabled without base url",
			mutate:  func(cfg *Config) { cfg.Gateway.WhatsApp.Enabled = true },
			wantErr: "base_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 15*time.Second, GetDuration(15000))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}
