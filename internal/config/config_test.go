package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ogulcanaydogan/listing-alerts/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.True(t, cfg.Storage.AutoMigrate)
	assert.Equal(t, 50, cfg.Dispatch.Workers)
	assert.Equal(t, 10*time.Second, cfg.Dispatch.SendTimeout)
	assert.Zero(t, cfg.Dispatch.RatePerSecond)
	assert.Equal(t, 10, cfg.Quota.MaxAlertsPerOwner)
	assert.True(t, cfg.Channels.Email.Enabled)
	assert.Equal(t, "log", cfg.Channels.Email.Provider)
	assert.False(t, cfg.Channels.Push.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "listing.published", cfg.Kafka.Topic)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	data := []byte(`
storage:
  path: /tmp/test.db
  auto_migrate: false
server:
  listen: ":9090"
dispatch:
  workers: 8
  send_timeout: 3s
  rate_per_second: 12.5
quota:
  max_alerts_per_owner: 5
channels:
  email:
    provider: ses
    ses_region: eu-central-1
  push:
    enabled: true
    url: https://push.example.com/send
    secret: s3cret
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
labels:
  file: labels/bg.yaml
logging:
  level: debug
`)
	err := os.WriteFile(cfgPath, data, 0o644)
	require.NoError(t, err)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.db", cfg.Storage.Path)
	assert.False(t, cfg.Storage.AutoMigrate)
	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, 8, cfg.Dispatch.Workers)
	assert.Equal(t, 3*time.Second, cfg.Dispatch.SendTimeout)
	assert.Equal(t, 12.5, cfg.Dispatch.RatePerSecond)
	assert.Equal(t, 5, cfg.Quota.MaxAlertsPerOwner)
	assert.Equal(t, "ses", cfg.Channels.Email.Provider)
	assert.Equal(t, "eu-central-1", cfg.Channels.Email.SESRegion)
	assert.True(t, cfg.Channels.Push.Enabled)
	assert.Equal(t, "s3cret", cfg.Channels.Push.Secret)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "labels/bg.yaml", cfg.Labels.File)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ALERTS_LOGGING_LEVEL", "error")
	t.Setenv("ALERTS_SERVER_LISTEN", ":7070")
	t.Setenv("ALERTS_QUOTA_MAX_ALERTS_PER_OWNER", "3")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, ":7070", cfg.Server.Listen)
	assert.Equal(t, 3, cfg.Quota.MaxAlertsPerOwner)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("server: [unclosed"), 0o644))

	_, err := config.Load(cfgPath)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"ok", func(*config.Config) {}, ""},
		{"resend without key", func(c *config.Config) { c.Channels.Email.Provider = "resend" }, "resend_api_key"},
		{"unknown provider", func(c *config.Config) { c.Channels.Email.Provider = "pigeon" }, "unknown email provider"},
		{"push without url", func(c *config.Config) { c.Channels.Push.Enabled = true }, "channels.push.url"},
		{"kafka without topic", func(c *config.Config) { c.Kafka.Enabled = true; c.Kafka.Topic = "" }, "kafka.topic"},
		{"negative quota", func(c *config.Config) { c.Quota.MaxAlertsPerOwner = -1 }, "max_alerts_per_owner"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Config{
				Channels: config.ChannelsConfig{Email: config.EmailConfig{Enabled: true, Provider: "log"}},
				Kafka:    config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "listing.published"},
			}
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
