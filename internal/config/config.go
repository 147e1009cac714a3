package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all listing alerts configuration.
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Quota    QuotaConfig    `mapstructure:"quota"`
	Channels ChannelsConfig `mapstructure:"channels"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Labels   LabelsConfig   `mapstructure:"labels"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Path        string `mapstructure:"path"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	Listen       string        `mapstructure:"listen"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DispatchConfig defines notification fan-out settings.
type DispatchConfig struct {
	Workers       int           `mapstructure:"workers"`
	SendTimeout   time.Duration `mapstructure:"send_timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	StatsTimeout  time.Duration `mapstructure:"stats_timeout"`
}

// QuotaConfig defines per-owner limits.
type QuotaConfig struct {
	MaxAlertsPerOwner int `mapstructure:"max_alerts_per_owner"`
}

// ChannelsConfig defines notification channels.
type ChannelsConfig struct {
	Email EmailConfig `mapstructure:"email"`
	Push  PushConfig  `mapstructure:"push"`
}

// EmailConfig defines email delivery settings.
type EmailConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Provider     string `mapstructure:"provider"`
	From         string `mapstructure:"from"`
	ListingURL   string `mapstructure:"listing_url"`
	ResendAPIKey string `mapstructure:"resend_api_key"`
	SESRegion    string `mapstructure:"ses_region"`
}

// PushConfig defines push gateway settings.
type PushConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// KafkaConfig defines the listing event consumer.
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// LabelsConfig defines the category label catalog.
type LabelsConfig struct {
	File string `mapstructure:"file"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".listing-alerts"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("storage.path", filepath.Join(home, ".listing-alerts", "alerts.db"))
	v.SetDefault("storage.auto_migrate", true)
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("dispatch.workers", 50)
	v.SetDefault("dispatch.send_timeout", "10s")
	v.SetDefault("dispatch.rate_per_second", 0)
	v.SetDefault("dispatch.stats_timeout", "5s")
	v.SetDefault("quota.max_alerts_per_owner", 10)
	v.SetDefault("channels.email.enabled", true)
	v.SetDefault("channels.email.provider", "log")
	v.SetDefault("channels.email.from", "alerts@localhost")
	v.SetDefault("channels.email.ses_region", "us-east-1")
	v.SetDefault("channels.push.enabled", false)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "listing.published")
	v.SetDefault("kafka.group_id", "listing-alerts")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables
	v.SetEnvPrefix("ALERTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	var errs []error

	if c.Channels.Email.Enabled {
		switch c.Channels.Email.Provider {
		case "log", "ses":
		case "resend":
			if c.Channels.Email.ResendAPIKey == "" {
				errs = append(errs, errors.New("channels.email.resend_api_key is required for the resend provider"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown email provider %q", c.Channels.Email.Provider))
		}
	}
	if c.Channels.Push.Enabled && c.Channels.Push.URL == "" {
		errs = append(errs, errors.New("channels.push.url is required when push is enabled"))
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		errs = append(errs, errors.New("kafka.brokers and kafka.topic are required when kafka is enabled"))
	}
	if c.Quota.MaxAlertsPerOwner < 0 {
		errs = append(errs, errors.New("quota.max_alerts_per_owner cannot be negative"))
	}

	return errors.Join(errs...)
}
