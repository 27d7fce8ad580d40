// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Store         StoreConfig         `yaml:"store"`
	Database      DatabaseConfig      `yaml:"database"`
	Pricing       PricingConfig       `yaml:"pricing"`
	Retention     RetentionConfig     `yaml:"retention"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Type string `yaml:"type"` // postgres, memory
}

// DatabaseConfig defines PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// PricingConfig locates the price tables and tunes the resale rule.
type PricingConfig struct {
	// TablesFile seeds the memory store, and the database via import-prices.
	TablesFile             string  `yaml:"tables_file"`
	ResaleBatteryThreshold int     `yaml:"resale_battery_threshold"`
	ResaleBatteryRate      float64 `yaml:"resale_battery_rate"`
}

// RetentionConfig controls the returned-request sweep.
type RetentionConfig struct {
	ReturnedRetention time.Duration `yaml:"returned_retention"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	SweepBatch        int           `yaml:"sweep_batch"`
}

// NotificationsConfig defines notification targets.
type NotificationsConfig struct {
	Discord DiscordConfig `yaml:"discord"`
	Webhook WebhookConfig `yaml:"webhook"`
	Kafka   KafkaConfig   `yaml:"kafka"`
}

// DiscordConfig defines Discord webhook settings.
type DiscordConfig struct {
	Enabled    bool    `yaml:"enabled"`
	WebhookURL string  `yaml:"webhook_url"`
	RatePerSec float64 `yaml:"rate_per_sec"`
	Burst      int     `yaml:"burst"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
}

// KafkaConfig defines the lifecycle event topic.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// TelemetryConfig defines OpenTelemetry tracing settings. An empty
// OTLPEndpoint disables export.
type TelemetryConfig struct {
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	Insecure     bool    `yaml:"insecure"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML config document, performing environment variable
// substitution and validation.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyStoreDefaults(&cfg.Store)
	applyDatabaseDefaults(&cfg.Database)
	applyPricingDefaults(&cfg.Pricing)
	applyRetentionDefaults(&cfg.Retention)
	applyNotificationDefaults(&cfg.Notifications)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = 10 * time.Second
	}
}

func applyStoreDefaults(s *StoreConfig) {
	if s.Type == "" {
		s.Type = StorePostgres
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
}

func applyPricingDefaults(p *PricingConfig) {
	if p.ResaleBatteryThreshold == 0 {
		p.ResaleBatteryThreshold = 80
	}
	if p.ResaleBatteryRate == 0 {
		p.ResaleBatteryRate = 0.10
	}
}

func applyRetentionDefaults(r *RetentionConfig) {
	if r.ReturnedRetention == 0 {
		r.ReturnedRetention = 30 * 24 * time.Hour
	}
	if r.SweepInterval == 0 {
		r.SweepInterval = 6 * time.Hour
	}
	if r.SweepBatch == 0 {
		r.SweepBatch = 100
	}
}

func applyNotificationDefaults(n *NotificationsConfig) {
	if n.Discord.RatePerSec == 0 {
		n.Discord.RatePerSec = 0.5
	}
	if n.Discord.Burst == 0 {
		n.Discord.Burst = 5
	}
	if n.Kafka.Topic == "" {
		n.Kafka.Topic = "mailin-buyback.events"
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.ServiceName == "" {
		t.ServiceName = "mailin-buyback"
	}
	if t.SampleRatio == 0 {
		t.SampleRatio = 1
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	switch cfg.Store.Type {
	case StorePostgres:
		if cfg.Database.Host == "" {
			errs = append(errs, fmt.Errorf("database.host is required"))
		}
		if cfg.Database.Name == "" {
			errs = append(errs, fmt.Errorf("database.name is required"))
		}
		if cfg.Database.User == "" {
			errs = append(errs, fmt.Errorf("database.user is required"))
		}
	case StoreMemory:
		if cfg.Pricing.TablesFile == "" {
			errs = append(errs, fmt.Errorf("pricing.tables_file is required when store.type is memory"))
		}
	default:
		errs = append(errs, fmt.Errorf(
			"store.type must be one of: postgres, memory (got %q)", cfg.Store.Type,
		))
	}

	if cfg.Pricing.ResaleBatteryThreshold < 1 || cfg.Pricing.ResaleBatteryThreshold > 100 {
		errs = append(errs, fmt.Errorf(
			"pricing.resale_battery_threshold must be between 1 and 100 (got %d)",
			cfg.Pricing.ResaleBatteryThreshold,
		))
	}
	if cfg.Pricing.ResaleBatteryRate < 0 || cfg.Pricing.ResaleBatteryRate > 1 {
		errs = append(errs, fmt.Errorf(
			"pricing.resale_battery_rate must be between 0 and 1 (got %g)",
			cfg.Pricing.ResaleBatteryRate,
		))
	}

	if cfg.Retention.ReturnedRetention < 0 {
		errs = append(errs, fmt.Errorf("retention.returned_retention must not be negative"))
	}
	if cfg.Retention.SweepInterval < time.Minute {
		errs = append(errs, fmt.Errorf("retention.sweep_interval must be at least 1m"))
	}

	errs = append(errs, validateNotifications(&cfg.Notifications)...)

	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_ratio must be between 0 and 1"))
	}

	switch cfg.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json (got %q)", cfg.Logging.Format))
	}

	return errors.Join(errs...)
}

func validateNotifications(n *NotificationsConfig) []error {
	var errs []error

	if n.Discord.Enabled {
		if err := validURL(n.Discord.WebhookURL); err != nil {
			errs = append(errs, fmt.Errorf("notifications.discord.webhook_url: %w", err))
		}
	}
	if n.Webhook.Enabled {
		if err := validURL(n.Webhook.URL); err != nil {
			errs = append(errs, fmt.Errorf("notifications.webhook.url: %w", err))
		}
	}
	if n.Kafka.Enabled && len(n.Kafka.Brokers) == 0 {
		errs = append(errs, fmt.Errorf("notifications.kafka.brokers is required when kafka is enabled"))
	}
	return errs
}

func validURL(raw string) error {
	if raw == "" {
		return errors.New("is required when enabled")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https (got %q)", u.Scheme)
	}
	return nil
}
