package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the suppression hub.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	SES      SESConfig      `yaml:"ses"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with ECS detection.
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL                string `yaml:"url"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMin int    `yaml:"conn_max_lifetime_minutes"`
}

// ConnMaxLifetime returns the connection lifetime as a duration.
func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMin) * time.Minute
}

// RedisConfig holds the optional suppression-cache backend. When disabled,
// membership checks go straight to Postgres.
type RedisConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// TTL returns the cache entry lifetime as a duration.
func (c RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// WebhookConfig holds the SNS webhook endpoint settings.
type WebhookConfig struct {
	Enabled                  bool     `yaml:"enabled"`
	Path                     string   `yaml:"path"`
	AutoConfirmSubscriptions bool     `yaml:"auto_confirm_subscriptions"`
	RequireTopicValidation   bool     `yaml:"require_topic_validation"`
	AllowedTopicARNs         []string `yaml:"allowed_topic_arns"`
	CertHostPattern          string   `yaml:"cert_host_pattern"`
	CertTimeoutSeconds       int      `yaml:"cert_timeout_seconds"`
}

// CertTimeout returns the certificate fetch timeout as a duration.
func (c WebhookConfig) CertTimeout() time.Duration {
	return time.Duration(c.CertTimeoutSeconds) * time.Second
}

// SESConfig holds AWS SES API configuration for the account-level
// suppression mirror. Disabled unless credentials are configured.
type SESConfig struct {
	Enabled              bool   `yaml:"enabled"`
	Region               string `yaml:"region"`
	AccessKey            string `yaml:"access_key"`
	SecretKey            string `yaml:"secret_key"`
	TimeoutSeconds       int    `yaml:"timeout_seconds"`
	ReconcileIntervalMin int    `yaml:"reconcile_interval_minutes"`
}

// Timeout returns the configured timeout as a duration.
func (c SESConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ReconcileInterval returns the reconciliation loop period.
func (c SESConfig) ReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileIntervalMin) * time.Minute
}

// LoggingConfig controls log level and PII redaction. Redaction defaults on;
// DisableRedaction exists so local debugging can opt out explicitly.
type LoggingConfig struct {
	Level            string `yaml:"level"`
	DisableRedaction bool   `yaml:"disable_redaction"`
}

// Load reads and parses the configuration file. A missing file is not an
// error: defaults plus environment overrides are enough for container
// deployments that carry no config volume.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMin == 0 {
		cfg.Database.ConnMaxLifetimeMin = 30
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.TTLSeconds == 0 {
		cfg.Redis.TTLSeconds = 300
	}
	if cfg.Webhook.Path == "" {
		cfg.Webhook.Path = "/webhooks/sns"
	}
	if cfg.Webhook.CertTimeoutSeconds == 0 {
		cfg.Webhook.CertTimeoutSeconds = 5
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-west-2"
	}
	if cfg.SES.TimeoutSeconds == 0 {
		cfg.SES.TimeoutSeconds = 30
	}
	if cfg.SES.ReconcileIntervalMin == 0 {
		cfg.SES.ReconcileIntervalMin = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}
	if accessKey := os.Getenv("AWS_SES_ACCESS_KEY"); accessKey != "" {
		cfg.SES.AccessKey = accessKey
	}
	if secretKey := os.Getenv("AWS_SES_SECRET_KEY"); secretKey != "" {
		cfg.SES.SecretKey = secretKey
	}
	if region := os.Getenv("AWS_SES_REGION"); region != "" {
		cfg.SES.Region = region
	}
	if topics := os.Getenv("SNS_ALLOWED_TOPICS"); topics != "" {
		var arns []string
		for _, t := range strings.Split(topics, ",") {
			if t = strings.TrimSpace(t); t != "" {
				arns = append(arns, t)
			}
		}
		cfg.Webhook.AllowedTopicARNs = arns
		cfg.Webhook.RequireTopicValidation = len(arns) > 0
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	return cfg, nil
}
