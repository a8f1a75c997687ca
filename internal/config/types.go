package config

import "time"

// Config represents the complete oneguard-gw configuration.
type Config struct {
	Service      ServiceConfig      `yaml:"service"`
	Server       ServerConfig       `yaml:"server"`
	API          APIConfig          `yaml:"api"`
	Webhook      WebhookConfig      `yaml:"webhook"`
	Verification VerificationConfig `yaml:"verification"`
	Inbox        InboxConfig        `yaml:"inbox"`

	// SourcePath is the absolute path of the file this config was loaded from.
	// Empty when built from Defaults only.
	SourcePath string `yaml:"-"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Listen          string        `yaml:"listen"`
	ReadTimeout     time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout    time.Duration `yaml:"write_timeout,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty"`
}

// APIConfig defines admin API settings.
type APIConfig struct {
	// APIKey guards the admin endpoints. Admin endpoints are not mounted when empty.
	APIKey string `yaml:"api_key"`
}

// WebhookConfig defines the inbound webhook gate.
type WebhookConfig struct {
	Path            string `yaml:"path"`
	SignatureHeader string `yaml:"signature_header"`
	TimestampHeader string `yaml:"timestamp_header"`

	// TimestampBinding requires the timestamp header and signs
	// "<timestamp>.<body>" instead of the body alone.
	TimestampBinding bool `yaml:"timestamp_binding"`

	// SecretEnv names the environment variable holding the shared secret.
	SecretEnv string `yaml:"secret_env"`

	// MaxBodySize accepts plain bytes or KB/MB/GB suffixes (e.g. "1MB").
	MaxBodySize string `yaml:"max_body_size,omitempty"`
}

// VerificationConfig defines the outbound verification-request proxy.
type VerificationConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Path          string        `yaml:"path"`
	ProductionURL string        `yaml:"production_url"`
	StagingURL    string        `yaml:"staging_url"`
	Timeout       time.Duration `yaml:"timeout"`
}

// InboxConfig defines the optional delivery inbox.
type InboxConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`

	// Retention drops deliveries older than this. Zero keeps everything.
	Retention time.Duration `yaml:"retention,omitempty"`
	// PruneSchedule is a cron expression (5 fields or @every/@hourly...).
	PruneSchedule string `yaml:"prune_schedule,omitempty"`
}

// Default values
const (
	DefaultSignatureHeader = "x-oneguard-signature"
	DefaultTimestampHeader = "x-oneguard-timestamp"
	DefaultSecretEnv       = "ONEGUARD_WEBHOOK_SECRET"
	DefaultMaxBodySize     = 1048576 // 1 MB
	MaxBodySizeLimit       = 4 << 30 // 4 GB
	DefaultProductionURL   = "https://platform.oneguard.app/api/public/v1/verification"
	DefaultStagingURL      = "https://staging.platform.oneguard.app/api/public/v1/verification"
)

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "oneguard-gw",
			LogLevel:  "info",
			LogFormat: "json",
		},
		Server: ServerConfig{
			Listen:          "127.0.0.1:3000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Webhook: WebhookConfig{
			Path:            "/api/webhook",
			SignatureHeader: DefaultSignatureHeader,
			TimestampHeader: DefaultTimestampHeader,
			SecretEnv:       DefaultSecretEnv,
			MaxBodySize:     "1MB",
		},
		Verification: VerificationConfig{
			Enabled:       true,
			Path:          "/api/verify",
			ProductionURL: DefaultProductionURL,
			StagingURL:    DefaultStagingURL,
			Timeout:       15 * time.Second,
		},
		Inbox: InboxConfig{
			Enabled:       false,
			Path:          "./data/inbox.db",
			PruneSchedule: "@hourly",
		},
	}
}
