package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// headerNamePattern matches RFC 7230 token characters.
var headerNamePattern = regexp.MustCompile("^[!#$%&'*+\\-.^_`|~0-9A-Za-z]+$")

// ErrNoConfig is returned by Discover when no configuration file exists.
var ErrNoConfig = errors.New("no config found")

// Load reads, interpolates, and validates configuration from a file or from
// a directory containing config.yaml. Values not present in the file keep
// their Defaults. When a .checksums manifest sits next to the file, the file
// must match it. A .env file next to the config (or in the working
// directory) is exported first so ${VAR} references can use it.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	if err := verifyConfigHash(absPath); err != nil {
		return nil, err
	}
	if _, err := loadDotEnvFiles(dotEnvCandidates(absPath)); err != nil {
		return nil, err
	}

	cfg, err := loadConfigFile(absPath)
	if err != nil {
		return nil, err
	}
	cfg.SourcePath = absPath

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads configPath when given, otherwise the discovered config,
// otherwise the built-in Defaults.
func LoadOrDefault(configPath string) (*Config, error) {
	if configPath != "" {
		return Load(configPath)
	}
	discovered, err := Discover()
	if errors.Is(err, ErrNoConfig) {
		cfg := Defaults()
		return cfg, validate(cfg)
	}
	if err != nil {
		return nil, err
	}
	return Load(discovered)
}

// Discover finds the config file by checking standard locations.
// Priority order: $ONEGUARD_CONFIG, ./config.yaml, ~/.config/oneguard-gw, /etc/oneguard-gw.
func Discover() (string, error) {
	if p := os.Getenv("ONEGUARD_CONFIG"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("ONEGUARD_CONFIG points to missing path %q", p)
	}

	candidates := []string{"./config.yaml"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, ".config", "oneguard-gw", "config.yaml"))
	}
	candidates = append(candidates, "/etc/oneguard-gw/config.yaml")

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w (checked: $ONEGUARD_CONFIG, %s)", ErrNoConfig, strings.Join(candidates, ", "))
}

func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	interpolated := interpolateEnv(string(data))

	// Unmarshal over defaults so omitted keys keep their default values.
	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(interpolated), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return cfg, nil
}

func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Leave the placeholder; validate reports it where it matters.
		return match
	})
}

func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(cfg.Service.LogLevel)] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}
	switch strings.ToLower(cfg.Service.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("service.log_format must be json or text (got %q)", cfg.Service.LogFormat)
	}

	if cfg.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}

	if err := checkUnresolved("api.api_key", cfg.API.APIKey); err != nil {
		return err
	}

	wh := cfg.Webhook
	if !strings.HasPrefix(wh.Path, "/") {
		return fmt.Errorf("webhook.path must start with / (got %q)", wh.Path)
	}
	if !headerNamePattern.MatchString(wh.SignatureHeader) {
		return fmt.Errorf("webhook.signature_header is not a valid header name (got %q)", wh.SignatureHeader)
	}
	if wh.TimestampBinding && !headerNamePattern.MatchString(wh.TimestampHeader) {
		return fmt.Errorf("webhook.timestamp_header is not a valid header name (got %q)", wh.TimestampHeader)
	}
	if wh.SecretEnv == "" {
		return fmt.Errorf("webhook.secret_env is required")
	}
	if _, err := ParseSize(wh.MaxBodySize); err != nil {
		return fmt.Errorf("webhook.max_body_size %q: %w", wh.MaxBodySize, err)
	}

	if cfg.Verification.Enabled {
		v := cfg.Verification
		if !strings.HasPrefix(v.Path, "/") {
			return fmt.Errorf("verification.path must start with / (got %q)", v.Path)
		}
		if v.Path == wh.Path {
			return fmt.Errorf("verification.path and webhook.path must differ (both %q)", v.Path)
		}
		for name, raw := range map[string]string{
			"verification.production_url": v.ProductionURL,
			"verification.staging_url":    v.StagingURL,
		} {
			if err := checkUnresolved(name, raw); err != nil {
				return err
			}
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("%s must be an absolute http(s) URL (got %q)", name, raw)
			}
		}
		if v.Timeout <= 0 {
			return fmt.Errorf("verification.timeout must be positive")
		}
	}

	if cfg.Inbox.Enabled {
		if cfg.Inbox.Path == "" {
			return fmt.Errorf("inbox.path is required when inbox is enabled")
		}
		if cfg.Inbox.Retention < 0 {
			return fmt.Errorf("inbox.retention must not be negative")
		}
		if cfg.Inbox.Retention > 0 {
			if _, err := cron.ParseStandard(cfg.Inbox.PruneSchedule); err != nil {
				return fmt.Errorf("inbox.prune_schedule %q: %w", cfg.Inbox.PruneSchedule, err)
			}
		}
	}

	return nil
}

func checkUnresolved(field, value string) error {
	if matches := envVarPattern.FindStringSubmatch(value); len(matches) > 1 {
		return fmt.Errorf("%s: environment variable ${%s} is not set", field, matches[1])
	}
	return nil
}

// MaxBodyBytes returns the parsed webhook body limit.
func (c *Config) MaxBodyBytes() int64 {
	n, err := ParseSize(c.Webhook.MaxBodySize)
	if err != nil {
		return DefaultMaxBodySize
	}
	return n
}

// ParseSize parses size strings like "1MB", "512KB", "2048576" to bytes.
// Returns DefaultMaxBodySize if empty. Sizes above MaxBodySizeLimit are rejected.
func ParseSize(size string) (int64, error) {
	if size == "" {
		return DefaultMaxBodySize, nil
	}

	upper := strings.ToUpper(strings.TrimSpace(size))
	multiplier := int64(1)

	switch {
	case strings.HasSuffix(upper, "KB"):
		multiplier = 1024
		upper = strings.TrimSuffix(upper, "KB")
	case strings.HasSuffix(upper, "MB"):
		multiplier = 1024 * 1024
		upper = strings.TrimSuffix(upper, "MB")
	case strings.HasSuffix(upper, "GB"):
		multiplier = 1024 * 1024 * 1024
		upper = strings.TrimSuffix(upper, "GB")
	}

	value, err := strconv.ParseInt(strings.TrimSpace(upper), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}

	result := value * multiplier
	if result/multiplier != value || result > MaxBodySizeLimit {
		return 0, fmt.Errorf("size too large (max %d bytes)", int64(MaxBodySizeLimit))
	}
	return result, nil
}
