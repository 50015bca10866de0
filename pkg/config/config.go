// Package config loads client configuration from YAML files and B2_* environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/objectfs/b2/pkg/errors"
)

// Configuration represents the complete client configuration
type Configuration struct {
	Credentials CredentialsConfig `yaml:"credentials"`
	Endpoint    EndpointConfig    `yaml:"endpoint"`
	Upload      UploadConfig      `yaml:"upload"`
	Network     NetworkConfig     `yaml:"network"`
	Monitoring  MonitoringConfig  `yaml:"monitoring"`
}

// CredentialsConfig holds the key pair used by b2_authorize_account.
type CredentialsConfig struct {
	// AccountID is the legacy principal, used when ApplicationKeyID is empty
	AccountID        string `yaml:"account_id,omitempty"`
	ApplicationKeyID string `yaml:"application_key_id"`
	ApplicationKey   string `yaml:"application_key"`
}

// EndpointConfig selects the authorization host and API version.
type EndpointConfig struct {
	AuthURL    string `yaml:"auth_url"`
	APIVersion string `yaml:"api_version"`
}

// UploadConfig represents upload settings
type UploadConfig struct {
	MaxInfoHeaders int `yaml:"max_info_headers"`
}

// NetworkConfig represents network configuration
type NetworkConfig struct {
	Timeout        time.Duration        `yaml:"timeout"`
	Retry          RetryConfig          `yaml:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// RetryConfig represents retry settings
type RetryConfig struct {
	Enabled      bool          `yaml:"enabled"`
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
	Jitter       bool          `yaml:"jitter"`
}

// CircuitBreakerConfig represents circuit breaker settings
type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold int           `yaml:"failure_threshold"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
}

// MonitoringConfig represents monitoring settings
type MonitoringConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// MetricsConfig represents metrics settings
type MetricsConfig struct {
	Enabled   bool              `yaml:"enabled"`
	Namespace string            `yaml:"namespace"`
	Subsystem string            `yaml:"subsystem"`
	Labels    map[string]string `yaml:"labels"`
}

// LoggingConfig represents logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// NewDefault returns a configuration with sensible defaults
func NewDefault() *Configuration {
	return &Configuration{
		Endpoint: EndpointConfig{
			AuthURL:    "https://api.backblazeb2.com",
			APIVersion: "/b2api/v2",
		},
		Upload: UploadConfig{
			MaxInfoHeaders: 10,
		},
		Network: NetworkConfig{
			Timeout: 0,
			Retry: RetryConfig{
				Enabled:      false,
				MaxAttempts:  5,
				InitialDelay: 100 * time.Millisecond,
				MaxDelay:     30 * time.Second,
				Multiplier:   2.0,
				Jitter:       true,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          false,
				FailureThreshold: 5,
				Interval:         60 * time.Second,
				Timeout:          30 * time.Second,
			},
		},
		Monitoring: MonitoringConfig{
			Metrics: MetricsConfig{
				Enabled:   false,
				Namespace: "b2",
				Subsystem: "client",
				Labels:    map[string]string{},
			},
			Logging: LoggingConfig{
				Level:  "INFO",
				Format: "text",
			},
		},
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.NewError(errors.ErrCodeConfigLoad, "failed to read config file").
			WithComponent("config").
			WithContext("file", filename).
			WithCause(err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.NewError(errors.ErrCodeConfigLoad, "failed to parse config file").
			WithComponent("config").
			WithContext("file", filename).
			WithCause(err)
	}

	return nil
}

// LoadFromEnv overlays B2_* environment variables. Unparseable numeric values are ignored.
func (c *Configuration) LoadFromEnv() error {
	// Credentials
	if val := os.Getenv("B2_APPLICATION_KEY_ID"); val != "" {
		c.Credentials.ApplicationKeyID = val
	}
	if val := os.Getenv("B2_APPLICATION_KEY"); val != "" {
		c.Credentials.ApplicationKey = val
	}
	if val := os.Getenv("B2_ACCOUNT_ID"); val != "" {
		c.Credentials.AccountID = val
	}

	// Endpoint
	if val := os.Getenv("B2_AUTH_URL"); val != "" {
		c.Endpoint.AuthURL = val
	}

	// Network
	if val := os.Getenv("B2_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Network.Timeout = d
		}
	}
	if val := os.Getenv("B2_RETRY_MAX_ATTEMPTS"); val != "" {
		if attempts, err := strconv.Atoi(val); err == nil {
			c.Network.Retry.MaxAttempts = attempts
			c.Network.Retry.Enabled = attempts > 1
		}
	}

	// Monitoring
	if val := os.Getenv("B2_LOG_LEVEL"); val != "" {
		c.Monitoring.Logging.Level = val
	}
	if val := os.Getenv("B2_LOG_FORMAT"); val != "" {
		c.Monitoring.Logging.Format = val
	}
	if val := os.Getenv("B2_LOG_FILE"); val != "" {
		c.Monitoring.Logging.File = val
	}
	if val := os.Getenv("B2_METRICS_ENABLED"); val != "" {
		c.Monitoring.Metrics.Enabled = strings.ToLower(val) == "true"
	}

	return nil
}

// SaveToFile saves the configuration to a YAML file. The file holds the
// application key, so it is written owner-only.
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.NewError(errors.ErrCodeConfigSave, "failed to marshal config").
			WithComponent("config").
			WithCause(err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return errors.NewError(errors.ErrCodeConfigSave, "failed to create config directory").
			WithComponent("config").
			WithCause(err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return errors.NewError(errors.ErrCodeConfigSave, "failed to write config file").
			WithComponent("config").
			WithContext("file", filename).
			WithCause(err)
	}

	return nil
}

// Validate validates the configuration. Credentials are not required here;
// a missing key pair is reported by Authorize.
func (c *Configuration) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return errors.NewError(errors.ErrCodeConfigValidation, fmt.Sprintf(format, args...)).
			WithComponent("config")
	}

	u, err := url.Parse(c.Endpoint.AuthURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("invalid auth_url: %q", c.Endpoint.AuthURL)
	}
	if !strings.HasPrefix(c.Endpoint.APIVersion, "/") {
		return invalid("api_version must start with '/': %q", c.Endpoint.APIVersion)
	}

	if c.Upload.MaxInfoHeaders <= 0 {
		return invalid("max_info_headers must be greater than 0")
	}

	if c.Network.Timeout < 0 {
		return invalid("timeout must not be negative")
	}
	if c.Network.Retry.Enabled && c.Network.Retry.MaxAttempts <= 0 {
		return invalid("retry max_attempts must be greater than 0")
	}
	if c.Network.CircuitBreaker.Enabled && c.Network.CircuitBreaker.FailureThreshold <= 0 {
		return invalid("circuit_breaker failure_threshold must be greater than 0")
	}

	validLogLevels := []string{"DEBUG", "INFO", "WARN", "WARNING", "ERROR"}
	logLevelValid := false
	for _, level := range validLogLevels {
		if strings.EqualFold(c.Monitoring.Logging.Level, level) {
			logLevelValid = true
			break
		}
	}
	if !logLevelValid {
		return invalid("invalid log level: %s (must be one of: %s)",
			c.Monitoring.Logging.Level, strings.Join(validLogLevels, ", "))
	}

	switch strings.ToLower(c.Monitoring.Logging.Format) {
	case "", "text", "json":
	default:
		return invalid("invalid log format: %s (must be text or json)", c.Monitoring.Logging.Format)
	}

	return nil
}
