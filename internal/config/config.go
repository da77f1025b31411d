// ABOUTME: Configuration loading and parsing for slack-mcp-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport selectors for the gateway's client-facing transport.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config represents the complete slack-mcp-gateway configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Transport  string           `yaml:"transport"`
	Slack      SlackConfig      `yaml:"slack"`
	Session    SessionConfig    `yaml:"session"`
	Request    RequestConfig    `yaml:"request"`
	Pagination PaginationConfig `yaml:"pagination"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds the HTTP listener address configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SlackConfig holds the upstream Slack API configuration
type SlackConfig struct {
	// Token is the workspace token used when no per-request bearer token is
	// supplied. Required for the stdio transport.
	Token   string `yaml:"token"`
	BaseURL string `yaml:"base_url"`
}

// SessionConfig bounds the HTTP session cache
type SessionConfig struct {
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TTLRaw string `yaml:"ttl"`
}

// RequestConfig holds per-request gateway limits
type RequestConfig struct {
	Timeout time.Duration `yaml:"-"`

	TimeoutRaw string `yaml:"timeout"`
}

// PaginationConfig tunes the pagination/aggregation engine
type PaginationConfig struct {
	TimeBudget time.Duration `yaml:"-"`

	// AggregateWithoutQuery controls whether channel listing loops across
	// pages when no query is supplied. Default is false: a single page,
	// matching the cheap default behavior clients expect.
	AggregateWithoutQuery bool `yaml:"aggregate_without_query"`

	TimeBudgetRaw string `yaml:"time_budget"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration populated with defaults. The gateway runs
// with no config file at all; everything can come from flags and environment.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3000,
		},
		Transport: TransportStdio,
		Slack: SlackConfig{
			BaseURL: "https://slack.com/api",
		},
		Session: SessionConfig{
			MaxEntries: 100,
			TTL:        30 * time.Minute,
		},
		Request: RequestConfig{
			Timeout: 25 * time.Second,
		},
		Pagination: PaginationConfig{
			TimeBudget: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed
// Config merged over defaults. Environment variables in the format
// ${VAR_NAME} are expanded. Duration strings are parsed into time.Duration
// values. An empty path returns the defaults with environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		// Expand environment variables in the raw YAML content
		expandedData := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}

		if err := parseDurations(cfg); err != nil {
			return nil, fmt.Errorf("parsing durations: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// applyEnv overlays well-known environment variables onto the config.
// SLACK_TOKEN takes priority over SLACK_BOT_TOKEN. PORT overrides the HTTP
// port when valid.
func (c *Config) applyEnv() {
	if c.Slack.Token == "" {
		if token := os.Getenv("SLACK_TOKEN"); token != "" {
			c.Slack.Token = token
		} else if token := os.Getenv("SLACK_BOT_TOKEN"); token != "" {
			c.Slack.Token = token
		}
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 && port <= 65535 {
			c.Server.Port = port
		}
	}
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Transport != TransportStdio && c.Transport != TransportHTTP {
		return fmt.Errorf("transport must be %q or %q, got %q", TransportStdio, TransportHTTP, c.Transport)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1,65535], got %d", c.Server.Port)
	}

	if c.Slack.BaseURL == "" {
		return fmt.Errorf("slack.base_url is required")
	}

	if c.Session.MaxEntries <= 0 {
		return fmt.Errorf("session.max_entries must be positive, got %d", c.Session.MaxEntries)
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive, got %s", c.Session.TTL)
	}

	if c.Request.Timeout <= 0 {
		return fmt.Errorf("request.timeout must be positive, got %s", c.Request.Timeout)
	}

	if c.Pagination.TimeBudget <= 0 {
		return fmt.Errorf("pagination.time_budget must be positive, got %s", c.Pagination.TimeBudget)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Session.TTLRaw != "" {
		cfg.Session.TTL, err = time.ParseDuration(cfg.Session.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing session.ttl %q: %w", cfg.Session.TTLRaw, err)
		}
	}

	if cfg.Request.TimeoutRaw != "" {
		cfg.Request.Timeout, err = time.ParseDuration(cfg.Request.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing request.timeout %q: %w", cfg.Request.TimeoutRaw, err)
		}
	}

	if cfg.Pagination.TimeBudgetRaw != "" {
		cfg.Pagination.TimeBudget, err = time.ParseDuration(cfg.Pagination.TimeBudgetRaw)
		if err != nil {
			return fmt.Errorf("parsing pagination.time_budget %q: %w", cfg.Pagination.TimeBudgetRaw, err)
		}
	}

	return nil
}
