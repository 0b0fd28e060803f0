// ABOUTME: Configuration loading and parsing for securebot
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Load when fields are absent.
const (
	DefaultRetention      = 50
	DefaultContextWindow  = 10
	DefaultConversationID = "default"
	DefaultModel          = "llama-3.3-70b-instruct"
	DefaultMaxTokens      = 1024
	DefaultTemperature    = 0.7
	DefaultTimeout        = 30 * time.Second
)

// Config represents the complete securebot configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Analyzer      AnalyzerConfig      `yaml:"analyzer"`
	Conversations ConversationsConfig `yaml:"conversations"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AnalyzerConfig holds inference endpoint configuration
type AnalyzerConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`

	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// ConversationsConfig holds conversation retention configuration
type ConversationsConfig struct {
	// Retention is the maximum number of messages kept per conversation.
	Retention int `yaml:"retention"`
	// ContextWindow is the number of most recent messages supplied to the
	// analyzer as context. Must not exceed Retention.
	ContextWindow int `yaml:"context_window"`
	// DefaultID is the conversation identity used when a request names none.
	DefaultID string `yaml:"default_id"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if cfg.Analyzer.TimeoutRaw != "" {
		cfg.Analyzer.Timeout, err = time.ParseDuration(cfg.Analyzer.TimeoutRaw)
		if err != nil {
			return nil, fmt.Errorf("parsing analyzer timeout %q: %w", cfg.Analyzer.TimeoutRaw, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in values for fields the file leaves unset.
func (c *Config) applyDefaults() {
	if c.Conversations.Retention == 0 {
		c.Conversations.Retention = DefaultRetention
	}
	if c.Conversations.ContextWindow == 0 {
		c.Conversations.ContextWindow = DefaultContextWindow
	}
	if c.Conversations.DefaultID == "" {
		c.Conversations.DefaultID = DefaultConversationID
	}
	if c.Analyzer.Model == "" {
		c.Analyzer.Model = DefaultModel
	}
	if c.Analyzer.MaxTokens == 0 {
		c.Analyzer.MaxTokens = DefaultMaxTokens
	}
	if c.Analyzer.Temperature == 0 {
		c.Analyzer.Temperature = DefaultTemperature
	}
	if c.Analyzer.TimeoutRaw == "" {
		c.Analyzer.Timeout = DefaultTimeout
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Analyzer.BaseURL == "" {
		return fmt.Errorf("analyzer.base_url is required")
	}
	if c.Conversations.Retention < 1 {
		return fmt.Errorf("conversations.retention must be positive")
	}
	if c.Conversations.ContextWindow < 1 {
		return fmt.Errorf("conversations.context_window must be positive")
	}
	if c.Conversations.ContextWindow > c.Conversations.Retention {
		return fmt.Errorf("conversations.context_window (%d) must not exceed retention (%d)",
			c.Conversations.ContextWindow, c.Conversations.Retention)
	}

	return nil
}
