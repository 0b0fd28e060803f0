// ABOUTME: Tests for configuration loading
// ABOUTME: Covers YAML parsing, env expansion, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "securebot.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

const minimalConfig = `
server:
  http_addr: "127.0.0.1:8484"
database:
  path: "/tmp/securebot.db"
analyzer:
  base_url: "https://api.example.com/v1"
`

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "0.0.0.0:9000"
database:
  path: "/var/lib/securebot/securebot.db"
analyzer:
  base_url: "https://gateway.example.com/v1"
  api_key: "sk-test"
  model: "test-model"
  max_tokens: 512
  temperature: 0.2
  timeout: "45s"
conversations:
  retention: 100
  context_window: 20
  default_id: "main"
logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:9000" {
		t.Errorf("HTTPAddr: got %q", cfg.Server.HTTPAddr)
	}
	if cfg.Database.Path != "/var/lib/securebot/securebot.db" {
		t.Errorf("Database.Path: got %q", cfg.Database.Path)
	}
	if cfg.Analyzer.Model != "test-model" {
		t.Errorf("Model: got %q", cfg.Analyzer.Model)
	}
	if cfg.Analyzer.MaxTokens != 512 {
		t.Errorf("MaxTokens: got %d", cfg.Analyzer.MaxTokens)
	}
	if cfg.Analyzer.Temperature != 0.2 {
		t.Errorf("Temperature: got %v", cfg.Analyzer.Temperature)
	}
	if cfg.Analyzer.Timeout != 45*time.Second {
		t.Errorf("Timeout: got %v", cfg.Analyzer.Timeout)
	}
	if cfg.Conversations.Retention != 100 {
		t.Errorf("Retention: got %d", cfg.Conversations.Retention)
	}
	if cfg.Conversations.ContextWindow != 20 {
		t.Errorf("ContextWindow: got %d", cfg.Conversations.ContextWindow)
	}
	if cfg.Conversations.DefaultID != "main" {
		t.Errorf("DefaultID: got %q", cfg.Conversations.DefaultID)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging: got %+v", cfg.Logging)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Conversations.Retention != DefaultRetention {
		t.Errorf("Retention default: got %d, want %d", cfg.Conversations.Retention, DefaultRetention)
	}
	if cfg.Conversations.ContextWindow != DefaultContextWindow {
		t.Errorf("ContextWindow default: got %d, want %d", cfg.Conversations.ContextWindow, DefaultContextWindow)
	}
	if cfg.Conversations.DefaultID != DefaultConversationID {
		t.Errorf("DefaultID default: got %q", cfg.Conversations.DefaultID)
	}
	if cfg.Analyzer.Model != DefaultModel {
		t.Errorf("Model default: got %q", cfg.Analyzer.Model)
	}
	if cfg.Analyzer.MaxTokens != DefaultMaxTokens {
		t.Errorf("MaxTokens default: got %d", cfg.Analyzer.MaxTokens)
	}
	if cfg.Analyzer.Temperature != DefaultTemperature {
		t.Errorf("Temperature default: got %v", cfg.Analyzer.Temperature)
	}
	if cfg.Analyzer.Timeout != DefaultTimeout {
		t.Errorf("Timeout default: got %v", cfg.Analyzer.Timeout)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("SECUREBOT_TEST_KEY", "secret-from-env")

	cfg, err := Load(writeConfig(t, minimalConfig+`  api_key: "${SECUREBOT_TEST_KEY}"
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Analyzer.APIKey != "secret-from-env" {
		t.Errorf("APIKey: got %q, want %q", cfg.Analyzer.APIKey, "secret-from-env")
	}
}

func TestLoad_UnsetEnvVarBecomesEmpty(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`  api_key: "${SECUREBOT_DEFINITELY_UNSET}"
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Analyzer.APIKey != "" {
		t.Errorf("APIKey: got %q, want empty", cfg.Analyzer.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "server: [not: valid")); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoad_InvalidTimeout(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`  timeout: "soon"
`))
	if err == nil {
		t.Fatal("expected error for invalid timeout")
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("error does not mention timeout: %v", err)
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing http_addr", func(c *Config) { c.Server.HTTPAddr = "" }, "http_addr"},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"missing base_url", func(c *Config) { c.Analyzer.BaseURL = "" }, "base_url"},
		{"negative retention", func(c *Config) { c.Conversations.Retention = -1 }, "retention"},
		{"window exceeds retention", func(c *Config) {
			c.Conversations.Retention = 5
			c.Conversations.ContextWindow = 10
		}, "context_window"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server:   ServerConfig{HTTPAddr: "127.0.0.1:8484"},
				Database: DatabaseConfig{Path: "/tmp/test.db"},
				Analyzer: AnalyzerConfig{BaseURL: "https://api.example.com"},
				Conversations: ConversationsConfig{
					Retention:     50,
					ContextWindow: 10,
					DefaultID:     "default",
				},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
