package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultGraphQLURL       = "https://api.linear.app/graphql"
	DefaultServerName       = "Linear MCP"
	DefaultAddr             = "127.0.0.1:8787"
	DefaultBasePath         = "/v0"
	DefaultReplayWindow     = 60 * time.Second
	DefaultMaxBodyBytes     = 5 << 20
	DefaultUpstreamTimeout  = 30 * time.Second
	DefaultForwardTimeout   = 10 * time.Second
	defaultConfigFileName   = "linearmcp.yml"
	defaultLogLevel         = "info"
	defaultLogFormat        = "text"
	defaultForwardUserAgent = "linearmcp-relay"
)

// Config models linearmcp.yml.
type Config struct {
	Server struct {
		Name      string `yaml:"name"`
		Addr      string `yaml:"addr"`
		BasePath  string `yaml:"base_path"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"server"`
	Linear struct {
		GraphQLURL string        `yaml:"graphql_url"`
		APIKey     string        `yaml:"api_key"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"linear"`
	Webhook WebhookConfig `yaml:"webhook"`
	Log     struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// WebhookConfig covers the inbound gate and the forwarding relay.
type WebhookConfig struct {
	Secret         string        `yaml:"secret"`
	ReplayWindow   time.Duration `yaml:"replay_window"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	ForwardURL     string        `yaml:"forward_url"`
	ForwardSecret  string        `yaml:"forward_secret"`
	ForwardTimeout time.Duration `yaml:"forward_timeout"`
	UserAgent      string        `yaml:"user_agent"`
}

// Default returns a Config with every optional field filled in.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Name == "" {
		c.Server.Name = DefaultServerName
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = DefaultBasePath
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		c.Server.BasePath = "/" + c.Server.BasePath
	}
	if c.Linear.GraphQLURL == "" {
		c.Linear.GraphQLURL = DefaultGraphQLURL
	}
	if c.Linear.Timeout <= 0 {
		c.Linear.Timeout = DefaultUpstreamTimeout
	}
	if c.Webhook.ReplayWindow <= 0 {
		c.Webhook.ReplayWindow = DefaultReplayWindow
	}
	if c.Webhook.MaxBodyBytes <= 0 {
		c.Webhook.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Webhook.ForwardTimeout <= 0 {
		c.Webhook.ForwardTimeout = DefaultForwardTimeout
	}
	if c.Webhook.UserAgent == "" {
		c.Webhook.UserAgent = defaultForwardUserAgent
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}
}

// Validate ensures the config meets required structure. The inbound webhook
// secret is optional here: without it the gate rejects every delivery.
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.Linear.GraphQLURL); err != nil {
		return fmt.Errorf("config.linear.graphql_url is invalid: %w", err)
	}
	if c.Webhook.ForwardURL != "" {
		u, err := url.ParseRequestURI(c.Webhook.ForwardURL)
		if err != nil {
			return fmt.Errorf("config.webhook.forward_url is invalid: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("config.webhook.forward_url must be http or https")
		}
	}
	if c.Webhook.ForwardSecret != "" && c.Webhook.ForwardURL == "" {
		return fmt.Errorf("config.webhook.forward_secret set without forward_url")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config.log.format must be text or json")
	}
	return nil
}

// RequireLinear reports whether the credentials needed to reach Linear are present.
func (c *Config) RequireLinear() error {
	if strings.TrimSpace(c.Linear.APIKey) == "" {
		return fmt.Errorf("config.linear.api_key is required")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, defaultConfigFileName)
}

// Load reads and validates config from the given file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with lmcp config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Finalize fills defaults after overrides were applied and validates again.
func (c *Config) Finalize() error {
	c.applyDefaults()
	return c.Validate()
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() Config {
	out := *c
	out.Server.JWTSecret = mask(out.Server.JWTSecret)
	out.Linear.APIKey = mask(out.Linear.APIKey)
	out.Webhook.Secret = mask(out.Webhook.Secret)
	out.Webhook.ForwardSecret = mask(out.Webhook.ForwardSecret)
	return out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `server:
  name: Linear MCP
  addr: 127.0.0.1:8787
  base_path: /v0
  # jwt_secret: set LMCP_JWT_SECRET instead of committing it

linear:
  graphql_url: https://api.linear.app/graphql
  # api_key: set LMCP_LINEAR_API_KEY
  timeout: 30s

webhook:
  # secret: set LMCP_WEBHOOK_SECRET; without it every delivery is rejected
  replay_window: 60s
  max_body_bytes: 5242880
  # forward_url: https://example.internal/hooks/linear
  # forward_secret: set LMCP_FORWARD_SECRET
  forward_timeout: 10s

log:
  level: info
  format: text
`
