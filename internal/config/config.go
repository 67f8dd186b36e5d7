// Package config loads and validates the gateway configuration.
//
// DESIGN: Configuration comes from YAML files with ${VAR:-default} env var
// expansion, so secrets like API keys stay out of the file itself. Server
// and upstream settings are required; ambient settings (logging, store,
// rate limiting) have working defaults applied by Validate.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the chart gateway.
type Config struct {
	Server     ServerConfig     `yaml:"server"`     // HTTP server settings
	Upstream   UpstreamConfig   `yaml:"upstream"`   // LLM provider settings
	Hooks      HooksConfig      `yaml:"hooks"`      // Response hook settings
	Store      StoreConfig      `yaml:"store"`      // Chart cache backend
	CORS       CORSConfig       `yaml:"cors"`       // Cross-origin settings
	RateLimit  RateLimitConfig  `yaml:"rate_limit"` // Per-IP rate limiting
	Monitoring MonitoringConfig `yaml:"monitoring"` // Logging settings
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // Port to listen on
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // Max time to read request
	WriteTimeout time.Duration `yaml:"write_timeout"` // Max time to write response
}

// UpstreamConfig describes the LLM provider the gateway forwards to.
type UpstreamConfig struct {
	// Provider is "openai", "anthropic", or "bedrock". Empty means detect
	// from the endpoint URL.
	Provider string `yaml:"provider"`

	Endpoint     string        `yaml:"endpoint"`      // Chat completion endpoint URL
	APIKey       string        `yaml:"api_key"`       // Usually ${OPENAI_API_KEY}
	DefaultModel string        `yaml:"default_model"` // Used when a request omits model
	MaxTokens    int           `yaml:"max_tokens"`    // Anthropic requires max_tokens; 0 uses 1024
	Timeout      time.Duration `yaml:"timeout"`       // Per-call timeout; 0 uses 60s
	Region       string        `yaml:"region"`        // AWS region for bedrock; empty uses AWS_REGION
}

// HooksConfig controls the response hook chain.
type HooksConfig struct {
	Chart ChartHookConfig `yaml:"chart"`
}

// ChartHookConfig controls the chart-enrichment hook.
type ChartHookConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Title     string `yaml:"title"`      // Chart title
	MaxPoints int    `yaml:"max_points"` // Max bars per chart
}

// StoreConfig selects the chart cache backend.
type StoreConfig struct {
	Type string        `yaml:"type"` // "memory" or "sqlite"
	Path string        `yaml:"path"` // sqlite database path
	TTL  time.Duration `yaml:"ttl"`  // Cache entry lifetime
}

// CORSConfig lists allowed origins. "*" allows any origin, matching the
// permissive default of typical local LLM tooling.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitConfig controls per-IP throttling.
type RateLimitConfig struct {
	PerSecond int `yaml:"per_second"` // Requests per second per client IP
}

// MonitoringConfig contains logging settings.
type MonitoringConfig struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // json, console, auto
	Output string `yaml:"output"` // stdout, stderr, or a file path
}

// expandEnvWithDefaults expands environment variables with support for
// default values. Supports both ${VAR} and ${VAR:-default} syntax.
func expandEnvWithDefaults(s string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw YAML bytes, expanding
// ${VAR:-default} references and validating the result.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvWithDefaults(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks required fields and applies defaults for ambient settings.
func (c *Config) Validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		// Streaming responses are synthesized from a buffered upstream call,
		// so the write timeout must cover the full upstream latency too.
		c.Server.WriteTimeout = 120 * time.Second
	}

	if c.Upstream.Endpoint == "" {
		return fmt.Errorf("upstream.endpoint is required")
	}
	if c.Upstream.Provider != "" {
		switch c.Upstream.Provider {
		case "openai", "anthropic", "bedrock":
		default:
			return fmt.Errorf("unknown upstream.provider %q (expected openai, anthropic, or bedrock)", c.Upstream.Provider)
		}
	}
	if c.Upstream.DefaultModel == "" {
		return fmt.Errorf("upstream.default_model is required")
	}

	switch c.Store.Type {
	case "", "memory":
		c.Store.Type = "memory"
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required when store.type is sqlite")
		}
	default:
		return fmt.Errorf("unknown store.type %q (expected memory or sqlite)", c.Store.Type)
	}
	if c.Store.TTL == 0 {
		c.Store.TTL = time.Hour
	}

	if c.RateLimit.PerSecond == 0 {
		c.RateLimit.PerSecond = 50
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}

	if c.Monitoring.Level == "" {
		c.Monitoring.Level = "info"
	}
	if c.Monitoring.Format == "" {
		c.Monitoring.Format = "auto"
	}

	return nil
}
