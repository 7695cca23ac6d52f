// Package config loads the tripmesh configuration from YAML.
//
// Environment variables are expanded before parsing, so secrets can stay out
// of the file:
//
//	reasoning:
//	  provider: openai
//	  api_key: ${OPENAI_API_KEY}
//
// Values missing from the file keep their defaults (see Default).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/tripmesh/logging"
	"github.com/hupe1980/tripmesh/router"
)

// Config is the complete application configuration.
type Config struct {
	Log           LogConfig           `yaml:"log"`
	Routing       RoutingConfig       `yaml:"routing"`
	Timeouts      TimeoutConfig       `yaml:"timeouts"`
	Session       SessionConfig       `yaml:"session"`
	State         StateConfig         `yaml:"state"`
	Reasoning     ReasoningConfig     `yaml:"reasoning"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// RoutingConfig configures classification and the binding table.
type RoutingConfig struct {
	// Classifier is "keyword" or "llm". The llm classifier needs a reasoning provider.
	Classifier string `yaml:"classifier"`
	// Routes replaces the built-in routing table when non-empty.
	Routes []router.Route `yaml:"routes"`
	// Default is the handler for unmatched labels. Empty disables the fallback.
	Default string `yaml:"default"`
}

// TimeoutConfig bounds external calls.
type TimeoutConfig struct {
	Call              time.Duration `yaml:"call"`
	Request           time.Duration `yaml:"request"`
	MaxReasoningCalls int           `yaml:"max_reasoning_calls"`
}

// SessionConfig configures session expiry.
type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// StateConfig selects the user scope backend.
type StateConfig struct {
	// Backend is "memory" or "redis".
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis user scope backend.
type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// ReasoningConfig selects the reasoning provider.
type ReasoningConfig struct {
	// Provider is "none", "openai" or "anthropic".
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
	Instruction string  `yaml:"instruction"`
}

// ObservabilityConfig configures the record sinks.
type ObservabilityConfig struct {
	// MetricsAddr serves Prometheus metrics when set, e.g. ":9090".
	MetricsAddr string `yaml:"metrics_addr"`
	// LogRecords writes every record to the logger at debug level.
	LogRecords bool       `yaml:"log_records"`
	AMQP       AMQPConfig `yaml:"amqp"`
}

// AMQPConfig publishes records to RabbitMQ when URL is set.
type AMQPConfig struct {
	URL     string `yaml:"url"`
	Queue   string `yaml:"queue"`
	Durable bool   `yaml:"durable"`
}

// Provider names.
const (
	ProviderNone      = "none"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Default returns the configuration used for values absent from the file.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Routing: RoutingConfig{
			Classifier: "keyword",
			Default:    "fallback_agent",
		},
		Timeouts: TimeoutConfig{
			Call:              30 * time.Second,
			MaxReasoningCalls: 10,
		},
		Session: SessionConfig{
			TTL:           30 * time.Minute,
			SweepInterval: time.Minute,
		},
		State: StateConfig{
			Backend: "memory",
			Redis:   RedisConfig{Address: "localhost:6379", Prefix: "tripmesh:user:"},
		},
		Reasoning: ReasoningConfig{
			Provider:    ProviderNone,
			Temperature: 0.7,
			MaxTokens:   1024,
		},
		Observability: ObservabilityConfig{
			AMQP: AMQPConfig{Queue: "tripmesh.records", Durable: true},
		},
	}
}

// Load reads, expands and validates the file at path. An empty path yields
// the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format: must be json or text, got %q", c.Log.Format))
	}

	switch c.Routing.Classifier {
	case "keyword":
	case "llm":
		if c.Reasoning.Provider == ProviderNone {
			errs = append(errs, errors.New("routing.classifier: llm requires a reasoning provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("routing.classifier: must be keyword or llm, got %q", c.Routing.Classifier))
	}
	if _, err := router.FromRoutes(c.Routing.Routes, c.Routing.Default); err != nil {
		errs = append(errs, fmt.Errorf("routing.routes: %w", err))
	}

	if c.Timeouts.Call < 0 || c.Timeouts.Request < 0 {
		errs = append(errs, errors.New("timeouts: must not be negative"))
	}
	if c.Timeouts.MaxReasoningCalls < 0 {
		errs = append(errs, errors.New("timeouts.max_reasoning_calls: must not be negative"))
	}

	if c.Session.TTL < 0 {
		errs = append(errs, errors.New("session.ttl: must not be negative"))
	}

	switch c.State.Backend {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.State.Redis.Address) == "" {
			errs = append(errs, errors.New("state.redis.address: required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("state.backend: must be memory or redis, got %q", c.State.Backend))
	}

	switch c.Reasoning.Provider {
	case ProviderNone:
	case ProviderOpenAI, ProviderAnthropic:
		if c.Reasoning.APIKey == "" {
			errs = append(errs, fmt.Errorf("reasoning.api_key: required for provider %s", c.Reasoning.Provider))
		}
	default:
		errs = append(errs, fmt.Errorf("reasoning.provider: must be none, openai or anthropic, got %q", c.Reasoning.Provider))
	}
	if c.Reasoning.Temperature < 0 || c.Reasoning.Temperature > 2 {
		errs = append(errs, fmt.Errorf("reasoning.temperature: must be within [0, 2], got %v", c.Reasoning.Temperature))
	}
	if c.Reasoning.MaxTokens <= 0 {
		errs = append(errs, errors.New("reasoning.max_tokens: must be positive"))
	}

	if c.Observability.AMQP.URL != "" && c.Observability.AMQP.Queue == "" {
		errs = append(errs, errors.New("observability.amqp.queue: required when amqp.url is set"))
	}

	return errors.Join(errs...)
}

// LogLevel returns the parsed log level. Call after Validate.
func (c *Config) LogLevel() logging.LogLevel {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return logging.LogLevelInfo
	}
	return level
}
