package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Input      string           `yaml:"input"`
	Title      string           `yaml:"title"`
	Schedule   string           `yaml:"schedule"`
	LogLevel   string           `yaml:"log_level" env:"LOG_LEVEL"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Generator  GeneratorConfig  `yaml:"generator"`
	Throttle   ThrottleConfig   `yaml:"throttle"`
	Email      EmailConfig      `yaml:"email"`
	Delivery   DeliveryConfig   `yaml:"delivery"`
}

type SummarizerConfig struct {
	ChunkSize         int `yaml:"chunk_size"`
	ChunkWords        int `yaml:"chunk_words"`
	FinalSummaryWords int `yaml:"final_summary_words"`
}

type GeneratorConfig struct {
	Type            string `yaml:"type"`
	Model           string `yaml:"model"`
	APIKey          string `yaml:"api_key" env:"GEMINI_API_KEY"`
	AnthropicAPIKey string `yaml:"anthropic_api_key" env:"ANTHROPIC_API_KEY"`
	MaxTokens       int    `yaml:"max_tokens"`
}

// ThrottleConfig paces chunk requests. Type "fixed" sleeps Interval between
// requests; "rate" uses a token bucket of RequestsPerMinute with Burst.
type ThrottleConfig struct {
	Type              string        `yaml:"type"`
	Interval          time.Duration `yaml:"interval"`
	RequestsPerMinute float64       `yaml:"requests_per_minute"`
	Burst             int           `yaml:"burst"`
}

type EmailConfig struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port"`
	From     string `yaml:"from" env:"SENDER_EMAIL"`
	Password string `yaml:"password" env:"SENDER_PASSWORD"`
	To       string `yaml:"to" env:"RECIPIENT_EMAIL"`
	HTML     bool   `yaml:"html"`
}

type DeliveryConfig struct {
	// Quiet suppresses the summary and newsletter echo on stdout.
	Quiet bool `yaml:"quiet"`
	// SkipDegraded suppresses publishing when the summary or newsletter
	// came back as a failure placeholder.
	SkipDegraded bool `yaml:"skip_degraded"`
}

// Key returns the credential for the configured generator type.
func (g GeneratorConfig) Key() string {
	if g.Type == "anthropic" {
		return g.AnthropicAPIKey
	}
	return g.APIKey
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
// An unset variable expands to the empty string.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

func setDefaults(cfg *Config) {
	if cfg.Title == "" {
		cfg.Title = "The Book"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Summarizer.ChunkSize == 0 {
		cfg.Summarizer.ChunkSize = 8000
	}
	if cfg.Summarizer.ChunkWords == 0 {
		cfg.Summarizer.ChunkWords = 150
	}
	if cfg.Summarizer.FinalSummaryWords == 0 {
		cfg.Summarizer.FinalSummaryWords = 500
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "gemini"
	}
	if cfg.Generator.Model == "" {
		switch cfg.Generator.Type {
		case "anthropic":
			cfg.Generator.Model = "claude-sonnet-4-20250514"
		default:
			cfg.Generator.Model = "gemini-2.5-flash"
		}
	}
	if cfg.Generator.MaxTokens == 0 {
		cfg.Generator.MaxTokens = 4096
	}
	if cfg.Throttle.Type == "" {
		cfg.Throttle.Type = "fixed"
	}
	if cfg.Throttle.Interval == 0 {
		cfg.Throttle.Interval = time.Second
	}
	if cfg.Throttle.RequestsPerMinute == 0 {
		cfg.Throttle.RequestsPerMinute = 60
	}
	if cfg.Throttle.Burst == 0 {
		cfg.Throttle.Burst = 1
	}
	if cfg.Email.SMTPHost == "" {
		cfg.Email.SMTPHost = "smtp.gmail.com"
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = 465
	}
}

func validate(cfg *Config) error {
	if cfg.Input == "" {
		return fmt.Errorf("config: input is required")
	}
	switch cfg.Generator.Type {
	case "gemini", "anthropic":
	default:
		return fmt.Errorf("config: unsupported generator type %q (supported: gemini, anthropic)", cfg.Generator.Type)
	}
	switch cfg.Throttle.Type {
	case "fixed", "rate", "none":
	default:
		return fmt.Errorf("config: unsupported throttle type %q (supported: fixed, rate, none)", cfg.Throttle.Type)
	}
	if cfg.Summarizer.ChunkSize < 0 {
		return fmt.Errorf("config: summarizer.chunk_size must be positive, got %d", cfg.Summarizer.ChunkSize)
	}
	if cfg.Throttle.Interval < 0 {
		return fmt.Errorf("config: throttle.interval must not be negative")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unsupported log_level %q", cfg.LogLevel)
	}
	return nil
}

// Load reads the optional config file, expands environment variables,
// overlays secrets from the process environment, applies defaults, and
// validates the configuration. Overrides are applied before validation so
// callers can pass flag values through Option funcs.
func Load(path string, opts ...Option) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			expanded := expandEnvVars(string(data))
			if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
				return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
			// the default file is optional; flags and env can carry everything
		default:
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to read environment: %w", err)
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DefaultPath is the config file looked up when no --config flag is given.
const DefaultPath = "config.yaml"

// Option mutates the loaded config before defaults and validation run.
type Option func(*Config)

func WithInput(path string) Option {
	return func(c *Config) {
		if path != "" {
			c.Input = path
		}
	}
}

func WithTitle(title string) Option {
	return func(c *Config) {
		if title != "" {
			c.Title = title
		}
	}
}

func WithSchedule(expr string) Option {
	return func(c *Config) {
		if expr != "" {
			c.Schedule = expr
		}
	}
}

func WithLogLevel(level string) Option {
	return func(c *Config) {
		if level != "" {
			c.LogLevel = level
		}
	}
}
