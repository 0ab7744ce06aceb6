package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// clearSecrets keeps the caller's shell environment out of the assertions.
func clearSecrets(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"GEMINI_API_KEY", "ANTHROPIC_API_KEY", "SENDER_EMAIL",
		"SENDER_PASSWORD", "RECIPIENT_EMAIL", "LOG_LEVEL",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadConfig(t *testing.T) {
	clearSecrets(t)
	path := writeConfig(t, `
input: books/dune.txt
title: Dune
generator:
  type: gemini
  api_key: test_api_key
email:
  from: sender@example.com
  password: app-password
  to: reader@example.com
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "books/dune.txt", cfg.Input)
	assert.Equal(t, "Dune", cfg.Title)
	assert.Equal(t, "test_api_key", cfg.Generator.Key())
	assert.Equal(t, "sender@example.com", cfg.Email.From)
	assert.Equal(t, "reader@example.com", cfg.Email.To)
}

func TestDefaults(t *testing.T) {
	clearSecrets(t)
	path := writeConfig(t, "input: book.txt\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "The Book", cfg.Title)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8000, cfg.Summarizer.ChunkSize)
	assert.Equal(t, 150, cfg.Summarizer.ChunkWords)
	assert.Equal(t, 500, cfg.Summarizer.FinalSummaryWords)
	assert.Equal(t, "gemini", cfg.Generator.Type)
	assert.Equal(t, "gemini-2.5-flash", cfg.Generator.Model)
	assert.Equal(t, "fixed", cfg.Throttle.Type)
	assert.Equal(t, time.Second, cfg.Throttle.Interval)
	assert.Equal(t, "smtp.gmail.com", cfg.Email.SMTPHost)
	assert.Equal(t, 465, cfg.Email.SMTPPort)
	assert.False(t, cfg.Delivery.SkipDegraded)
	assert.Empty(t, cfg.Schedule)
}

func TestAnthropicDefaultModel(t *testing.T) {
	clearSecrets(t)
	path := writeConfig(t, `
input: book.txt
generator:
  type: anthropic
  anthropic_api_key: sk-test
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Generator.Model)
	assert.Equal(t, "sk-test", cfg.Generator.Key())
}

func TestSecretsFromEnvironment(t *testing.T) {
	clearSecrets(t)
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("SENDER_EMAIL", "env-sender@example.com")
	t.Setenv("SENDER_PASSWORD", "env-password")

	path := writeConfig(t, `
input: book.txt
email:
  to: reader@example.com
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Generator.APIKey)
	assert.Equal(t, "env-sender@example.com", cfg.Email.From)
	assert.Equal(t, "env-password", cfg.Email.Password)
	assert.Equal(t, "reader@example.com", cfg.Email.To)
}

func TestThrottleDuration(t *testing.T) {
	clearSecrets(t)
	path := writeConfig(t, `
input: book.txt
throttle:
  type: rate
  interval: 250ms
  requests_per_minute: 15
  burst: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "rate", cfg.Throttle.Type)
	assert.Equal(t, 250*time.Millisecond, cfg.Throttle.Interval)
	assert.InDelta(t, 15.0, cfg.Throttle.RequestsPerMinute, 0.001)
	assert.Equal(t, 2, cfg.Throttle.Burst)
}

func TestOptionsOverrideFile(t *testing.T) {
	clearSecrets(t)
	path := writeConfig(t, `
input: from-file.txt
title: File Title
`)

	cfg, err := Load(path,
		WithInput("from-flag.txt"),
		WithTitle("Flag Title"),
		WithSchedule("0 8 * * 1"),
		WithLogLevel("debug"),
	)
	require.NoError(t, err)
	assert.Equal(t, "from-flag.txt", cfg.Input)
	assert.Equal(t, "Flag Title", cfg.Title)
	assert.Equal(t, "0 8 * * 1", cfg.Schedule)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestEmptyOptionsKeepFileValues(t *testing.T) {
	clearSecrets(t)
	path := writeConfig(t, "input: from-file.txt\n")

	cfg, err := Load(path, WithInput(""), WithTitle(""))
	require.NoError(t, err)
	assert.Equal(t, "from-file.txt", cfg.Input)
	assert.Equal(t, "The Book", cfg.Title)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name:    "missing input",
			config:  "title: x\n",
			wantErr: "input is required",
		},
		{
			name:    "unsupported generator",
			config:  "input: book.txt\ngenerator:\n  type: cohere\n",
			wantErr: "unsupported generator type",
		},
		{
			name:    "unsupported throttle",
			config:  "input: book.txt\nthrottle:\n  type: adaptive\n",
			wantErr: "unsupported throttle type",
		},
		{
			name:    "negative chunk size",
			config:  "input: book.txt\nsummarizer:\n  chunk_size: -1\n",
			wantErr: "chunk_size must be positive",
		},
		{
			name:    "bad log level",
			config:  "input: book.txt\nlog_level: loud\n",
			wantErr: "unsupported log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearSecrets(t)
			_, err := Load(writeConfig(t, tt.config))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFileNotFound(t *testing.T) {
	clearSecrets(t)
	_, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestDefaultPathIsOptional(t *testing.T) {
	clearSecrets(t)
	t.Chdir(t.TempDir())

	cfg, err := Load(DefaultPath, WithInput("book.txt"))
	require.NoError(t, err)
	assert.Equal(t, "book.txt", cfg.Input)
}

func TestEnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_VAR", "expanded_value")

	assert.Equal(t, "value: expanded_value", expandEnvVars("value: ${TEST_VAR}"))
}

func TestEnvVarExpansionUnset(t *testing.T) {
	unsetEnv(t, "UNSET_VAR_12345")

	assert.Equal(t, "value: ", expandEnvVars("value: ${UNSET_VAR_12345}"))
}

// unsetEnv removes the variables for the duration of the test.
func unsetEnv(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func TestExampleConfigWithoutSecrets(t *testing.T) {
	clearSecrets(t)
	unsetEnv(t, "GEMINI_API_KEY", "SENDER_EMAIL", "SENDER_PASSWORD")

	cfg, err := Load(filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)

	assert.Empty(t, cfg.Generator.APIKey)
	assert.Empty(t, cfg.Email.From)
	assert.Empty(t, cfg.Email.Password)
	assert.Equal(t, "reader@example.com", cfg.Email.To)
	assert.Equal(t, "smtp.gmail.com", cfg.Email.SMTPHost)
}

func TestExampleConfigWithSecrets(t *testing.T) {
	clearSecrets(t)
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("SENDER_EMAIL", "sender@example.com")
	t.Setenv("SENDER_PASSWORD", "app-password")

	cfg, err := Load(filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gemini-key", cfg.Generator.APIKey)
	assert.Equal(t, "sender@example.com", cfg.Email.From)
	assert.Equal(t, "app-password", cfg.Email.Password)
}
