// Package config provides configuration management for the ingestion worker.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrMissingSecretName        = errors.New("GUARDIAN_API_KEY_SECRET_NAME is required")
	ErrMissingStreamName        = errors.New("KINESIS_STREAM_NAME is required")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("retry.timeout_sec must be at least 1")
	ErrInvalidWorkers           = errors.New("publish.workers must be at least 1")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
)

// Environment variable names.
const (
	EnvSecretName = "GUARDIAN_API_KEY_SECRET_NAME"
	EnvStreamName = "KINESIS_STREAM_NAME"
	EnvRegion     = "AWS_REGION"
	EnvLogLevel   = "LOG_LEVEL"
	EnvLogFormat  = "LOG_FORMAT"
)

// DefaultRegion is where the stream and secret live unless AWS_REGION says
// otherwise.
const DefaultRegion = "eu-west-2"

// Config represents the complete worker configuration.
type Config struct {
	SecretName string        `yaml:"-"`
	StreamName string        `yaml:"-"`
	Region     string        `yaml:"-"`
	Publish    PublishConfig `yaml:"publish"`
	Retry      RetryPolicy   `yaml:"retry"`
	Logging    LoggingConfig `yaml:"logging"`
}

// PublishConfig contains stream publishing settings.
type PublishConfig struct {
	Workers int `yaml:"workers"`
}

// RetryPolicy defines per-record retry behavior for the publisher.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultRetryPolicy is the publish retry schedule used when no overlay
// overrides it: 3 attempts, 200ms initial delay, doubling, capped at 5s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		InitialDelayMs:    200,
		MaxDelayMs:        5000,
		BackoffMultiplier: 2.0,
		TimeoutSec:        30,
	}
}

// Load reads configuration from the environment. Missing required settings
// fail here, before any network call is made.
func Load() (*Config, error) {
	cfg := &Config{
		SecretName: strings.TrimSpace(os.Getenv(EnvSecretName)),
		StreamName: strings.TrimSpace(os.Getenv(EnvStreamName)),
		Region:     strings.TrimSpace(os.Getenv(EnvRegion)),
		Publish:    PublishConfig{Workers: 4},
		Retry:      DefaultRetryPolicy(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}

	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}

	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.Logging.Level = strings.ToLower(lvl)
	}

	if format := os.Getenv(EnvLogFormat); format != "" {
		cfg.Logging.Format = strings.ToLower(format)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadWithOverlay reads configuration from the environment and then applies
// retry/publish/logging overrides from a YAML file. Used by the CLI.
func LoadWithOverlay(filepath string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if filepath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.SecretName == "" {
		return ErrMissingSecretName
	}

	if c.StreamName == "" {
		return ErrMissingStreamName
	}

	if c.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if c.Retry.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if c.Publish.Workers < 1 {
		return ErrInvalidWorkers
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	return nil
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Cap at max delay
	if int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the whole-invocation timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// String returns a string representation of the config. The secret name is
// deliberately the only credential-adjacent value here; the secret value
// never reaches this package.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Stream: %s, Region: %s, MaxAttempts: %d, Workers: %d}",
		c.StreamName,
		c.Region,
		c.Retry.MaxAttempts,
		c.Publish.Workers,
	)
}
