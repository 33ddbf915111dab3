// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the forwarder.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Supported delivery providers.
const (
	ProviderSES    = "ses"
	ProviderGraph  = "graph"
	ProviderStdout = "stdout"
)

// defaultKeyPrefix is where the receipt rule stores inbound messages.
const defaultKeyPrefix = "incoming/"

// Config holds the complete application configuration. It is loaded once
// at process start and treated as read-only afterwards.
type Config struct {
	Provider string        `yaml:"provider" env:"PROVIDER"`
	Forward  ForwardConfig `yaml:"forward"`
	Storage  StorageConfig `yaml:"storage"`
	SES      SESConfig     `yaml:"ses"`
	Graph    GraphConfig   `yaml:"graph"`
	Logging  LoggingConfig `yaml:"logging"`
}

// ForwardConfig holds the routing table and the sender identity used for
// every forwarded message.
type ForwardConfig struct {
	Mapping Mapping `yaml:"mapping" env:"FORWARD_MAPPING"`
	Sender  string  `yaml:"sender" env:"FROM_EMAIL"`
}

// StorageConfig holds the location of stored inbound messages.
type StorageConfig struct {
	Bucket string `yaml:"bucket" env:"S3_BUCKET"`
	Region string `yaml:"region" env:"S3_BUCKET_REGION"`
	Prefix string `yaml:"prefix" env:"S3_PREFIX"`
}

// SESConfig holds AWS SES configuration. Region and keys are optional; the
// default AWS credential chain is used when they are unset.
type SESConfig struct {
	Region          string `yaml:"region" env:"SES_REGION"`
	AccessKeyID     string `yaml:"access_key_id" env:"SES_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"SES_SECRET_ACCESS_KEY"`
}

// GraphConfig holds Microsoft Graph API configuration.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id" env:"GRAPH_TENANT_ID"`
	ClientID     string `yaml:"client_id" env:"GRAPH_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"GRAPH_CLIENT_SECRET"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// Mapping maps recipient local-parts to forward destinations. In the
// environment it is given as a JSON object, e.g. {"admin":"owner@example.com"}.
type Mapping map[string]string

// UnmarshalText decodes a JSON object into the mapping.
func (m *Mapping) UnmarshalText(text []byte) error {
	var decoded map[string]string
	if err := json.Unmarshal(text, &decoded); err != nil {
		return fmt.Errorf("FORWARD_MAPPING must be a JSON object of strings: %w", err)
	}
	if decoded == nil {
		decoded = map[string]string{}
	}
	*m = decoded
	return nil
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing required value. The bucket is only
// required when messages are read from S3.
func (c *Config) Validate(requireBucket bool) error {
	var errs []error

	if c.Forward.Mapping == nil {
		errs = append(errs, errors.New("FORWARD_MAPPING is required"))
	}
	if c.Forward.Sender == "" {
		errs = append(errs, errors.New("FROM_EMAIL is required"))
	}
	if requireBucket && c.Storage.Bucket == "" {
		errs = append(errs, errors.New("S3_BUCKET is required"))
	}

	switch c.Provider {
	case ProviderSES, ProviderStdout:
	case ProviderGraph:
		if !c.GraphConfigured() {
			errs = append(errs, errors.New("graph provider requires GRAPH_TENANT_ID, GRAPH_CLIENT_ID, and GRAPH_CLIENT_SECRET"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}

	return errors.Join(errs...)
}

// GraphConfigured returns true if all three Graph API credentials are set.
func (c *Config) GraphConfigured() bool {
	return c.Graph.TenantID != "" &&
		c.Graph.ClientID != "" &&
		c.Graph.ClientSecret != ""
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Provider = ProviderSES
	c.Storage.Prefix = defaultKeyPrefix
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values. env.Parse
// descends into the nested section structs itself.
func (c *Config) applyEnvVars() error {
	opts := env.Options{OnSet: func(key string, value interface{}, _ bool) {
		if s, ok := value.(string); ok && key != "" && s != "" {
			slog.Debug("configuration value from environment", "var", key)
		}
	}}
	if err := env.Parse(c, opts); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	c.Provider = strings.ToLower(c.Provider)
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	return nil
}
