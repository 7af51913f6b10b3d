/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/nucleon/pkg/codec"
	"github.com/ssargent/nucleon/pkg/errs"
	"gopkg.in/yaml.v3"
)

// DefaultMaxUploadBytes caps request bodies at 16 MiB
const DefaultMaxUploadBytes = 16 << 20

// Config represents the nucleon configuration
type Config struct {
	DataDir  string       `yaml:"data_dir"`
	Port     int          `yaml:"port"`
	Bind     string       `yaml:"bind"`
	Security Security     `yaml:"security"`
	Logging  Logging      `yaml:"logging"`
	Pipeline codec.Config `yaml:"pipeline"`
	Workers  Workers      `yaml:"workers"`
	Limits   Limits       `yaml:"limits"`
}

// Security contains security-related configuration
type Security struct {
	APIKey string `yaml:"api_key"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// Workers sizes the bounded worker pools
type Workers struct {
	// KDF is the number of concurrent key derivations the API server allows.
	KDF int `yaml:"kdf"`
}

// Limits contains request limits
type Limits struct {
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Port:    8080,
		Bind:    "127.0.0.1",
		Security: Security{
			APIKey: "auto",
		},
		Logging: Logging{
			Level: "info",
		},
		Pipeline: codec.DefaultConfig(),
		Workers: Workers{
			KDF: 4,
		},
		Limits: Limits{
			MaxUploadBytes: DefaultMaxUploadBytes,
		},
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errs.Newf(errs.ErrValidation, "port %d out of range", c.Port)
	}
	if c.Workers.KDF < 1 {
		return errs.Newf(errs.ErrValidation, "workers.kdf must be at least 1, got %d", c.Workers.KDF)
	}
	if c.Limits.MaxUploadBytes < 1 {
		return errs.Newf(errs.ErrValidation, "limits.max_upload_bytes must be positive, got %d", c.Limits.MaxUploadBytes)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return errs.Newf(errs.ErrValidation, "unknown log level %q", c.Logging.Level)
	}
	return c.Pipeline.Validate()
}

// LoadConfig loads configuration from the specified path. Fields missing
// from the file keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, errors.Newf("config file does not exist: %s", configPath)
	}

	// Validate path to prevent directory traversal
	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, errors.Wrap(err, "invalid config path")
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config file %s", configPath)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	// Write with secure permissions (0600)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", errors.Wrap(err, "failed to generate secure key")
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig creates a new configuration with a generated API key
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate API key")
	}
	config.Security.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, errors.Wrap(err, "failed to save bootstrap config")
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./nucleon.yaml"
	}

	// For Linux/macOS, use ~/.config/nucleon/config.yaml
	configDir := filepath.Join(homeDir, ".config", "nucleon")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
