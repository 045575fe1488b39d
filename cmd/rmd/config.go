// config.go - daemon configuration.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Backends the daemon can verify proofs with.
const (
	BackendInsecure = "insecure"
	BackendGroth16  = "groth16"
)

// Config represents the daemon configuration.
type Config struct {
	// HTTP listen address for the submit API.
	ListenAddr string `yaml:"listen_addr"`

	// File paths
	StorePath string `yaml:"store_path"`
	KeyDir    string `yaml:"key_dir"`

	// Proof backend: "insecure" (development only) or "groth16".
	Backend string `yaml:"backend"`

	// Issuers lists hex-encoded public keys whose issuance declarations the
	// ledger accepts. Empty means no issuance at all.
	Issuers []string `yaml:"issuers"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr: ":8545",
		StorePath:  "ledger.db",
		KeyDir:     "keys",
		Backend:    BackendInsecure,
		LogLevel:   "info",
	}
}

// LoadConfig loads configuration from file, or creates and saves the
// default when the file does not exist.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		config := DefaultConfig()
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
		return config, nil
	}

	config := DefaultConfig()
	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save default config: %w", err)
	}
	return config, nil
}

// SaveConfig saves configuration to file.
func SaveConfig(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must be set")
	}
	if c.StorePath == "" {
		return fmt.Errorf("store_path must be set")
	}
	if c.Backend != BackendInsecure && c.Backend != BackendGroth16 {
		return fmt.Errorf("backend must be %q or %q", BackendInsecure, BackendGroth16)
	}
	if c.Backend == BackendGroth16 && c.KeyDir == "" {
		return fmt.Errorf("key_dir must be set for the groth16 backend")
	}
	for _, iss := range c.Issuers {
		if _, err := hex.DecodeString(iss); err != nil {
			return fmt.Errorf("issuers entry %q is not hex: %w", iss, err)
		}
	}
	return nil
}
