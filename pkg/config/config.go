/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/fitfix/pkg/repair"
)

// Config represents the fitfix configuration
type Config struct {
	Repair  Repair  `yaml:"repair"`
	Header  Header  `yaml:"header"`
	Workers int     `yaml:"workers"`
	Server  Server  `yaml:"server"`
	Journal Journal `yaml:"journal"`
	Metrics Metrics `yaml:"metrics"`
	Logging Logging `yaml:"logging"`
}

// Repair holds the drop-recovery search bounds
type Repair struct {
	MinSyncCnt   int     `yaml:"min_sync_cnt"`
	MaxRecordLen int     `yaml:"max_record_len"`
	MaxDropCnt   int     `yaml:"max_drop_cnt"`
	MaxBackCnt   int     `yaml:"max_back_cnt"`
	MaxFwdLen    int     `yaml:"max_fwd_len"`
	MaxDeltaT    float64 `yaml:"max_delta_t"`
}

// Header holds the values written by add-header and fix-header
type Header struct {
	Size            uint8  `yaml:"size"`
	ProtocolVersion uint8  `yaml:"protocol_version"`
	ProfileVersion  uint16 `yaml:"profile_version"`
}

// Server contains HTTP API configuration
type Server struct {
	Port        int    `yaml:"port"`
	Bind        string `yaml:"bind"`
	APIKey      string `yaml:"api_key"`
	MaxBodySize int64  `yaml:"max_body_size"`
}

// Journal contains repair journal configuration. An empty Dir disables it.
type Journal struct {
	Dir string `yaml:"dir"`
}

// Metrics contains metrics export configuration
type Metrics struct {
	TextFile string `yaml:"textfile"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	b := repair.DefaultBounds()
	return &Config{
		Repair: Repair{
			MinSyncCnt:   b.MinSyncCnt,
			MaxRecordLen: b.MaxRecordLen,
			MaxDropCnt:   b.MaxDropCnt,
			MaxBackCnt:   b.MaxBackCnt,
			MaxFwdLen:    b.MaxFwdLen,
			MaxDeltaT:    b.MaxDeltaT,
		},
		Header: Header{
			Size: 14,
		},
		Server: Server{
			Port:        8080,
			Bind:        "127.0.0.1",
			APIKey:      "",
			MaxBodySize: 64 << 20,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Bounds converts the repair section into search bounds
func (c *Config) Bounds() repair.Bounds {
	return repair.Bounds{
		MinSyncCnt:   c.Repair.MinSyncCnt,
		MaxRecordLen: c.Repair.MaxRecordLen,
		MaxDropCnt:   c.Repair.MaxDropCnt,
		MaxBackCnt:   c.Repair.MaxBackCnt,
		MaxFwdLen:    c.Repair.MaxFwdLen,
		MaxDeltaT:    c.Repair.MaxDeltaT,
	}
}

// HeaderSpec converts the header section for the repairer
func (c *Config) HeaderSpec() repair.HeaderSpec {
	return repair.HeaderSpec{
		Size:            c.Header.Size,
		ProtocolVersion: c.Header.ProtocolVersion,
		ProfileVersion:  c.Header.ProfileVersion,
	}
}

// LoadConfig loads configuration from the specified path. Keys missing from
// the file keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// may hold the API key
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a default configuration with a generated API key
// and journal directory
func BootstrapConfig(configPath string, journalDir string) (*Config, error) {
	config := DefaultConfig()
	if journalDir != "" {
		config.Journal.Dir = journalDir
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Server.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./fitfix.yaml"
	}

	// ~/.config/fitfix/config.yaml on Linux and macOS
	return filepath.Join(homeDir, ".config", "fitfix", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
