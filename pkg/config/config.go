package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config represents the volumed configuration
type Config struct {
	Daemon struct {
		UnixSocket     string `yaml:"unix_socket"`
		PollIntervalMs int    `yaml:"poll_interval_ms"`
		MockAudio      bool   `yaml:"mock_audio"`
	} `yaml:"daemon"`

	Web struct {
		Enabled     bool   `yaml:"enabled"`
		Port        int    `yaml:"port"`
		BindAddress string `yaml:"bind_address"`
	} `yaml:"web"`

	Storage struct {
		DatabasePath string `yaml:"database_path"`
		MaxEvents    int    `yaml:"max_events"`
	} `yaml:"storage"`

	Logging struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		Console    bool   `yaml:"console"`
		MaxSize    int    `yaml:"max_size"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAge     int    `yaml:"max_age"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults
	if config.Daemon.UnixSocket == "" {
		config.Daemon.UnixSocket = "/tmp/volumed.sock"
	}
	if config.Daemon.PollIntervalMs == 0 {
		config.Daemon.PollIntervalMs = 500
	}
	if config.Web.Port == 0 {
		config.Web.Port = 8090
	}
	if config.Web.BindAddress == "" {
		config.Web.BindAddress = "127.0.0.1"
	}
	if config.Storage.MaxEvents == 0 {
		config.Storage.MaxEvents = 10000
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.MaxSize == 0 {
		config.Logging.MaxSize = 10 // megabytes
	}
	if config.Logging.MaxBackups == 0 {
		config.Logging.MaxBackups = 3
	}
	if config.Logging.MaxAge == 0 {
		config.Logging.MaxAge = 28 // days
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Daemon.PollIntervalMs < 50 {
		return fmt.Errorf("poll interval must be at least 50ms, got %dms", c.Daemon.PollIntervalMs)
	}
	if c.Web.Enabled && (c.Web.Port < 1 || c.Web.Port > 65535) {
		return fmt.Errorf("web port %d out of range", c.Web.Port)
	}
	return nil
}

// PollInterval returns the monitor poll interval as a duration
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Daemon.PollIntervalMs) * time.Millisecond
}
