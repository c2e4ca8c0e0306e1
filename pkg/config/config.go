package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/sirosfoundation/go-media-remote/pkg/logging"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// REMOTE_HTTP_TIMEOUT=10s or REMOTE_DEVICE_NAME=living-room.
const EnvPrefix = "REMOTE"

// Config represents the client configuration
type Config struct {
	Client    ClientConfig    `yaml:"client" envconfig:"CLIENT"`
	Device    DeviceConfig    `yaml:"device" envconfig:"DEVICE"`
	HTTP      HTTPConfig      `yaml:"http" envconfig:"HTTP"`
	Discovery DiscoveryConfig `yaml:"discovery" envconfig:"DISCOVERY"`
	Logging   logging.Config  `yaml:"logging" envconfig:"LOGGING"`
}

// ClientConfig identifies the application to the media server
type ClientConfig struct {
	Name    string `yaml:"name" envconfig:"NAME"`
	Version string `yaml:"version" envconfig:"VERSION"`
}

// DeviceConfig identifies the device to the media server
type DeviceConfig struct {
	Name string `yaml:"name" envconfig:"NAME"`
	// ID is generated per process when empty
	ID string `yaml:"id" envconfig:"ID"`
}

// HTTPConfig contains the defaults of the shared HTTP client.
// These are the values restored by a reset.
type HTTPConfig struct {
	Timeout   time.Duration     `yaml:"timeout" envconfig:"TIMEOUT"`
	UserAgent string            `yaml:"user_agent" envconfig:"USER_AGENT"`
	Headers   map[string]string `yaml:"headers" envconfig:"HEADERS"`
}

// DiscoveryConfig contains server discovery configuration
type DiscoveryConfig struct {
	// Timeout bounds each candidate probe
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// Missing file is fine, defaults and env vars apply
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with default values
func Default() *Config {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "go-media-remote"
	}

	return &Config{
		Client: ClientConfig{
			Name:    "go-media-remote",
			Version: "0.1.0",
		},
		Device: DeviceConfig{
			Name: hostname,
		},
		HTTP: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: "go-media-remote/0.1.0",
		},
		Discovery: DiscoveryConfig{
			Timeout: 5 * time.Second,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Client.Name == "" {
		return fmt.Errorf("client name is required")
	}

	if c.Client.Version == "" {
		return fmt.Errorf("client version is required")
	}

	if c.Device.Name == "" {
		return fmt.Errorf("device name is required")
	}

	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("invalid http timeout: %s", c.HTTP.Timeout)
	}

	if c.Discovery.Timeout <= 0 {
		return fmt.Errorf("invalid discovery timeout: %s", c.Discovery.Timeout)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid logging format: %s (must be json or text)", c.Logging.Format)
	}

	return nil
}
