package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const settingsFileName = ".tubedeck.yaml"

// Config holds everything the server and CLI need to run
type Config struct {
	ServiceURL       string        `yaml:"service_url" json:"serviceUrl"`
	Port             int           `yaml:"port" json:"port"`
	PollInterval     time.Duration `yaml:"poll_interval" json:"pollInterval"`
	RequestTimeout   time.Duration `yaml:"request_timeout" json:"requestTimeout"`
	CORSOrigins      []string      `yaml:"cors_origins" json:"corsOrigins"`
	DownloadLocation string        `yaml:"download_location" json:"downloadLocation"`
	GinMode          string        `yaml:"gin_mode,omitempty" json:"ginMode,omitempty"`
	Debug            bool          `yaml:"debug,omitempty" json:"debug,omitempty"`
	RateLimit        RateLimit     `yaml:"rate_limit" json:"rateLimit"`
}

// RateLimit configures per-client request limiting. An empty RedisAddr keeps
// the counters in memory.
type RateLimit struct {
	RequestsPerMinute int    `yaml:"requests_per_minute" json:"requestsPerMinute"`
	RedisAddr         string `yaml:"redis_addr,omitempty" json:"redisAddr,omitempty"`
	RedisPassword     string `yaml:"redis_password,omitempty" json:"-"`
	RedisDB           int    `yaml:"redis_db,omitempty" json:"redisDb,omitempty"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		ServiceURL:       "http://127.0.0.1:8000",
		Port:             8080,
		PollInterval:     700 * time.Millisecond,
		RequestTimeout:   30 * time.Second,
		CORSOrigins:      []string{"http://localhost:3000", "http://localhost:5173", "http://127.0.0.1:5173"},
		DownloadLocation: GetDownloadLocation(),
		RateLimit:        RateLimit{RequestsPerMinute: 120},
	}
}

// DefaultPath returns the settings file in the user's home directory
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return settingsFileName
	}
	return filepath.Join(homeDir, settingsFileName)
}

// Load builds the configuration from defaults, then the YAML file at path,
// then environment variables. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("error reading settings file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("error parsing settings file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Save writes the configuration as YAML to path
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if path == "" {
		path = DefaultPath()
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0600)
}

// Validate rejects configurations the server cannot run with
func (c Config) Validate() error {
	u, err := url.Parse(c.ServiceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid service_url %q: must be an absolute http(s) URL", c.ServiceURL)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	switch c.GinMode {
	case "", "debug", "release", "test":
	default:
		return fmt.Errorf("invalid gin_mode %q", c.GinMode)
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("rate_limit.requests_per_minute must not be negative")
	}
	return nil
}
