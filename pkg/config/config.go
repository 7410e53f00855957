package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"TradeDash/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Feed struct {
		Mode             string        `yaml:"mode"` // mock or ws
		URL              string        `yaml:"url"`  // ws mode: server base url
		Symbols          []string      `yaml:"symbols"`
		TickInterval     time.Duration `yaml:"tick_interval"`
		SetupProbability float64       `yaml:"setup_probability"`
		QueueSize        int           `yaml:"queue_size"`
		PingInterval     time.Duration `yaml:"ping_interval"`
	} `yaml:"feed"`
	WS struct {
		SendBuffer   int     `yaml:"send_buffer"`
		MessageRate  float64 `yaml:"message_rate"` // control messages per second per client
		MessageBurst float64 `yaml:"message_burst"`
	} `yaml:"ws"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Feed.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("FEED_MODE"); v != "" {
		c.Feed.Mode = v
	}
	if v := os.Getenv("FEED_URL"); v != "" {
		c.Feed.URL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Feed.Mode == "" {
		c.Feed.Mode = "mock"
	}
	if c.Feed.TickInterval == 0 {
		c.Feed.TickInterval = time.Second
	}
	if c.Feed.SetupProbability == 0 {
		c.Feed.SetupProbability = 0.10
	}
	if c.Feed.QueueSize == 0 {
		c.Feed.QueueSize = 256
	}
	if c.Feed.PingInterval == 0 {
		c.Feed.PingInterval = 30 * time.Second
	}
	if c.WS.SendBuffer == 0 {
		c.WS.SendBuffer = 64
	}
	if c.WS.MessageRate == 0 {
		c.WS.MessageRate = 10
	}
	if c.WS.MessageBurst == 0 {
		c.WS.MessageBurst = 20
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Feed.Mode != "mock" && c.Feed.Mode != "ws" {
		return fmt.Errorf("feed.mode must be 'mock' or 'ws', got '%s'", c.Feed.Mode)
	}
	if c.Feed.Mode == "ws" && c.Feed.URL == "" {
		return fmt.Errorf("feed.url is required when feed.mode is 'ws'")
	}
	if c.Feed.SetupProbability < 0 || c.Feed.SetupProbability > 1 {
		return fmt.Errorf("feed.setup_probability must be within [0,1]")
	}
	return nil
}
