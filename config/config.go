package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        int      `yaml:"port"`
		CorsOrigins []string `yaml:"corsOrigins"`
	} `yaml:"server"`

	Gemini struct {
		ApiKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"gemini"`

	Database struct {
		URI string `yaml:"uri"`
	} `yaml:"database"`

	Redis struct {
		Addr string `yaml:"addr"`
	} `yaml:"redis"`

	Debate struct {
		MaxRounds      int `yaml:"maxRounds"`
		ConnectTimeout int `yaml:"connectTimeoutSeconds"`
		IdleTimeout    int `yaml:"idleTimeoutSeconds"`
	} `yaml:"debate"`
}

// LoadConfig reads the configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}
	if c.Debate.MaxRounds == 0 {
		c.Debate.MaxRounds = 4
	}
	if c.Debate.ConnectTimeout == 0 {
		c.Debate.ConnectTimeout = 15
	}
	if c.Debate.IdleTimeout == 0 {
		c.Debate.IdleTimeout = 90
	}
}

// ConnectTimeoutDuration returns the streaming connect timeout as a duration
func (c *Config) ConnectTimeoutDuration() time.Duration {
	return time.Duration(c.Debate.ConnectTimeout) * time.Second
}

// IdleTimeoutDuration returns the idle-stream watchdog timeout as a duration
func (c *Config) IdleTimeoutDuration() time.Duration {
	return time.Duration(c.Debate.IdleTimeout) * time.Second
}
