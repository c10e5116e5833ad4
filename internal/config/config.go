package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		Addr    string `yaml:"addr"`
		Enabled bool   `yaml:"enabled"`
	} `yaml:"redis"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Quota struct {
		// Hourly request ceilings keyed by subscription tier name.
		TierLimits map[string]int `yaml:"tier_limits"`
	} `yaml:"quota"`
	Prediction struct {
		// DefaultModel is the logical model slot predictions run against.
		DefaultModel   string `yaml:"default_model"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"prediction"`
	Training struct {
		ArtifactsDir string `yaml:"artifacts_dir"`
		// Maximum allowed f1 regression against the active version before a
		// candidate is rejected.
		F1Tolerance            float64 `yaml:"f1_tolerance"`
		HeartbeatSeconds       int     `yaml:"heartbeat_seconds"`
		StaleJobTimeoutSeconds int     `yaml:"stale_job_timeout_seconds"`
	} `yaml:"training"`
	Webhook struct {
		URL     string `yaml:"url"`
		Enabled bool   `yaml:"enabled"`
	} `yaml:"webhook"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	if len(c.Quota.TierLimits) == 0 {
		c.Quota.TierLimits = map[string]int{
			"free":       100,
			"business":   1000,
			"enterprise": 10000,
		}
	}
	if c.Prediction.DefaultModel == "" {
		c.Prediction.DefaultModel = "spam_classifier"
	}
	if c.Prediction.TimeoutSeconds <= 0 {
		c.Prediction.TimeoutSeconds = 10
	}
	if c.Training.ArtifactsDir == "" {
		c.Training.ArtifactsDir = "ml/models"
	}
	if c.Training.F1Tolerance <= 0 {
		c.Training.F1Tolerance = 0.02
	}
	if c.Training.HeartbeatSeconds <= 0 {
		c.Training.HeartbeatSeconds = 15
	}
	if c.Training.StaleJobTimeoutSeconds <= 0 {
		c.Training.StaleJobTimeoutSeconds = 600
	}
}

// PredictionTimeout returns the per-request inference deadline.
func (c *Config) PredictionTimeout() time.Duration {
	return time.Duration(c.Prediction.TimeoutSeconds) * time.Second
}

// StaleJobTimeout returns how long a running job may go without a heartbeat
// before it is considered crashed.
func (c *Config) StaleJobTimeout() time.Duration {
	return time.Duration(c.Training.StaleJobTimeoutSeconds) * time.Second
}
