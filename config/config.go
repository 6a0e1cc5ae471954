// Package config provides configuration loading and management for semarch.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/semarch/rules"
	"github.com/c360studio/semarch/scoring"
	"github.com/c360studio/semarch/search"
)

// Config represents the complete semarch configuration
type Config struct {
	Search    search.Config    `yaml:"search"`
	Detection rules.Thresholds `yaml:"detection"`
	Scoring   ScoringConfig    `yaml:"scoring"`
	NATS      NATSConfig       `yaml:"nats"`
}

// ScoringConfig configures the rule-weight table
type ScoringConfig struct {
	// WeightsPath is a YAML weight table (empty = built-in defaults)
	WeightsPath string `yaml:"weights_path"`
}

// NATSConfig configures the NATS connection used by `semarch serve`
type NATSConfig struct {
	// URL is the NATS server URL; NATS_URL overrides it
	URL string `yaml:"url"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Search:    search.DefaultConfig(),
		Detection: rules.DefaultThresholds(),
		NATS: NATSConfig{
			URL: "nats://localhost:4222",
		},
	}
}

// Scorer builds the scorer for the configured weight table.
func (c *Config) Scorer() (*scoring.Scorer, error) {
	if c.Scoring.WeightsPath == "" {
		return scoring.DefaultScorer(), nil
	}
	w, err := scoring.LoadWeights(c.Scoring.WeightsPath)
	if err != nil {
		return nil, err
	}
	return scoring.NewScorer(w)
}

// Detector builds the detector for the configured thresholds.
func (c *Config) Detector() (*rules.Detector, error) {
	return rules.NewDetector(c.Detection)
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if err := c.Detection.Validate(); err != nil {
		return fmt.Errorf("detection: %w", err)
	}
	scorer, err := c.Scorer()
	if err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if err := c.Search.Validate(scorer.HardCeiling()); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Relative weight paths are resolved against the config file.
	if p := config.Scoring.WeightsPath; p != "" && !filepath.IsAbs(p) {
		config.Scoring.WeightsPath = filepath.Join(filepath.Dir(path), p)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	c.Search = c.Search.Merge(other.Search)

	// Detection
	if other.Detection.MinFuncsPerModule != 0 {
		c.Detection.MinFuncsPerModule = other.Detection.MinFuncsPerModule
	}
	if other.Detection.MaxFuncsPerModule != 0 {
		c.Detection.MaxFuncsPerModule = other.Detection.MaxFuncsPerModule
	}
	if other.Detection.HighVolatility != 0 {
		c.Detection.HighVolatility = other.Detection.HighVolatility
	}
	if other.Detection.NearDuplicate != 0 {
		c.Detection.NearDuplicate = other.Detection.NearDuplicate
	}
	if other.Detection.MergeCandidate != 0 {
		c.Detection.MergeCandidate = other.Detection.MergeCandidate
	}

	// Scoring
	if other.Scoring.WeightsPath != "" {
		c.Scoring.WeightsPath = other.Scoring.WeightsPath
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
}
