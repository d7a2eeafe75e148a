// Package config provides configuration loading and management for shodf.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"shodf/pkg/sh"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many voxel slabs are reconstructed in parallel
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`

	// Spherical harmonic parameters
	Harmonics struct {
		// Order is the maximum even SH degree of the coefficient images
		Order int `yaml:"order"`

		// Toolkit is the SH convention, FSL or MRTRIX
		Toolkit sh.Toolkit `yaml:"toolkit"`
	} `yaml:"harmonics"`

	// ODF sampling parameters
	Sampling struct {
		// Frequency is the geodesic subdivision frequency; 5 gives 252 directions
		Frequency int `yaml:"frequency"`
	} `yaml:"sampling"`

	// Output parameters
	Output struct {
		// SaveSlices determines whether GFA slices are written as JPEG images
		SaveSlices bool `yaml:"saveSlices"`

		// SlicesDir is the directory for GFA slice images
		SlicesDir string `yaml:"slicesDir"`
	} `yaml:"output"`

	// Logging parameters
	Logging struct {
		// Level is one of debug, info, warn, error
		Level string `yaml:"level"`

		// File enables rotating file output when non-empty
		File string `yaml:"file"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()

	cfg.Harmonics.Order = 4
	cfg.Harmonics.Toolkit = sh.FSL

	cfg.Sampling.Frequency = 5

	cfg.Output.SaveSlices = false
	cfg.Output.SlicesDir = "gfa_slices"

	cfg.Logging.Level = "info"

	return cfg
}

// Validate checks that the configuration values are usable
func (c *Config) Validate() error {
	if c.Processing.NumCores < 1 {
		return fmt.Errorf("processing.numCores must be at least 1, got %d", c.Processing.NumCores)
	}
	if err := sh.ValidateOrder(c.Harmonics.Order); err != nil {
		return fmt.Errorf("harmonics.order: %w", err)
	}
	if !c.Harmonics.Toolkit.Valid() {
		return fmt.Errorf("harmonics.toolkit: %w", sh.ErrUnknownToolkit)
	}
	if c.Sampling.Frequency < 1 {
		return fmt.Errorf("sampling.frequency must be at least 1, got %d", c.Sampling.Frequency)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
