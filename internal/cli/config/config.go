// Package config loads tool configuration from photoscene.yml, with
// environment variable overrides and sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the photoscene configuration
type Config struct {
	ProjectFile string       `mapstructure:"project_file"`
	Solver      SolverConfig `mapstructure:"solver"`
	Server      ServerConfig `mapstructure:"server"`
}

// SolverConfig represents solver defaults
type SolverConfig struct {
	Tolerance     float64 `mapstructure:"tolerance"`
	MaxIterations int     `mapstructure:"max_iterations"`
	Damping       float64 `mapstructure:"damping"`
	Verbose       bool    `mapstructure:"verbose"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Load loads the configuration from photoscene.yml or photoscene.yaml
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("project_file", "scene.photoscene.json")
	v.SetDefault("solver.tolerance", 1e-6)
	v.SetDefault("solver.max_iterations", 100)
	v.SetDefault("solver.damping", 1e-3)
	v.SetDefault("solver.verbose", false)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 3000)

	// Set config name and paths
	v.SetConfigName("photoscene")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Enable environment variable support
	v.SetEnvPrefix("photoscene")
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// InProject checks if the current directory is a photoscene project
func InProject() bool {
	if _, err := os.Stat("photoscene.yml"); err == nil {
		return true
	}
	if _, err := os.Stat("photoscene.yaml"); err == nil {
		return true
	}
	return false
}

// GetProjectRoot tries to find the project root by looking for photoscene.yml
func GetProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "photoscene.yml")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "photoscene.yaml")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a photoscene project (no photoscene.yml found)")
		}
		dir = parent
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Solver.Tolerance <= 0 {
		return fmt.Errorf("solver.tolerance must be > 0, got: %g", cfg.Solver.Tolerance)
	}
	if cfg.Solver.MaxIterations <= 0 {
		return fmt.Errorf("solver.max_iterations must be > 0, got: %d", cfg.Solver.MaxIterations)
	}
	if cfg.Solver.Damping <= 0 {
		return fmt.Errorf("solver.damping must be > 0, got: %g", cfg.Solver.Damping)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got: %d", cfg.Server.Port)
	}
	return nil
}
