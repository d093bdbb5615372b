// Package config loads resgraph settings from viper.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// ErrInvalid is wrapped by every validation error Load returns.
var ErrInvalid = errors.New("invalid configuration")

// ProjectConfig is the project view: which workspace directories are part
// of the project and which generated resource directories may be imported.
type ProjectConfig struct {
	Directories        []string `mapstructure:"directories"`
	Exclude            []string `mapstructure:"exclude"`
	GeneratedResources []string `mapstructure:"generated_resources"`
}

// PassConfig names an import pass and the rule kinds it treats as sources.
type PassConfig struct {
	Name  string   `mapstructure:"name"`
	Kinds []string `mapstructure:"kinds"`
}

// Config holds all runtime configuration for a resgraph invocation.
// Values are populated from .resgraph.yaml, RESGRAPH_* env vars, and CLI flags.
type Config struct {
	GraphPath   string        `mapstructure:"graph"`
	StorePath   string        `mapstructure:"store_path"`
	EventsPath  string        `mapstructure:"events_path"`
	LibraryKeys string        `mapstructure:"library_keys"`
	Verbose     bool          `mapstructure:"verbose"`
	Project     ProjectConfig `mapstructure:"project"`
	// Passes defaults to the single Android pass when empty.
	Passes []PassConfig `mapstructure:"passes"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("graph", "resgraph.toml")
	viper.SetDefault("store_path", ".resgraph/runs.db")
	viper.SetDefault("events_path", "")
	viper.SetDefault("library_keys", "artifact")
	viper.SetDefault("verbose", false)
	viper.SetDefault("project.directories", []string{"."})
	viper.SetDefault("project.exclude", []string{})
	viper.SetDefault("project.generated_resources", []string{})

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.GraphPath == "" {
		return fmt.Errorf("config: graph path is empty: %w", ErrInvalid)
	}
	switch c.LibraryKeys {
	case "artifact", "namespace":
	default:
		return fmt.Errorf("config: library_keys %q (want artifact or namespace): %w", c.LibraryKeys, ErrInvalid)
	}
	seen := make(map[string]bool, len(c.Passes))
	for i, p := range c.Passes {
		if p.Name == "" {
			return fmt.Errorf("config: passes[%d] has no name: %w", i, ErrInvalid)
		}
		if seen[p.Name] {
			return fmt.Errorf("config: duplicate pass %q: %w", p.Name, ErrInvalid)
		}
		seen[p.Name] = true
	}
	return nil
}
