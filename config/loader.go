package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// LoadConfig loads configuration with priority: CLI flags > Config file > Defaults.
// fs must be parsed and carry the flags added by RegisterFlags.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	// 1. Start with defaults
	cfg := DefaultConfig()

	// 2. Explicit --config wins over the standard locations
	configPath, _ := fs.GetString(ConfigFlag)
	if configPath == "" {
		configPath = FindConfigFile()
	}

	if configPath != "" {
		fileCfg, err := LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg = fileCfg
	}

	// 3. Merge CLI flags (highest priority, overwrites everything)
	if err := cfg.MergeFromFlags(fs); err != nil {
		return nil, err
	}

	// Validate final configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
