package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"

	"arb_engine/internal/config"
)

// Config is an alias for the project's main configuration struct
type Config = config.Config

// LoadConfig delegates to the project's config loader
func LoadConfig(path string) (*Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if err := checkPreFlight(cfg); err != nil {
		return nil, fmt.Errorf("pre-flight checks failed: %w", err)
	}

	return cfg, nil
}

// checkPreFlight performs environment checks beyond schema validation
func checkPreFlight(cfg *Config) error {
	if cfg.App.JournalPath != "" {
		dir := filepath.Dir(cfg.App.JournalPath)
		info, err := os.Stat(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("journal directory not found: %s", dir)
			}
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("journal path parent is not a directory: %s", dir)
		}
	}

	return nil
}
