package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration: defaults overlaid with an optional YAML file. When path is empty
// the standard locations are searched; a missing file is not an error.
//
// Parameters:
//   - path: an explicit config file path, empty to search standard locations
//
// Returns:
//   - *Config: the merged configuration
//   - error: an error when an existing file cannot be read or parsed
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	return cfg, nil
}

// findConfigFile looks for a config file in the standard locations.
func findConfigFile() string {
	candidates := []string{
		"./gantry.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Gantry")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Gantry")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "gantry")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "gantry")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
