package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from ~/.config/gomibako/config.yaml.
func Load() Config {
	cfg := DefaultConfig()

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg
	}

	path := filepath.Join(home, ".config", "gomibako", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	// Decode into a copy so a half-parsed file cannot leak partial values.
	parsed := cfg
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return cfg
	}
	return parsed
}

// ResolveDataDir returns cfg.DataDir, or ~/.local/share/gomibako.
func ResolveDataDir(cfg Config) string {
	if cfg.DataDir != "" {
		return cfg.DataDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "gomibako")
	}
	return filepath.Join(home, ".local", "share", "gomibako")
}

// ResolveLogFile returns cfg.LogFile, or gomibako.log inside the data dir.
func ResolveLogFile(cfg Config) string {
	if cfg.LogFile != "" {
		return cfg.LogFile
	}
	return filepath.Join(ResolveDataDir(cfg), "gomibako.log")
}
