package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the ~/.sweeply/config.toml file. Every field has a
// working default so the file is optional.
type Config struct {
	// Server is the API base URL, including the /api/v1 prefix.
	Server string `toml:"server"`

	// SecretsPath overrides where tokens and timer drafts are stored.
	SecretsPath string `toml:"secrets_path"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

func defaultConfig() Config {
	return Config{
		Server:    "http://localhost:8080/api/v1",
		LogLevel:  "warn",
		LogFormat: "text",
	}
}

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".sweeply", "config.toml"), nil
}

// loadConfig reads the config file at path (or the default location when
// path is empty), layering values over defaults. The SWEEPLY_SERVER
// environment variable beats the file; command-line flags beat both.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		p, err := configPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config file %s: %w", path, err)
	}

	if s := os.Getenv("SWEEPLY_SERVER"); s != "" {
		cfg.Server = s
	}
	return cfg, nil
}
