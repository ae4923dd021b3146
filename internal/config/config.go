// Package config loads the optional subtrans configuration file.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the optional subtrans configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
}

// DefaultsConfig holds persistent flag defaults. Pointer fields
// distinguish "unset" from a zero value; flags set on the CLI always
// win over the file.
type DefaultsConfig struct {
	Overwrite  *bool   `toml:"overwrite"`
	MaxRetries *int    `toml:"max_retries"`
	ChunkSize  *int    `toml:"chunk_size"`
	Model      *bool   `toml:"model"`
	ModelURL   *string `toml:"model_url"`
	Source     *string `toml:"source"`
	Target     *string `toml:"target"`
	Terms      *string `toml:"terms"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "subtrans", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	return loadFrom(Path())
}

func loadFrom(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}

	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	return cfg, nil
}
