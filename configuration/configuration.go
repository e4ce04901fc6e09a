package configuration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

var defaultConfig = Config{
	DataDirectory: "~/.fableloom",
	DatabaseFile:  "fableloom.db",
	ExportsDir:    "exports",
}

// Config holds configuration for the fableloom tool.
type Config struct {
	DataDirectory string `json:"data_directory"`
	DatabaseFile  string `json:"database_file"`
	ExportsDir    string `json:"exports_dir"`
}

// DatabasePath returns the absolute path of the sqlite database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDirectory, c.DatabaseFile)
}

// ExportsPath returns the absolute path of the exports directory.
func (c *Config) ExportsPath() string {
	return filepath.Join(c.DataDirectory, c.ExportsDir)
}

// Parse a configuration file, initializing it with defaults when absent.
func Parse(path string) (*Config, error) {
	path, err := expandPath(path)
	if err != nil {
		return nil, errors.Wrap(err, "expanding path")
	}

	if err := initializeIfNotPresent(path); err != nil {
		return nil, errors.Wrap(err, "initializing configuration")
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}

	config := &Config{}
	if err := json.Unmarshal(bytes, config); err != nil {
		return nil, errors.Wrap(err, "unmarshaling into config")
	}

	expandedDataDirectory, err := expandPath(config.DataDirectory)
	if err != nil {
		return nil, errors.Wrap(err, "expanding data directory path")
	}
	config.DataDirectory = expandedDataDirectory

	for _, dir := range []string{config.DataDirectory, config.ExportsPath()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "creating data directories")
		}
	}
	return config, nil
}

// save a configuration file.
func (c *Config) save(path string) error {
	bytes, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}
	if err := os.WriteFile(path, bytes, 0644); err != nil {
		return errors.Wrap(err, "writing file")
	}
	return nil
}

// initializeIfNotPresent initializes a config if it does not exist.
func initializeIfNotPresent(path string) error {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	dir, _ := filepath.Split(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "creating folders")
	}

	if err := defaultConfig.save(path); err != nil {
		return errors.Wrap(err, "saving default config")
	}
	return nil
}

func expandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolving home directory")
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
