// Package config loads the application configuration from an optional YAML
// file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const appDirName = "minegem"

// Config holds process-level settings. Game rules are not configurable.
type Config struct {
	// DataDir holds the stats, leaderboard and history files.
	DataDir string `yaml:"data_dir"`
	// ListenAddr is the loopback address for the presentation API.
	ListenAddr string `yaml:"listen_addr"`
	// HistoryDB overrides the session history database path. Empty means
	// <data_dir>/history.db; "off" disables history recording.
	HistoryDB string `yaml:"history_db"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		DataDir:    defaultDataDir(),
		ListenAddr: "127.0.0.1:8787",
	}
}

// Load reads the YAML config at path, falling back to defaults when the file
// does not exist. Environment variables MINEGEM_DATA_DIR and MINEGEM_ADDR
// override file values.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to defaults
		case err != nil:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if v := os.Getenv("MINEGEM_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("MINEGEM_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:8787"
	}
	return cfg, nil
}

// HistoryPath resolves the history database location; empty disables history.
func (c Config) HistoryPath() string {
	switch c.HistoryDB {
	case "":
		return filepath.Join(c.DataDir, "history.db")
	case "off":
		return ""
	default:
		return c.HistoryDB
	}
}

// defaultDataDir returns an OS-appropriate writable directory.
func defaultDataDir() string {
	if d, err := os.UserConfigDir(); err == nil && d != "" {
		return filepath.Join(d, appDirName)
	}
	if h, err := os.UserHomeDir(); err == nil && h != "" {
		return filepath.Join(h, "."+appDirName)
	}
	return "."
}
