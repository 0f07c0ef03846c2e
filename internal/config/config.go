// Package config loads warroom configuration from an optional YAML
// file with WARROOM_* environment overrides on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	// DataDir holds the sessions and exports directories.
	DataDir string `yaml:"data_dir"`
	// ListenAddr is the gateway bind address.
	ListenAddr string `yaml:"listen_addr"`
	// BridgeURL is the execution collaborator's base URL.
	BridgeURL string `yaml:"bridge_url"`
	// StoreBackend selects session persistence: "file" or "redis".
	StoreBackend string `yaml:"store_backend"`
	// RedisAddr is used when StoreBackend is "redis".
	RedisAddr string `yaml:"redis_addr"`
	// AutosaveInterval between saves of the active session. Zero
	// disables autosave.
	AutosaveInterval time.Duration `yaml:"autosave_interval"`
	// BusCapacity is the per-subscriber event buffer size.
	BusCapacity int `yaml:"bus_capacity"`
}

// Default returns the built-in configuration, rooted under the user's
// home directory.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		DataDir:          filepath.Join(home, ".warroom"),
		ListenAddr:       "127.0.0.1:8765",
		BridgeURL:        "http://127.0.0.1:8000",
		StoreBackend:     "file",
		RedisAddr:        "127.0.0.1:6379",
		AutosaveInterval: 5 * time.Minute,
		BusCapacity:      256,
	}
}

// SessionsDir is where the file store keeps .wrs files.
func (c Config) SessionsDir() string {
	return filepath.Join(c.DataDir, "sessions")
}

// ExportsDir is where session exports are written.
func (c Config) ExportsDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// Load builds the configuration: defaults, then the YAML file at path
// (missing file is fine; a named file that fails to parse is not),
// then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Absent config file means defaults.
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("WARROOM_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("WARROOM_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("WARROOM_BRIDGE_URL"); v != "" {
		c.BridgeURL = v
	}
	if v := os.Getenv("WARROOM_STORE_BACKEND"); v != "" {
		c.StoreBackend = v
	}
	if v := os.Getenv("WARROOM_REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("WARROOM_AUTOSAVE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid WARROOM_AUTOSAVE_INTERVAL %q: %w", v, err)
		}
		c.AutosaveInterval = d
	}
	if v := os.Getenv("WARROOM_BUS_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid WARROOM_BUS_CAPACITY %q: %w", v, err)
		}
		c.BusCapacity = n
	}
	return nil
}

func (c Config) validate() error {
	switch c.StoreBackend {
	case "file", "redis":
	default:
		return fmt.Errorf("unknown store backend %q (want file or redis)", c.StoreBackend)
	}
	if c.BusCapacity < 1 {
		return fmt.Errorf("bus capacity must be at least 1, got %d", c.BusCapacity)
	}
	return nil
}
