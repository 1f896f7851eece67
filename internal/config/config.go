// Package config loads milgrim configuration from TOML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Store modes select which task store the TUI and CLI talk to.
const (
	ModeRemote = "remote"
	ModeLocal  = "local"
	ModeMemory = "memory"
)

type Config struct {
	Store   StoreConfig   `toml:"store"`
	View    ViewConfig    `toml:"view"`
	Server  ServerConfig  `toml:"server"`
	Suggest SuggestConfig `toml:"suggest"`
}

type StoreConfig struct {
	// Mode is remote, local, or memory.
	Mode string `toml:"mode"`
	// URL of the sync server for remote mode. MILGRIM_URL overrides.
	URL string `toml:"url"`
	// Path of the SQLite file for local mode and for `milgrim serve`.
	Path string `toml:"path"`
	// Owner scopes the task collection. MILGRIM_OWNER overrides.
	Owner string `toml:"owner"`
}

type ViewConfig struct {
	Sort     string `toml:"sort"`
	Status   string `toml:"status"`
	Category string `toml:"category"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type SuggestConfig struct {
	Command        string `toml:"command"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// DefaultText is written to the config path on first run.
const DefaultText = `# milgrim configuration

[store]
# mode: remote (sync server), local (sqlite file), memory (volatile)
mode = "local"
# url = "http://localhost:8099"
# owner = "default"

[view]
sort = "deadline"
status = "all"

[server]
addr = ":8099"

[suggest]
# command = "my-agent breakdown"
# timeout_seconds = 30
`

// Path returns the config file location under the user config dir.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve config dir: %w", err)
	}
	return filepath.Join(dir, "milgrim", "config.toml"), nil
}

func defaults() *Config {
	dataDir, _ := os.UserConfigDir()
	return &Config{
		Store: StoreConfig{
			Mode:  ModeLocal,
			Path:  filepath.Join(dataDir, "milgrim", "tasks.db"),
			Owner: "default",
		},
		View: ViewConfig{
			Sort:   "deadline",
			Status: "all",
		},
		Server: ServerConfig{
			Addr: ":8099",
		},
		Suggest: SuggestConfig{
			TimeoutSeconds: 30,
		},
	}
}

// Load reads the config at path, falling back to the default location
// when path is empty. A missing file yields defaults; environment
// variables override file values.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		p, err := Path()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if url := strings.TrimSpace(os.Getenv("MILGRIM_URL")); url != "" {
		cfg.Store.URL = url
		cfg.Store.Mode = ModeRemote
	}
	if owner := strings.TrimSpace(os.Getenv("MILGRIM_OWNER")); owner != "" {
		cfg.Store.Owner = owner
	}
	if db := strings.TrimSpace(os.Getenv("MILGRIM_DB")); db != "" {
		cfg.Store.Path = db
	}

	switch cfg.Store.Mode {
	case ModeRemote, ModeLocal, ModeMemory:
	default:
		return nil, fmt.Errorf("config: unknown store mode %q", cfg.Store.Mode)
	}
	return cfg, nil
}

// WriteDefault creates the default config file if it does not exist and
// returns its path.
func WriteDefault() (string, error) {
	path, err := Path()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("config: create dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(DefaultText), 0o644); err != nil {
		return "", fmt.Errorf("config: write default: %w", err)
	}
	return path, nil
}
