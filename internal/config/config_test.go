package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	t.Setenv("MILGRIM_URL", "")
	t.Setenv("MILGRIM_OWNER", "")
	t.Setenv("MILGRIM_DB", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Mode != ModeLocal {
		t.Fatalf("default mode = %q", cfg.Store.Mode)
	}
	if cfg.View.Sort != "deadline" || cfg.View.Status != "all" {
		t.Fatalf("default view = %+v", cfg.View)
	}
	if cfg.Server.Addr != ":8099" {
		t.Fatalf("default addr = %q", cfg.Server.Addr)
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[store]
mode = "remote"
url = "http://example.test:9000"
owner = "hollis"

[view]
sort = "priority"

[suggest]
command = "agent breakdown"
timeout_seconds = 5
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Mode != ModeRemote || cfg.Store.URL != "http://example.test:9000" {
		t.Fatalf("store = %+v", cfg.Store)
	}
	if cfg.Store.Owner != "hollis" {
		t.Fatalf("owner = %q", cfg.Store.Owner)
	}
	if cfg.View.Sort != "priority" {
		t.Fatalf("sort = %q", cfg.View.Sort)
	}
	if cfg.Suggest.Command != "agent breakdown" || cfg.Suggest.TimeoutSeconds != 5 {
		t.Fatalf("suggest = %+v", cfg.Suggest)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[store]\nmode = \"local\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("MILGRIM_URL", "http://env.test:7000")
	t.Setenv("MILGRIM_OWNER", "envowner")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Mode != ModeRemote {
		t.Fatalf("MILGRIM_URL should force remote mode, got %q", cfg.Store.Mode)
	}
	if cfg.Store.URL != "http://env.test:7000" || cfg.Store.Owner != "envowner" {
		t.Fatalf("store = %+v", cfg.Store)
	}
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[store]\nmode = \"carrier-pigeon\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected mode error")
	}
}
