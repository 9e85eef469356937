package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.DefaultProfile = "work"
	cfg.Sync.MessageInterval = Duration{time.Second}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want %q", loaded.DefaultProfile, "work")
	}
	if loaded.Sync.MessageInterval.Duration != time.Second {
		t.Errorf("MessageInterval = %v, want 1s", loaded.Sync.MessageInterval)
	}
}

func TestLoadMissingUsesDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/config.toml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "server_url = \"http://chat.local\"\n[search]\ndebounce = \"150ms\"\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerURL != "http://chat.local" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.Search.Debounce.Duration != 150*time.Millisecond {
		t.Errorf("Debounce = %v, want 150ms", cfg.Search.Debounce)
	}
	if cfg.Search.MinQueryLength != 2 {
		t.Errorf("MinQueryLength = %d, want default 2", cfg.Search.MinQueryLength)
	}
	if cfg.Sync.ChatListInterval.Duration != 5*time.Second {
		t.Errorf("ChatListInterval = %v, want default 5s", cfg.Sync.ChatListInterval)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	for name, data := range map[string]string{
		"bad duration":  "[sync]\nmessage_interval = \"soon\"\n",
		"zero interval": "[sync]\nchat_list_interval = \"0s\"\n",
		"min length":    "[search]\nmin_query_length = 0\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(data), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() expected error")
			}
		})
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
