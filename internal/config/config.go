package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.msgr/config.toml.
type Config struct {
	DefaultProfile string   `toml:"default_profile"`
	ServerURL      string   `toml:"server_url"`
	RequestTimeout Duration `toml:"request_timeout"`
	Sync           Sync     `toml:"sync"`
	Search         Search   `toml:"search"`
}

// Sync tunes the polling synchronizers and pending-message reconciliation.
type Sync struct {
	ChatListInterval Duration `toml:"chat_list_interval"`
	MessageInterval  Duration `toml:"message_interval"`
	PendingGrace     Duration `toml:"pending_grace"`
	ClockSkew        Duration `toml:"clock_skew"`
}

// Search tunes the user search box.
type Search struct {
	Debounce       Duration `toml:"debounce"`
	MinQueryLength int      `toml:"min_query_length"`
}

// Duration is a time.Duration written as "5s" or "300ms" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file or key overrides it.
func Default() *Config {
	return &Config{
		DefaultProfile: "main",
		ServerURL:      "http://127.0.0.1:8787",
		RequestTimeout: Duration{10 * time.Second},
		Sync: Sync{
			ChatListInterval: Duration{5 * time.Second},
			MessageInterval:  Duration{3 * time.Second},
			PendingGrace:     Duration{30 * time.Second},
			ClockSkew:        Duration{2 * time.Minute},
		},
		Search: Search{
			Debounce:       Duration{300 * time.Millisecond},
			MinQueryLength: 2,
		},
	}
}

// Load reads config from the given path on top of Default. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the client cannot run with.
func (c *Config) Validate() error {
	for name, d := range map[string]Duration{
		"request_timeout":         c.RequestTimeout,
		"sync.chat_list_interval": c.Sync.ChatListInterval,
		"sync.message_interval":   c.Sync.MessageInterval,
	} {
		if d.Duration <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.Sync.PendingGrace.Duration < 0 || c.Sync.ClockSkew.Duration < 0 || c.Search.Debounce.Duration < 0 {
		return errors.New("durations must not be negative")
	}
	if c.Search.MinQueryLength < 1 {
		return errors.New("search.min_query_length must be at least 1")
	}
	return nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
