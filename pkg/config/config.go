// Package config loads exitpick settings from defaults, an optional YAML
// file and EXITPICK_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SourceTailscale = "tailscale"
	SourceFile      = "file"
	SourceNostr     = "nostr"

	ParserColumns = "columns"
	ParserWords   = "words"

	dirName = ".exitpick"
)

// Environment variables read by ApplyEnv.
const (
	EnvSource       = "EXITPICK_SOURCE"
	EnvParser       = "EXITPICK_PARSER"
	EnvCountries    = "EXITPICK_COUNTRIES"
	EnvTailscaleBin = "EXITPICK_TAILSCALE_BIN"
	EnvListingFile  = "EXITPICK_LISTING_FILE"
	EnvNostrRelays  = "EXITPICK_NOSTR_RELAYS"
	EnvNostrPool    = "EXITPICK_POOL_PUBKEY"
	EnvNostrPrivKey = "EXITPICK_NOSTR_PRIVKEY"
	EnvNostrWait    = "EXITPICK_NOSTR_WAIT"
)

var defaultRelays = []string{"wss://relay.damus.io", "wss://relay.primal.net"}

type Config struct {
	Source    string          `yaml:"source"`
	Parser    string          `yaml:"parser"`
	Countries []string        `yaml:"countries"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	File      FileConfig      `yaml:"file"`
	Nostr     NostrConfig     `yaml:"nostr"`
}

type TailscaleConfig struct {
	Binary string `yaml:"binary"`
}

type FileConfig struct {
	Path string `yaml:"path"`
}

type NostrConfig struct {
	Relays     []string      `yaml:"relays"`
	PoolPubKey string        `yaml:"pool_pubkey"`
	PrivKey    string        `yaml:"privkey"`
	Wait       time.Duration `yaml:"wait"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Source:    SourceTailscale,
		Parser:    ParserColumns,
		Tailscale: TailscaleConfig{Binary: "tailscale"},
		Nostr: NostrConfig{
			Relays: append([]string(nil), defaultRelays...),
			Wait:   5 * time.Second,
		},
	}
}

// DefaultPath is ~/.exitpick/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, dirName, "config.yaml"), nil
}

// Load reads path on top of the defaults and then applies the process
// environment. An empty path means DefaultPath, which may be absent; an
// explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, fmt.Errorf("config: locate home: %w", err)
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: decode %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields with any non-empty EXITPICK_* variable.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvSource); v != "" {
		c.Source = v
	}
	if v := getenv(EnvParser); v != "" {
		c.Parser = v
	}
	if v := getenv(EnvCountries); v != "" {
		c.Countries = splitList(v)
	}
	if v := getenv(EnvTailscaleBin); v != "" {
		c.Tailscale.Binary = v
	}
	if v := getenv(EnvListingFile); v != "" {
		c.File.Path = v
	}
	if v := getenv(EnvNostrRelays); v != "" {
		c.Nostr.Relays = splitList(v)
	}
	if v := getenv(EnvNostrPool); v != "" {
		c.Nostr.PoolPubKey = v
	}
	if v := getenv(EnvNostrPrivKey); v != "" {
		c.Nostr.PrivKey = v
	}
	if v := getenv(EnvNostrWait); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: parse %s: %w", EnvNostrWait, err)
		}
		c.Nostr.Wait = d
	}
	return nil
}

// Validate rejects unknown source or parser names and incomplete sources.
func (c Config) Validate() error {
	switch strings.ToLower(c.Source) {
	case SourceTailscale:
	case SourceFile:
		if c.File.Path == "" {
			return fmt.Errorf("config: source %q needs file.path", SourceFile)
		}
	case SourceNostr:
		if len(c.Nostr.Relays) == 0 {
			return fmt.Errorf("config: source %q needs at least one relay", SourceNostr)
		}
	default:
		return fmt.Errorf("config: unknown source %q", c.Source)
	}

	switch strings.ToLower(c.Parser) {
	case ParserColumns, ParserWords:
	default:
		return fmt.Errorf("config: unknown parser %q", c.Parser)
	}

	if c.Nostr.Wait < 0 {
		return fmt.Errorf("config: nostr.wait must not be negative")
	}
	return nil
}

// splitList turns "a, b,,c" into [a b c].
func splitList(v string) []string {
	out := []string{}
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
