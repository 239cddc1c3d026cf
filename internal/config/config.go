// Package config loads projektbot configuration.
//
// Precedence, highest first:
//  1. PROJEKTBOT_* environment variables (PROJEKTBOT_STORE_DATA_DIR -> store.data_dir)
//  2. the YAML file passed to Load
//  3. built-in defaults
//
// A .env file in the working directory is loaded into the environment first
// and never overrides variables that are already set.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/HendryAvila/projektbot/internal/directory"
	"github.com/HendryAvila/projektbot/internal/logging"
)

// EnvPrefix prefixes every configuration environment variable.
const EnvPrefix = "PROJEKTBOT_"

const maxConfigFileSize = 1024 * 1024

// Config is the full bot configuration.
type Config struct {
	Discord  DiscordConfig  `koanf:"discord"`
	Store    StoreConfig    `koanf:"store"`
	Projects ProjectsConfig `koanf:"projects"`
	Commands CommandsConfig `koanf:"commands"`
	Roles    RolesConfig    `koanf:"roles"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
	Latency  LatencyConfig  `koanf:"latency"`
}

type DiscordConfig struct {
	Token      string   `koanf:"token"`
	GuildID    string   `koanf:"guild_id"`
	Prefix     string   `koanf:"prefix"`
	AdminRoles []string `koanf:"admin_roles"`
	JoinLink   string   `koanf:"join_link"`
}

type StoreConfig struct {
	DataDir       string `koanf:"data_dir"`
	BusyTimeoutMS int    `koanf:"busy_timeout_ms"`
}

type ProjectsConfig struct {
	DeletePolicy string `koanf:"delete_policy"`
}

type CommandsConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// RolesConfig throttles calls to the role API.
type RolesConfig struct {
	RatePerSecond float64 `koanf:"rate_per_second"`
	Burst         int     `koanf:"burst"`
}

type MetricsConfig struct {
	Addr    string `koanf:"addr"`
	Enabled bool   `koanf:"enabled"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type LatencyConfig struct {
	Interval   time.Duration `koanf:"interval"`
	Window     int           `koanf:"window"`
	ForceAfter int           `koanf:"force_after"`
}

var defaults = map[string]any{
	"discord.prefix":         "!",
	"store.data_dir":         "~/.projektbot",
	"store.busy_timeout_ms":  5000,
	"projects.delete_policy": string(directory.PolicyClear),
	"commands.timeout":       "30s",
	"roles.rate_per_second":  5.0,
	"roles.burst":            5,
	"metrics.addr":           ":9910",
	"metrics.enabled":        true,
	"log.level":              "info",
	"log.format":             "json",
	"latency.interval":       "1s",
	"latency.window":         100,
	"latency.force_after":    42,
}

// Load reads .env, the optional YAML file at path and the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")
	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Plain TOKEN and JOIN_LINK are what older .env files carry.
	if cfg.Discord.Token == "" {
		cfg.Discord.Token = os.Getenv("TOKEN")
	}
	if cfg.Discord.JoinLink == "" {
		cfg.Discord.JoinLink = os.Getenv("JOIN_LINK")
	}
	cfg.Store.DataDir = expandHome(cfg.Store.DataDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps PROJEKTBOT_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Validate checks every value that has no safe fallback.
func (c *Config) Validate() error {
	var errs []error
	if c.Discord.Prefix == "" {
		errs = append(errs, errors.New("discord.prefix must not be empty"))
	}
	if c.Store.DataDir == "" {
		errs = append(errs, errors.New("store.data_dir must not be empty"))
	}
	if c.Store.BusyTimeoutMS <= 0 {
		errs = append(errs, errors.New("store.busy_timeout_ms must be positive"))
	}
	if _, err := directory.ParsePolicy(c.Projects.DeletePolicy); err != nil {
		errs = append(errs, fmt.Errorf("projects.delete_policy: %w", err))
	}
	if c.Commands.Timeout <= 0 {
		errs = append(errs, errors.New("commands.timeout must be positive"))
	}
	if c.Roles.RatePerSecond <= 0 || c.Roles.Burst < 1 {
		errs = append(errs, errors.New("roles.rate_per_second and roles.burst must be positive"))
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, errors.New("metrics.addr is required when metrics are enabled"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	if c.Latency.Interval <= 0 || c.Latency.Window < 1 || c.Latency.ForceAfter < 1 {
		errs = append(errs, errors.New("latency.interval, latency.window and latency.force_after must be positive"))
	}
	return errors.Join(errs...)
}

// RequireToken reports an error when no gateway token is configured.
func (c *Config) RequireToken() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("discord token missing: set %sDISCORD_TOKEN or TOKEN", EnvPrefix)
	}
	return nil
}
