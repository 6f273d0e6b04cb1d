// internal/config/loader.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/colebrumley/regexlab/internal/preview"
	"github.com/colebrumley/regexlab/internal/security"
	"github.com/colebrumley/regexlab/internal/session"
	"github.com/colebrumley/regexlab/internal/state"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings
const (
	EnvConfig  = "REGEXLAB_CONFIG"
	EnvDB      = "REGEXLAB_DB"
	EnvMCPPort = "REGEXLAB_MCP_PORT"
)

// DefaultDir returns the per-user data directory
func DefaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "regexlab")
	}
	return ".regexlab"
}

// DefaultPath returns the config file location, honoring REGEXLAB_CONFIG
func DefaultPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return filepath.Join(DefaultDir(), "config.yaml")
}

// LoadGlobal loads the global configuration from a YAML file
func LoadGlobal(path string) (*Global, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Global
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyGlobalDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path, falling back to defaults when the file does not exist
func LoadOrDefault(path string) (*Global, error) {
	cfg, err := LoadGlobal(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	cfg = Default()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Global {
	var cfg Global
	applyGlobalDefaults(&cfg)
	return &cfg
}

// Validate reports the first setting that cannot be used
func Validate(cfg *Global) error {
	if cfg.Server.ListenPort < 1 || cfg.Server.ListenPort > 65535 {
		return fmt.Errorf("server.listen_port %d out of range", cfg.Server.ListenPort)
	}
	if cfg.MCP.ListenPort < 1 || cfg.MCP.ListenPort > 65535 {
		return fmt.Errorf("mcp.listen_port %d out of range", cfg.MCP.ListenPort)
	}
	if cfg.Storage.HistoryRetentionDays < 0 {
		return fmt.Errorf("storage.history_retention_days must not be negative")
	}
	if _, err := cron.ParseStandard(cfg.Storage.CleanupSchedule); err != nil {
		return fmt.Errorf("storage.cleanup_schedule: %w", err)
	}
	if cfg.Preview.Sanitizer != security.ModeDenylist && cfg.Preview.Sanitizer != security.ModeAllowlist {
		return fmt.Errorf("preview.sanitizer must be %q or %q, got %q", security.ModeDenylist, security.ModeAllowlist, cfg.Preview.Sanitizer)
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", cfg.Logging.Format)
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q", cfg.Logging.Level)
	}
	return nil
}

// SessionOptions maps the preview settings onto orchestrator options
func (cfg *Global) SessionOptions() (session.Options, error) {
	san, err := security.NewSanitizer(cfg.Preview.Sanitizer)
	if err != nil {
		return session.Options{}, err
	}
	return session.Options{
		HighlightClass:    cfg.Preview.HighlightClass,
		MatchSeparator:    cfg.Preview.MatchSeparator,
		ReplaceSeparator:  cfg.Preview.ReplaceSeparator,
		DefaultSourceText: cfg.Preview.DefaultSourceText,
		Sanitizer:         san,
	}, nil
}

// PresetsDBPath returns storage.presets_path, or presets.db next to the state database
func (cfg *Global) PresetsDBPath() string {
	if cfg.Storage.PresetsPath != "" {
		return cfg.Storage.PresetsPath
	}
	return filepath.Join(filepath.Dir(cfg.Storage.Path), "presets.db")
}

func applyGlobalDefaults(cfg *Global) {
	if cfg.Server.ListenPort == 0 {
		cfg.Server.ListenPort = 9876
	}
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = "127.0.0.1"
	}
	if cfg.Server.RateLimit <= 0 {
		cfg.Server.RateLimit = 120
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = filepath.Join(DefaultDir(), "state.db")
	}
	if cfg.Storage.SlotKey == "" {
		cfg.Storage.SlotKey = state.DefaultSlotKey
	}
	if cfg.Storage.HistoryRetentionDays == 0 {
		cfg.Storage.HistoryRetentionDays = 30
	}
	if cfg.Storage.CleanupSchedule == "" {
		cfg.Storage.CleanupSchedule = "@daily"
	}
	if cfg.Preview.HighlightClass == "" {
		cfg.Preview.HighlightClass = preview.DefaultHighlightClass
	}
	if cfg.Preview.MatchSeparator == "" {
		cfg.Preview.MatchSeparator = preview.MatchSeparator
	}
	if cfg.Preview.ReplaceSeparator == "" {
		cfg.Preview.ReplaceSeparator = preview.ReplaceSeparator
	}
	if cfg.Preview.Sanitizer == "" {
		cfg.Preview.Sanitizer = security.ModeDenylist
	}
	if cfg.Preview.DefaultSourceText == "" {
		cfg.Preview.DefaultSourceText = session.DefaultSourceText
	}
	if cfg.Preview.DebounceMillis <= 0 {
		cfg.Preview.DebounceMillis = 200
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = 10
	}
	if cfg.MCP.ListenPort == 0 {
		cfg.MCP.ListenPort = 9877
	}
}

func applyEnvOverrides(cfg *Global) {
	if p := os.Getenv(EnvDB); p != "" {
		cfg.Storage.Path = p
	}
	if v := os.Getenv(EnvMCPPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MCP.ListenPort = port
		}
	}
}
