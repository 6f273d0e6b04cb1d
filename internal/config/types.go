// internal/config/types.go
package config

// Global configuration loaded from config.yaml
type Global struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Preview PreviewConfig `yaml:"preview"`
	Logging LoggingConfig `yaml:"logging"`
	MCP     MCPConfig     `yaml:"mcp"`
}

type ServerConfig struct {
	ListenAddress string `yaml:"listen_address"`
	ListenPort    int    `yaml:"listen_port"`
	RateLimit     int    `yaml:"rate_limit"` // requests per minute per route
}

type StorageConfig struct {
	Path                 string `yaml:"path"`
	PresetsPath          string `yaml:"presets_path"`
	SlotKey              string `yaml:"slot_key"`
	HistoryRetentionDays int    `yaml:"history_retention_days"`
	CleanupSchedule      string `yaml:"cleanup_schedule"` // cron expression
}

type PreviewConfig struct {
	HighlightClass    string `yaml:"highlight_class"`
	MatchSeparator    string `yaml:"match_separator"`
	ReplaceSeparator  string `yaml:"replace_separator"`
	Sanitizer         string `yaml:"sanitizer"` // denylist or allowlist
	DefaultSourceText string `yaml:"default_source_text"`
	DebounceMillis    int    `yaml:"debounce_millis"`
}

type LoggingConfig struct {
	Format    string `yaml:"format"`
	Level     string `yaml:"level"`
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

type MCPConfig struct {
	ListenPort int `yaml:"listen_port"`
}
