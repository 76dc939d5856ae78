// Package config provides configuration loading and structs for the ajwiba server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/ajwiba/internal/ranking"
	"gopkg.in/yaml.v3"
)

// Search backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBleve  = "bleve"
)

// Content sources.
const (
	SourceSQLite    = "sqlite"
	SourceDirectory = "directory"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool                  `yaml:"debug"`
	Server  ServerConfig          `yaml:"server"`
	Storage StorageConfig         `yaml:"storage"`
	Content ContentConfig         `yaml:"content"`
	Index   IndexConfig           `yaml:"index"`
	Search  SearchConfig          `yaml:"search"`
	Cache   CacheConfig           `yaml:"cache"`
	Ranking ranking.RankingConfig `yaml:"ranking"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// RateLimit is the sustained search requests per second per client address; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds paths for the question store, index artifacts, and backend indices.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	SnapshotPath   string `yaml:"snapshot_path"`
	FulltextPath   string `yaml:"fulltext_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// ContentConfig selects where question records come from.
type ContentConfig struct {
	Source     string        `yaml:"source"`
	Directory  string        `yaml:"directory"`
	Extensions []string      `yaml:"extensions"`
	Watch      *bool         `yaml:"watch"`
	Debounce   time.Duration `yaml:"debounce"`
}

// WatchOrDefault returns whether to watch the content directory; defaults to true when unset.
func (c *ContentConfig) WatchOrDefault() bool {
	if c.Watch != nil {
		return *c.Watch
	}
	return true
}

// IndexConfig holds rebuild settings.
type IndexConfig struct {
	// RebuildInterval triggers a periodic rebuild; 0 disables it.
	RebuildInterval time.Duration `yaml:"rebuild_interval"`
}

// SearchConfig holds query engine settings.
type SearchConfig struct {
	Backend      string        `yaml:"backend"`
	DefaultLimit int           `yaml:"default_limit"`
	MaxLimit     int           `yaml:"max_limit"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Disabled bool          `yaml:"disabled"`
	Size     int           `yaml:"size"`
	TTL      time.Duration `yaml:"ttl"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.SnapshotPath = expandPath(cfg.Storage.SnapshotPath, configDir)
	cfg.Storage.FulltextPath = expandPath(cfg.Storage.FulltextPath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	if cfg.Content.Directory != "" {
		cfg.Content.Directory = expandPath(cfg.Content.Directory, configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports the first setting that cannot be served.
func (c *Config) Validate() error {
	switch c.Search.Backend {
	case BackendMemory, BackendSQLite, BackendBleve:
	default:
		return fmt.Errorf("search.backend: unknown backend %q (want memory, sqlite or bleve)", c.Search.Backend)
	}
	switch c.Content.Source {
	case SourceSQLite:
	case SourceDirectory:
		if c.Content.Directory == "" {
			return fmt.Errorf("content.directory: required when content.source is %q", SourceDirectory)
		}
	default:
		return fmt.Errorf("content.source: unknown source %q (want sqlite or directory)", c.Content.Source)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d out of range", c.Server.Port)
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxLimit <= 0 {
		return fmt.Errorf("search: limits must be positive")
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit %d exceeds search.max_limit %d", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit: must not be negative")
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
