package config

import (
	"time"

	"github.com/hyperjump/ajwiba/internal/content"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = int(cfg.Server.RateLimit * 2)
		if cfg.Server.RateBurst < 1 {
			cfg.Server.RateBurst = 1
		}
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/ajwiba/data/db/questions.db"
	}
	if cfg.Storage.SnapshotPath == "" {
		cfg.Storage.SnapshotPath = "/usr/local/var/ajwiba/data/index/snapshot.json"
	}
	if cfg.Storage.FulltextPath == "" {
		cfg.Storage.FulltextPath = "/usr/local/var/ajwiba/data/index/fulltext.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/ajwiba/data/index/bleve"
	}
	if cfg.Content.Source == "" {
		cfg.Content.Source = SourceSQLite
	}
	if cfg.Content.Extensions == nil {
		cfg.Content.Extensions = append([]string{}, content.DefaultExtensions...)
	}
	if cfg.Content.Debounce == 0 {
		cfg.Content.Debounce = 500 * time.Millisecond
	}
	// Watch defaults to true when a directory source is used.
	if cfg.Content.Source == SourceDirectory && cfg.Content.Watch == nil {
		t := true
		cfg.Content.Watch = &t
	}
	if cfg.Search.Backend == "" {
		cfg.Search.Backend = BackendMemory
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 50
	}
	if cfg.Search.QueryTimeout == 0 {
		cfg.Search.QueryTimeout = 2 * time.Second
	}
	if cfg.Cache.Size == 0 {
		cfg.Cache.Size = 1000
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 60 * time.Second
	}
	cfg.Ranking.ApplyDefaults()
}
