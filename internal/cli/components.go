package cli

import (
	"context"
	"fmt"

	"github.com/hyperjump/ajwiba/internal/config"
	"github.com/hyperjump/ajwiba/internal/content"
	"github.com/hyperjump/ajwiba/internal/fulltext"
	"github.com/hyperjump/ajwiba/internal/indexer"
	"github.com/hyperjump/ajwiba/internal/keyword"
	"github.com/hyperjump/ajwiba/internal/ranking"
	"github.com/hyperjump/ajwiba/internal/search"
	"github.com/hyperjump/ajwiba/internal/storage"
	"go.uber.org/zap"
)

// Components holds initialized services.
type Components struct {
	// Store is the SQLite question store; nil when content comes from a directory.
	Store     *storage.SQLiteStorage
	DirSource *content.DirSource
	Holder    *indexer.Holder
	Fulltext  *fulltext.Store
	Bleve     *keyword.BleveIndex
	Scorer    *ranking.Scorer
	Service   *search.Service
	Indexer   *indexer.Indexer
}

// Close releases every open store and index.
func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Fulltext != nil {
		_ = c.Fulltext.Close()
	}
	if c.Bleve != nil {
		_ = c.Bleve.Close()
	}
}

// QuestionStore returns the store as a storage.QuestionStore, or nil when there is none.
func (c *Components) QuestionStore() storage.QuestionStore {
	if c.Store == nil {
		return nil
	}
	return c.Store
}

// initializeComponents wires the content source, the configured search backend and the
// indexer that feeds it. The in-memory holder is always published so direct searches
// can explain scores whichever backend serves them.
func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{
		Holder: indexer.NewHolder(),
		Scorer: ranking.NewScorer(&cfg.Ranking),
	}

	var source indexer.Source
	switch cfg.Content.Source {
	case config.SourceDirectory:
		c.DirSource = content.NewDirSource(cfg.Content.Directory,
			content.WithLogger(logger),
			content.WithExtensions(cfg.Content.Extensions...))
		source = c.DirSource
	default:
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		c.Store = store
		source = store
	}

	publishers := []indexer.Publisher{c.Holder}
	var backend search.Backend
	switch cfg.Search.Backend {
	case config.BackendSQLite:
		ftCfg := fulltext.DefaultConfig(cfg.Storage.FulltextPath)
		ftCfg.Debug = cfg.Debug
		ft, err := fulltext.New(ftCfg, fulltext.WithLogger(logger))
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize full-text index: %w", err)
		}
		c.Fulltext = ft
		publishers = append(publishers, ft)
		backend = ft
	case config.BackendBleve:
		bi, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath, keyword.WithLogger(logger))
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
		}
		c.Bleve = bi
		publishers = append(publishers, bi)
		backend = bi
	default:
		backend = search.NewMemoryBackend(c.Holder, c.Scorer)
	}

	var cache *search.ResultCache
	if !cfg.Cache.Disabled {
		cache = search.NewResultCache(cfg.Cache.Size, cfg.Cache.TTL)
	}
	c.Service = search.NewService(backend,
		search.WithLogger(logger),
		search.WithCache(cache),
		search.WithTimeout(cfg.Search.QueryTimeout),
		search.WithLimits(cfg.Search.DefaultLimit, cfg.Search.MaxLimit))

	c.Indexer = indexer.NewIndexer(source,
		indexer.WithLogger(logger),
		indexer.WithPublishers(publishers...),
		indexer.WithSnapshotPath(cfg.Storage.SnapshotPath),
		indexer.WithRebuildHook(c.Service.Invalidate))

	logger.Debug("components initialized",
		zap.String("source", cfg.Content.Source),
		zap.String("backend", backend.Name()))
	return c, nil
}

// warmUp publishes the persisted snapshot when one exists, then rebuilds from the source.
// A failed rebuild keeps the loaded snapshot in service.
func (c *Components) warmUp(ctx context.Context, logger *zap.Logger) error {
	loaded, err := c.Indexer.LoadSnapshot(ctx)
	if err != nil {
		logger.Warn("snapshot load failed", zap.Error(err))
	}
	if _, err := c.Indexer.Rebuild(ctx); err != nil {
		if loaded != nil {
			logger.Warn("rebuild failed, serving persisted snapshot", zap.Error(err))
			return nil
		}
		return err
	}
	return nil
}
