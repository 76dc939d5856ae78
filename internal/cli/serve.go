package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hyperjump/ajwiba/internal/config"
	"github.com/hyperjump/ajwiba/internal/server"
	"github.com/hyperjump/ajwiba/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the HTTP server",
	Long: `Build the index, then serve GET /search and the admin API.

The index is rebuilt when content is written through the admin API, on
POST /api/v1/reindex, every index.rebuild_interval, and when files change
under content.directory if the directory source is watched.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, resolved, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("config loaded",
		zap.String("config_path", resolved),
		zap.Bool("debug", cfg.Debug),
		zap.String("backend", cfg.Search.Backend),
		zap.String("source", cfg.Content.Source))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := components.warmUp(ctx, logger); err != nil {
		// The server still starts; queries return empty results until a rebuild succeeds.
		logger.Error("initial index build failed", zap.Error(err))
	}
	go components.Indexer.Run(ctx, cfg.Index.RebuildInterval)

	if cfg.Content.Source == config.SourceDirectory && cfg.Content.WatchOrDefault() {
		w := watcher.NewWatcher(
			cfg.Content.Directory,
			components.DirSource.Extensions(),
			func(paths []string) {
				logger.Debug("content changed", zap.Int("files", len(paths)))
				components.Indexer.Trigger()
			},
			watcher.WithLogger(logger),
			watcher.WithDebounce(cfg.Content.Debounce),
		)
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer w.Stop()
	}

	srv := server.NewServer(
		components.Service,
		components.Indexer,
		components.QuestionStore(),
		&cfg.Server,
		logger,
		cfg,
	)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Stop(shutdownCtx)
}
