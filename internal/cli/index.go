package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/ajwiba/internal/content"
	"github.com/hyperjump/ajwiba/internal/indexer"
	"github.com/hyperjump/ajwiba/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the index and write the snapshot artifact",
	Long: `Read every record from the configured content source, build a new
snapshot, write it to storage.snapshot_path and publish it to the configured
backend. A running server picks up the artifact on its next start.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

var importCmd = &cobra.Command{
	Use:   "import <directory>",
	Short: "Import Markdown questions into the SQLite store",
	Long: `Parse every Markdown file with front matter under <directory> and upsert
it into the question database at storage.database_path. Drafts and malformed
files are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, _, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	snap, err := components.Indexer.Rebuild(cmd.Context())
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d question(s), skipped %d (snapshot %s)\n",
		len(snap.Entries), snap.Skipped, snap.ID)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, _, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("open question store: %w", err)
	}
	defer func() { _ = store.Close() }()

	src := content.NewDirSource(args[0],
		content.WithLogger(logger),
		content.WithExtensions(cfg.Content.Extensions...))
	imported, skipped, err := importQuestions(cmd.Context(), src, store, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d question(s) from %s, skipped %d\n", imported, args[0], skipped)
	return nil
}

// importQuestions copies every valid record from src into store.
func importQuestions(ctx context.Context, src indexer.Source, store storage.QuestionStore, logger *zap.Logger) (int, int, error) {
	records, err := src.ListQuestions(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list questions: %w", err)
	}
	imported, skipped := 0, 0
	for _, q := range records {
		if _, err := indexer.BuildEntry(q); err != nil {
			if errors.Is(err, indexer.ErrMalformedRecord) {
				logger.Warn("skipping record", zap.String("slug", q.Slug), zap.Error(err))
				skipped++
				continue
			}
			logger.Warn("importing record with warning", zap.String("slug", q.Slug), zap.Error(err))
		}
		if err := store.UpsertQuestion(ctx, q); err != nil {
			return imported, skipped, fmt.Errorf("import %s: %w", q.Slug, err)
		}
		imported++
	}
	return imported, skipped, nil
}
