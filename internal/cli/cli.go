// Package cli provides the command-line interface for ajwiba.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/ajwiba/internal/config"
	"github.com/hyperjump/ajwiba/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set at build time.
var Version = "dev"

// DefaultConfigPath is used when --config is not given.
const DefaultConfigPath = "/usr/local/etc/ajwiba/config.yaml"

var (
	configPath string
	debugFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "ajwiba",
	Short: "Search layer for Arabic Q&A content",
	Long: `ajwiba indexes question/answer records and serves ranked,
highlighted search results over HTTP.

Records come from a SQLite store or a directory of Markdown files
with front matter. Queries run against an in-memory index, SQLite FTS5,
or a bleve index, selected by search.backend in the config file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", DefaultConfigPath, "config file path")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ajwiba version %s\n", Version)
	},
}

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory is preferred if it exists, so running from a project checkout
// picks up the project's config. It returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == DefaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				path = fallback
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, path, nil
}

// setup loads the config and creates the logger shared by every command.
func setup() (*config.Config, string, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Debug = cfg.Debug || debugFlag
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, "", nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, resolved, logger, nil
}
