package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/hyperjump/ajwiba/internal/config"
	"github.com/hyperjump/ajwiba/internal/indexer"
	"github.com/hyperjump/ajwiba/internal/storage"
	"github.com/spf13/cobra"
)

var statusOpts struct {
	serverURL string
	output    string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index, cache and storage status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusOpts.serverURL, "server", "http://localhost:8080", "server URL (empty = read local storage)")
	statusCmd.Flags().StringVar(&statusOpts.output, "output", "text", "output format: text or json")
}

// statusResponse is the shape of the GET /api/v1/status response.
type statusResponse struct {
	Backend   string             `json:"backend"`
	Questions *int64             `json:"questions,omitempty"`
	Index     *indexer.Status    `json:"index,omitempty"`
	Cache     *statusCache       `json:"cache,omitempty"`
	DiskUsage *storage.DiskUsage `json:"disk_usage,omitempty"`
}

type statusCache struct {
	Entries    int `json:"entries"`
	TTLSeconds int `json:"ttlSeconds"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusOpts.output != "text" && statusOpts.output != "json" {
		return fmt.Errorf("unknown output format %q; use text or json", statusOpts.output)
	}

	var status *statusResponse
	if statusOpts.serverURL != "" {
		res, err := statusViaHTTP(statusOpts.serverURL)
		if err != nil {
			return fmt.Errorf("status failed: %w", err)
		}
		status = res
	} else {
		cfg, _, logger, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		status = &statusResponse{Backend: cfg.Search.Backend}
		paths := map[string]string{"snapshot": cfg.Storage.SnapshotPath}
		if snap, err := indexer.ReadSnapshot(cfg.Storage.SnapshotPath); err == nil {
			status.Index = &indexer.Status{
				SnapshotID: snap.ID,
				BuiltAt:    snap.BuiltAt,
				Entries:    len(snap.Entries),
				Skipped:    snap.Skipped,
			}
		}
		if cfg.Content.Source != config.SourceDirectory {
			store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
			if err != nil {
				return fmt.Errorf("open question store: %w", err)
			}
			n, err := store.CountQuestions(cmd.Context())
			_ = store.Close()
			if err != nil {
				return fmt.Errorf("count questions: %w", err)
			}
			status.Questions = &n
			paths["database"] = cfg.Storage.DatabasePath
		}
		switch cfg.Search.Backend {
		case config.BackendSQLite:
			paths["fulltext"] = cfg.Storage.FulltextPath
		case config.BackendBleve:
			paths["bleve"] = cfg.Storage.BleveIndexPath
		}
		if usage, err := storage.MeasureDiskUsage(paths); err == nil {
			status.DiskUsage = usage
		}
	}

	out := cmd.OutOrStdout()
	if statusOpts.output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	writeStatusText(out, status)
	return nil
}

func writeStatusText(w io.Writer, status *statusResponse) {
	fmt.Fprintf(w, "backend:            %s\n", status.Backend)
	if status.Questions != nil {
		fmt.Fprintf(w, "questions:          %d   # records in the question store\n", *status.Questions)
	}
	if status.Index != nil {
		fmt.Fprintf(w, "snapshot:           %s\n", status.Index.SnapshotID)
		fmt.Fprintf(w, "entries:            %d   # indexed questions\n", status.Index.Entries)
		fmt.Fprintf(w, "skipped:            %d   # malformed or duplicate records\n", status.Index.Skipped)
		if !status.Index.BuiltAt.IsZero() {
			fmt.Fprintf(w, "built_at:           %s\n", status.Index.BuiltAt.Format("2006-01-02 15:04:05 MST"))
		}
		if status.Index.LastError != "" {
			fmt.Fprintf(w, "last_error:         %s\n", status.Index.LastError)
		}
	}
	if status.Cache != nil {
		fmt.Fprintf(w, "cache_entries:      %d\n", status.Cache.Entries)
		fmt.Fprintf(w, "cache_ttl_seconds:  %d\n", status.Cache.TTLSeconds)
	}
	if status.DiskUsage != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # storage + indices on disk\n", status.DiskUsage.TotalBytes)
		names := make([]string, 0, len(status.DiskUsage.Components))
		for name := range status.DiskUsage.Components {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			pad := strings.Repeat(" ", max(1, 18-len(name)))
			fmt.Fprintf(w, "  %s:%s%d\n", name, pad, status.DiskUsage.Components[name])
		}
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := httpClient.Get(strings.TrimRight(serverURL, "/") + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}
