package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/ajwiba/internal/models"
)

// Snapshot is one fully built index generation. It is never modified after publication.
type Snapshot struct {
	ID      string               `json:"id"`
	BuiltAt time.Time            `json:"builtAt"`
	Entries []*models.IndexEntry `json:"entries"`
	Skipped int                  `json:"skipped"`
}

// NewSnapshot wraps entries in a snapshot with a fresh ID.
func NewSnapshot(entries []*models.IndexEntry, skipped int) *Snapshot {
	if entries == nil {
		entries = []*models.IndexEntry{}
	}
	return &Snapshot{
		ID:      uuid.New().String(),
		BuiltAt: time.Now().UTC(),
		Entries: entries,
		Skipped: skipped,
	}
}

// Len returns the number of entries, treating a nil snapshot as empty.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

// SaveSnapshot writes snap as JSON to path. The file is replaced atomically so
// readers never observe a partial artifact.
func SaveSnapshot(path string, snap *Snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads a snapshot previously written by SaveSnapshot.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	if snap.Entries == nil {
		snap.Entries = []*models.IndexEntry{}
	}
	return &snap, nil
}

// Holder keeps the current snapshot for in-process readers.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// NewHolder returns a holder containing an empty snapshot.
func NewHolder() *Holder {
	h := &Holder{}
	h.current.Store(&Snapshot{Entries: []*models.IndexEntry{}})
	return h
}

// Name implements Publisher.
func (h *Holder) Name() string { return "memory" }

// Publish swaps in snap. Readers holding the previous snapshot keep a consistent view.
func (h *Holder) Publish(_ context.Context, snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("publish nil snapshot")
	}
	h.current.Store(snap)
	return nil
}

// Current returns the latest published snapshot.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}
