// Package indexer builds immutable search snapshots from question records and publishes them to search backends.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/hyperjump/ajwiba/internal/models"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Source lists the question records to index.
type Source interface {
	ListQuestions(ctx context.Context) ([]*models.Question, error)
}

// Publisher receives every newly built snapshot.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, snap *Snapshot) error
}

// Status describes the most recent build.
type Status struct {
	SnapshotID  string    `json:"snapshotId"`
	BuiltAt     time.Time `json:"builtAt"`
	Entries     int       `json:"entries"`
	Skipped     int       `json:"skipped"`
	Rebuilds    int       `json:"rebuilds"`
	LastError   string    `json:"lastError,omitempty"`
	LastAttempt time.Time `json:"lastAttempt"`
}

// Indexer rebuilds the index from its Source. Rebuilds are serialized; queries keep
// reading the previously published snapshot until the new one is swapped in.
type Indexer struct {
	source       Source
	publishers   []Publisher
	hooks        []func()
	snapshotPath string
	logger       *zap.Logger

	mu      sync.Mutex // serializes rebuilds
	trigger chan struct{}

	statusMu sync.RWMutex
	status   Status
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for build events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithPublishers adds snapshot publishers (backends).
func WithPublishers(p ...Publisher) IndexerOption {
	return func(idx *Indexer) { idx.publishers = append(idx.publishers, p...) }
}

// WithSnapshotPath persists every snapshot as a JSON artifact at path.
func WithSnapshotPath(path string) IndexerOption {
	return func(idx *Indexer) { idx.snapshotPath = path }
}

// WithRebuildHook registers fn to run after every successful publish.
func WithRebuildHook(fn func()) IndexerOption {
	return func(idx *Indexer) { idx.hooks = append(idx.hooks, fn) }
}

// NewIndexer creates an indexer reading from source.
func NewIndexer(source Source, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		source:  source,
		logger:  zap.NewNop(),
		trigger: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Rebuild loads all records, builds a new snapshot, persists it, and publishes it.
// When the source fails, the previous snapshot stays in place.
func (idx *Indexer) Rebuild(ctx context.Context) (*Snapshot, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	start := time.Now()
	idx.logger.Debug("indexer rebuild started")
	records, err := idx.source.ListQuestions(ctx)
	if err != nil {
		err = fmt.Errorf("list questions: %w", err)
		idx.recordFailure(err)
		return nil, err
	}

	entries, skipped := BuildIndex(records, idx.logger)
	snap := NewSnapshot(entries, skipped)

	if idx.snapshotPath != "" {
		if err := SaveSnapshot(idx.snapshotPath, snap); err != nil {
			// The artifact only speeds up warm starts; publishing still proceeds.
			idx.logger.Error("failed to persist snapshot", zap.String("path", idx.snapshotPath), zap.Error(err))
		}
	}

	if err := idx.publish(ctx, snap); err != nil {
		idx.recordFailure(err)
		return snap, err
	}

	idx.statusMu.Lock()
	idx.status = Status{
		SnapshotID:  snap.ID,
		BuiltAt:     snap.BuiltAt,
		Entries:     len(snap.Entries),
		Skipped:     snap.Skipped,
		Rebuilds:    idx.status.Rebuilds + 1,
		LastAttempt: time.Now(),
	}
	idx.statusMu.Unlock()

	idx.logger.Info("index rebuilt",
		zap.String("snapshot", snap.ID),
		zap.Int("entries", len(snap.Entries)),
		zap.Int("skipped", snap.Skipped),
		zap.Duration("took", time.Since(start)))
	return snap, nil
}

// LoadSnapshot publishes the persisted artifact, if any, so queries can be served
// before the first rebuild completes. It returns nil, nil when no artifact exists.
func (idx *Indexer) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	if idx.snapshotPath == "" {
		return nil, nil
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	snap, err := ReadSnapshot(idx.snapshotPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := idx.publish(ctx, snap); err != nil {
		return nil, err
	}

	idx.statusMu.Lock()
	idx.status.SnapshotID = snap.ID
	idx.status.BuiltAt = snap.BuiltAt
	idx.status.Entries = len(snap.Entries)
	idx.status.Skipped = snap.Skipped
	idx.statusMu.Unlock()

	idx.logger.Info("snapshot loaded", zap.String("snapshot", snap.ID), zap.Int("entries", len(snap.Entries)))
	return snap, nil
}

func (idx *Indexer) publish(ctx context.Context, snap *Snapshot) error {
	var errs error
	for _, p := range idx.publishers {
		if err := p.Publish(ctx, snap); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("publish to %s: %w", p.Name(), err))
		}
	}
	if errs != nil {
		return errs
	}
	for _, fn := range idx.hooks {
		fn()
	}
	return nil
}

func (idx *Indexer) recordFailure(err error) {
	idx.logger.Error("index rebuild failed", zap.Error(err))
	idx.statusMu.Lock()
	idx.status.LastError = err.Error()
	idx.status.LastAttempt = time.Now()
	idx.statusMu.Unlock()
}

// Trigger requests a rebuild from Run. Requests made while one is pending coalesce.
func (idx *Indexer) Trigger() {
	select {
	case idx.trigger <- struct{}{}:
	default:
	}
}

// Run serves rebuild triggers, and rebuilds every interval when interval > 0,
// until ctx is cancelled.
func (idx *Indexer) Run(ctx context.Context, interval time.Duration) {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-idx.trigger:
			idx.logger.Debug("indexer rebuild triggered")
		case <-tick:
			idx.logger.Debug("indexer periodic rebuild")
		}
		// Errors are recorded in Status and logged.
		_, _ = idx.Rebuild(ctx)
	}
}

// Status returns a copy of the current build status.
func (idx *Indexer) Status() Status {
	idx.statusMu.RLock()
	defer idx.statusMu.RUnlock()
	return idx.status
}
