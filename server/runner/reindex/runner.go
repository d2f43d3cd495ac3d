// Package reindex repairs the vector index in the background.
//
// Notes whose vector write failed are re-embedded, and vectors whose deletion failed
// are removed again from their tombstones.
package reindex

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hrygo/vectornotes/plugin/ai/vector"
	"github.com/hrygo/vectornotes/store"
)

// Store is the subset of the note store used by the runner.
type Store interface {
	GetNote(ctx context.Context, id, userID string) (*store.Note, error)
	FindNotesPendingIndex(ctx context.Context, find *store.FindNotesPendingIndex) ([]*store.Note, error)
	ListVectorTombstones(ctx context.Context, limit int) ([]*store.VectorTombstone, error)
	DeleteVectorTombstone(ctx context.Context, noteID string) error
}

// Indexer writes the vector of a note and marks it indexed.
type Indexer interface {
	IndexNote(ctx context.Context, note *store.Note) error
}

// Result summarizes one pass.
type Result struct {
	Indexed int
	Failed  int
	Purged  int
}

type Runner struct {
	store       Store
	indexer     Indexer
	index       vector.Index
	interval    time.Duration
	batchSize   int
	concurrency int64
}

// NewRunner creates a reindex runner. A non-positive interval falls back to two minutes.
func NewRunner(store Store, indexer Indexer, index vector.Index, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	return &Runner{
		store:       store,
		indexer:     indexer,
		index:       index,
		interval:    interval,
		batchSize:   8,
		concurrency: 4,
	}
}

// Run starts the background task and blocks until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	// Process once on startup
	r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-ctx.Done():
			slog.Info("reindex runner stopped")
			return
		}
	}
}

// RunOnce retries pending vector deletions, then backfills pending notes.
func (r *Runner) RunOnce(ctx context.Context) Result {
	result := Result{}
	result.Purged = r.processTombstones(ctx)
	result.Indexed, result.Failed = r.processPendingNotes(ctx)
	return result
}

func (r *Runner) processTombstones(ctx context.Context) int {
	tombstones, err := r.store.ListVectorTombstones(ctx, r.batchSize*20)
	if err != nil {
		slog.Error("failed to list vector tombstones", "error", err)
		return 0
	}

	purged := 0
	for _, tombstone := range tombstones {
		if ctx.Err() != nil {
			return purged
		}
		if err := r.purge(ctx, tombstone); err != nil {
			slog.Warn("failed to purge vector", "noteID", tombstone.NoteID, "error", err)
			continue
		}
		purged++
	}
	if purged > 0 {
		slog.Info("vector tombstones processed", "purged", purged, "total", len(tombstones))
	}
	return purged
}

func (r *Runner) purge(ctx context.Context, tombstone *store.VectorTombstone) error {
	note, err := r.store.GetNote(ctx, tombstone.NoteID, tombstone.UserID)
	if err != nil {
		return err
	}
	// The note got content again after the failed deletion: its vector is wanted.
	if note == nil || strings.TrimSpace(note.Content) == "" {
		if err := r.index.Delete(ctx, tombstone.NoteID); err != nil {
			return err
		}
	}
	return r.store.DeleteVectorTombstone(ctx, tombstone.NoteID)
}

func (r *Runner) processPendingNotes(ctx context.Context) (int, int) {
	notes, err := r.store.FindNotesPendingIndex(ctx, &store.FindNotesPendingIndex{
		Limit: r.batchSize * 20, // Fetch more data, but process in small batches
	})
	if err != nil {
		slog.Error("failed to find notes pending index", "error", err)
		return 0, 0
	}
	if len(notes) == 0 {
		return 0, 0
	}

	slog.Info("reindexing notes", "count", len(notes))

	var indexed, failed atomic.Int64
	for i := 0; i < len(notes); i += r.batchSize {
		if ctx.Err() != nil {
			slog.Info("reindex cancelled", "processed", i, "total", len(notes))
			break
		}
		end := min(i+r.batchSize, len(notes))
		r.processBatch(ctx, notes[i:end], &indexed, &failed)
		slog.Debug("batch processed", "count", end-i, "progress", fmt.Sprintf("%d/%d", end, len(notes)))
	}
	return int(indexed.Load()), int(failed.Load())
}

func (r *Runner) processBatch(ctx context.Context, notes []*store.Note, indexed, failed *atomic.Int64) {
	sem := semaphore.NewWeighted(r.concurrency)
	var wg sync.WaitGroup
	for _, note := range notes {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(note *store.Note) {
			defer wg.Done()
			defer sem.Release(1)
			if err := r.indexer.IndexNote(ctx, note); err != nil {
				failed.Add(1)
				slog.Warn("failed to reindex note", "noteID", note.ID, "error", err)
				return
			}
			indexed.Add(1)
		}(note)
	}
	wg.Wait()
}
