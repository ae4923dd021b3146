// Package engine implements the transactional batch pipeline:
// discovery with fingerprint skip, bounded-parallel translation into a
// temp mirror, and an all-or-nothing commit guarded by a write-ahead
// transaction log.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/gofrs/flock"

	"subtrans/internal/event"
	"subtrans/internal/fingerprint"
	"subtrans/internal/mask"
	"subtrans/internal/stats"
	"subtrans/internal/translate"
)

// Config describes one pipeline run. It is immutable once Run starts.
type Config struct {
	Folder    string
	Overwrite bool
	ChunkSize int // files in flight; also the worker pool size
	Retry     translate.Policy
	Backend   translate.Translator
	Terms     []string

	Events   chan<- event.Event
	Progress event.ProgressFunc
	Stats    *stats.Collector
}

// ErrCancelled reports a run stopped by the caller's cancellation
// signal. Nothing was committed; completed temp output was discarded.
var ErrCancelled = errors.New("run cancelled")

// Run executes the pipeline, blocking until it commits, rolls back, or
// is cancelled. On any failure the source tree is left unchanged.
func Run(ctx context.Context, cfg Config) error {
	if err := checkFolder(cfg.Folder); err != nil {
		return err
	}
	if cfg.Backend == nil {
		return errors.New("no translation backend configured")
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 4
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}

	l := newLayout(cfg.Folder, cfg.Overwrite)

	// One run per folder at a time; a second writer would break the
	// single-writer-per-file guarantee.
	lock := flock.New(l.lockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another run is already active in %s", cfg.Folder)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(l.lockPath())
	}()

	if err := l.prepare(); err != nil {
		return err
	}
	defer func() {
		if err := l.purgeTemp(); err != nil {
			slog.Warn("purge temp folder failed", "error", err)
		}
	}()

	journal, err := OpenJournal(l.tempDir())
	if err != nil {
		// The in-memory log alone still guarantees rollback within
		// this process; only post-crash recovery is lost.
		slog.Warn("journal unavailable, continuing without durable log", "error", err)
		journal = nil
	}
	if journal != nil {
		defer journal.Close()
	}

	notifier := event.NewNotifier(cfg.Events, cfg.Progress)
	store := fingerprint.Load(l.storePath())
	txlog := NewTransactionLog(journal)

	disc := &Discovery{
		Root:     cfg.Folder,
		Store:    store,
		Workers:  cfg.ChunkSize,
		Stats:    cfg.Stats,
		Notifier: notifier,
	}
	tasks, err := disc.Run(ctx)
	if err != nil {
		return fmt.Errorf("discovery: %w", err)
	}
	if len(tasks) == 0 {
		slog.Info("nothing to translate", "folder", cfg.Folder)
		return nil
	}
	notifier.SetTotal(len(tasks))
	slog.Info("run starting",
		"folder", cfg.Folder,
		"files", len(tasks),
		"chunk_size", cfg.ChunkSize,
		"backend", cfg.Backend.Name(),
		"overwrite", cfg.Overwrite,
	)

	results := dispatch(ctx, cfg, l, txlog, notifier, tasks)

	var successes []BatchResult
	var firstErr error
	for _, res := range results {
		if res.Success() {
			successes = append(successes, res)
		} else if firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", res.Task.RelPath, res.Err)
		}
	}

	cancelled := ctx.Err() != nil

	switch {
	case firstErr != nil:
		// One failed task abandons the run: no partial commits.
		slog.Error("run failed, rolling back", "error", firstErr)
		txlog.Rollback()
		notifier.Publish(event.Event{Type: event.RolledBack, Err: firstErr})
		removeJournal(journal)
		return firstErr

	case cancelled:
		// Nothing was committed; completed temp output is discarded,
		// not rolled back.
		slog.Warn("run cancelled, discarding temp output", "completed", len(successes))
		for _, res := range successes {
			txlog.Append(EntryDelete, res.TempPath, "")
			_ = os.Remove(res.TempPath)
		}
		removeJournal(journal)
		return fmt.Errorf("%w: %v", ErrCancelled, context.Cause(ctx))

	default:
		cm := NewCommitManager(l, txlog, store, notifier)
		if err := cm.Commit(successes); err != nil {
			slog.Error("commit failed, rolling back", "error", err)
			txlog.Rollback()
			notifier.Publish(event.Event{Type: event.RolledBack, Err: err})
			removeJournal(journal)
			return err
		}
		removeJournal(journal)
		return nil
	}
}

// dispatch submits task chunks to the worker pool and collects every
// result. Cancellation is cooperative: it stops new submissions while
// already-submitted chunks run to completion.
func dispatch(ctx context.Context, cfg Config, l layout, txlog *TransactionLog, notifier *event.Notifier, tasks []FileTask) []BatchResult {
	pool := NewWorkerPool(WorkerConfig{
		NumWorkers: cfg.ChunkSize,
		Backend:    cfg.Backend,
		Masker:     mask.New(cfg.Terms),
		Retry:      cfg.Retry,
		Layout:     l,
		Log:        txlog,
		Stats:      cfg.Stats,
		Notifier:   notifier,
	})

	chunkCh := make(chan []FileTask)
	resultCh := make(chan BatchResult, len(tasks))

	go func() {
		defer close(chunkCh)
		for _, chunk := range chunkTasks(tasks, cfg.ChunkSize) {
			if ctx.Err() != nil {
				slog.Info("cancellation requested, no further chunks submitted")
				return
			}
			chunkCh <- chunk
		}
	}()

	pool.Run(ctx, chunkCh, resultCh)
	close(resultCh)

	results := make([]BatchResult, 0, len(tasks))
	for res := range resultCh {
		results = append(results, res)
	}
	return results
}

// removeJournal drops the durable journal once the run has reached a
// terminal state; the temp purge would get it anyway, this makes the
// intent explicit and works even if the purge fails.
func removeJournal(j *Journal) {
	if j == nil {
		return
	}
	if err := j.Clear(); err != nil {
		slog.Warn("journal clear failed", "error", err)
	}
	if err := j.Close(); err != nil {
		slog.Warn("journal close failed", "error", err)
	}
	if err := j.Remove(); err != nil {
		slog.Warn("journal remove failed", "error", err)
	}
}
