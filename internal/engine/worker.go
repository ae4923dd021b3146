package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"subtrans/internal/event"
	"subtrans/internal/mask"
	"subtrans/internal/stats"
	"subtrans/internal/subtitle"
	"subtrans/internal/translate"
)

// WorkerConfig controls the transform worker pool.
type WorkerConfig struct {
	NumWorkers int
	Backend    translate.Translator
	Masker     *mask.Masker
	Retry      translate.Policy
	Layout     layout
	Log        *TransactionLog
	Stats      *stats.Collector
	Notifier   *event.Notifier
}

// WorkerPool translates chunks of FileTasks with bounded parallelism.
// Each chunk is processed sequentially inside one worker so per-worker
// resource usage stays bounded to a single file's content.
type WorkerPool struct {
	cfg WorkerConfig
}

// NewWorkerPool creates a pool.
func NewWorkerPool(cfg WorkerConfig) *WorkerPool {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 1
	}
	return &WorkerPool{cfg: cfg}
}

// Run consumes chunks until the channel closes and sends one
// BatchResult per task. It blocks until all submitted chunks are
// processed; results must be drained by the caller.
func (wp *WorkerPool) Run(ctx context.Context, chunks <-chan []FileTask, results chan<- BatchResult) {
	var wg sync.WaitGroup
	for i := 0; i < wp.cfg.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range chunks {
				for _, task := range chunk {
					results <- wp.process(ctx, task)
				}
			}
		}()
	}
	wg.Wait()
}

// process translates one file into the run's temp folder. It never
// touches the original file; a failure leaves no temp file that could
// be mistaken for a finished translation.
func (wp *WorkerPool) process(ctx context.Context, task FileTask) BatchResult {
	wp.cfg.Notifier.Publish(event.Event{Type: event.FileStarted, Path: task.RelPath})

	tempPath, err := wp.translateFile(ctx, task)
	if err != nil {
		wp.cfg.Stats.AddFilesFailed(1)
		wp.cfg.Notifier.Publish(event.Event{Type: event.FileFailed, Path: task.RelPath, Err: err})
		slog.Error("translation failed", "file", task.RelPath, "error", err)
		return BatchResult{Task: task, Err: err}
	}

	// Provisional: the actual move happens at commit. Rolling back a
	// move that never executed is a guarded no-op.
	wp.cfg.Log.Append(EntryMove, tempPath, wp.cfg.Layout.finalPath(task.RelPath))

	wp.cfg.Stats.AddFilesTranslated(1)
	wp.cfg.Notifier.Publish(event.Event{Type: event.FileCompleted, Path: task.RelPath})
	slog.Info("translated", "file", task.RelPath)
	return BatchResult{Task: task, TempPath: tempPath}
}

func (wp *WorkerPool) translateFile(ctx context.Context, task FileTask) (string, error) {
	cues, err := subtitle.ParseFile(task.AbsPath)
	if err != nil {
		return "", err
	}

	for i := range cues {
		translated, err := wp.translateCue(ctx, cues[i].Text)
		if err != nil {
			return "", fmt.Errorf("cue %d: %w", cues[i].Index, err)
		}
		cues[i].Text = translated
		wp.cfg.Stats.AddCuesTranslated(1)
	}

	tempPath := wp.cfg.Layout.tempPath(task.RelPath)
	if err := os.MkdirAll(filepath.Dir(tempPath), 0755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	// Write to a distinct name first so a crash mid-write cannot leave
	// a partial file at the expected temp path.
	tmpName := fmt.Sprintf("%s.%s.partial", tempPath, uuid.New().String()[:8])
	if err := subtitle.WriteFile(tmpName, cues); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := os.Rename(tmpName, tempPath); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("finalize temp %s: %w", tempPath, err)
	}
	return tempPath, nil
}

// translateCue runs one cue through mask → transform-with-retry →
// unmask. A final-attempt failure fails the cue; untranslated text is
// never silently kept as success.
func (wp *WorkerPool) translateCue(ctx context.Context, text string) (string, error) {
	masked := wp.cfg.Masker.Mask(text)

	var translated string
	attempt := 0
	err := translate.Do(ctx, wp.cfg.Retry, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			wp.cfg.Stats.AddRetries(1)
		}
		out, err := wp.cfg.Backend.Translate(ctx, masked)
		if err != nil {
			return err
		}
		translated = out
		return nil
	})
	if err != nil {
		return "", err
	}

	return wp.cfg.Masker.Unmask(translated), nil
}
