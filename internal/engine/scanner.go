package engine

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"subtrans/internal/event"
	"subtrans/internal/fingerprint"
	"subtrans/internal/stats"
)

// candidateExts are the cue-list file extensions discovery picks up.
var candidateExts = map[string]struct{}{
	".srt": {},
	".sub": {},
}

// Discovery enumerates candidate files under the input folder and
// filters out files the fingerprint store says are unchanged.
type Discovery struct {
	Root     string
	Store    *fingerprint.Store
	Workers  int // bound for concurrent fingerprinting
	Stats    *stats.Collector
	Notifier *event.Notifier
}

// Run walks the tree and returns the tasks that need processing, in
// stable (sorted) order. Reserved generated folders and dot-folders
// are pruned. A file whose fingerprint cannot be computed is kept as
// "must process" rather than aborting the run.
func (d *Discovery) Run(ctx context.Context) ([]FileTask, error) {
	d.Notifier.Publish(event.Event{Type: event.ScanStarted})

	candidates, err := d.collect()
	if err != nil {
		return nil, err
	}
	d.Stats.AddFilesScanned(int64(len(candidates)))

	tasks, err := d.filterUnchanged(ctx, candidates)
	if err != nil {
		return nil, err
	}

	d.Notifier.Publish(event.Event{Type: event.ScanComplete, Total: len(tasks)})
	return tasks, nil
}

func (d *Discovery) collect() ([]FileTask, error) {
	var candidates []FileTask
	err := filepath.WalkDir(d.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path == d.Root {
				return nil
			}
			name := entry.Name()
			if _, reserved := reservedDirs[name]; reserved {
				return filepath.SkipDir
			}
			if strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if _, ok := candidateExts[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			return nil
		}
		rel, err := filepath.Rel(d.Root, path)
		if err != nil {
			return err
		}
		candidates = append(candidates, FileTask{RelPath: rel, AbsPath: path})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].RelPath < candidates[j].RelPath
	})
	return candidates, nil
}

// filterUnchanged fingerprints candidates concurrently and drops the
// ones the store marks as already processed.
func (d *Discovery) filterUnchanged(ctx context.Context, candidates []FileTask) ([]FileTask, error) {
	limit := d.Workers
	if limit <= 0 {
		limit = 4
	}

	keep := make([]bool, len(candidates))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, task := range candidates {
		i, task := i, task
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			digest, err := fingerprint.File(task.AbsPath)
			if err != nil {
				// Unreadable now may be readable by the worker; and if
				// not, the task fails on its own, not the run.
				slog.Warn("fingerprint failed, will process", "file", task.RelPath, "error", err)
				keep[i] = true
				return nil
			}

			mu.Lock()
			skip := d.Store.ShouldSkip(task.RelPath, digest)
			mu.Unlock()

			if skip {
				d.Stats.AddFilesSkipped(1)
				d.Notifier.Publish(event.Event{Type: event.FileSkipped, Path: task.RelPath})
				slog.Info("unchanged, skipping", "file", task.RelPath)
				return nil
			}
			keep[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var tasks []FileTask
	for i, k := range keep {
		if k {
			tasks = append(tasks, candidates[i])
		}
	}
	return tasks, nil
}
