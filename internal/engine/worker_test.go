package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtrans/internal/event"
	"subtrans/internal/mask"
	"subtrans/internal/stats"
	"subtrans/internal/translate"
)

func newTestPool(t *testing.T, root string, backend translate.Translator, opts ...func(*WorkerConfig)) (*WorkerPool, *TransactionLog, *stats.Collector) {
	t.Helper()
	l := newLayout(root, true)
	txlog := NewTransactionLog(nil)
	collector := stats.NewCollector()
	cfg := WorkerConfig{
		NumWorkers: 2,
		Backend:    backend,
		Masker:     mask.New([]string{"API"}),
		Retry:      fastRetry(3),
		Layout:     l,
		Log:        txlog,
		Stats:      collector,
		Notifier:   event.NewNotifier(nil, nil),
	}
	for _, o := range opts {
		o(&cfg)
	}
	return NewWorkerPool(cfg), txlog, collector
}

func runPool(wp *WorkerPool, tasks []FileTask) []BatchResult {
	chunks := make(chan []FileTask, 1)
	results := make(chan BatchResult, len(tasks))
	chunks <- tasks
	close(chunks)
	wp.Run(context.Background(), chunks, results)
	close(results)

	var out []BatchResult
	for res := range results {
		out = append(out, res)
	}
	return out
}

func TestWorkerTranslatesIntoTempMirror(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sub", "a.srt"), srtOneCue)

	wp, txlog, collector := newTestPool(t, root, &identityBackend{})
	results := runPool(wp, []FileTask{{RelPath: "sub/a.srt", AbsPath: filepath.Join(root, "sub", "a.srt")}})

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	// Output mirrors the relative path inside the temp folder.
	wantTemp := filepath.Join(root, TempDirName, "sub", "a.srt")
	assert.Equal(t, wantTemp, results[0].TempPath)
	assert.Contains(t, readFile(t, wantTemp), "hello API world")

	// Original untouched; provisional move entry logged.
	assert.Equal(t, srtOneCue, readFile(t, filepath.Join(root, "sub", "a.srt")))
	entries := txlog.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, EntryMove, entries[0].Kind)
	assert.Equal(t, filepath.Join(root, "sub", "a.srt"), entries[0].Dst)

	snap := collector.Snapshot()
	assert.Equal(t, int64(1), snap.FilesTranslated)
	assert.Equal(t, int64(1), snap.CuesTranslated)
}

func TestWorkerMasksTermsAroundBackend(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.srt"), srtOneCue)

	// The upper-casing backend would mangle "API" if it saw it bare;
	// the masker must protect it and restore it afterwards.
	wp, _, _ := newTestPool(t, root, upperBackend{})
	results := runPool(wp, []FileTask{{RelPath: "a.srt", AbsPath: filepath.Join(root, "a.srt")}})

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	out := readFile(t, results[0].TempPath)
	assert.Contains(t, out, "HELLO API WORLD")
}

func TestWorkerRetriesTransientFailures(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.srt"), srtOneCue)

	backend := &flakyBackend{failures: 2}
	wp, _, collector := newTestPool(t, root, backend)
	results := runPool(wp, []FileTask{{RelPath: "a.srt", AbsPath: filepath.Join(root, "a.srt")}})

	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, int32(3), backend.calls.Load())
	assert.Equal(t, int64(2), collector.Snapshot().Retries)
}

func TestWorkerFailsAfterRetryExhaustion(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.srt"), srtOneCue)

	backend := &flakyBackend{failures: 99}
	wp, txlog, collector := newTestPool(t, root, backend)
	results := runPool(wp, []FileTask{{RelPath: "a.srt", AbsPath: filepath.Join(root, "a.srt")}})

	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
	assert.Equal(t, int32(3), backend.calls.Load(), "exactly MaxAttempts calls")

	// A failed task leaves no temp file and logs nothing.
	assert.NoFileExists(t, filepath.Join(root, TempDirName, "a.srt"))
	assert.Zero(t, txlog.Len())
	assert.Equal(t, int64(1), collector.Snapshot().FilesFailed)
}

func TestWorkerParseFailureIsTaskLocal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "bad.srt"), "1\nnot a timing line\ntext\n")
	writeFile(t, filepath.Join(root, "good.srt"), srtOneCue)

	backend := &identityBackend{}
	wp, _, _ := newTestPool(t, root, backend)
	results := runPool(wp, []FileTask{
		{RelPath: "bad.srt", AbsPath: filepath.Join(root, "bad.srt")},
		{RelPath: "good.srt", AbsPath: filepath.Join(root, "good.srt")},
	})

	require.Len(t, results, 2)
	byRel := map[string]BatchResult{}
	for _, res := range results {
		byRel[res.Task.RelPath] = res
	}
	assert.Error(t, byRel["bad.srt"].Err)
	assert.NoError(t, byRel["good.srt"].Err)
	// The parse failure consumed no backend calls.
	assert.Equal(t, int64(1), backend.calls.Load())
}

func TestWorkerLeavesNoPartialOnFailure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.srt"), srtTwoCues)

	// Second cue fails: the temp mirror must hold nothing for a.srt.
	backend := &failFileBackend{marker: "second"}
	wp, _, _ := newTestPool(t, root, backend, func(cfg *WorkerConfig) {
		cfg.Retry = fastRetry(1)
	})
	results := runPool(wp, []FileTask{{RelPath: "a.srt", AbsPath: filepath.Join(root, "a.srt")}})

	require.Len(t, results, 1)
	require.Error(t, results[0].Err)

	entries, err := os.ReadDir(filepath.Join(root, TempDirName))
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestWorkerProgressReporting(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.srt"), srtOneCue)
	writeFile(t, filepath.Join(root, "b.srt"), srtOneCue)

	var calls atomic.Int64
	notifier := event.NewNotifier(nil, func(completed, total int) {
		calls.Add(1)
		assert.LessOrEqual(t, completed, total)
	})
	notifier.SetTotal(2)

	wp, _, _ := newTestPool(t, root, &identityBackend{}, func(cfg *WorkerConfig) {
		cfg.Notifier = notifier
	})
	runPool(wp, []FileTask{
		{RelPath: "a.srt", AbsPath: filepath.Join(root, "a.srt")},
		{RelPath: "b.srt", AbsPath: filepath.Join(root, "b.srt")},
	})

	assert.Equal(t, int64(2), calls.Load())
}
