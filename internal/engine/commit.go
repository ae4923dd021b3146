package engine

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"subtrans/internal/event"
	"subtrans/internal/fingerprint"
)

// CommitManager durably applies a batch of successful translations.
// Per file it backs up the original (overwrite mode) and moves the
// temp output into place, logging each step so the whole batch stays
// reversible until the fingerprint store is saved.
type CommitManager struct {
	layout   layout
	log      *TransactionLog
	store    *fingerprint.Store
	notifier *event.Notifier
}

// NewCommitManager creates a commit manager for one run.
func NewCommitManager(l layout, log *TransactionLog, store *fingerprint.Store, notifier *event.Notifier) *CommitManager {
	return &CommitManager{layout: l, log: log, store: store, notifier: notifier}
}

// Commit applies every success in the batch, then saves the
// fingerprint store as the run's single durable point. Any failure
// aborts the whole phase with an error; the caller rolls back, which
// the already-logged Copy/Move entries make possible.
func (cm *CommitManager) Commit(successes []BatchResult) error {
	for _, res := range successes {
		if err := cm.commitFile(res); err != nil {
			return fmt.Errorf("commit %s: %w", res.Task.RelPath, err)
		}
	}

	if err := cm.store.Save(cm.layout.storePath()); err != nil {
		return fmt.Errorf("save fingerprint store: %w", err)
	}

	cm.notifier.Publish(event.Event{Type: event.Committed})
	slog.Info("run committed", "files", len(successes))
	return nil
}

func (cm *CommitManager) commitFile(res BatchResult) error {
	rel := res.Task.RelPath
	finalPath := cm.layout.finalPath(rel)

	if cm.layout.overwrite {
		// Backup before overwrite: a crash between these two steps
		// still leaves a recoverable original.
		backupPath := cm.layout.backupPath(rel)
		if err := os.MkdirAll(filepath.Dir(backupPath), 0755); err != nil {
			return fmt.Errorf("create backup dir: %w", err)
		}
		if err := copyFile(res.Task.AbsPath, backupPath); err != nil {
			return fmt.Errorf("backup original: %w", err)
		}
		cm.log.Append(EntryCopy, res.Task.AbsPath, backupPath)
	} else {
		if err := os.MkdirAll(filepath.Dir(finalPath), 0755); err != nil {
			return fmt.Errorf("create destination dir: %w", err)
		}
	}

	if err := os.Rename(res.TempPath, finalPath); err != nil {
		return fmt.Errorf("move into place: %w", err)
	}
	cm.log.Append(EntryMove, res.TempPath, finalPath)

	// The store records the post-commit content, so an unchanged
	// re-run skips this file.
	digest, err := fingerprint.File(finalPath)
	if err != nil {
		return fmt.Errorf("fingerprint committed file: %w", err)
	}
	cm.store.Update(rel, digest)

	slog.Debug("committed", "file", rel, "dest", finalPath)
	return nil
}

// copyFile copies src to dst with a temp-name-then-rename so a partial
// copy is never left at dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	tmp := dst + ".partial"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
