package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// EntryKind tags a reversible filesystem operation.
type EntryKind int

const (
	// EntryCopy records "src was copied to dst". Inverse: rename dst
	// back over src, restoring src to its at-copy content and removing
	// the copy in one step.
	EntryCopy EntryKind = iota + 1
	// EntryMove records "src is (to be) moved to dst". Inverse: rename
	// dst back to src, but only when the move actually happened (src
	// gone, dst present). A provisional entry whose move never executed
	// is a no-op on rollback.
	EntryMove
	// EntryDelete records a temp file scheduled for cleanup. It has no
	// inverse; it exists for bookkeeping and journal inspection.
	EntryDelete
)

var kindNames = [...]string{
	EntryCopy:   "copy",
	EntryMove:   "move",
	EntryDelete: "delete",
}

func (k EntryKind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// LogEntry is one reversible operation in append order.
type LogEntry struct {
	Kind EntryKind
	Src  string
	Dst  string
}

// TransactionLog is the run's write-ahead ledger of filesystem
// operations. Appends are safe under concurrent workers; rollback
// replays entries in reverse insertion order. The log lives for one
// run only and is never carried across runs.
type TransactionLog struct {
	mu      sync.Mutex
	entries []LogEntry
	journal *Journal // optional durable copy, best-effort
}

// NewTransactionLog creates an empty log. journal may be nil.
func NewTransactionLog(journal *Journal) *TransactionLog {
	return &TransactionLog{journal: journal}
}

// Append records an operation. The journal write is best-effort: a
// journal failure is logged, never fatal, since the in-memory log is
// authoritative for this process.
func (l *TransactionLog) Append(kind EntryKind, src, dst string) {
	entry := LogEntry{Kind: kind, Src: src, Dst: dst}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	journal := l.journal
	l.mu.Unlock()

	if journal != nil {
		if err := journal.Append(entry); err != nil {
			slog.Warn("journal append failed", "kind", kind.String(), "src", src, "error", err)
		}
	}
}

// Len returns the number of entries logged so far.
func (l *TransactionLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries returns a copy of the log in insertion order.
func (l *TransactionLog) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Rollback inverts every logged entry in reverse insertion order and
// clears the log. Reversal is best-effort: an entry that cannot be
// inverted is logged and reversal continues, because the run is
// already failing and every restored file counts.
func (l *TransactionLog) Rollback() {
	l.mu.Lock()
	entries := l.entries
	l.entries = nil
	journal := l.journal
	l.mu.Unlock()

	rollbackEntries(entries)

	if journal != nil {
		if err := journal.Clear(); err != nil {
			slog.Warn("journal clear failed", "error", err)
		}
	}
}

// rollbackEntries replays entries in reverse, inverting each.
func rollbackEntries(entries []LogEntry) {
	for i := len(entries) - 1; i >= 0; i-- {
		if err := invert(entries[i]); err != nil {
			slog.Error("rollback step failed",
				"kind", entries[i].Kind.String(),
				"src", entries[i].Src,
				"dst", entries[i].Dst,
				"error", err)
		}
	}
}

func invert(e LogEntry) error {
	switch e.Kind {
	case EntryCopy:
		if _, err := os.Stat(e.Dst); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil // copy never landed, nothing to undo
			}
			return err
		}
		return os.Rename(e.Dst, e.Src)

	case EntryMove:
		if _, err := os.Stat(e.Src); err == nil {
			return nil // move never executed
		}
		if _, err := os.Stat(e.Dst); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		return os.Rename(e.Dst, e.Src)

	case EntryDelete:
		return nil

	default:
		return fmt.Errorf("unknown log entry kind %d", e.Kind)
	}
}
