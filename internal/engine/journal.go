package engine

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// journalFileName is the durable transaction journal kept inside the
// run's temp folder. It outlives a crashed process, letting a later
// `subtrans rollback` restore the tree; a run that commits or rolls
// back cleanly removes it.
const journalFileName = "journal.db"

// Journal is a sqlite-backed mirror of the transaction log.
type Journal struct {
	db     *sql.DB
	path   string
	closed bool
}

// OpenJournal opens (or creates) the journal for a run rooted at
// tempDir.
func OpenJournal(tempDir string) (*Journal, error) {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	path := filepath.Join(tempDir, journalFileName)

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}

	j := &Journal{db: db, path: path}
	if err := j.init(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) init() error {
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS oplog (
			seq  INTEGER PRIMARY KEY AUTOINCREMENT,
			kind INTEGER NOT NULL,
			src  TEXT NOT NULL,
			dst  TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create journal table: %w", err)
	}
	return nil
}

// Append records one entry.
func (j *Journal) Append(e LogEntry) error {
	_, err := j.db.Exec(
		"INSERT INTO oplog (kind, src, dst) VALUES (?, ?, ?)",
		int(e.Kind), e.Src, e.Dst,
	)
	if err != nil {
		return fmt.Errorf("journal insert: %w", err)
	}
	return nil
}

// Entries returns all journaled entries in insertion order.
func (j *Journal) Entries() ([]LogEntry, error) {
	rows, err := j.db.Query("SELECT kind, src, dst FROM oplog ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("journal select: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var kind int
		var e LogEntry
		if err := rows.Scan(&kind, &e.Src, &e.Dst); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		e.Kind = EntryKind(kind)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Clear drops all journaled entries.
func (j *Journal) Clear() error {
	_, err := j.db.Exec("DELETE FROM oplog")
	return err
}

// Close closes the database handle. Closing twice is safe.
func (j *Journal) Close() error {
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}

// Remove deletes the journal file.
func (j *Journal) Remove() error {
	err := os.Remove(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ReplayJournal rolls back a crashed run from its persisted journal:
// entries are inverted in reverse order, then the journal is removed.
// Returns the number of entries replayed, or an error if no journal
// exists under folder.
func ReplayJournal(folder string) (int, error) {
	path := filepath.Join(folder, TempDirName, journalFileName)
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("no journal found at %s: %w", path, err)
	}

	j, err := OpenJournal(filepath.Join(folder, TempDirName))
	if err != nil {
		return 0, err
	}

	entries, err := j.Entries()
	if err != nil {
		j.Close()
		return 0, err
	}

	rollbackEntries(entries)

	if err := j.Close(); err != nil {
		return len(entries), err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return len(entries), err
	}
	return len(entries), nil
}
